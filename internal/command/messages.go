package command

import (
	"fmt"
	"strings"

	"github.com/foxseedlab/auditbot/internal/repository"
)

const (
	messageWrongGuild      = ":warning: **This command cannot be used in this server.**"
	messageUnknownCommand  = ":warning: **Unknown command.**"
	messageNotAuthorized   = "You are not authorized to perform this action."
	messageInternalError   = ":warning: **Something went wrong. Please try again later.**"
	messageShadowAnswer    = "Sorry, do not understand. Use /user_help command or ask manager."
	messageUserHelp        = "Use next command to answer:\n /answer <your_location>\nFor example:\n /answer Paris"
	messageMissingPrompt   = ":warning: **Please provide the message users will receive.**"
	messageMissingAnswer   = ":warning: **Please provide your answer.**\n" + messageUserHelp
	messageMissingNames    = ":warning: **Please provide one or more user names.**"
	messageMissingAudit    = ":warning: **Please provide the audit name, e.g. user_location_04032026.**"
	messageAlreadyActive   = "There is already an active audit session."
	messageNothingToClose  = "There is no active audit session to close."
	messageNoActiveSession = "There is no active audit session"
	messageAnswerNoSession = "There is no active audit session. Please wait until an audit is started."
	messageAlreadyAnswered = "You have already answered this audit."
	messageInvalidBaseName = ":warning: **Audit name must start with a lowercase letter and use only a-z, 0-9 and _.**"
	messageAuditClosed     = "Audit closed!\nHere's report file :smile:"
	messageUploadFailed    = ":warning: **Audit closed, but the report file could not be uploaded.**"
	messageEveryoneDone    = "Everyone has answered."
	messageNoUsers         = "Nobody."
	messageNoAudits        = "No audits yet."

	titleAdmins     = "Admin users:"
	titleIgnored    = "Ignored users:"
	titleUnanswered = "Audit unanswered:"
	titleAudits     = "Audits:"
)

func auditStartedMessage(prompt string) string {
	return "Users will receive next message: \n" + prompt
}

func auditClosedSummary(rows int, filename string) string {
	return fmt.Sprintf("Audit closed. %d responses exported to `%s`.", rows, filename)
}

func auditReportCaption(name string) string {
	return fmt.Sprintf("Report for `%s`", name)
}

func auditUploadedMessage(name string, rows int) string {
	return fmt.Sprintf("Uploaded `%s` with %d responses.", name, rows)
}

func answerRecordedMessage(userID, answer string) string {
	return fmt.Sprintf("Thank you <@%s>! Your response '%s' has been recorded.", userID, answer)
}

func auditNotFoundMessage(name string) string {
	return fmt.Sprintf(":warning: **Audit `%s` not found.**", name)
}

func usersSyncedMessage(created, updated, deleted int) string {
	return fmt.Sprintf("Users updated: %d new, %d updated, %d flagged deleted.", created, updated, deleted)
}

func listUpdatedMessage(kind string, notFound []string) string {
	text := kind + " list updated"
	if len(notFound) > 0 {
		text += "\nCould not find the following users: " + strings.Join(notFound, ", ")
	}
	return text
}

func userListMessage(title string, users []repository.User, empty string) string {
	if len(users) == 0 {
		return title + "\n" + empty
	}
	lines := make([]string, 0, len(users)+1)
	lines = append(lines, title)
	for _, u := range users {
		lines = append(lines, "<@"+u.ID+">")
	}
	return strings.Join(lines, "\n")
}

func auditListMessage(audits []repository.Audit) string {
	if len(audits) == 0 {
		return titleAudits + "\n" + messageNoAudits
	}
	lines := make([]string, 0, len(audits)+1)
	lines = append(lines, titleAudits)
	for _, a := range audits {
		status := "closed"
		if a.IsActive {
			status = "active"
		}
		lines = append(lines, fmt.Sprintf("`%s` %s (%s)", a.TableName, a.CreatedAt.Format("2006-01-02 15:04"), status))
	}
	return strings.Join(lines, "\n")
}
