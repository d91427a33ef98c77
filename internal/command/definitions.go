package command

import "github.com/foxseedlab/auditbot/internal/discord"

const (
	commandAuditStart      = "audit_start"
	commandAuditStop       = "audit_stop"
	commandAuditUnanswered = "audit_unanswered"
	commandAnswer          = "answer"
	commandUserHelp        = "user_help"
	commandAdminShow       = "admin_show"
	commandUsersUpdate     = "users_update"
	commandIgnoreShow      = "ignore_show"
	commandIgnoreUpdate    = "ignore_update"
	commandAdminUpdate     = "admin_update"
	commandAuditsShow      = "audits_show"
	commandAuditGet        = "audit_get"

	optionPrompt   = "prompt"
	optionInterval = "interval"
	optionName     = "name"
	optionText     = "text"
	optionUsers    = "users"
)

// adminOnly lists commands gated on the admin flag.
var adminOnly = map[string]bool{
	commandAuditStart:      true,
	commandAuditStop:       true,
	commandAuditUnanswered: true,
	commandUsersUpdate:     true,
	commandIgnoreShow:      true,
	commandIgnoreUpdate:    true,
	commandAdminUpdate:     true,
	commandAuditsShow:      true,
	commandAuditGet:        true,
}

func SlashCommandDefinitions() []discord.SlashCommandDefinition {
	return []discord.SlashCommandDefinition{
		{
			Name:        commandAuditStart,
			Description: "Start an audit and message every user.",
			Options: []discord.SlashCommandOption{
				{Name: optionPrompt, Description: "Message users will receive", Required: true},
				{Name: optionInterval, Description: "Reminder interval such as 2h, 30m or 45s"},
				{Name: optionName, Description: "Audit base name, e.g. user_location"},
			},
		},
		{Name: commandAuditStop, Description: "Close the active audit and upload the report."},
		{Name: commandAuditUnanswered, Description: "Show users who have not answered yet."},
		{
			Name:        commandAnswer,
			Description: "Answer the active audit.",
			Options:     []discord.SlashCommandOption{{Name: optionText, Description: "Your answer", Required: true}},
		},
		{Name: commandUserHelp, Description: "How to answer an audit."},
		{Name: commandAdminShow, Description: "Show admin users."},
		{Name: commandUsersUpdate, Description: "Sync the user list from the server members."},
		{Name: commandIgnoreShow, Description: "Show users excluded from audits."},
		{
			Name:        commandIgnoreUpdate,
			Description: "Toggle the ignore flag of users.",
			Options:     []discord.SlashCommandOption{{Name: optionUsers, Description: "Space separated user names", Required: true}},
		},
		{
			Name:        commandAdminUpdate,
			Description: "Toggle the admin flag of users.",
			Options:     []discord.SlashCommandOption{{Name: optionUsers, Description: "Space separated user names", Required: true}},
		},
		{Name: commandAuditsShow, Description: "List recent audits."},
		{
			Name:        commandAuditGet,
			Description: "Download the report of a stored audit.",
			Options:     []discord.SlashCommandOption{{Name: optionName, Description: "Audit table name", Required: true}},
		},
	}
}

func CommandNames() []string {
	defs := SlashCommandDefinitions()
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Name)
	}
	return names
}
