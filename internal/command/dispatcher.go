// Package command maps chat commands onto the audit manager and the user
// directory. Authorization happens here; the audit core never checks roles.
package command

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/foxseedlab/auditbot/internal/audit"
	"github.com/foxseedlab/auditbot/internal/config"
	"github.com/foxseedlab/auditbot/internal/discord"
	"github.com/foxseedlab/auditbot/internal/repository"
	"github.com/foxseedlab/auditbot/internal/roster"
)

const commandTimeout = 30 * time.Second

type AuditService interface {
	OpenSession(ctx context.Context, in audit.OpenInput) (*repository.Audit, error)
	CloseSession(ctx context.Context) (*audit.CloseResult, error)
	RecordAnswer(ctx context.Context, userID, userName, answer string) error
	CurrentUnanswered(ctx context.Context) ([]repository.User, error)
	ExportAudit(ctx context.Context, tableName string) (*audit.CloseResult, error)
	ListAudits(ctx context.Context) ([]repository.Audit, error)
}

type UserDirectory interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
	Admins(ctx context.Context) ([]repository.User, error)
	Ignored(ctx context.Context) ([]repository.User, error)
	ToggleIgnore(ctx context.Context, names []string) ([]string, error)
	ToggleAdmin(ctx context.Context, names []string) ([]string, error)
}

type RosterRefresher interface {
	Refresh(ctx context.Context) (*roster.SyncReport, error)
}

type FileSender interface {
	SendChannelMessageWithFile(msg discord.FileMessage) error
}

type Dispatcher struct {
	cfg       *config.Config
	audits    AuditService
	directory UserDirectory
	refresher RosterRefresher
	files     FileSender
}

func NewDispatcher(cfg *config.Config, audits AuditService, directory UserDirectory, refresher RosterRefresher, files FileSender) *Dispatcher {
	return &Dispatcher{
		cfg:       cfg,
		audits:    audits,
		directory: directory,
		refresher: refresher,
		files:     files,
	}
}

func (d *Dispatcher) HandleSlashCommand(event discord.SlashCommandEvent) {
	if event.GuildID != "" && event.GuildID != d.cfg.DiscordGuildID {
		d.reply(event.RespondEphemeral, messageWrongGuild, event)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if adminOnly[event.CommandName] {
		ok, err := d.isAdmin(ctx, event.UserID)
		if err != nil {
			slog.Error("failed to check admin flag", "error", err, "user_id", event.UserID)
			d.reply(event.RespondEphemeral, messageInternalError, event)
			return
		}
		if !ok {
			slog.Info("command rejected; not an admin", "command", event.CommandName, "user_id", event.UserID)
			d.reply(event.RespondEphemeral, messageNotAuthorized, event)
			return
		}
	}

	switch event.CommandName {
	case commandAuditStart:
		d.startAudit(ctx, event)
	case commandAuditStop:
		d.stopAudit(ctx, event)
	case commandAuditUnanswered:
		d.showUnanswered(ctx, event)
	case commandAnswer:
		d.answer(ctx, event)
	case commandUserHelp:
		d.reply(event.RespondEphemeral, messageUserHelp, event)
	case commandAdminShow:
		d.showUsers(ctx, event, titleAdmins, d.directory.Admins)
	case commandIgnoreShow:
		d.showUsers(ctx, event, titleIgnored, d.directory.Ignored)
	case commandUsersUpdate:
		d.updateUsers(ctx, event)
	case commandIgnoreUpdate:
		d.toggleFlag(ctx, event, "Ignore", d.directory.ToggleIgnore)
	case commandAdminUpdate:
		d.toggleFlag(ctx, event, "Admin", d.directory.ToggleAdmin)
	case commandAuditsShow:
		d.showAudits(ctx, event)
	case commandAuditGet:
		d.getAudit(ctx, event)
	default:
		d.reply(event.RespondEphemeral, messageUnknownCommand, event)
	}
}

// HandleDirectMessage answers free text with usage help; answers go through /answer.
func (d *Dispatcher) HandleDirectMessage(event discord.DirectMessageEvent) {
	slog.Debug("direct message received", "user_id", event.UserID, "channel_id", event.ChannelID)
	if event.Reply == nil {
		return
	}
	if err := event.Reply(messageShadowAnswer); err != nil {
		slog.Error("failed to reply to direct message", "error", err, "user_id", event.UserID)
	}
}

func (d *Dispatcher) isAdmin(ctx context.Context, userID string) (bool, error) {
	if d.cfg.IsBootstrapAdmin(userID) {
		return true, nil
	}
	return d.directory.IsAdmin(ctx, userID)
}

func (d *Dispatcher) startAudit(ctx context.Context, event discord.SlashCommandEvent) {
	prompt := strings.TrimSpace(event.Options[optionPrompt])
	if prompt == "" {
		d.reply(event.RespondEphemeral, messageMissingPrompt, event)
		return
	}
	a, err := d.audits.OpenSession(ctx, audit.OpenInput{
		BaseName: event.Options[optionName],
		Prompt:   prompt,
		Interval: event.Options[optionInterval],
	})
	switch {
	case errors.Is(err, audit.ErrSessionConflict):
		d.reply(event.RespondEphemeral, messageAlreadyActive, event)
	case errors.Is(err, audit.ErrInvalidBaseName):
		d.reply(event.RespondEphemeral, messageInvalidBaseName, event)
	case err != nil:
		slog.Error("failed to open audit", "error", err, "user_id", event.UserID)
		d.reply(event.RespondEphemeral, messageInternalError, event)
	default:
		slog.Info("audit started by command", "audit_id", a.ID, "table", a.TableName, "user_id", event.UserID)
		d.reply(event.Respond, auditStartedMessage(prompt), event)
	}
}

func (d *Dispatcher) stopAudit(ctx context.Context, event discord.SlashCommandEvent) {
	result, err := d.audits.CloseSession(ctx)
	switch {
	case errors.Is(err, audit.ErrNotActive):
		d.reply(event.RespondEphemeral, messageNothingToClose, event)
		return
	case err != nil:
		slog.Error("failed to close audit", "error", err, "user_id", event.UserID)
		d.reply(event.RespondEphemeral, messageInternalError, event)
		return
	}
	if err := d.uploadReport(event.ChannelID, result); err != nil {
		slog.Error("failed to upload audit report", "error", err, "table", result.Audit.TableName, "channel_id", event.ChannelID)
		d.reply(event.RespondEphemeral, messageUploadFailed, event)
		return
	}
	d.reply(event.RespondEphemeral, auditClosedSummary(len(result.Responses), result.Artifact.Filename), event)
}

func (d *Dispatcher) uploadReport(channelID string, result *audit.CloseResult) error {
	return d.files.SendChannelMessageWithFile(discord.FileMessage{
		ChannelID:   channelID,
		Content:     messageAuditClosed,
		Filename:    result.Artifact.Filename,
		ContentType: result.Artifact.ContentType,
		FileBody:    result.Artifact.Body,
	})
}

func (d *Dispatcher) showUnanswered(ctx context.Context, event discord.SlashCommandEvent) {
	users, err := d.audits.CurrentUnanswered(ctx)
	switch {
	case errors.Is(err, audit.ErrNotActive):
		d.reply(event.RespondEphemeral, messageNoActiveSession, event)
	case err != nil:
		slog.Error("failed to resolve unanswered users", "error", err)
		d.reply(event.RespondEphemeral, messageInternalError, event)
	default:
		d.reply(event.RespondEphemeral, userListMessage(titleUnanswered, users, messageEveryoneDone), event)
	}
}

func (d *Dispatcher) answer(ctx context.Context, event discord.SlashCommandEvent) {
	text := strings.TrimSpace(event.Options[optionText])
	if text == "" {
		d.reply(event.RespondEphemeral, messageMissingAnswer, event)
		return
	}
	err := d.audits.RecordAnswer(ctx, event.UserID, event.UserName, text)
	switch {
	case errors.Is(err, audit.ErrNotActive):
		d.reply(event.RespondEphemeral, messageAnswerNoSession, event)
	case errors.Is(err, audit.ErrDuplicateAnswer):
		d.reply(event.RespondEphemeral, messageAlreadyAnswered, event)
	case err != nil:
		slog.Error("failed to record answer", "error", err, "user_id", event.UserID)
		d.reply(event.RespondEphemeral, messageInternalError, event)
	default:
		d.reply(event.RespondEphemeral, answerRecordedMessage(event.UserID, text), event)
	}
}

func (d *Dispatcher) showUsers(ctx context.Context, event discord.SlashCommandEvent, title string, list func(context.Context) ([]repository.User, error)) {
	users, err := list(ctx)
	if err != nil {
		slog.Error("failed to list users", "error", err, "command", event.CommandName)
		d.reply(event.RespondEphemeral, messageInternalError, event)
		return
	}
	d.reply(event.RespondEphemeral, userListMessage(title, users, messageNoUsers), event)
}

func (d *Dispatcher) updateUsers(ctx context.Context, event discord.SlashCommandEvent) {
	report, err := d.refresher.Refresh(ctx)
	if err != nil {
		slog.Error("failed to sync users", "error", err)
		d.reply(event.RespondEphemeral, messageInternalError, event)
		return
	}
	d.reply(event.RespondEphemeral, usersSyncedMessage(report.Created, report.Updated, len(report.NotFound)), event)
}

func (d *Dispatcher) toggleFlag(ctx context.Context, event discord.SlashCommandEvent, kind string, toggle func(context.Context, []string) ([]string, error)) {
	names := roster.SplitNames(event.Options[optionUsers])
	if len(names) == 0 {
		d.reply(event.RespondEphemeral, messageMissingNames, event)
		return
	}
	notFound, err := toggle(ctx, names)
	if err != nil {
		slog.Error("failed to toggle user flag", "error", err, "command", event.CommandName)
		d.reply(event.RespondEphemeral, messageInternalError, event)
		return
	}
	d.reply(event.RespondEphemeral, listUpdatedMessage(kind, notFound), event)
}

func (d *Dispatcher) showAudits(ctx context.Context, event discord.SlashCommandEvent) {
	audits, err := d.audits.ListAudits(ctx)
	if err != nil {
		slog.Error("failed to list audits", "error", err)
		d.reply(event.RespondEphemeral, messageInternalError, event)
		return
	}
	d.reply(event.RespondEphemeral, auditListMessage(audits), event)
}

func (d *Dispatcher) getAudit(ctx context.Context, event discord.SlashCommandEvent) {
	name := strings.TrimSpace(event.Options[optionName])
	if name == "" {
		d.reply(event.RespondEphemeral, messageMissingAudit, event)
		return
	}
	result, err := d.audits.ExportAudit(ctx, name)
	switch {
	case errors.Is(err, audit.ErrAuditNotFound):
		d.reply(event.RespondEphemeral, auditNotFoundMessage(name), event)
		return
	case err != nil:
		slog.Error("failed to export audit", "error", err, "table", name)
		d.reply(event.RespondEphemeral, messageInternalError, event)
		return
	}
	if err := d.files.SendChannelMessageWithFile(discord.FileMessage{
		ChannelID:   event.ChannelID,
		Content:     auditReportCaption(name),
		Filename:    result.Artifact.Filename,
		ContentType: result.Artifact.ContentType,
		FileBody:    result.Artifact.Body,
	}); err != nil {
		slog.Error("failed to upload audit report", "error", err, "table", name)
		d.reply(event.RespondEphemeral, messageInternalError, event)
		return
	}
	d.reply(event.RespondEphemeral, auditUploadedMessage(name, len(result.Responses)), event)
}

func (d *Dispatcher) reply(respond func(string) error, content string, event discord.SlashCommandEvent) {
	if respond == nil {
		return
	}
	if err := respond(content); err != nil {
		slog.Error("failed to respond to slash command", "error", err, "command", event.CommandName, "user_id", event.UserID)
	}
}
