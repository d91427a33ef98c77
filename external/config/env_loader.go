package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/auditbot/internal/config"
	"github.com/joho/godotenv"
)

const dotenvFile = ".env"

type envConfig struct {
	Env                  string        `env:"ENV" envDefault:"production"`
	DatabaseURL          string        `env:"DATABASE_URL,required"`
	DiscordToken         string        `env:"DISCORD_TOKEN,required"`
	DiscordGuildID       string        `env:"DISCORD_GUILD_ID,required"`
	AuditBaseName        string        `env:"AUDIT_BASE_NAME" envDefault:"user_location"`
	AuditDefaultReminder string        `env:"AUDIT_DEFAULT_REMINDER" envDefault:"2h"`
	AuditReminderText    string        `env:"AUDIT_REMINDER_TEXT" envDefault:"Kindly reminder! :arrow_up:"`
	AuditTimezone        string        `env:"AUDIT_TIMEZONE" envDefault:"UTC"`
	AuditDryRun          bool          `env:"AUDIT_DRY_RUN" envDefault:"false"`
	AuditAdminUserIDs    []string      `env:"AUDIT_ADMIN_USER_IDS" envSeparator:","`
	NotifierSendTimeout  time.Duration `env:"NOTIFIER_SEND_TIMEOUT" envDefault:"10s"`
	ExportDir            string        `env:"EXPORT_DIR" envDefault:"audit_files"`
	ExportAnswerHeader   string        `env:"EXPORT_ANSWER_HEADER" envDefault:"Answer"`
	ExportWebhookURL     string        `env:"EXPORT_WEBHOOK_URL"`
	HTTPAddr             string        `env:"HTTP_ADDR"`
	HTTPAuthToken        string        `env:"HTTP_AUTH_TOKEN"`
	RosterSyncCron       string        `env:"ROSTER_SYNC_CRON"`
	CommandManifestPath  string        `env:"COMMAND_MANIFEST_PATH"`
}

func Load() (*internalconfig.Config, error) {
	if err := godotenv.Load(dotenvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read dotenv file", "file", dotenvFile, "error", err)
	}

	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                  raw.Env,
		DatabaseURL:          raw.DatabaseURL,
		DiscordToken:         raw.DiscordToken,
		DiscordGuildID:       raw.DiscordGuildID,
		AuditBaseName:        raw.AuditBaseName,
		AuditDefaultReminder: raw.AuditDefaultReminder,
		AuditReminderText:    raw.AuditReminderText,
		AuditTimezone:        raw.AuditTimezone,
		AuditDryRun:          raw.AuditDryRun,
		AuditAdminUserIDs:    raw.AuditAdminUserIDs,
		NotifierSendTimeout:  raw.NotifierSendTimeout,
		ExportDir:            raw.ExportDir,
		ExportAnswerHeader:   raw.ExportAnswerHeader,
		ExportWebhookURL:     raw.ExportWebhookURL,
		HTTPAddr:             raw.HTTPAddr,
		HTTPAuthToken:        raw.HTTPAuthToken,
		RosterSyncCron:       raw.RosterSyncCron,
		CommandManifestPath:  raw.CommandManifestPath,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
