package config

import (
	"fmt"
	"regexp"
	"time"
)

var baseNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,39}$`)

// ValidBaseName reports whether name can prefix an audit table name.
func ValidBaseName(name string) bool {
	return baseNamePattern.MatchString(name)
}

type Config struct {
	Env                  string
	DatabaseURL          string
	DiscordToken         string
	DiscordGuildID       string
	AuditBaseName        string
	AuditDefaultReminder string
	AuditReminderText    string
	AuditTimezone        string
	AuditDryRun          bool
	AuditAdminUserIDs    []string
	NotifierSendTimeout  time.Duration
	ExportDir            string
	ExportAnswerHeader   string
	ExportWebhookURL     string
	HTTPAddr             string
	HTTPAuthToken        string
	RosterSyncCron       string
	CommandManifestPath  string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if !ValidBaseName(c.AuditBaseName) {
		return fmt.Errorf("AUDIT_BASE_NAME must match %s, got %q", baseNamePattern, c.AuditBaseName)
	}
	if c.NotifierSendTimeout <= 0 {
		return fmt.Errorf("NOTIFIER_SEND_TIMEOUT must be positive, got %s", c.NotifierSendTimeout)
	}
	if _, err := time.LoadLocation(c.AuditTimezone); err != nil {
		return fmt.Errorf("AUDIT_TIMEZONE is invalid: %w", err)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "DATABASE_URL", value: c.DatabaseURL},
		{name: "DISCORD_TOKEN", value: c.DiscordToken},
		{name: "DISCORD_GUILD_ID", value: c.DiscordGuildID},
		{name: "AUDIT_TIMEZONE", value: c.AuditTimezone},
		{name: "EXPORT_DIR", value: c.ExportDir},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Location returns the zone used to date audit tables. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.AuditTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) IsBootstrapAdmin(userID string) bool {
	for _, id := range c.AuditAdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
