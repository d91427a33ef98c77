package repository

import "time"

type User struct {
	ID        string
	Name      string
	RealName  string
	IsDeleted bool
	IsAdmin   bool
	IsIgnore  bool
}

// Eligible reports whether the user may receive audit prompts.
func (u User) Eligible() bool {
	return !u.IsDeleted && !u.IsIgnore
}

type Audit struct {
	ID              string
	TableName       string
	BaseName        string
	Prompt          string
	ReminderSeconds int64
	IsActive        bool
	CreatedAt       time.Time
	ClosedAt        *time.Time
}

type AuditResponse struct {
	UserID     string
	UserName   string
	Answer     string
	RecordedAt time.Time
}

// RosterSnapshot is the roster and the answered user ids read in one transaction.
type RosterSnapshot struct {
	Users    []User
	Answered map[string]struct{}
}
