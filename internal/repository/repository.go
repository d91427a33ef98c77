package repository

import (
	"context"
	"time"
)

type UpsertAuditInput struct {
	ID              string
	TableName       string
	BaseName        string
	Prompt          string
	ReminderSeconds int64
	CreatedAt       time.Time
}

type CloseAuditInput struct {
	AuditID  string
	ClosedAt time.Time
}

type InsertResponseInput struct {
	TableName string
	UserID    string
	UserName  string
	Answer    string
}

type UserFlag string

const (
	UserFlagAdmin  UserFlag = "is_admin"
	UserFlagIgnore UserFlag = "is_ignore"
)

type UserRepository interface {
	UpsertUser(ctx context.Context, user User) (created bool, err error)
	MarkUsersDeleted(ctx context.Context, ids []string) error
	ListUsers(ctx context.Context) ([]User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByName(ctx context.Context, name string) (*User, error)
	ToggleUserFlag(ctx context.Context, id string, flag UserFlag) (bool, error)
	ListUsersByFlag(ctx context.Context, flag UserFlag) ([]User, error)
}

type AuditRepository interface {
	// UpsertAudit registers the audit or reactivates the row with the same table name.
	UpsertAudit(ctx context.Context, input UpsertAuditInput) (*Audit, error)
	CloseAudit(ctx context.Context, input CloseAuditInput) error
	GetActiveAudit(ctx context.Context) (*Audit, error)
	GetAuditByTableName(ctx context.Context, tableName string) (*Audit, error)
	ListAudits(ctx context.Context, limit int) ([]Audit, error)
}

type ResponseRepository interface {
	CreateResponseTable(ctx context.Context, tableName string) error
	// InsertResponse returns false when the user already has a row.
	InsertResponse(ctx context.Context, input InsertResponseInput) (bool, error)
	ListResponses(ctx context.Context, tableName string) ([]AuditResponse, error)
	SnapshotRoster(ctx context.Context, tableName string) (*RosterSnapshot, error)
}

type Repository interface {
	UserRepository
	AuditRepository
	ResponseRepository
}
