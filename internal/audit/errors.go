package audit

import "errors"

var (
	ErrSessionConflict = errors.New("an audit session is already active")
	ErrNotActive       = errors.New("no active audit session")
	ErrDuplicateAnswer = errors.New("answer already recorded for this user")
	ErrInvalidInterval = errors.New("invalid reminder interval")
	ErrInvalidBaseName = errors.New("invalid audit base name")
	ErrAuditNotFound   = errors.New("audit not found")
)
