package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/foxseedlab/auditbot/internal/config"
	"github.com/foxseedlab/auditbot/internal/export"
	"github.com/foxseedlab/auditbot/internal/repository"
	"github.com/foxseedlab/auditbot/internal/webhook"
	"github.com/google/uuid"
)

const (
	webhookTimeout      = 15 * time.Second
	shutdownLoopTimeout = 5 * time.Second
	defaultAuditListMax = 20
)

type OpenInput struct {
	// BaseName falls back to the configured AUDIT_BASE_NAME when empty.
	BaseName string
	Prompt   string
	// Interval uses h/m/s units, e.g. "30m". Empty means the configured default.
	Interval string
}

type CloseResult struct {
	Audit     repository.Audit
	Responses []repository.AuditResponse
	Artifact  *export.Artifact
}

// Manager owns the single active-session slot.
type Manager struct {
	cfg      *config.Config
	repo     repository.Repository
	notifier Notifier
	exporter export.Exporter
	webhook  webhook.Sender
	now      func() time.Time

	mu     sync.Mutex
	active *Session

	webhooks sync.WaitGroup
}

func NewManager(cfg *config.Config, repo repository.Repository, notifier Notifier, exporter export.Exporter, wh webhook.Sender) *Manager {
	return &Manager{
		cfg:      cfg,
		repo:     repo,
		notifier: notifier,
		exporter: exporter,
		webhook:  wh,
		now:      time.Now,
	}
}

func (m *Manager) OpenSession(ctx context.Context, in OpenInput) (*repository.Audit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		slog.Info("open rejected; audit already active", "table", m.active.audit.TableName)
		return nil, ErrSessionConflict
	}

	baseName := strings.TrimSpace(in.BaseName)
	if baseName == "" {
		baseName = m.cfg.AuditBaseName
	}
	rawInterval := strings.TrimSpace(in.Interval)
	if rawInterval == "" {
		rawInterval = m.cfg.AuditDefaultReminder
	}
	interval := ReminderIntervalOrDefault(rawInterval)

	now := m.now()
	tableName, err := TableName(baseName, now, m.cfg.Location())
	if err != nil {
		return nil, err
	}
	if err := m.closeOrphan(ctx, tableName, now); err != nil {
		return nil, err
	}

	a, err := m.repo.UpsertAudit(ctx, repository.UpsertAuditInput{
		ID:              uuid.NewString(),
		TableName:       tableName,
		BaseName:        baseName,
		Prompt:          in.Prompt,
		ReminderSeconds: int64(interval / time.Second),
		CreatedAt:       now,
	})
	if err != nil {
		return nil, fmt.Errorf("register audit %s: %w", tableName, err)
	}

	s := m.newSession(*a, interval)
	if err := s.Start(ctx, in.Prompt); err != nil {
		if cerr := m.repo.CloseAudit(ctx, repository.CloseAuditInput{AuditID: a.ID, ClosedAt: m.now()}); cerr != nil {
			slog.Error("failed to roll back audit registration", "error", cerr, "audit_id", a.ID)
		}
		return nil, err
	}
	m.active = s
	return a, nil
}

// closeOrphan marks an audit left active by a previous process as closed,
// unless it is the table about to be reopened.
func (m *Manager) closeOrphan(ctx context.Context, tableName string, now time.Time) error {
	orphan, err := m.repo.GetActiveAudit(ctx)
	if err != nil {
		return fmt.Errorf("query active audit: %w", err)
	}
	if orphan == nil || orphan.TableName == tableName {
		return nil
	}
	slog.Warn("found orphan active audit in repository; closing and continuing", "audit_id", orphan.ID, "table", orphan.TableName)
	if err := m.repo.CloseAudit(ctx, repository.CloseAuditInput{AuditID: orphan.ID, ClosedAt: now}); err != nil {
		return fmt.Errorf("close orphan audit %s: %w", orphan.TableName, err)
	}
	return nil
}

// Resume reattaches to an audit still marked active in storage, e.g. after a
// restart. The first iteration sends the reminder text, not the prompt.
func (m *Manager) Resume(ctx context.Context) (*repository.Audit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		return nil, nil
	}
	a, err := m.repo.GetActiveAudit(ctx)
	if err != nil {
		return nil, fmt.Errorf("query active audit: %w", err)
	}
	if a == nil {
		return nil, nil
	}
	s := m.newSession(*a, time.Duration(a.ReminderSeconds)*time.Second)
	if err := s.Start(ctx, m.cfg.AuditReminderText); err != nil {
		return nil, err
	}
	m.active = s
	slog.Info("resumed active audit", "audit_id", a.ID, "table", a.TableName)
	return a, nil
}

func (m *Manager) newSession(a repository.Audit, interval time.Duration) *Session {
	return newSession(a, m.repo, m.notifier, sessionOptions{
		interval:     interval,
		reminderText: m.cfg.AuditReminderText,
		sendTimeout:  m.cfg.NotifierSendTimeout,
	})
}

func (m *Manager) activeSession() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Active returns the open audit, if any.
func (m *Manager) Active() (repository.Audit, bool) {
	s := m.activeSession()
	if s == nil {
		return repository.Audit{}, false
	}
	return s.Audit(), true
}

func (m *Manager) RecordAnswer(ctx context.Context, userID, userName, answer string) error {
	s := m.activeSession()
	if s == nil {
		return ErrNotActive
	}
	return s.RecordAnswer(ctx, userID, userName, answer)
}

func (m *Manager) CurrentUnanswered(ctx context.Context) ([]repository.User, error) {
	s := m.activeSession()
	if s == nil {
		return nil, ErrNotActive
	}
	return s.Unanswered(ctx)
}

// CloseSession stops the reminder loop, marks the audit closed, exports its
// rows and frees the slot. The slot is freed even when export fails.
func (m *Manager) CloseSession(ctx context.Context) (*CloseResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.active
	if s == nil {
		return nil, ErrNotActive
	}
	if err := s.Close(); err != nil {
		return nil, err
	}
	m.active = nil

	a := s.Audit()
	closedAt := m.now()
	if err := m.repo.CloseAudit(ctx, repository.CloseAuditInput{AuditID: a.ID, ClosedAt: closedAt}); err != nil {
		return nil, fmt.Errorf("mark audit %s closed: %w", a.TableName, err)
	}
	a.IsActive = false
	a.ClosedAt = &closedAt

	result, err := m.export(ctx, a)
	if err != nil {
		return nil, err
	}
	m.sendWebhookAsync(result)
	return result, nil
}

// ExportAudit re-exports a stored audit by table name.
func (m *Manager) ExportAudit(ctx context.Context, tableName string) (*CloseResult, error) {
	if !ValidTableName(tableName) {
		return nil, fmt.Errorf("%w: %q", ErrAuditNotFound, tableName)
	}
	a, err := m.repo.GetAuditByTableName(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("query audit %s: %w", tableName, err)
	}
	if a == nil {
		return nil, fmt.Errorf("%w: %q", ErrAuditNotFound, tableName)
	}
	return m.export(ctx, *a)
}

func (m *Manager) ListAudits(ctx context.Context) ([]repository.Audit, error) {
	return m.repo.ListAudits(ctx, defaultAuditListMax)
}

func (m *Manager) export(ctx context.Context, a repository.Audit) (*CloseResult, error) {
	rows, err := m.repo.ListResponses(ctx, a.TableName)
	if err != nil {
		return nil, fmt.Errorf("list responses of %s: %w", a.TableName, err)
	}
	artifact, err := m.exporter.Export(ctx, a.TableName, rows)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", a.TableName, err)
	}
	slog.Info("audit exported", "audit_id", a.ID, "table", a.TableName, "rows", len(rows), "file", artifact.Filename)
	return &CloseResult{Audit: a, Responses: rows, Artifact: artifact}, nil
}

func (m *Manager) sendWebhookAsync(result *CloseResult) {
	payload := buildExportWebhookPayload(result, m.cfg.AuditTimezone, m.cfg.Location())
	m.webhooks.Add(1)
	go func() {
		defer m.webhooks.Done()
		ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
		defer cancel()
		if err := m.webhook.SendExport(ctx, payload); err != nil {
			slog.Error("failed to send export webhook", "error", err, "audit_id", result.Audit.ID)
		}
	}()
}

// Shutdown stops the reminder loop but leaves the audit active in storage.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	s := m.active
	m.active = nil
	m.mu.Unlock()

	if s != nil {
		s.stopLoop()
		timeout, cancel := context.WithTimeout(ctx, shutdownLoopTimeout)
		defer cancel()
		select {
		case <-s.Done():
		case <-timeout.Done():
			slog.Warn("reminder loop did not stop before shutdown deadline", "audit_id", s.audit.ID)
		}
	}
	m.webhooks.Wait()
}

// IsUserFacing reports whether err should be turned into a message for the
// caller rather than treated as an internal failure.
func IsUserFacing(err error) bool {
	return errors.Is(err, ErrSessionConflict) ||
		errors.Is(err, ErrNotActive) ||
		errors.Is(err, ErrDuplicateAnswer) ||
		errors.Is(err, ErrInvalidBaseName) ||
		errors.Is(err, ErrAuditNotFound)
}
