package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/auditbot/internal/config"
	"github.com/foxseedlab/auditbot/internal/export"
	"github.com/foxseedlab/auditbot/internal/repository"
	"github.com/foxseedlab/auditbot/internal/webhook"
)

type sentMessage struct {
	userID string
	text   string
}

type notifierMock struct {
	mu     sync.Mutex
	sent   []sentMessage
	failOn map[string]bool

	// when set, every send blocks until release is closed
	gate    chan struct{}
	entered chan string
}

func (m *notifierMock) SendDirectMessage(ctx context.Context, userID, text string) error {
	if m.gate != nil {
		if m.entered != nil {
			m.entered <- userID
		}
		select {
		case <-m.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn[userID] {
		return errors.New("cannot send messages to this user")
	}
	m.sent = append(m.sent, sentMessage{userID: userID, text: text})
	return nil
}

func (m *notifierMock) messages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

func (m *notifierMock) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type exporterMock struct {
	mu    sync.Mutex
	calls []string
	rows  []repository.AuditResponse
	err   error
}

func (m *exporterMock) Export(_ context.Context, name string, rows []repository.AuditResponse) (*export.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
	if m.err != nil {
		return nil, m.err
	}
	m.rows = rows
	return &export.Artifact{Filename: name + ".xlsx", RowCount: len(rows)}, nil
}

func (m *exporterMock) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type webhookMock struct {
	mu       sync.Mutex
	payloads []webhook.ExportWebhookPayload
}

func (m *webhookMock) SendExport(_ context.Context, payload webhook.ExportWebhookPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads = append(m.payloads, payload)
	return nil
}

func (m *webhookMock) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payloads)
}

func testConfig() *config.Config {
	return &config.Config{
		AuditBaseName:       "user_location",
		AuditReminderText:   "Kindly reminder!",
		AuditTimezone:       "UTC",
		NotifierSendTimeout: time.Second,
	}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, message string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(message)
}
