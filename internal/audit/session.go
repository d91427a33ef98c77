package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foxseedlab/auditbot/internal/repository"
)

type State int

const (
	StateIdle State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const defaultSendTimeout = 10 * time.Second

type sessionOptions struct {
	interval     time.Duration
	reminderText string
	sendTimeout  time.Duration
}

// Session drives one audit: the response table and the reminder loop.
type Session struct {
	audit    repository.Audit
	opts     sessionOptions
	store    repository.ResponseRepository
	notifier Notifier

	mu     sync.RWMutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}

	iterations atomic.Int64
}

func newSession(a repository.Audit, store repository.ResponseRepository, notifier Notifier, opts sessionOptions) *Session {
	if opts.interval <= 0 {
		opts.interval = DefaultReminderInterval
	}
	if opts.sendTimeout <= 0 {
		opts.sendTimeout = defaultSendTimeout
	}
	return &Session{
		audit:    a,
		opts:     opts,
		store:    store,
		notifier: notifier,
		done:     make(chan struct{}),
	}
}

func (s *Session) Audit() repository.Audit {
	return s.audit
}

func (s *Session) Interval() time.Duration {
	return s.opts.interval
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Done is closed once the reminder loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Start attaches to (or creates) the response table and launches the
// reminder loop. firstMessage is sent on the first iteration only.
func (s *Session) Start(ctx context.Context, firstMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return fmt.Errorf("audit %s cannot start from state %s", s.audit.TableName, s.state)
	}
	if err := s.store.CreateResponseTable(ctx, s.audit.TableName); err != nil {
		return fmt.Errorf("create response table %s: %w", s.audit.TableName, err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.state = StateOpen
	slog.Info("audit session opened", "audit_id", s.audit.ID, "table", s.audit.TableName, "interval", s.opts.interval)
	go s.run(loopCtx, firstMessage)
	return nil
}

// Close moves the session to its terminal state and stops future sends.
// It waits for in-flight RecordAnswer calls and message sends to finish.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen {
		return ErrNotActive
	}
	s.state = StateClosed
	s.cancel()
	slog.Info("audit session closed", "audit_id", s.audit.ID, "table", s.audit.TableName, "iterations", s.iterations.Load())
	return nil
}

// stopLoop cancels reminders without closing the audit, so it can be resumed later.
func (s *Session) stopLoop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Session) RecordAnswer(ctx context.Context, userID, userName, answer string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateOpen {
		return ErrNotActive
	}
	inserted, err := s.store.InsertResponse(ctx, repository.InsertResponseInput{
		TableName: s.audit.TableName,
		UserID:    userID,
		UserName:  userName,
		Answer:    answer,
	})
	if err != nil {
		return fmt.Errorf("record answer in %s: %w", s.audit.TableName, err)
	}
	if !inserted {
		return ErrDuplicateAnswer
	}
	slog.Info("answer recorded", "audit_id", s.audit.ID, "user_id", userID)
	return nil
}

func (s *Session) Unanswered(ctx context.Context) ([]repository.User, error) {
	snap, err := s.store.SnapshotRoster(ctx, s.audit.TableName)
	if err != nil {
		return nil, fmt.Errorf("snapshot roster for %s: %w", s.audit.TableName, err)
	}
	return ResolveUnanswered(snap.Users, snap.Answered), nil
}

func (s *Session) run(ctx context.Context, message string) {
	defer close(s.done)
	slog.Info("reminder loop started", "audit_id", s.audit.ID)
	for {
		s.remind(ctx, message)
		message = s.opts.reminderText

		timer := time.NewTimer(s.opts.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("reminder loop stopped", "audit_id", s.audit.ID, "iterations", s.iterations.Load())
			return
		case <-timer.C:
		}
	}
}

type deliveryReport struct {
	targets   int
	delivered int
	failed    []string
	skipped   int
}

func (s *Session) remind(ctx context.Context, message string) {
	iteration := s.iterations.Add(1)
	targets, err := s.Unanswered(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("failed to resolve unanswered users", "error", err, "audit_id", s.audit.ID, "iteration", iteration)
		return
	}

	report := deliveryReport{targets: len(targets)}
	for i, u := range targets {
		dispatched, err := s.deliver(ctx, u.ID, message)
		if !dispatched {
			report.skipped = len(targets) - i
			break
		}
		if err != nil {
			report.failed = append(report.failed, u.ID)
			slog.Warn("failed to deliver audit message", "error", err, "audit_id", s.audit.ID, "user_id", u.ID)
			continue
		}
		report.delivered++
	}
	slog.Info("reminder iteration finished",
		"audit_id", s.audit.ID,
		"iteration", iteration,
		"targets", report.targets,
		"delivered", report.delivered,
		"failed", len(report.failed),
		"failed_user_ids", report.failed,
		"skipped", report.skipped)
}

// deliver holds the read lock for the whole send, so Close waits for an
// in-flight message and nothing is dispatched once it returns.
func (s *Session) deliver(ctx context.Context, userID, message string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateOpen || ctx.Err() != nil {
		return false, nil
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.sendTimeout)
	defer cancel()
	return true, s.notifier.SendDirectMessage(sendCtx, userID, message)
}
