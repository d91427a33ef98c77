package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/foxseedlab/auditbot/internal/repository"
	"github.com/foxseedlab/auditbot/internal/repository/repositorytest"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.March, 4, 9, 0, 0, 0, time.UTC)

type managerFixture struct {
	repo     *repositorytest.Memory
	notifier *notifierMock
	exporter *exporterMock
	webhook  *webhookMock
	m        *Manager
}

func newManagerFixture(t *testing.T, users ...repository.User) *managerFixture {
	t.Helper()
	f := &managerFixture{
		repo:     repositorytest.NewMemory(users...),
		notifier: &notifierMock{},
		exporter: &exporterMock{},
		webhook:  &webhookMock{},
	}
	f.m = NewManager(testConfig(), f.repo, f.notifier, f.exporter, f.webhook)
	f.m.now = func() time.Time { return testNow }
	t.Cleanup(func() { f.m.Shutdown(context.Background()) })
	return f
}

func TestManager_EndToEndAudit(t *testing.T) {
	f := newManagerFixture(t,
		repository.User{ID: "A", Name: "alice"},
		repository.User{ID: "B", Name: "bob"},
		repository.User{ID: "C", Name: "carol", IsIgnore: true},
	)
	ctx := context.Background()

	a, err := f.m.OpenSession(ctx, OpenInput{Prompt: "Where are you?", Interval: "1s"})
	require.NoError(t, err)
	require.Equal(t, "user_location_04032026", a.TableName)
	require.Equal(t, int64(1), a.ReminderSeconds)

	waitUntil(t, time.Second, func() bool { return f.notifier.count() == 2 }, "prompt was not sent to A and B")
	require.Equal(t, []sentMessage{
		{userID: "A", text: "Where are you?"},
		{userID: "B", text: "Where are you?"},
	}, f.notifier.messages())

	require.NoError(t, f.m.RecordAnswer(ctx, "A", "alice", "Paris"))

	unanswered, err := f.m.CurrentUnanswered(ctx)
	require.NoError(t, err)
	require.Len(t, unanswered, 1)
	require.Equal(t, "B", unanswered[0].ID)

	// next iteration reminds B only
	waitUntil(t, 3*time.Second, func() bool { return f.notifier.count() >= 3 }, "second iteration did not run")
	for _, msg := range f.notifier.messages()[2:] {
		require.Equal(t, sentMessage{userID: "B", text: "Kindly reminder!"}, msg)
	}

	result, err := f.m.CloseSession(ctx)
	require.NoError(t, err)
	require.Len(t, result.Responses, 1)
	require.Equal(t, "A", result.Responses[0].UserID)
	require.Equal(t, "Paris", result.Responses[0].Answer)
	require.Equal(t, 1, result.Artifact.RowCount)
	require.Equal(t, result.Responses, f.exporter.rows)
	require.False(t, result.Audit.IsActive)
	require.NotNil(t, result.Audit.ClosedAt)

	sent := f.notifier.count()
	_, active := f.m.Active()
	require.False(t, active)
	require.ErrorIs(t, f.m.RecordAnswer(ctx, "B", "bob", "Rome"), ErrNotActive)

	stored, err := f.repo.GetAuditByTableName(ctx, a.TableName)
	require.NoError(t, err)
	require.False(t, stored.IsActive)

	waitUntil(t, time.Second, func() bool { return f.webhook.count() == 1 }, "export webhook was not sent")
	time.Sleep(1200 * time.Millisecond)
	require.Equal(t, sent, f.notifier.count())
}

func TestManager_OpenConflictLeavesActiveSessionUnchanged(t *testing.T) {
	f := newManagerFixture(t, testRoster()...)
	ctx := context.Background()

	first, err := f.m.OpenSession(ctx, OpenInput{Prompt: "Where are you?", Interval: "1h"})
	require.NoError(t, err)

	_, err = f.m.OpenSession(ctx, OpenInput{BaseName: "other", Prompt: "Second?", Interval: "5m"})
	require.ErrorIs(t, err, ErrSessionConflict)

	current, ok := f.m.Active()
	require.True(t, ok)
	require.Equal(t, first.ID, current.ID)
	require.Equal(t, "Where are you?", current.Prompt)
	require.False(t, f.repo.HasTable("other_04032026"))
}

func TestManager_DuplicateAnswerKeepsFirst(t *testing.T) {
	f := newManagerFixture(t, testRoster()...)
	ctx := context.Background()

	a, err := f.m.OpenSession(ctx, OpenInput{Prompt: "Where are you?", Interval: "1h"})
	require.NoError(t, err)

	require.NoError(t, f.m.RecordAnswer(ctx, "A", "alice", "Paris"))
	err = f.m.RecordAnswer(ctx, "A", "alice", "Rome")
	require.ErrorIs(t, err, ErrDuplicateAnswer)
	require.True(t, IsUserFacing(err))

	rows := f.repo.Responses(a.TableName)
	require.Len(t, rows, 1)
	require.Equal(t, "Paris", rows[0].Answer)
}

func TestManager_CloseWithoutSessionDoesNotExport(t *testing.T) {
	f := newManagerFixture(t)

	_, err := f.m.CloseSession(context.Background())
	require.ErrorIs(t, err, ErrNotActive)
	require.Zero(t, f.exporter.callCount())

	_, err = f.m.CurrentUnanswered(context.Background())
	require.ErrorIs(t, err, ErrNotActive)
}

func TestManager_ExportFailureStillFreesSlot(t *testing.T) {
	f := newManagerFixture(t, testRoster()...)
	ctx := context.Background()
	f.exporter.err = errors.New("disk full")

	_, err := f.m.OpenSession(ctx, OpenInput{Prompt: "Where are you?", Interval: "1h"})
	require.NoError(t, err)

	_, err = f.m.CloseSession(ctx)
	require.ErrorIs(t, err, f.exporter.err)
	require.False(t, IsUserFacing(err))

	_, active := f.m.Active()
	require.False(t, active)
	require.Zero(t, f.webhook.count())

	_, err = f.m.OpenSession(ctx, OpenInput{BaseName: "second", Prompt: "Again?", Interval: "1h"})
	require.NoError(t, err)
}

func TestManager_InvalidIntervalFallsBackToDefault(t *testing.T) {
	f := newManagerFixture(t, testRoster()...)

	a, err := f.m.OpenSession(context.Background(), OpenInput{Prompt: "Where are you?", Interval: "5x"})
	require.NoError(t, err)
	require.Equal(t, int64(7200), a.ReminderSeconds)
}

func TestManager_InvalidBaseNameKeepsSlotFree(t *testing.T) {
	f := newManagerFixture(t, testRoster()...)

	_, err := f.m.OpenSession(context.Background(), OpenInput{BaseName: "Bad-Name", Prompt: "Where are you?"})
	require.ErrorIs(t, err, ErrInvalidBaseName)
	require.True(t, IsUserFacing(err))

	_, active := f.m.Active()
	require.False(t, active)
}

func TestManager_ReopenSameDayReactivatesAudit(t *testing.T) {
	f := newManagerFixture(t, testRoster()...)
	ctx := context.Background()

	first, err := f.m.OpenSession(ctx, OpenInput{Prompt: "Where are you?", Interval: "1h"})
	require.NoError(t, err)
	require.NoError(t, f.m.RecordAnswer(ctx, "A", "alice", "Paris"))
	_, err = f.m.CloseSession(ctx)
	require.NoError(t, err)

	second, err := f.m.OpenSession(ctx, OpenInput{Prompt: "Still there?", Interval: "1h"})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.True(t, second.IsActive)

	// the earlier answer still counts for the day
	require.ErrorIs(t, f.m.RecordAnswer(ctx, "A", "alice", "Rome"), ErrDuplicateAnswer)
}

func TestManager_OpenClosesOrphanFromAnotherTable(t *testing.T) {
	f := newManagerFixture(t, testRoster()...)
	ctx := context.Background()
	orphan, err := f.repo.UpsertAudit(ctx, repository.UpsertAuditInput{
		ID:        "orphan",
		TableName: "user_location_03032026",
		BaseName:  "user_location",
		CreatedAt: testNow.Add(-24 * time.Hour),
	})
	require.NoError(t, err)

	_, err = f.m.OpenSession(ctx, OpenInput{Prompt: "Where are you?", Interval: "1h"})
	require.NoError(t, err)

	stored, err := f.repo.GetAuditByTableName(ctx, orphan.TableName)
	require.NoError(t, err)
	require.False(t, stored.IsActive)
}

func TestManager_ResumeSendsReminderText(t *testing.T) {
	f := newManagerFixture(t, testRoster()...)
	ctx := context.Background()
	_, err := f.repo.UpsertAudit(ctx, repository.UpsertAuditInput{
		ID:              "resumed",
		TableName:       testTable,
		BaseName:        "user_location",
		Prompt:          "Where are you?",
		ReminderSeconds: 3600,
		CreatedAt:       testNow,
	})
	require.NoError(t, err)

	a, err := f.m.Resume(ctx)
	require.NoError(t, err)
	require.NotNil(t, a)
	require.Equal(t, "resumed", a.ID)

	waitUntil(t, time.Second, func() bool { return f.notifier.count() == 3 }, "resumed loop did not remind")
	for _, msg := range f.notifier.messages() {
		require.Equal(t, "Kindly reminder!", msg.text)
	}

	// nothing to resume once a session is attached
	again, err := f.m.Resume(ctx)
	require.NoError(t, err)
	require.Nil(t, again)
}

func TestManager_ShutdownLeavesAuditActiveInStorage(t *testing.T) {
	f := newManagerFixture(t, testRoster()...)
	ctx := context.Background()

	a, err := f.m.OpenSession(ctx, OpenInput{Prompt: "Where are you?", Interval: "1h"})
	require.NoError(t, err)

	f.m.Shutdown(ctx)

	_, active := f.m.Active()
	require.False(t, active)
	stored, err := f.repo.GetActiveAudit(ctx)
	require.NoError(t, err)
	require.Equal(t, a.ID, stored.ID)
	require.Zero(t, f.exporter.callCount())
}

func TestManager_ExportAuditByTableName(t *testing.T) {
	f := newManagerFixture(t, testRoster()...)
	ctx := context.Background()

	a, err := f.m.OpenSession(ctx, OpenInput{Prompt: "Where are you?", Interval: "1h"})
	require.NoError(t, err)
	require.NoError(t, f.m.RecordAnswer(ctx, "B", "bob", "Rome"))

	result, err := f.m.ExportAudit(ctx, a.TableName)
	require.NoError(t, err)
	require.Len(t, result.Responses, 1)

	_, err = f.m.ExportAudit(ctx, "user_location_01012020")
	require.ErrorIs(t, err, ErrAuditNotFound)
	_, err = f.m.ExportAudit(ctx, "users; --")
	require.ErrorIs(t, err, ErrAuditNotFound)

	audits, err := f.m.ListAudits(ctx)
	require.NoError(t, err)
	require.Len(t, audits, 1)
}
