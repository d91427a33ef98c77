package repository

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/auditbot/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

const testTable = "user_location_04032026"

// newTestRepository migrates a throwaway schema in TEST_DATABASE_URL.
func newTestRepository(t *testing.T) *PostgresRepository {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}
	ctx := context.Background()
	schema := pgx.Identifier{"auditbot_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")}

	admin, err := pgx.Connect(ctx, url)
	require.NoError(t, err)
	_, err = admin.Exec(ctx, "CREATE SCHEMA "+schema.Sanitize())
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+schema.Sanitize()+" CASCADE")
		_ = admin.Close(context.Background())
	})

	cfg, err := pgxpool.ParseConfig(url)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schema[0]
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, RunMigration(ctx, pool))
	return &PostgresRepository{pool: pool}
}

func seedUsers(t *testing.T, r *PostgresRepository, users ...repository.User) {
	t.Helper()
	for _, u := range users {
		_, err := r.UpsertUser(context.Background(), u)
		require.NoError(t, err)
	}
}

func TestPostgres_InsertResponseRejectsSecondAnswer(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()
	require.NoError(t, r.CreateResponseTable(ctx, testTable))

	inserted, err := r.InsertResponse(ctx, repository.InsertResponseInput{TableName: testTable, UserID: "A", UserName: "alice", Answer: "Paris"})
	require.NoError(t, err)
	require.True(t, inserted)

	inserted, err = r.InsertResponse(ctx, repository.InsertResponseInput{TableName: testTable, UserID: "A", UserName: "alice", Answer: "Rome"})
	require.NoError(t, err)
	require.False(t, inserted)

	rows, err := r.ListResponses(ctx, testTable)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Paris", rows[0].Answer)
}

func TestPostgres_ConcurrentInsertsFromOneUserKeepOneRow(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()
	require.NoError(t, r.CreateResponseTable(ctx, testTable))

	const workers = 10
	var wg sync.WaitGroup
	results := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inserted, err := r.InsertResponse(ctx, repository.InsertResponseInput{TableName: testTable, UserID: "A", UserName: "alice", Answer: "Paris"})
			if err != nil {
				t.Errorf("insert failed: %v", err)
			}
			results <- inserted
		}()
	}
	wg.Wait()
	close(results)

	var wins int
	for inserted := range results {
		if inserted {
			wins++
		}
	}
	require.Equal(t, 1, wins)
}

func TestPostgres_ListResponsesInInsertOrder(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()
	require.NoError(t, r.CreateResponseTable(ctx, testTable))

	for _, id := range []string{"C", "A", "B"} {
		_, err := r.InsertResponse(ctx, repository.InsertResponseInput{TableName: testTable, UserID: id, UserName: id, Answer: "here"})
		require.NoError(t, err)
	}

	rows, err := r.ListResponses(ctx, testTable)
	require.NoError(t, err)
	var got []string
	for _, row := range rows {
		got = append(got, row.UserID)
		require.False(t, row.RecordedAt.IsZero())
	}
	require.Equal(t, []string{"C", "A", "B"}, got)
}

func TestPostgres_SnapshotRosterReadsUsersAndAnswers(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()
	seedUsers(t, r,
		repository.User{ID: "B", Name: "bob"},
		repository.User{ID: "A", Name: "alice"},
		repository.User{ID: "C", Name: "carol"},
	)
	_, err := r.ToggleUserFlag(ctx, "C", repository.UserFlagIgnore)
	require.NoError(t, err)
	require.NoError(t, r.CreateResponseTable(ctx, testTable))
	_, err = r.InsertResponse(ctx, repository.InsertResponseInput{TableName: testTable, UserID: "A", UserName: "alice", Answer: "Paris"})
	require.NoError(t, err)

	snap, err := r.SnapshotRoster(ctx, testTable)
	require.NoError(t, err)
	require.Len(t, snap.Users, 3)
	require.Equal(t, "alice", snap.Users[0].Name)
	require.True(t, snap.Users[2].IsIgnore)
	require.Equal(t, map[string]struct{}{"A": {}}, snap.Answered)

	_, err = r.SnapshotRoster(ctx, "user_location_01012000")
	require.Error(t, err)
}

func TestPostgres_OnlyOneActiveAudit(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()
	now := time.Date(2026, time.March, 4, 9, 0, 0, 0, time.UTC)

	first, err := r.UpsertAudit(ctx, repository.UpsertAuditInput{
		ID: uuid.NewString(), TableName: testTable, BaseName: "user_location", Prompt: "Where are you?", ReminderSeconds: 7200, CreatedAt: now,
	})
	require.NoError(t, err)
	require.True(t, first.IsActive)

	_, err = r.UpsertAudit(ctx, repository.UpsertAuditInput{
		ID: uuid.NewString(), TableName: "other_04032026", BaseName: "other", Prompt: "Second?", ReminderSeconds: 60, CreatedAt: now,
	})
	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr))
	require.Equal(t, "23505", pgErr.Code)

	require.NoError(t, r.CloseAudit(ctx, repository.CloseAuditInput{AuditID: first.ID, ClosedAt: now.Add(time.Hour)}))
	active, err := r.GetActiveAudit(ctx)
	require.NoError(t, err)
	require.Nil(t, active)

	reopened, err := r.UpsertAudit(ctx, repository.UpsertAuditInput{
		ID: uuid.NewString(), TableName: testTable, BaseName: "user_location", Prompt: "Still there?", ReminderSeconds: 60, CreatedAt: now,
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, reopened.ID)
	require.True(t, reopened.IsActive)
	require.Nil(t, reopened.ClosedAt)
}
