package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/foxseedlab/auditbot/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, name, real_name, is_deleted, is_admin, is_ignore`

const auditColumns = `id, table_name, base_name, prompt, reminder_seconds, is_active, created_at, closed_at`

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) repository.Repository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) UpsertUser(ctx context.Context, user repository.User) (bool, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO users (id, name, real_name, is_deleted)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE
		 SET name = EXCLUDED.name, real_name = EXCLUDED.real_name, is_deleted = EXCLUDED.is_deleted, updated_at = NOW()
		 RETURNING (xmax = 0)`,
		user.ID, user.Name, user.RealName, user.IsDeleted)
	var created bool
	if err := row.Scan(&created); err != nil {
		return false, err
	}
	return created, nil
}

func (r *PostgresRepository) MarkUsersDeleted(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET is_deleted = TRUE, updated_at = NOW() WHERE id = ANY($1)`, ids)
	return err
}

func (r *PostgresRepository) ListUsers(ctx context.Context) ([]repository.User, error) {
	return r.queryUsers(ctx, r.pool, `SELECT `+userColumns+` FROM users ORDER BY name ASC`)
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*repository.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) GetUserByName(ctx context.Context, name string) (*repository.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE name = $1 ORDER BY is_deleted ASC LIMIT 1`, name)
}

func (r *PostgresRepository) getUser(ctx context.Context, query string, arg string) (*repository.User, error) {
	users, err := r.queryUsers(ctx, r.pool, query, arg)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

func (r *PostgresRepository) ToggleUserFlag(ctx context.Context, id string, flag repository.UserFlag) (bool, error) {
	column, err := flagColumn(flag)
	if err != nil {
		return false, err
	}
	row := r.pool.QueryRow(ctx,
		fmt.Sprintf(`UPDATE users SET %[1]s = NOT %[1]s, updated_at = NOW() WHERE id = $1 RETURNING %[1]s`, column), id)
	var value bool
	if err := row.Scan(&value); err != nil {
		return false, err
	}
	return value, nil
}

func (r *PostgresRepository) ListUsersByFlag(ctx context.Context, flag repository.UserFlag) ([]repository.User, error) {
	column, err := flagColumn(flag)
	if err != nil {
		return nil, err
	}
	return r.queryUsers(ctx, r.pool,
		fmt.Sprintf(`SELECT `+userColumns+` FROM users WHERE %s ORDER BY name ASC`, column))
}

func flagColumn(flag repository.UserFlag) (string, error) {
	switch flag {
	case repository.UserFlagAdmin, repository.UserFlagIgnore:
		return pgx.Identifier{string(flag)}.Sanitize(), nil
	default:
		return "", fmt.Errorf("unknown user flag %q", flag)
	}
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *PostgresRepository) queryUsers(ctx context.Context, q querier, query string, args ...any) ([]repository.User, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[repository.User])
}

func (r *PostgresRepository) UpsertAudit(ctx context.Context, input repository.UpsertAuditInput) (*repository.Audit, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO audits (id, table_name, base_name, prompt, reminder_seconds, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5, TRUE, $6)
		 ON CONFLICT (table_name) DO UPDATE
		 SET prompt = EXCLUDED.prompt, reminder_seconds = EXCLUDED.reminder_seconds, is_active = TRUE, closed_at = NULL
		 RETURNING `+auditColumns,
		input.ID, input.TableName, input.BaseName, input.Prompt, input.ReminderSeconds, input.CreatedAt)
	return scanAudit(row)
}

func (r *PostgresRepository) CloseAudit(ctx context.Context, input repository.CloseAuditInput) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE audits SET is_active = FALSE, closed_at = $2 WHERE id = $1`,
		input.AuditID, input.ClosedAt)
	return err
}

func (r *PostgresRepository) GetActiveAudit(ctx context.Context) (*repository.Audit, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+auditColumns+` FROM audits WHERE is_active LIMIT 1`)
	return nilIfNoRows(scanAudit(row))
}

func (r *PostgresRepository) GetAuditByTableName(ctx context.Context, tableName string) (*repository.Audit, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+auditColumns+` FROM audits WHERE table_name = $1`, tableName)
	return nilIfNoRows(scanAudit(row))
}

func (r *PostgresRepository) ListAudits(ctx context.Context, limit int) ([]repository.Audit, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+auditColumns+` FROM audits ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.Audit
	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

func scanAudit(row pgx.Row) (*repository.Audit, error) {
	var a repository.Audit
	var closedAt *time.Time
	if err := row.Scan(&a.ID, &a.TableName, &a.BaseName, &a.Prompt, &a.ReminderSeconds, &a.IsActive, &a.CreatedAt, &closedAt); err != nil {
		return nil, err
	}
	a.ClosedAt = closedAt
	return &a, nil
}

func nilIfNoRows(a *repository.Audit, err error) (*repository.Audit, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (r *PostgresRepository) CreateResponseTable(ctx context.Context, tableName string) error {
	_, err := r.pool.Exec(ctx, responseTableDDL(tableName))
	return err
}

func (r *PostgresRepository) InsertResponse(ctx context.Context, input repository.InsertResponseInput) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, name, answer) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`, quoteTable(input.TableName)),
		input.UserID, input.UserName, input.Answer)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepository) ListResponses(ctx context.Context, tableName string) ([]repository.AuditResponse, error) {
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT id, name, answer, created_at FROM %s ORDER BY seq ASC`, quoteTable(tableName)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.AuditResponse
	for rows.Next() {
		var resp repository.AuditResponse
		if err := rows.Scan(&resp.UserID, &resp.UserName, &resp.Answer, &resp.RecordedAt); err != nil {
			return nil, err
		}
		list = append(list, resp)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) SnapshotRoster(ctx context.Context, tableName string) (*repository.RosterSnapshot, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	users, err := r.queryUsers(ctx, tx, `SELECT `+userColumns+` FROM users ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	rows, err := tx.Query(ctx, fmt.Sprintf(`SELECT id FROM %s`, quoteTable(tableName)))
	if err != nil {
		return nil, fmt.Errorf("read answered ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("read answered ids: %w", err)
	}
	answered := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		answered[id] = struct{}{}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &repository.RosterSnapshot{Users: users, Answered: answered}, nil
}
