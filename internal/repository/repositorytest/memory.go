// Package repositorytest provides an in-memory repository.Repository for tests.
package repositorytest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/foxseedlab/auditbot/internal/repository"
)

type Memory struct {
	mu        sync.Mutex
	users     map[string]repository.User
	audits    map[string]repository.Audit
	responses map[string][]repository.AuditResponse

	err           error
	snapshotCalls int
}

func NewMemory(users ...repository.User) *Memory {
	m := &Memory{
		users:     make(map[string]repository.User),
		audits:    make(map[string]repository.Audit),
		responses: make(map[string][]repository.AuditResponse),
	}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

// SetErr makes every subsequent call fail with err until cleared with nil.
func (m *Memory) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *Memory) SnapshotCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotCalls
}

func (m *Memory) SetUser(u repository.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *Memory) User(id string) (repository.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	return u, ok
}

// Responses returns a copy of the rows stored for tableName.
func (m *Memory) Responses(tableName string) []repository.AuditResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]repository.AuditResponse(nil), m.responses[tableName]...)
}

func (m *Memory) HasTable(tableName string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.responses[tableName]
	return ok
}

func (m *Memory) UpsertUser(_ context.Context, user repository.User) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	existing, ok := m.users[user.ID]
	if ok {
		user.IsAdmin = existing.IsAdmin
		user.IsIgnore = existing.IsIgnore
	}
	m.users[user.ID] = user
	return !ok, nil
}

func (m *Memory) MarkUsersDeleted(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			u.IsDeleted = true
			m.users[id] = u
		}
	}
	return nil
}

func (m *Memory) ListUsers(_ context.Context) ([]repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.sortedUsers(func(repository.User) bool { return true }), nil
}

func (m *Memory) sortedUsers(keep func(repository.User) bool) []repository.User {
	out := make([]repository.User, 0, len(m.users))
	for _, u := range m.users {
		if keep(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *Memory) GetUserByID(_ context.Context, id string) (*repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *Memory) GetUserByName(_ context.Context, name string) (*repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Name == name {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *Memory) ToggleUserFlag(_ context.Context, id string, flag repository.UserFlag) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return false, fmt.Errorf("user %s not found", id)
	}
	var value bool
	switch flag {
	case repository.UserFlagAdmin:
		u.IsAdmin = !u.IsAdmin
		value = u.IsAdmin
	case repository.UserFlagIgnore:
		u.IsIgnore = !u.IsIgnore
		value = u.IsIgnore
	default:
		return false, fmt.Errorf("unknown user flag %q", flag)
	}
	m.users[id] = u
	return value, nil
}

func (m *Memory) ListUsersByFlag(_ context.Context, flag repository.UserFlag) ([]repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.sortedUsers(func(u repository.User) bool {
		if flag == repository.UserFlagAdmin {
			return u.IsAdmin
		}
		return u.IsIgnore
	}), nil
}

func (m *Memory) UpsertAudit(_ context.Context, input repository.UpsertAuditInput) (*repository.Audit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	a, ok := m.audits[input.TableName]
	if !ok {
		a = repository.Audit{
			ID:        input.ID,
			TableName: input.TableName,
			BaseName:  input.BaseName,
			CreatedAt: input.CreatedAt,
		}
	}
	a.Prompt = input.Prompt
	a.ReminderSeconds = input.ReminderSeconds
	a.IsActive = true
	a.ClosedAt = nil
	m.audits[input.TableName] = a
	return &a, nil
}

func (m *Memory) CloseAudit(_ context.Context, input repository.CloseAuditInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for name, a := range m.audits {
		if a.ID == input.AuditID {
			closedAt := input.ClosedAt
			a.IsActive = false
			a.ClosedAt = &closedAt
			m.audits[name] = a
		}
	}
	return nil
}

func (m *Memory) GetActiveAudit(_ context.Context) (*repository.Audit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, a := range m.audits {
		if a.IsActive {
			return &a, nil
		}
	}
	return nil, nil
}

func (m *Memory) GetAuditByTableName(_ context.Context, tableName string) (*repository.Audit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	a, ok := m.audits[tableName]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *Memory) ListAudits(_ context.Context, limit int) ([]repository.Audit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]repository.Audit, 0, len(m.audits))
	for _, a := range m.audits {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) CreateResponseTable(_ context.Context, tableName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.responses[tableName]; !ok {
		m.responses[tableName] = []repository.AuditResponse{}
	}
	return nil
}

func (m *Memory) InsertResponse(_ context.Context, input repository.InsertResponseInput) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	rows, ok := m.responses[input.TableName]
	if !ok {
		return false, fmt.Errorf("relation %q does not exist", input.TableName)
	}
	for _, r := range rows {
		if r.UserID == input.UserID {
			return false, nil
		}
	}
	m.responses[input.TableName] = append(rows, repository.AuditResponse{
		UserID:     input.UserID,
		UserName:   input.UserName,
		Answer:     input.Answer,
		RecordedAt: time.Now(),
	})
	return true, nil
}

func (m *Memory) ListResponses(_ context.Context, tableName string) ([]repository.AuditResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]repository.AuditResponse(nil), m.responses[tableName]...), nil
}

func (m *Memory) SnapshotRoster(_ context.Context, tableName string) (*repository.RosterSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshotCalls++
	if m.err != nil {
		return nil, m.err
	}
	answered := make(map[string]struct{}, len(m.responses[tableName]))
	for _, r := range m.responses[tableName] {
		answered[r.UserID] = struct{}{}
	}
	return &repository.RosterSnapshot{
		Users:    m.sortedUsers(func(repository.User) bool { return true }),
		Answered: answered,
	}, nil
}

var _ repository.Repository = (*Memory)(nil)
