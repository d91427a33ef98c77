// Package roster keeps the audit cohort: who exists, who is an admin, who is
// ignored and who has left the server.
package roster

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/foxseedlab/auditbot/internal/repository"
)

type SourceUser struct {
	ID        string
	Name      string
	RealName  string
	IsBot     bool
	IsDeleted bool
}

type SyncReport struct {
	Created  int
	Updated  int
	Skipped  int
	NotFound []string
}

type Directory struct {
	repo repository.UserRepository
}

func NewDirectory(repo repository.UserRepository) *Directory {
	return &Directory{repo: repo}
}

// SyncRoster upserts every human user from the source of truth. Stored users
// absent from the source are flagged deleted and returned in NotFound.
func (d *Directory) SyncRoster(ctx context.Context, users []SourceUser) (*SyncReport, error) {
	report := &SyncReport{}
	seen := make(map[string]struct{}, len(users))
	for _, u := range users {
		if u.ID == "" || u.IsBot {
			report.Skipped++
			continue
		}
		seen[u.ID] = struct{}{}
		created, err := d.repo.UpsertUser(ctx, repository.User{
			ID:        u.ID,
			Name:      u.Name,
			RealName:  u.RealName,
			IsDeleted: u.IsDeleted,
		})
		if err != nil {
			return nil, fmt.Errorf("upsert user %s: %w", u.ID, err)
		}
		if created {
			report.Created++
		} else {
			report.Updated++
		}
	}

	stored, err := d.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	for _, u := range stored {
		if _, ok := seen[u.ID]; ok || u.IsDeleted {
			continue
		}
		report.NotFound = append(report.NotFound, u.ID)
	}
	if err := d.repo.MarkUsersDeleted(ctx, report.NotFound); err != nil {
		return nil, fmt.Errorf("flag missing users deleted: %w", err)
	}
	slog.Info("roster synced", "created", report.Created, "updated", report.Updated, "skipped", report.Skipped, "not_found", len(report.NotFound))
	return report, nil
}

// ToggleIgnore flips the ignore flag of each named user and returns the names
// that matched nobody.
func (d *Directory) ToggleIgnore(ctx context.Context, names []string) ([]string, error) {
	return d.toggle(ctx, names, repository.UserFlagIgnore)
}

func (d *Directory) ToggleAdmin(ctx context.Context, names []string) ([]string, error) {
	return d.toggle(ctx, names, repository.UserFlagAdmin)
}

func (d *Directory) toggle(ctx context.Context, names []string, flag repository.UserFlag) ([]string, error) {
	var notFound []string
	for _, raw := range names {
		name := NormalizeName(raw)
		if name == "" {
			continue
		}
		u, err := d.repo.GetUserByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("lookup user %q: %w", name, err)
		}
		if u == nil {
			notFound = append(notFound, name)
			continue
		}
		value, err := d.repo.ToggleUserFlag(ctx, u.ID, flag)
		if err != nil {
			return nil, fmt.Errorf("toggle %s for %s: %w", flag, u.ID, err)
		}
		slog.Info("user flag toggled", "user_id", u.ID, "flag", string(flag), "value", value)
	}
	return notFound, nil
}

func (d *Directory) Admins(ctx context.Context) ([]repository.User, error) {
	return d.repo.ListUsersByFlag(ctx, repository.UserFlagAdmin)
}

func (d *Directory) Ignored(ctx context.Context) ([]repository.User, error) {
	return d.repo.ListUsersByFlag(ctx, repository.UserFlagIgnore)
}

func (d *Directory) IsAdmin(ctx context.Context, userID string) (bool, error) {
	u, err := d.repo.GetUserByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return u != nil && u.IsAdmin && !u.IsDeleted, nil
}

// NormalizeName strips mention decoration such as "@alice" or "<@alice>".
func NormalizeName(raw string) string {
	name := strings.TrimSpace(raw)
	name = strings.TrimPrefix(name, "<")
	name = strings.TrimSuffix(name, ">")
	return strings.TrimPrefix(name, "@")
}

// SplitNames splits a free-text list separated by spaces or commas.
func SplitNames(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\n' || r == '\t'
	})
}
