package roster

import (
	"context"
	"fmt"
	"sync"

	"github.com/foxseedlab/auditbot/internal/discord"
)

type MemberSource interface {
	ListGuildMembers(ctx context.Context, guildID string) ([]discord.Member, error)
}

// Refresher pulls the guild member list and feeds it to the Directory.
type Refresher struct {
	dir     *Directory
	source  MemberSource
	guildID string

	// serializes manual and scheduled runs
	mu sync.Mutex
}

func NewRefresher(dir *Directory, source MemberSource, guildID string) *Refresher {
	return &Refresher{dir: dir, source: source, guildID: guildID}
}

func (r *Refresher) Refresh(ctx context.Context) (*SyncReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, err := r.source.ListGuildMembers(ctx, r.guildID)
	if err != nil {
		return nil, fmt.Errorf("fetch guild members: %w", err)
	}
	users := make([]SourceUser, 0, len(members))
	for _, m := range members {
		users = append(users, SourceUser{
			ID:       m.UserID,
			Name:     m.Username,
			RealName: m.RealName,
			IsBot:    m.IsBot,
		})
	}
	return r.dir.SyncRoster(ctx, users)
}
