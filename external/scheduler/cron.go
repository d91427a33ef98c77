package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/foxseedlab/auditbot/internal/roster"
	"github.com/robfig/cron/v3"
)

const rosterSyncTimeout = 2 * time.Minute

type RosterRefresher interface {
	Refresh(ctx context.Context) (*roster.SyncReport, error)
}

// RosterSync refreshes the user directory on a cron schedule.
type RosterSync struct {
	schedule  string
	refresher RosterRefresher
	cron      *cron.Cron
}

// NewRosterSync validates the cron expression up front. An empty one yields a disabled job.
func NewRosterSync(schedule string, refresher RosterRefresher, loc *time.Location) (*RosterSync, error) {
	if loc == nil {
		loc = time.UTC
	}
	rs := &RosterSync{
		schedule:  schedule,
		refresher: refresher,
		cron:      cron.New(cron.WithLocation(loc)),
	}
	if schedule == "" {
		return rs, nil
	}
	if _, err := rs.cron.AddFunc(schedule, rs.run); err != nil {
		return nil, fmt.Errorf("ROSTER_SYNC_CRON %q is invalid: %w", schedule, err)
	}
	return rs, nil
}

func (r *RosterSync) Start() {
	if r.schedule == "" {
		slog.Info("scheduled roster sync disabled")
		return
	}
	slog.Info("scheduled roster sync enabled", "cron", r.schedule)
	r.cron.Start()
}

// Stop waits for a running sync to finish or ctx to end.
func (r *RosterSync) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		slog.Warn("scheduled roster sync still running at shutdown")
	}
}

func (r *RosterSync) run() {
	ctx, cancel := context.WithTimeout(context.Background(), rosterSyncTimeout)
	defer cancel()
	report, err := r.refresher.Refresh(ctx)
	if err != nil {
		slog.Error("scheduled roster sync failed", "error", err)
		return
	}
	slog.Info("scheduled roster sync finished", "created", report.Created, "updated", report.Updated, "not_found", len(report.NotFound))
}
