package scheduler

import (
	"github.com/foxseedlab/auditbot/internal/config"
	"github.com/foxseedlab/auditbot/internal/roster"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*RosterSync, error) {
		cfg := do.MustInvoke[*config.Config](i)
		refresher := do.MustInvoke[*roster.Refresher](i)
		return NewRosterSync(cfg.RosterSyncCron, refresher, cfg.Location())
	})
}
