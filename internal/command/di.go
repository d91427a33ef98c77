package command

import (
	"github.com/foxseedlab/auditbot/internal/audit"
	"github.com/foxseedlab/auditbot/internal/config"
	"github.com/foxseedlab/auditbot/internal/discord"
	"github.com/foxseedlab/auditbot/internal/roster"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Dispatcher, error) {
		cfg := do.MustInvoke[*config.Config](i)
		manager := do.MustInvoke[*audit.Manager](i)
		dir := do.MustInvoke[*roster.Directory](i)
		refresher := do.MustInvoke[*roster.Refresher](i)
		dc := do.MustInvoke[discord.Client](i)
		return NewDispatcher(cfg, manager, dir, refresher, dc), nil
	})
}
