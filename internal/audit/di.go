package audit

import (
	"github.com/foxseedlab/auditbot/internal/config"
	"github.com/foxseedlab/auditbot/internal/discord"
	"github.com/foxseedlab/auditbot/internal/export"
	"github.com/foxseedlab/auditbot/internal/repository"
	"github.com/foxseedlab/auditbot/internal/webhook"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (Notifier, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.AuditDryRun {
			return NewLogNotifier(), nil
		}
		return do.MustInvoke[discord.Client](i), nil
	})
	do.Provide(injector, func(i do.Injector) (*Manager, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		notifier := do.MustInvoke[Notifier](i)
		exporter := do.MustInvoke[export.Exporter](i)
		wh := do.MustInvoke[webhook.Sender](i)
		return NewManager(cfg, repo, notifier, exporter, wh), nil
	})
}
