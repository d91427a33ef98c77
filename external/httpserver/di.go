package httpserver

import (
	"github.com/foxseedlab/auditbot/internal/audit"
	"github.com/foxseedlab/auditbot/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		manager := do.MustInvoke[*audit.Manager](i)
		return NewServer(cfg.HTTPAddr, cfg.ExportDir, cfg.HTTPAuthToken, manager), nil
	})
}
