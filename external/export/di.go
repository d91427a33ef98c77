package export

import (
	"github.com/foxseedlab/auditbot/internal/config"
	"github.com/foxseedlab/auditbot/internal/export"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (export.Exporter, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewXLSXExporter(cfg.ExportDir, cfg.ExportAnswerHeader, cfg.Location()), nil
	})
}
