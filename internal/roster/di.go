package roster

import (
	"github.com/foxseedlab/auditbot/internal/config"
	"github.com/foxseedlab/auditbot/internal/discord"
	"github.com/foxseedlab/auditbot/internal/repository"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Directory, error) {
		repo := do.MustInvoke[repository.Repository](i)
		return NewDirectory(repo), nil
	})
	do.Provide(injector, func(i do.Injector) (*Refresher, error) {
		cfg := do.MustInvoke[*config.Config](i)
		dir := do.MustInvoke[*Directory](i)
		dc := do.MustInvoke[discord.Client](i)
		return NewRefresher(dir, dc, cfg.DiscordGuildID), nil
	})
}
