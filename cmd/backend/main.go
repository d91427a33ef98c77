package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	configloader "github.com/foxseedlab/auditbot/external/config"
	"github.com/foxseedlab/auditbot/external/discord"
	exportimpl "github.com/foxseedlab/auditbot/external/export"
	"github.com/foxseedlab/auditbot/external/httpserver"
	repositoryimpl "github.com/foxseedlab/auditbot/external/repository"
	"github.com/foxseedlab/auditbot/external/scheduler"
	webhookimpl "github.com/foxseedlab/auditbot/external/webhook"
	"github.com/foxseedlab/auditbot/internal/audit"
	"github.com/foxseedlab/auditbot/internal/command"
	"github.com/foxseedlab/auditbot/internal/config"
	discordpkg "github.com/foxseedlab/auditbot/internal/discord"
	"github.com/foxseedlab/auditbot/internal/roster"
	"github.com/samber/do/v2"
)

const (
	discordConnectTimeout = 20 * time.Second
	resumeTimeout         = 15 * time.Second
	shutdownTimeout       = 20 * time.Second
)

func main() {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env, "dry_run", cfg.AuditDryRun)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	slog.Info("startup: launching audit bot")
	runBot(cfg, injector)
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	discord.RegisterDI(injector)
	exportimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	audit.RegisterDI(injector)
	roster.RegisterDI(injector)
	command.RegisterDI(injector)
	scheduler.RegisterDI(injector)
	httpserver.RegisterDI(injector)

	return injector
}

func mustInvoke[T any](injector do.Injector, what string) T {
	v, err := do.Invoke[T](injector)
	if err != nil {
		slog.Error("failed to resolve "+what, "error", err)
		os.Exit(1)
	}
	return v
}

func runBot(cfg *config.Config, injector do.Injector) {
	dc := mustInvoke[discordpkg.Client](injector, "discord client")
	manager := mustInvoke[*audit.Manager](injector, "audit manager")
	dispatcher := mustInvoke[*command.Dispatcher](injector, "command dispatcher")
	rosterSync := mustInvoke[*scheduler.RosterSync](injector, "roster sync")
	server := mustInvoke[*httpserver.Server](injector, "http server")

	ctx, cancel := context.WithTimeout(context.Background(), discordConnectTimeout)
	defer cancel()

	slog.Info("startup: connecting to discord gateway")
	if err := dc.Connect(ctx); err != nil {
		slog.Error("discord connect failed", "error", err)
		os.Exit(1)
	}
	slog.Info("startup: discord connected")

	defs := command.SlashCommandDefinitions()
	if err := dc.UpsertGuildSlashCommands(cfg.DiscordGuildID, defs); err != nil {
		slog.Error("failed to upsert slash commands", "error", err, "guild_id", cfg.DiscordGuildID)
		os.Exit(1)
	}
	verifyCommandManifest(cfg, defs)

	dc.RegisterSlashCommandHandler(dispatcher.HandleSlashCommand)
	dc.RegisterDirectMessageHandler(dispatcher.HandleDirectMessage)
	slog.Info("discord handlers registered", "guild_id", cfg.DiscordGuildID, "commands", command.CommandNames())
	defer func() {
		if err := dc.Close(); err != nil {
			slog.Error("discord close failed", "error", err)
		}
	}()

	resumeCtx, cancelResume := context.WithTimeout(context.Background(), resumeTimeout)
	if a, err := manager.Resume(resumeCtx); err != nil {
		slog.Error("failed to resume active audit", "error", err)
	} else if a != nil {
		slog.Info("startup: active audit resumed", "table", a.TableName)
	}
	cancelResume()

	rosterSync.Start()
	server.Start()

	done := make(chan struct{})
	go func() {
		slog.Info("startup: entering discord run loop")
		if err := dc.Run(); err != nil {
			slog.Error("discord run failed", "error", err)
		}
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutting down")
	case <-done:
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	server.Shutdown(shutdownCtx)
	rosterSync.Stop(shutdownCtx)
	manager.Shutdown(shutdownCtx)
}

func verifyCommandManifest(cfg *config.Config, defs []discordpkg.SlashCommandDefinition) {
	if cfg.CommandManifestPath == "" {
		return
	}
	manifest, err := configloader.LoadCommandManifest(cfg.CommandManifestPath)
	if err != nil {
		slog.Warn("skipping slash command manifest check", "error", err)
		return
	}
	command.LogManifestDiff(command.VerifyManifest(manifest, defs))
}
