package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Freeeeeet/mentorbook/internal/app"
	"github.com/Freeeeeet/mentorbook/internal/config"
	"github.com/alecthomas/kong"
	"go.uber.org/zap"
)

// runContext передаётся во все команды
type runContext struct {
	cfg    *config.Config
	logger *zap.Logger
}

type serveCmd struct{}

func (serveCmd) Run(rc *runContext) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rc.logger.Info("Starting mentorbook",
		zap.String("environment", rc.cfg.Environment),
		zap.String("storage", rc.cfg.Storage),
		zap.String("notify_transport", rc.cfg.NotifyTransport),
	)

	a, err := app.New(ctx, rc.cfg, rc.logger)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

type migrateUpCmd struct{}

func (migrateUpCmd) Run(rc *runContext) error {
	return withMigrator(rc, func(ctx context.Context, m *app.Migrator) error {
		return m.Run(ctx)
	})
}

type migrateVersionCmd struct{}

func (migrateVersionCmd) Run(rc *runContext) error {
	return withMigrator(rc, func(ctx context.Context, m *app.Migrator) error {
		version, err := m.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Println(version)
		return nil
	})
}

func withMigrator(rc *runContext, fn func(ctx context.Context, m *app.Migrator) error) error {
	if rc.cfg.Storage != config.StoragePostgres {
		return fmt.Errorf("migrations require STORAGE=%s", config.StoragePostgres)
	}

	ctx := context.Background()
	pool, err := app.OpenPool(ctx, rc.cfg.DBDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, rc.logger)
	if err != nil {
		return err
	}
	defer migrator.Close()

	return fn(ctx, migrator)
}

var cli struct {
	Version kong.VersionFlag

	Serve   serveCmd `cmd:"" help:"Run the booking HTTP API." default:"1"`
	Migrate struct {
		Up      migrateUpCmd      `cmd:"" help:"Apply pending migrations."`
		Version migrateVersionCmd `cmd:"" help:"Print the current schema version."`
	} `cmd:"" help:"Manage the database schema."`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("mentorbook"),
		kong.Description("Mentoring session booking service"),
		kong.UsageOnError(),
		kong.Vars{"version": "v0.1.0"},
	)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := app.NewLogger(cfg.Environment, cfg.LogFile)
	defer logger.Sync()

	if err := kctx.Run(&runContext{cfg: cfg, logger: logger}); err != nil {
		logger.Error("Command failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
