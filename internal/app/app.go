// Package app assembles an Orchestrator and its collaborators from a
// workspace configuration.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"siteflow/internal/config"
	"siteflow/internal/db"
	"siteflow/internal/domain"
	"siteflow/internal/events"
	"siteflow/internal/logging"
	"siteflow/internal/migrate"
	"siteflow/internal/natsx"
	"siteflow/internal/orchestrator"
	"siteflow/internal/store"
	"siteflow/internal/tools"
	"siteflow/internal/tools/builtin"
)

// App owns every resource opened for a workspace. Close releases them.
type App struct {
	Orchestrator *orchestrator.Orchestrator
	Store        store.Store
	Events       events.Writer
	Tools        *tools.Registry
	DB           *sql.DB

	embedded *server.Server
	conns    []*nats.Conn
}

// Build opens the workspace database, runs migrations and wires the
// configured store, event sinks and tool handlers into an Orchestrator.
func Build(ctx context.Context, workspace string, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger = logging.OrNop(logger)
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	a := &App{DB: conn, Events: events.Writer{DB: conn}}

	a.Store, err = a.openStore(ctx, workspace, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	sink, err := a.openEvents(workspace, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Tools = buildTools(cfg)

	o := orchestrator.New(a.Store, a.Tools)
	o.Events = sink
	o.Logger = logger.Named("orchestrator")
	o.BulkConcurrency = cfg.BulkDelete.Concurrency
	a.Orchestrator = o

	logger.Debug("app built",
		zap.String("workspace", workspace),
		zap.String("store", cfg.Store.Backend),
		zap.String("tools", cfg.Tools.Mode),
		zap.Bool("nats_events", cfg.Events.Enabled),
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context, workspace string, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "memory":
		return store.NewMemory(), nil
	case "nats":
		nc, err := a.connect(workspace, cfg.Store.NATS.URL)
		if err != nil {
			return nil, err
		}
		js, err := natsx.JetStream(nc)
		if err != nil {
			return nil, err
		}
		return store.NewKV(ctx, js, cfg.Store.NATS.Bucket)
	default:
		return store.SQLite{DB: a.DB}, nil
	}
}

func (a *App) openEvents(workspace string, cfg *config.Config) (events.Sink, error) {
	if !cfg.Events.Enabled {
		return a.Events, nil
	}
	nc, err := a.connect(workspace, cfg.Events.NATSURL)
	if err != nil {
		return nil, err
	}
	return events.Multi{a.Events, events.NATS{Conn: nc, Prefix: cfg.Events.SubjectBase}}, nil
}

// connect dials url, starting the embedded server first when url is
// "embedded". The embedded server is shared by the store and event sinks.
func (a *App) connect(workspace, url string) (*nats.Conn, error) {
	if url == natsx.EmbeddedURL {
		if a.embedded == nil {
			stateDir, err := db.EnsureWorkspace(workspace)
			if err != nil {
				return nil, err
			}
			ns, err := natsx.StartEmbedded(filepath.Join(stateDir, "nats"))
			if err != nil {
				return nil, err
			}
			a.embedded = ns
		}
		url = a.embedded.ClientURL()
	}
	nc, err := natsx.Dial(url)
	if err != nil {
		return nil, err
	}
	a.conns = append(a.conns, nc)
	return nc, nil
}

// buildTools registers the builtin handlers, then replaces those with a
// configured remote endpoint when tools run in http mode.
func buildTools(cfg *config.Config) *tools.Registry {
	reg := tools.NewRegistry()
	builtin.Register(reg)
	if cfg.Tools.Mode != "http" {
		return reg
	}
	for name, url := range cfg.Tools.Endpoints {
		reg.Register(domain.IntentType(name), tools.HTTP{URL: url, Timeout: cfg.Tools.Timeout.Duration})
	}
	return reg
}

func (a *App) Close() error {
	var errs []error
	for _, nc := range a.conns {
		if err := nc.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			errs = append(errs, err)
		}
	}
	if a.embedded != nil {
		a.embedded.Shutdown()
		a.embedded.WaitForShutdown()
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
