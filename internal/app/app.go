package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"reportstudio/internal/blocks"
	"reportstudio/internal/config"
	"reportstudio/internal/ids"
	"reportstudio/internal/logger"
	"reportstudio/internal/metrics"
	"reportstudio/internal/service"
	"reportstudio/internal/storage"
)

// App wires configuration, storage and the document service together. The
// CLI commands and the MCP server are built on top of it.
type App struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics
	ids     ids.Generator

	repo   storage.Repository
	events *service.Broadcaster
	docs   *service.DocumentService

	autosave   *service.Autosaver
	watcher    *service.Watcher
	metricsSrv *http.Server

	shutdownOnce sync.Once
	shutdownErr  error
}

// Options overrides collaborators, mainly for tests.
type Options struct {
	Logger *logger.Logger
	IDs    ids.Generator
}

// New opens the configured repository and creates the document service. It
// does not start background workers; see Startup.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	log := opts.Logger
	if log == nil {
		log = logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	}
	gen := opts.IDs
	if gen == nil {
		gen = ids.UUIDGenerator{}
	}

	repo, err := storage.OpenRepository(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	a := &App{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(),
		ids:     gen,
		repo:    repo,
		events:  service.NewBroadcaster(),
	}
	a.events.Subscribe(a.logEvent)

	a.docs = service.NewDocumentService(service.Deps{
		Store:        repo,
		History:      repo,
		Emitter:      a.events,
		IDs:          gen,
		Blocks:       blocks.NewFactory(gen, blocks.DefaultRegistry()),
		HistoryDepth: cfg.Editor.HistoryDepth,
		DefaultZoom:  cfg.Editor.DefaultZoom,
		Logger:       log,
		Metrics:      a.metrics,
	})
	log.Debug().Str("driver", cfg.Storage.Driver).Msg("app ready")
	return a, nil
}

// Docs returns the document service.
func (a *App) Docs() *service.DocumentService { return a.docs }

// Events returns the event bus the document service emits on.
func (a *App) Events() *service.Broadcaster { return a.events }

// Repository returns the storage backend.
func (a *App) Repository() storage.Repository { return a.repo }

// Logger returns the application logger.
func (a *App) Logger() *logger.Logger { return a.log }

// Metrics returns the application metrics.
func (a *App) Metrics() *metrics.Metrics { return a.metrics }

// Startup starts the autosaver, the external-change watcher and the metrics
// listener as configured.
func (a *App) Startup(ctx context.Context) error {
	a.autosave = service.NewAutosaver(a.docs, a.log)
	if err := a.autosave.Start(a.cfg.Editor.AutosaveSchedule); err != nil {
		return err
	}

	if a.cfg.Editor.WatchExternal {
		src, ok := a.repo.(service.WatchSource)
		if !ok {
			return fmt.Errorf("watch_external: %s storage has no files to watch", a.cfg.Storage.Driver)
		}
		a.watcher = service.NewWatcher(a.docs, src, a.log, 0)
		if err := a.watcher.Start(ctx); err != nil {
			return err
		}
	}

	if a.cfg.MetricsAddr != "" {
		a.metricsSrv = a.serveMetrics(a.cfg.MetricsAddr)
	}
	return nil
}

// Shutdown stops background workers, flushes pending writes and closes
// storage. Later calls return the first result.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownOnce.Do(func() { a.shutdownErr = a.shutdown(ctx) })
	return a.shutdownErr
}

func (a *App) shutdown(ctx context.Context) error {
	if a.autosave != nil {
		a.autosave.Stop()
	}
	if a.watcher != nil {
		a.watcher.Stop()
	}
	var errs []error
	if a.metricsSrv != nil {
		errs = append(errs, a.metricsSrv.Shutdown(ctx))
	}
	errs = append(errs, a.docs.Close(ctx), a.repo.Close())
	return errors.Join(errs...)
}

// logEvent is the Broadcaster subscriber that records document events.
func (a *App) logEvent(_ context.Context, event string, data any) {
	switch e := data.(type) {
	case service.SaveFailedEvent:
		a.log.Warn().Str("document", e.DocumentID).Int64("version", e.Version).Str("error", e.Error).Msg("save failed")
	case service.ChangeEvent:
		a.log.Debug().Str("event", event).Str("document", e.DocumentID).Str("op", e.Operation).Int64("version", e.Version).Msg("document event")
	default:
		a.log.Debug().Str("event", event).Msg("document event")
	}
}
