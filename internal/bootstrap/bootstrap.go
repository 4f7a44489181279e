// Package bootstrap wires config into a ready conversation.Service. Both
// binaries go through it so storage and router selection stay identical.
package bootstrap

import (
	"context"
	"fmt"

	firestorestore "github.com/PabloGalante/insight-agent/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/insight-agent/internal/adapters/storage/memory"
	sqlitestore "github.com/PabloGalante/insight-agent/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/insight-agent/internal/app/conversation"
	"github.com/PabloGalante/insight-agent/internal/app/router"
	"github.com/PabloGalante/insight-agent/internal/app/transition"
	"github.com/PabloGalante/insight-agent/internal/config"
	"github.com/PabloGalante/insight-agent/internal/domain"
	"github.com/PabloGalante/insight-agent/internal/observability"
)

// App is the assembled service plus whatever needs closing on shutdown.
type App struct {
	Service *conversation.Service
	closers []func() error
}

func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewRouter loads the keyword catalog from path, or the built-in one when
// path is empty.
func NewRouter(path string) (*router.Router, error) {
	if path == "" {
		return router.NewDefault(), nil
	}
	catalog, err := router.LoadCatalog(path)
	if err != nil {
		return nil, err
	}
	return router.New(catalog), nil
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := observability.Logger()
	app := &App{}

	r, err := NewRouter(cfg.KeywordsFile)
	if err != nil {
		return nil, err
	}
	if cfg.KeywordsFile != "" {
		log.Info("loaded keyword catalog", "path", cfg.KeywordsFile)
	}

	var (
		sessionStore domain.SessionStore
		messageStore domain.MessageStore
	)

	switch cfg.StorageBackend {
	case config.StorageFirestore:
		log.Info("using firestore storage", "project", cfg.GCPProjectID)
		fsStore, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, fmt.Errorf("init firestore store: %w", err)
		}
		// 1 store, implements 2 interfaces
		sessionStore, messageStore = fsStore, fsStore
		app.closers = append(app.closers, fsStore.Close)

	case config.StorageSQLite:
		log.Info("using sqlite storage", "path", cfg.SQLitePath)
		sqlStore, err := sqlitestore.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("init sqlite store: %w", err)
		}
		sessionStore, messageStore = sqlStore, sqlStore
		app.closers = append(app.closers, sqlStore.Close)

	default:
		log.Info("using in-memory storage")
		sessionStore = memstore.NewSessionStore()
		messageStore = memstore.NewMessageStore()
	}

	app.Service = conversation.NewService(
		r,
		transition.New(cfg.TransitionStep),
		sessionStore,
		messageStore,
		conversation.WithStepDelay(cfg.TransitionDelay),
	)
	return app, nil
}
