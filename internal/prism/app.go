// Package prism wires the review client: one authoritative state store with
// a single mutation path, consumed by both the CLI commands and the TUI.
package prism

import (
	"github.com/colonyops/prism/internal/api"
	"github.com/colonyops/prism/internal/core/config"
	"github.com/colonyops/prism/internal/data/db"
	"github.com/colonyops/prism/internal/data/stores"
)

// App is the central entry point for all prism operations. Commands and the
// TUI consume App instead of cherry-picking raw dependencies.
type App struct {
	Review        *Service
	Client        *api.Client
	Config        *config.Config
	DB            *db.DB
	Notifications *stores.NotifyStore
}

// NewApp constructs an App from explicit dependencies.
func NewApp(svc *Service, client *api.Client, cfg *config.Config, database *db.DB) *App {
	return &App{
		Review:        svc,
		Client:        client,
		Config:        cfg,
		DB:            database,
		Notifications: stores.NewNotifyStore(database),
	}
}
