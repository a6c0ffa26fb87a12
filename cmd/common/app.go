// Package common wires the shared dependencies of all commands.
package common

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/viper"

	"github.com/madebyarthouse/rental-monitor-sub000/internal/config"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/database"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/fetcher"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/jobs"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/logger"
)

// App bundles the process-wide dependencies: configuration, logger, and
// the database connection.
type App struct {
	Config *config.Config
	Log    logger.Interface
	DB     *sqlx.DB
}

// NewApp loads configuration, builds the logger, and connects to the
// database.
func NewApp(ctx context.Context) (*App, error) {
	cfg := config.Load(viper.GetViper())

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if schemaErr := database.EnsureSchema(ctx, db); schemaErr != nil {
		db.Close()
		return nil, schemaErr
	}

	return &App{Config: cfg, Log: log, DB: db}, nil
}

// Close releases the app's resources.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

// RunRepository returns the scrape run repository.
func (a *App) RunRepository() *database.RunRepository {
	return database.NewRunRepository(a.DB)
}

// ListingRepository returns the listing repository.
func (a *App) ListingRepository() *database.ListingRepository {
	return database.NewListingRepository(a.DB)
}

// RegionRepository returns the region repository.
func (a *App) RegionRepository() *database.RegionRepository {
	return database.NewRegionRepository(a.DB)
}

// JobDeps builds the dependency bundle the orchestrators run on. The
// fetcher is shared, so concurrent jobs share one fetch budget.
func (a *App) JobDeps() jobs.Deps {
	return jobs.Deps{
		Fetcher:  fetcher.New(a.Config.Fetcher, a.Log.WithComponent("fetcher")),
		Listings: database.NewListingRepository(a.DB),
		Sellers:  database.NewSellerRepository(a.DB, a.Log.WithComponent("database")),
		Writer:   database.NewBatchWriter(a.DB, a.Log.WithComponent("database")),
		Runs:     database.NewRunRepository(a.DB),
		Log:      a.Log,
		Crawler:  a.Config.Crawler,
	}
}
