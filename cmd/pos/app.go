package main

import (
	"fmt"
	"path/filepath"

	"github.com/fjod/go_cart/bakery-pos/internal/catalog"
	"github.com/fjod/go_cart/bakery-pos/internal/config"
	"github.com/fjod/go_cart/bakery-pos/internal/ledger"
	"github.com/fjod/go_cart/bakery-pos/internal/logging"
	"go.uber.org/zap"
)

// app holds what every command needs: configuration, logger, catalog and ledger.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	catalog *catalog.Catalog
	ledger  *ledger.Repository
}

func openApp(configDir, envName string) (*app, error) {
	cfg, err := config.Load(configDir, envName)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(logging.Options{
		Component: cfg.App.Name,
		Level:     cfg.App.LogLevel,
		FilePath:  cfg.App.LogFile,
	})
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	repo, err := openLedger(cfg)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, catalog: cat, ledger: repo}, nil
}

func openLedger(cfg config.Config) (*ledger.Repository, error) {
	var (
		repo *ledger.Repository
		err  error
	)
	opts := []ledger.Option{ledger.WithOutbox(cfg.OutboxEnabled())}

	switch cfg.Ledger.Driver {
	case ledger.DriverSQLite:
		repo, err = ledger.NewSQLiteRepository(cfg.Ledger.Path, opts...)
	case ledger.DriverPostgres:
		pg := cfg.Ledger.Postgres
		repo, err = ledger.NewPostgresRepository(&ledger.Credentials{
			Host:     pg.Host,
			Port:     pg.Port,
			User:     pg.User,
			Password: pg.Password,
			DBName:   pg.DBName,
		}, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ledger.ErrUnsupportedDriver, cfg.Ledger.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	if err := repo.RunMigrations(filepath.Join(cfg.Ledger.MigrationsDir, cfg.Ledger.Driver)); err != nil {
		repo.Close()
		return nil, err
	}
	return repo, nil
}

func (a *app) Close() {
	if err := a.ledger.Close(); err != nil {
		a.logger.Error("failed to close ledger", zap.Error(err))
	}
	_ = a.logger.Sync()
}
