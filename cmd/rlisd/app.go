package main

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"rlis-backend/config"
	"rlis-backend/internal/db"
	"rlis-backend/internal/inventory"
	"rlis-backend/internal/logger"
	"rlis-backend/internal/persist"
	"rlis-backend/internal/report"
	"rlis-backend/internal/store"
)

// app is the restored session shared by every command.
type app struct {
	db       *gorm.DB
	store    store.Store
	writer   *persist.Writer
	registry *inventory.Registry
}

// openApp connects to the database and restores the owner's machines into a
// registry whose writes flow back through a persist.Writer.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	s := store.NewGormStore(gormDB)

	owner := cfg.Inventory.OwnerID
	machines, archives, err := s.Load(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}

	writer := persist.NewWriter(cfg.Persist.Workers, s, owner, cfg.Persist.WriteTimeout)
	// Workers outlive ctx; close drains them.
	writer.Start(context.WithoutCancel(ctx))

	reg := inventory.NewRegistry(owner, writer, inventory.WithCompletionCheck(report.HasMeasurements))
	reg.Load(machines, archives)
	logger.Infof(ctx, "restored %d machines and %d archives for %s", len(machines), len(archives), owner)

	return &app{db: gormDB, store: s, writer: writer, registry: reg}, nil
}

// close drains pending writes and releases the database.
func (a *app) close() {
	a.writer.Close()
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
