package database

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/lucidlabs/lucid-analytics/internal/auth"
	"github.com/lucidlabs/lucid-analytics/internal/database/migrations"
	"github.com/lucidlabs/lucid-analytics/internal/dropi"
	"github.com/lucidlabs/lucid-analytics/internal/lucidbot"
	"github.com/lucidlabs/lucid-analytics/internal/meta"
)

// NewDatabase initializes and returns a new GORM DB connection
func NewDatabase(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := migrations.AddCacheTables(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := migrations.AddReconcileIndexes(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Auto-migrate other schemas
	err = db.AutoMigrate(
		&auth.User{},
		&dropi.DropiConnection{},
		&lucidbot.LucidbotConnection{},
		&meta.MetaAccount{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}
