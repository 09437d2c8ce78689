package migrations

import (
	"github.com/lucidlabs/lucid-analytics/internal/types"
	"gorm.io/gorm"
)

func AddCacheTables(db *gorm.DB) error {
	// Create the upstream cache tables
	if err := db.AutoMigrate(&types.DropiOrder{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&types.DropiWalletMovement{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&types.LucidbotContact{}); err != nil {
		return err
	}

	return nil
}
