package migrations

import (
	"gorm.io/gorm"
)

// AddReconcileIndexes creates the indexes the reconciliation pass and
// the dashboard aggregations depend on
func AddReconcileIndexes(db *gorm.DB) error {
	// Using raw SQL for index creation to have more control over index types
	indexes := []string{
		// Reconciliation scans unpaid orders by upstream order id
		`CREATE INDEX IF NOT EXISTS idx_dropi_orders_unpaid
		 ON dropi_orders(user_id, dropi_order_id, is_paid)`,

		// Symmetric index for the return-charge pass
		`CREATE INDEX IF NOT EXISTS idx_dropi_orders_uncharged
		 ON dropi_orders(user_id, dropi_order_id, is_return_charged)`,

		// Reconciliation reads movements by category
		`CREATE INDEX IF NOT EXISTS idx_dropi_wallet_category
		 ON dropi_wallet_movements(user_id, category)`,

		// Wallet summary groups by category and direction
		`CREATE INDEX IF NOT EXISTS idx_dropi_wallet_direction
		 ON dropi_wallet_movements(user_id, movement_type)`,
	}

	// Execute each index creation
	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}
