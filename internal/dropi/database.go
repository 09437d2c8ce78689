package dropi

import (
	"errors"
	"time"

	"github.com/lucidlabs/lucid-analytics/internal/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// Mutable operational fields refreshed when an upsert hits an existing
// row. Identity and creation fields are never touched on update.
var orderUpdateColumns = []string{
	"status", "status_raw", "total_order", "shipping_amount",
	"dropshipper_profit", "customer_name", "customer_phone",
	"shipping_guide", "order_updated_at", "synced_at", "raw_data",
	"updated_at",
}

var movementUpdateColumns = []string{
	"movement_type", "description", "amount", "balance_after",
	"order_ref", "category", "synced_at", "updated_at",
}

// UpsertOrders writes a page of orders keyed by (user_id,
// dropi_order_id), committing every commitEvery rows. A failing row is
// rolled back to the last savepoint and counted; the batch continues.
func (d *Database) UpsertOrders(rows []types.DropiOrder, commitEvery int) (synced, failed int, err error) {
	return d.upsertBatch(len(rows), commitEvery, func(tx *gorm.DB, i int) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "dropi_order_id"}},
			DoUpdates: clause.AssignmentColumns(orderUpdateColumns),
		}).Create(&rows[i]).Error
	})
}

// UpsertMovements is the wallet counterpart of UpsertOrders.
func (d *Database) UpsertMovements(rows []types.DropiWalletMovement, commitEvery int) (synced, failed int, err error) {
	return d.upsertBatch(len(rows), commitEvery, func(tx *gorm.DB, i int) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "dropi_movement_id"}},
			DoUpdates: clause.AssignmentColumns(movementUpdateColumns),
		}).Create(&rows[i]).Error
	})
}

func (d *Database) upsertBatch(n, commitEvery int, write func(tx *gorm.DB, i int) error) (synced, failed int, err error) {
	if commitEvery <= 0 {
		commitEvery = 50
	}

	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return 0, 0, err
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	for i := 0; i < n; i++ {
		tx.SavePoint("item")
		if writeErr := write(tx, i); writeErr != nil {
			tx.RollbackTo("item")
			failed++
			continue
		}
		synced++

		if synced%commitEvery == 0 {
			if err := tx.Commit().Error; err != nil {
				return synced, failed, err
			}
			tx = d.db.Begin()
			if err := tx.Error; err != nil {
				return synced, failed, err
			}
		}
	}

	if err := tx.Commit().Error; err != nil {
		return synced, failed, err
	}
	return synced, failed, nil
}

// MarkOrderPaid flips an order's payment flags once. The condition on
// is_paid makes the flip monotonic: a second movement or a second
// reconciliation pass cannot overwrite an already-paid order.
func (d *Database) MarkOrderPaid(userID uint, orderRef int64, amount decimal.Decimal, paidAt time.Time, movementID int64) (int64, error) {
	result := d.db.Model(&types.DropiOrder{}).
		Where("user_id = ? AND dropi_order_id = ? AND is_paid = ?", userID, orderRef, false).
		Updates(map[string]interface{}{
			"is_paid":            true,
			"paid_at":            paidAt,
			"paid_amount":        amount,
			"wallet_movement_id": movementID,
			"updated_at":         time.Now(),
		})
	return result.RowsAffected, result.Error
}

// MarkReturnCharged is the freight-charge counterpart of MarkOrderPaid.
func (d *Database) MarkReturnCharged(userID uint, orderRef int64, amount decimal.Decimal, chargedAt time.Time) (int64, error) {
	result := d.db.Model(&types.DropiOrder{}).
		Where("user_id = ? AND dropi_order_id = ? AND is_return_charged = ?", userID, orderRef, false).
		Updates(map[string]interface{}{
			"is_return_charged":     true,
			"return_charged_at":     chargedAt,
			"return_charged_amount": amount,
			"updated_at":            time.Now(),
		})
	return result.RowsAffected, result.Error
}

// MovementsByCategory returns a user's movements in the given category
// that reference an order.
func (d *Database) MovementsByCategory(userID uint, category string) ([]types.DropiWalletMovement, error) {
	var movements []types.DropiWalletMovement
	err := d.db.
		Where("user_id = ? AND category = ? AND order_ref IS NOT NULL", userID, category).
		Find(&movements).Error
	return movements, err
}

// OrderExists reports whether the user owns an order with the given
// upstream ID.
func (d *Database) OrderExists(userID uint, orderRef int64) (bool, error) {
	var count int64
	err := d.db.Model(&types.DropiOrder{}).
		Where("user_id = ? AND dropi_order_id = ?", userID, orderRef).
		Count(&count).Error
	return count > 0, err
}

// ListOrders returns a user's cached orders, optionally filtered by
// normalized status, newest first.
func (d *Database) ListOrders(userID uint, status string, limit int) ([]types.DropiOrder, error) {
	query := d.db.Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var orders []types.DropiOrder
	err := query.Order("order_created_at DESC").Find(&orders).Error
	return orders, err
}

// CacheCounts returns the queryable sync-status counters.
func (d *Database) CacheCounts(userID uint) (orders, movements, paid int64, err error) {
	if err = d.db.Model(&types.DropiOrder{}).Where("user_id = ?", userID).Count(&orders).Error; err != nil {
		return
	}
	if err = d.db.Model(&types.DropiWalletMovement{}).Where("user_id = ?", userID).Count(&movements).Error; err != nil {
		return
	}
	err = d.db.Model(&types.DropiOrder{}).Where("user_id = ? AND is_paid = ?", userID, true).Count(&paid).Error
	return
}

// ClearData deletes a user's cached rows and resets sync state to
// pending. This is the only path that resets reconciliation flags.
func (d *Database) ClearData(userID uint) (int64, error) {
	var deleted int64

	err := d.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Unscoped().Where("user_id = ?", userID).Delete(&types.DropiOrder{})
		if res.Error != nil {
			return res.Error
		}
		deleted += res.RowsAffected

		res = tx.Unscoped().Where("user_id = ?", userID).Delete(&types.DropiWalletMovement{})
		if res.Error != nil {
			return res.Error
		}
		deleted += res.RowsAffected

		return tx.Model(&DropiConnection{}).
			Where("user_id = ?", userID).
			Updates(map[string]interface{}{
				"sync_status":      types.SyncPending,
				"last_orders_sync": nil,
				"last_wallet_sync": nil,
			}).Error
	})

	return deleted, err
}

// ---- connection CRUD ----

func (d *Database) GetConnection(userID uint) (*DropiConnection, error) {
	var conn DropiConnection
	if err := d.db.Where("user_id = ?", userID).First(&conn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conn, nil
}

func (d *Database) GetActiveConnection(userID uint) (*DropiConnection, error) {
	var conn DropiConnection
	if err := d.db.Where("user_id = ? AND is_active = ?", userID, true).First(&conn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conn, nil
}

func (d *Database) ListActiveConnections() ([]DropiConnection, error) {
	var conns []DropiConnection
	err := d.db.Where("is_active = ?", true).Find(&conns).Error
	return conns, err
}

func (d *Database) SaveConnection(conn *DropiConnection) error {
	return d.db.Save(conn).Error
}

// SetSyncStatus transitions the connection state machine.
func (d *Database) SetSyncStatus(userID uint, status string) error {
	return d.db.Model(&DropiConnection{}).
		Where("user_id = ?", userID).
		Update("sync_status", status).Error
}

// StampSyncCompleted records a successful run.
func (d *Database) StampSyncCompleted(userID uint, at time.Time) error {
	return d.db.Model(&DropiConnection{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"sync_status":      types.SyncCompleted,
			"last_orders_sync": at,
			"last_wallet_sync": at,
		}).Error
}

// UpdateToken caches the short-lived bearer token after a login.
func (d *Database) UpdateToken(userID uint, token string, expiresAt time.Time) error {
	return d.db.Model(&DropiConnection{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"current_token":    token,
			"token_expires_at": expiresAt,
		}).Error
}

// WalletSummary aggregates the cached ledger by category and direction.
type WalletSummary struct {
	Totals       map[string]decimal.Decimal `json:"totals"`
	CreditsTotal decimal.Decimal            `json:"credits_total"`
	DebitsTotal  decimal.Decimal            `json:"debits_total"`
	Movements    int64                      `json:"movements"`
}

func (d *Database) WalletSummary(userID uint) (*WalletSummary, error) {
	type row struct {
		Category string
		Type     string
		Total    decimal.Decimal
		Count    int64
	}
	var rows []row
	err := d.db.Model(&types.DropiWalletMovement{}).
		Select("category, movement_type AS type, SUM(amount) AS total, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("category, type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	summary := &WalletSummary{Totals: make(map[string]decimal.Decimal)}
	for _, r := range rows {
		summary.Totals[r.Category] = summary.Totals[r.Category].Add(r.Total)
		summary.Movements += r.Count
		switch r.Type {
		case types.MovementCredit:
			summary.CreditsTotal = summary.CreditsTotal.Add(r.Total)
		case types.MovementDebit:
			summary.DebitsTotal = summary.DebitsTotal.Add(r.Total)
		}
	}
	return summary, nil
}

// ProfitReport builds the Dropi-side P&L from the cached orders and
// wallet movements.
func (d *Database) ProfitReport(userID uint) (*types.ProfitReport, error) {
	report := &types.ProfitReport{}

	orders := d.db.Model(&types.DropiOrder{}).Where("user_id = ?", userID)
	if err := orders.Count(&report.OrdersTotal).Error; err != nil {
		return nil, err
	}
	if err := d.db.Model(&types.DropiOrder{}).
		Where("user_id = ? AND status = ?", userID, types.StatusDelivered).
		Count(&report.OrdersDelivered).Error; err != nil {
		return nil, err
	}
	if err := d.db.Model(&types.DropiOrder{}).
		Where("user_id = ? AND status = ?", userID, types.StatusReturned).
		Count(&report.OrdersReturned).Error; err != nil {
		return nil, err
	}

	type sumRow struct{ Total decimal.Decimal }
	var expected, confirmed, freight sumRow
	if err := d.db.Model(&types.DropiOrder{}).
		Select("COALESCE(SUM(dropshipper_profit), 0) AS total").
		Where("user_id = ?", userID).
		Scan(&expected).Error; err != nil {
		return nil, err
	}
	if err := d.db.Model(&types.DropiOrder{}).
		Select("COALESCE(SUM(paid_amount), 0) AS total").
		Where("user_id = ? AND is_paid = ?", userID, true).
		Scan(&confirmed).Error; err != nil {
		return nil, err
	}
	if err := d.db.Model(&types.DropiOrder{}).
		Select("COALESCE(SUM(return_charged_amount), 0) AS total").
		Where("user_id = ? AND is_return_charged = ?", userID, true).
		Scan(&freight).Error; err != nil {
		return nil, err
	}
	report.ExpectedProfit = expected.Total
	report.ConfirmedProfit = confirmed.Total
	report.FreightCharged = freight.Total

	var withdrawals, recharges sumRow
	if err := d.db.Model(&types.DropiWalletMovement{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ? AND category = ?", userID, types.CategoryWithdrawal).
		Scan(&withdrawals).Error; err != nil {
		return nil, err
	}
	if err := d.db.Model(&types.DropiWalletMovement{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ? AND category = ?", userID, types.CategoryRecharge).
		Scan(&recharges).Error; err != nil {
		return nil, err
	}
	report.WalletWithdrawals = withdrawals.Total
	report.WalletRecharges = recharges.Total

	return report, nil
}
