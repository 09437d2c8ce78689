package types

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Normalized order statuses. Anything the upstream reports that is not
// in the lookup table is treated as still moving (EN_RUTA).
const (
	StatusDelivered           = "ENTREGADO"
	StatusReturned            = "DEVOLUCION"
	StatusCancelled           = "CANCELADO"
	StatusPending             = "PENDIENTE"
	StatusPendingConfirmation = "PENDIENTE_CONFIRMACION"
	StatusInTransit           = "EN_RUTA"
	StatusUnknown             = "DESCONOCIDO"
)

// Wallet movement categories derived from the movement description.
const (
	CategoryDropshippingProfit = "ganancia_dropshipping"
	CategoryFreightCharge      = "cobro_flete"
	CategoryWithdrawal         = "retiro"
	CategoryRecharge           = "recarga"
	CategoryCreditOther        = "entrada_otro"
	CategoryDebitOther         = "salida_otro"
	CategoryOther              = "otro"
)

// Wallet movement directions as reported by the upstream ledger.
const (
	MovementCredit = "ENTRADA"
	MovementDebit  = "SALIDA"
)

// Connection sync states.
const (
	SyncPending   = "pending"
	SyncSyncing   = "syncing"
	SyncCompleted = "completed"
	SyncError     = "error"
)

// DropiOrder is a locally cached fulfillment order. Rows are created on
// first sighting during sync and operational fields are overwritten on
// every later sync. The reconciliation flags only move false -> true.
type DropiOrder struct {
	gorm.Model   `json:"-"`
	UserID       uint  `gorm:"uniqueIndex:idx_orders_user_order;index:idx_orders_user_status" json:"user_id"`
	DropiOrderID int64 `gorm:"uniqueIndex:idx_orders_user_order" json:"dropi_order_id"`

	Status    string `gorm:"index:idx_orders_user_status" json:"status"`
	StatusRaw string `json:"status_raw"`

	TotalOrder        decimal.Decimal `gorm:"type:numeric" json:"total_order"`
	ShippingAmount    decimal.Decimal `gorm:"type:numeric" json:"shipping_amount"`
	DropshipperProfit decimal.Decimal `gorm:"type:numeric" json:"dropshipper_profit"`

	CustomerName    string `json:"customer_name"`
	CustomerPhone   string `json:"customer_phone"`
	CustomerCity    string `json:"customer_city"`
	CustomerState   string `json:"customer_state"`
	CustomerAddress string `json:"customer_address"`

	ShippingGuide   string `json:"shipping_guide"`
	ShippingCompany string `json:"shipping_company"`
	RateType        string `json:"rate_type"`
	ProductsJSON    string `gorm:"type:text" json:"products_json,omitempty"`

	OrderCreatedAt time.Time  `gorm:"index" json:"order_created_at"`
	OrderUpdatedAt *time.Time `json:"order_updated_at,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
	ReturnedAt     *time.Time `json:"returned_at,omitempty"`

	// Payment reconciliation: set once when a profit credit in the
	// wallet references this order.
	IsPaid           bool                `json:"is_paid"`
	PaidAt           *time.Time          `json:"paid_at,omitempty"`
	PaidAmount       decimal.NullDecimal `gorm:"type:numeric" json:"paid_amount,omitempty"`
	WalletMovementID *int64              `json:"wallet_movement_id,omitempty"`

	// Return-charge reconciliation, symmetric to payment.
	IsReturnCharged     bool                `json:"is_return_charged"`
	ReturnChargedAt     *time.Time          `json:"return_charged_at,omitempty"`
	ReturnChargedAmount decimal.NullDecimal `gorm:"type:numeric" json:"return_charged_amount,omitempty"`

	SyncedAt time.Time `json:"synced_at"`
	RawData  string    `gorm:"type:text" json:"-"`
}

// DropiWalletMovement is a locally cached wallet ledger entry.
type DropiWalletMovement struct {
	gorm.Model      `json:"-"`
	UserID          uint  `gorm:"uniqueIndex:idx_wallet_user_movement;index:idx_wallet_user_order" json:"user_id"`
	DropiMovementID int64 `gorm:"uniqueIndex:idx_wallet_user_movement" json:"dropi_movement_id"`

	MovementType string          `json:"movement_type"` // ENTRADA or SALIDA
	Description  string          `gorm:"type:text" json:"description"`
	Amount       decimal.Decimal `gorm:"type:numeric" json:"amount"`
	BalanceAfter decimal.Decimal `gorm:"type:numeric" json:"balance_after"`

	// OrderRef is the upstream order this movement settles, when the
	// ledger provides one.
	OrderRef *int64 `gorm:"index:idx_wallet_user_order" json:"order_ref,omitempty"`
	Category string `gorm:"index" json:"category"`

	MovementCreatedAt time.Time `gorm:"index" json:"movement_created_at"`
	SyncedAt          time.Time `json:"synced_at"`
	RawData           string    `gorm:"type:text" json:"-"`
}

// LucidbotContact is a cached CRM lead/sale record. A contact with a
// positive AmountDue is a sale; everything else is a lead.
type LucidbotContact struct {
	gorm.Model `json:"-"`
	UserID     uint   `gorm:"uniqueIndex:idx_contacts_user_contact;index:idx_contacts_user_ad" json:"user_id"`
	LucidbotID string `gorm:"uniqueIndex:idx_contacts_user_contact" json:"lucidbot_id"`

	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	AdID     string `gorm:"index:idx_contacts_user_ad" json:"ad_id"`

	AmountDue     decimal.NullDecimal `gorm:"type:numeric" json:"amount_due,omitempty"`
	Product       string              `json:"product"`
	Qualification string              `json:"qualification"`

	ContactCreatedAt time.Time `gorm:"index" json:"contact_created_at"`
	SyncedAt         time.Time `json:"synced_at"`
}

// IsSale reports whether the contact converted. Presence of a positive
// paid amount is the entire lead/sale rule.
func (c *LucidbotContact) IsSale() bool {
	return c.AmountDue.Valid && c.AmountDue.Decimal.IsPositive()
}
