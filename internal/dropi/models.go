package dropi

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DropiConnection holds one user's Dropi credentials and sync state.
// Credentials are stored encrypted; the short-lived bearer token is
// cached but a sync run always re-authenticates.
type DropiConnection struct {
	gorm.Model `json:"-"`
	UserID     uint `gorm:"uniqueIndex" json:"user_id"`

	EmailEncrypted    string `json:"-"`
	PasswordEncrypted string `json:"-"`
	Country           string `json:"country"`

	DropiUserID   string `json:"dropi_user_id"`
	DropiUserName string `json:"dropi_user_name"`

	CurrentToken   string     `json:"-"`
	TokenExpiresAt *time.Time `json:"-"`

	SyncStatus     string     `gorm:"default:pending" json:"sync_status"`
	LastOrdersSync *time.Time `json:"last_orders_sync,omitempty"`
	LastWalletSync *time.Time `json:"last_wallet_sync,omitempty"`

	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusField tolerates the upstream's two shapes for order status: a
// plain string or a nested object carrying name/id.
type StatusField string

func (s *StatusField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}

	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*s = StatusField(strings.TrimSpace(raw))
		return nil
	}

	if data[0] == '{' {
		var obj struct {
			Name string          `json:"name"`
			ID   json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		if obj.Name != "" {
			*s = StatusField(strings.TrimSpace(obj.Name))
			return nil
		}
		*s = StatusField(strings.Trim(string(obj.ID), `"`))
		return nil
	}

	// Bare number or other scalar
	*s = StatusField(strings.Trim(string(data), `"`))
	return nil
}

// FlexDecimal decodes a monetary value that may arrive as a JSON
// number, a quoted number, or null.
type FlexDecimal struct {
	decimal.Decimal
}

func (f *FlexDecimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`""`)) {
		f.Decimal = decimal.Zero
		return nil
	}

	s := strings.Trim(string(data), `"`)
	d, err := decimal.NewFromString(s)
	if err != nil {
		f.Decimal = decimal.Zero
		return nil
	}
	f.Decimal = d
	return nil
}

// FlexInt decodes an ID that may arrive as a number or a numeric string.
// Zero means absent.
type FlexInt int64

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`""`)) {
		*f = 0
		return nil
	}

	s := strings.Trim(string(data), `"`)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexInt(n)
	return nil
}

// OrderPayload is one order as returned by the upstream list endpoint.
type OrderPayload struct {
	ID                     FlexInt       `json:"id"`
	Status                 StatusField   `json:"status"`
	TotalOrder             FlexDecimal   `json:"total_order"`
	ShippingAmount         FlexDecimal   `json:"shipping_amount"`
	DropshipperAmountToWin FlexDecimal   `json:"dropshipper_amount_to_win"`
	Name                   string        `json:"name"`
	Surname                string        `json:"surname"`
	Phone                  string        `json:"phone"`
	City                   string        `json:"city"`
	State                  string        `json:"state"`
	Dir                    string        `json:"dir"`
	ShippingGuide          string        `json:"shipping_guide"`
	ShippingCompany        string        `json:"shipping_company"`
	RateType               string        `json:"rate_type"`
	CreatedAt              string        `json:"created_at"`
	UpdatedAt              string        `json:"updated_at"`
	OrderDetails           []OrderDetail `json:"orderdetails"`
}

// OrderDetail is a line item inside an order payload.
type OrderDetail struct {
	Quantity FlexInt     `json:"quantity"`
	Price    FlexDecimal `json:"price"`
	Product  struct {
		Name string `json:"name"`
	} `json:"product"`
}

// OrderProduct is the compact line-item form persisted in
// DropiOrder.ProductsJSON.
type OrderProduct struct {
	Name     string          `json:"name"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// MovementPayload is one wallet ledger entry as returned upstream.
// PreviousAmount is, despite its name, the balance after the movement.
type MovementPayload struct {
	ID             FlexInt     `json:"id"`
	Type           string      `json:"type"`
	Description    string      `json:"description"`
	Amount         FlexDecimal `json:"amount"`
	PreviousAmount FlexDecimal `json:"previous_amount"`
	OrderID        FlexInt     `json:"order_id"`
	CreatedAt      string      `json:"created_at"`
}

// ParseUpstreamTime parses the upstream's timestamp format, which is
// ISO-8601 truncated to seconds. Returns nil when unparseable.
func ParseUpstreamTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if len(s) < 19 {
		return nil
	}
	t, err := time.Parse("2006-01-02T15:04:05", s[:19])
	if err != nil {
		return nil
	}
	return &t
}
