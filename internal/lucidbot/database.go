package lucidbot

import (
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lucidlabs/lucid-analytics/internal/types"
)

// Database handles contact cache and connection persistence.
type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// contactUpdateColumns are the fields a re-sync may overwrite. The
// composite key and timestamps of first sight stay fixed.
var contactUpdateColumns = []string{
	"full_name", "phone", "ad_id",
	"amount_due", "product", "qualification",
	"synced_at",
}

// UpsertContacts writes contacts keyed on (user_id, lucidbot_id).
// Re-running the same batch changes no row counts. An existing row is
// only rewritten when its amount changed; a stable contact is left
// untouched so its synced_at keeps the timestamp of the sync that last
// saw movement.
func (d *Database) UpsertContacts(rows []types.LucidbotContact) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	err := d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "lucidbot_id"}},
		DoUpdates: clause.AssignmentColumns(contactUpdateColumns),
		Where: clause.Where{Exprs: []clause.Expression{
			gorm.Expr("excluded.amount_due IS NOT lucidbot_contacts.amount_due"),
		}},
	}).Create(&rows).Error
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// SummariesByAd aggregates cached contacts into per-ad lead/sale/revenue
// counts for the given ads.
func (d *Database) SummariesByAd(userID uint, adIDs []string) (map[string]types.ContactSummary, error) {
	if len(adIDs) == 0 {
		return map[string]types.ContactSummary{}, nil
	}

	var contacts []types.LucidbotContact
	err := d.db.Where("user_id = ? AND ad_id IN ?", userID, adIDs).Find(&contacts).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]types.ContactSummary, len(adIDs))
	for _, c := range contacts {
		s := out[c.AdID]
		if c.IsSale() {
			s.Sales++
			s.Revenue = s.Revenue.Add(c.AmountDue.Decimal)
		} else {
			s.Leads++
		}
		out[c.AdID] = s
	}
	return out, nil
}

// ContactsByAd lists cached contacts for one ad.
func (d *Database) ContactsByAd(userID uint, adID string) ([]types.LucidbotContact, error) {
	var contacts []types.LucidbotContact
	err := d.db.Where("user_id = ? AND ad_id = ?", userID, adID).
		Order("contact_created_at DESC").
		Find(&contacts).Error
	return contacts, err
}

// ContactCount returns the size of the user's contact cache.
func (d *Database) ContactCount(userID uint) (int64, error) {
	var n int64
	err := d.db.Model(&types.LucidbotContact{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

// ClearContacts wipes the user's cached contacts.
func (d *Database) ClearContacts(userID uint) (int64, error) {
	res := d.db.Unscoped().Where("user_id = ?", userID).Delete(&types.LucidbotContact{})
	return res.RowsAffected, res.Error
}

// ContactStats summarizes a user's contact cache.
type ContactStats struct {
	TotalContacts int64      `json:"total_contacts"`
	TotalSales    int64      `json:"total_sales"`
	UniqueAds     int64      `json:"unique_ads"`
	LastSync      *time.Time `json:"last_sync"`
	OldestContact *time.Time `json:"oldest_contact"`
	NewestContact *time.Time `json:"newest_contact"`
}

// Stats aggregates cache counts and the contact date range.
func (d *Database) Stats(userID uint) (*ContactStats, error) {
	base := func() *gorm.DB {
		return d.db.Model(&types.LucidbotContact{}).Where("user_id = ?", userID)
	}

	var stats ContactStats
	if err := base().Count(&stats.TotalContacts).Error; err != nil {
		return nil, err
	}
	if err := base().Where("amount_due IS NOT NULL AND amount_due > 0").
		Count(&stats.TotalSales).Error; err != nil {
		return nil, err
	}
	if err := base().Distinct("ad_id").Count(&stats.UniqueAds).Error; err != nil {
		return nil, err
	}

	stamps := []struct {
		expr string
		dst  **time.Time
	}{
		{"MAX(synced_at)", &stats.LastSync},
		{"MIN(contact_created_at)", &stats.OldestContact},
		{"MAX(contact_created_at)", &stats.NewestContact},
	}
	for _, s := range stamps {
		var t sql.NullTime
		if err := base().Select(s.expr).Row().Scan(&t); err != nil {
			return nil, err
		}
		if t.Valid {
			at := t.Time
			*s.dst = &at
		}
	}
	return &stats, nil
}

func (d *Database) GetConnection(userID uint) (*LucidbotConnection, error) {
	var conn LucidbotConnection
	if err := d.db.Where("user_id = ?", userID).First(&conn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conn, nil
}

func (d *Database) GetActiveConnection(userID uint) (*LucidbotConnection, error) {
	var conn LucidbotConnection
	if err := d.db.Where("user_id = ? AND is_active = ?", userID, true).First(&conn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conn, nil
}

func (d *Database) SaveConnection(conn *LucidbotConnection) error {
	return d.db.Save(conn).Error
}

// StampSync records a completed contact sync.
func (d *Database) StampSync(userID uint, at time.Time) error {
	return d.db.Model(&LucidbotConnection{}).
		Where("user_id = ?", userID).
		Update("last_sync", at).Error
}
