package meta

import (
	"time"

	"gorm.io/gorm"
)

// MetaAccount links a user to one Meta ad account. A user may track
// several ad accounts; tokens are stored encrypted.
type MetaAccount struct {
	gorm.Model
	UserID         uint   `gorm:"uniqueIndex:idx_meta_user_account;not null" json:"user_id"`
	AccountID      string `gorm:"uniqueIndex:idx_meta_user_account;not null" json:"account_id"`
	AccountName    string `json:"account_name"`
	TokenEncrypted string `gorm:"not null" json:"-"`
	IsActive       bool   `gorm:"default:true" json:"is_active"`
	LastUsedAt     *time.Time `json:"last_used_at,omitempty"`
}

// AdPayload is one ad from the Graph API with its hierarchy expanded.
type AdPayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"effective_status"`
	Campaign struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"campaign"`
	Adset struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"adset"`
}

// InsightRow is one ad-level insights row for a date range. The Graph
// API returns every numeric field as a string.
type InsightRow struct {
	AdID        string `json:"ad_id"`
	AdName      string `json:"ad_name"`
	Spend       string `json:"spend"`
	Impressions string `json:"impressions"`
	Clicks      string `json:"clicks"`
	CTR         string `json:"ctr"`
	CPM         string `json:"cpm"`
	DateStart   string `json:"date_start"`
	DateStop    string `json:"date_stop"`
}

// AccountPayload is the Graph API view of an ad account.
type AccountPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
