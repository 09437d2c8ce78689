package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// SyncResult summarizes one orchestrated sync run for a connection.
type SyncResult struct {
	OrdersSynced      int `json:"orders_synced"`
	OrdersErrors      int `json:"orders_errors"`
	WalletSynced      int `json:"wallet_synced"`
	WalletErrors      int `json:"wallet_errors"`
	ReconciledPaid    int `json:"reconciled_paid"`
	ReconciledCharged int `json:"reconciled_charged"`
	ReconcileSkipped  int `json:"reconcile_skipped"`
}

// SyncStatusResponse is the queryable state of a Dropi connection.
type SyncStatusResponse struct {
	Connected      bool       `json:"connected"`
	SyncStatus     string     `json:"sync_status,omitempty"`
	Country        string     `json:"country,omitempty"`
	OrdersCached   int64      `json:"orders_cached"`
	WalletCached   int64      `json:"wallet_cached"`
	OrdersPaid     int64      `json:"orders_paid"`
	LastOrdersSync *time.Time `json:"last_orders_sync,omitempty"`
	LastWalletSync *time.Time `json:"last_wallet_sync,omitempty"`
}

// AdAnalytics is one row of the per-ad profitability dashboard.
type AdAnalytics struct {
	AdID         string `json:"ad_id"`
	AdName       string `json:"ad_name"`
	CampaignID   string `json:"campaign_id"`
	CampaignName string `json:"campaign_name"`
	AdsetID      string `json:"adset_id"`
	AdsetName    string `json:"adset_name"`

	Spend       decimal.Decimal `json:"spend"`
	Impressions int64           `json:"impressions"`
	Clicks      int64           `json:"clicks"`
	CTR         float64         `json:"ctr"`
	CPM         float64         `json:"cpm"`

	Leads   int             `json:"leads"`
	Sales   int             `json:"sales"`
	Revenue decimal.Decimal `json:"revenue"`

	CPL            decimal.Decimal `json:"cpl"`
	CPA            decimal.Decimal `json:"cpa"`
	ROAS           decimal.Decimal `json:"roas"`
	ConversionRate decimal.Decimal `json:"conversion_rate"`
}

// DashboardSummary aggregates the dashboard across all ads.
type DashboardSummary struct {
	TotalSpend     decimal.Decimal `json:"total_spend"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	TotalLeads     int             `json:"total_leads"`
	TotalSales     int             `json:"total_sales"`
	AverageCPA     decimal.Decimal `json:"average_cpa"`
	AverageCPL     decimal.Decimal `json:"average_cpl"`
	AverageROAS    decimal.Decimal `json:"average_roas"`
	ConversionRate decimal.Decimal `json:"conversion_rate"`
	Profit         decimal.Decimal `json:"profit"`
}

// Dashboard is the combined ads + summary payload.
type Dashboard struct {
	Ads       []AdAnalytics    `json:"ads"`
	Summary   DashboardSummary `json:"summary"`
	DateRange DateRange        `json:"date_range"`
}

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ProfitReport is the Dropi-side P&L view built from the cached orders
// and wallet movements.
type ProfitReport struct {
	OrdersTotal       int64           `json:"orders_total"`
	OrdersDelivered   int64           `json:"orders_delivered"`
	OrdersReturned    int64           `json:"orders_returned"`
	ExpectedProfit    decimal.Decimal `json:"expected_profit"`
	ConfirmedProfit   decimal.Decimal `json:"confirmed_profit"`
	FreightCharged    decimal.Decimal `json:"freight_charged"`
	WalletWithdrawals decimal.Decimal `json:"wallet_withdrawals"`
	WalletRecharges   decimal.Decimal `json:"wallet_recharges"`
}

// ContactSummary is the per-ad lead/sale aggregate used by analytics.
type ContactSummary struct {
	Leads   int
	Sales   int
	Revenue decimal.Decimal
}
