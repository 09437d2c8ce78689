package analytics

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/lucidlabs/lucid-analytics/internal/meta"
	"github.com/lucidlabs/lucid-analytics/internal/types"
)

func TestBuildAdRow_Metrics(t *testing.T) {
	insight := meta.InsightRow{
		AdID:        "ad-1",
		AdName:      "Video A",
		Spend:       "150000.50",
		Impressions: "12000",
		Clicks:      "340",
		CTR:         "2.83",
		CPM:         "12.5",
	}
	ad := meta.AdPayload{ID: "ad-1", Name: "Video A"}
	ad.Campaign.ID = "c-1"
	ad.Campaign.Name = "Campaign"
	ad.Adset.ID = "as-1"
	ad.Adset.Name = "Adset"

	contacts := types.ContactSummary{
		Leads:   10,
		Sales:   5,
		Revenue: decimal.NewFromInt(600000),
	}

	row := buildAdRow(insight, ad, contacts)

	if !row.Spend.Equal(decimal.RequireFromString("150000.50")) {
		t.Errorf("spend = %s", row.Spend)
	}
	if row.Impressions != 12000 || row.Clicks != 340 {
		t.Errorf("impressions=%d clicks=%d", row.Impressions, row.Clicks)
	}
	if row.CampaignName != "Campaign" || row.AdsetID != "as-1" {
		t.Error("hierarchy not joined onto the insight row")
	}

	// CPL = 150000.50 / 10
	if !row.CPL.Equal(decimal.RequireFromString("15000.05")) {
		t.Errorf("cpl = %s, want 15000.05", row.CPL)
	}
	// CPA = 150000.50 / 5
	if !row.CPA.Equal(decimal.RequireFromString("30000.1")) {
		t.Errorf("cpa = %s, want 30000.1", row.CPA)
	}
	// ROAS = 600000 / 150000.50, rounded to 4 places
	if row.ROAS.StringFixed(4) != "4.0000" {
		t.Errorf("roas = %s, want 4.0000", row.ROAS)
	}
	// Conversion rate = 5/10 * 100
	if !row.ConversionRate.Equal(decimal.NewFromInt(50)) {
		t.Errorf("conversion rate = %s, want 50", row.ConversionRate)
	}
}

// Ads with spend but no tracked contacts must render as zeros, never
// divide-by-zero errors.
func TestBuildAdRow_ZeroDenominators(t *testing.T) {
	insight := meta.InsightRow{AdID: "ad-1", Spend: "50000"}

	row := buildAdRow(insight, meta.AdPayload{}, types.ContactSummary{})

	if !row.CPL.IsZero() || !row.CPA.IsZero() || !row.ConversionRate.IsZero() {
		t.Errorf("cpl=%s cpa=%s conv=%s, want all zero", row.CPL, row.CPA, row.ConversionRate)
	}

	// Zero spend with revenue: ROAS also guards its denominator
	free := buildAdRow(meta.InsightRow{AdID: "ad-2", Spend: "0"}, meta.AdPayload{}, types.ContactSummary{
		Sales:   1,
		Revenue: decimal.NewFromInt(100),
	})
	if !free.ROAS.IsZero() {
		t.Errorf("roas = %s, want 0", free.ROAS)
	}
}

func TestBuildAdRow_MalformedUpstreamNumbers(t *testing.T) {
	insight := meta.InsightRow{AdID: "ad-1", Spend: "not-a-number", Impressions: ""}

	row := buildAdRow(insight, meta.AdPayload{}, types.ContactSummary{})
	if !row.Spend.IsZero() {
		t.Errorf("spend = %s, want 0", row.Spend)
	}
	if row.Impressions != 0 {
		t.Errorf("impressions = %d, want 0", row.Impressions)
	}
}

func TestDateRange(t *testing.T) {
	since, until, err := dateRange("2025-06-01", "2025-06-30")
	if err != nil {
		t.Fatalf("valid range: %v", err)
	}
	if since != "2025-06-01" || until != "2025-06-30" {
		t.Errorf("got %s..%s", since, until)
	}

	// Defaults fill in a 7-day window
	since, until, err = dateRange("", "")
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if since == "" || until == "" {
		t.Error("defaults must produce both bounds")
	}

	if _, _, err := dateRange("June 1st", ""); err == nil {
		t.Error("malformed since must be rejected")
	}
	if _, _, err := dateRange("", "30/06/2025"); err == nil {
		t.Error("malformed until must be rejected")
	}
}
