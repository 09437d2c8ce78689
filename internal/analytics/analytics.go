package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/lucidlabs/lucid-analytics/internal/dropi"
	"github.com/lucidlabs/lucid-analytics/internal/lucidbot"
	"github.com/lucidlabs/lucid-analytics/internal/meta"
	"github.com/lucidlabs/lucid-analytics/internal/types"
	"github.com/lucidlabs/lucid-analytics/pkg/middleware"
	"github.com/lucidlabs/lucid-analytics/pkg/response"
)

var hundred = decimal.NewFromInt(100)

// Service joins Meta spend with LucidBot conversions and the Dropi
// cache into the profitability views.
type Service struct {
	meta     *meta.Service
	lucidbot *lucidbot.Service
	dropi    *dropi.Service
}

func NewService(metaSvc *meta.Service, lucidbotSvc *lucidbot.Service, dropiSvc *dropi.Service) *Service {
	return &Service{
		meta:     metaSvc,
		lucidbot: lucidbotSvc,
		dropi:    dropiSvc,
	}
}

// Dashboard builds the per-ad profitability table for a date range.
// Spend comes live from the Graph API; conversions from the local
// contact cache.
func (s *Service) Dashboard(ctx context.Context, userID uint, accountID, since, until string) (*types.Dashboard, error) {
	insights, err := s.meta.Insights(ctx, userID, accountID, since, until)
	if err != nil {
		return nil, err
	}

	ads, err := s.meta.Ads(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	hierarchy := make(map[string]meta.AdPayload, len(ads))
	for _, ad := range ads {
		hierarchy[ad.ID] = ad
	}

	adIDs := make([]string, 0, len(insights))
	for _, row := range insights {
		adIDs = append(adIDs, row.AdID)
	}

	summaries, err := s.lucidbot.SummariesByAd(userID, adIDs)
	if err != nil {
		return nil, err
	}

	dashboard := &types.Dashboard{
		Ads:       make([]types.AdAnalytics, 0, len(insights)),
		DateRange: types.DateRange{Start: since, End: until},
	}
	summary := &dashboard.Summary

	for _, row := range insights {
		ad := buildAdRow(row, hierarchy[row.AdID], summaries[row.AdID])
		dashboard.Ads = append(dashboard.Ads, ad)

		summary.TotalSpend = summary.TotalSpend.Add(ad.Spend)
		summary.TotalRevenue = summary.TotalRevenue.Add(ad.Revenue)
		summary.TotalLeads += ad.Leads
		summary.TotalSales += ad.Sales
	}

	summary.AverageCPL = safeDiv(summary.TotalSpend, decimal.NewFromInt(int64(summary.TotalLeads)))
	summary.AverageCPA = safeDiv(summary.TotalSpend, decimal.NewFromInt(int64(summary.TotalSales)))
	summary.AverageROAS = safeDiv(summary.TotalRevenue, summary.TotalSpend)
	summary.ConversionRate = safeDiv(
		decimal.NewFromInt(int64(summary.TotalSales)),
		decimal.NewFromInt(int64(summary.TotalLeads)),
	).Mul(hundred)
	summary.Profit = summary.TotalRevenue.Sub(summary.TotalSpend)

	return dashboard, nil
}

func buildAdRow(row meta.InsightRow, ad meta.AdPayload, contacts types.ContactSummary) types.AdAnalytics {
	spend := parseDecimal(row.Spend)
	out := types.AdAnalytics{
		AdID:         row.AdID,
		AdName:       row.AdName,
		CampaignID:   ad.Campaign.ID,
		CampaignName: ad.Campaign.Name,
		AdsetID:      ad.Adset.ID,
		AdsetName:    ad.Adset.Name,

		Spend:       spend,
		Impressions: parseInt(row.Impressions),
		Clicks:      parseInt(row.Clicks),
		CTR:         parseFloat(row.CTR),
		CPM:         parseFloat(row.CPM),

		Leads:   contacts.Leads,
		Sales:   contacts.Sales,
		Revenue: contacts.Revenue,
	}

	out.CPL = safeDiv(spend, decimal.NewFromInt(int64(out.Leads)))
	out.CPA = safeDiv(spend, decimal.NewFromInt(int64(out.Sales)))
	out.ROAS = safeDiv(out.Revenue, spend)
	out.ConversionRate = safeDiv(
		decimal.NewFromInt(int64(out.Sales)),
		decimal.NewFromInt(int64(out.Leads)),
	).Mul(hundred)
	return out
}

// Profit builds the Dropi-side P&L from the local cache.
func (s *Service) Profit(userID uint) (*types.ProfitReport, error) {
	return s.dropi.ProfitReport(userID)
}

// safeDiv divides with a zero result on a zero denominator, so empty
// date ranges render as zeros instead of errors.
func safeDiv(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den).Round(4)
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseInt(s string) int64 {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.IntPart()
}

func parseFloat(s string) float64 {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}

// GinHandlers contains HTTP handlers for analytics endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

// DashboardHandler handles GET requests for the per-ad dashboard.
// Defaults to the last 7 days when no range is given.
func (h *GinHandlers) DashboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.Query("account_id")
		if accountID == "" {
			response.BadRequest(c, "account_id is required")
			return
		}

		since, until, err := dateRange(c.Query("since"), c.Query("until"))
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		dashboard, err := h.service.Dashboard(c.Request.Context(), middleware.UserID(c), accountID, since, until)
		if err != nil {
			switch {
			case errors.Is(err, meta.ErrNoAccount):
				response.NotFound(c, "Ad account not linked")
			case errors.Is(err, meta.ErrTokenInvalid):
				response.Unauthorized(c, "Meta token no longer valid")
			default:
				response.InternalError(c, "Failed to build dashboard")
			}
			return
		}
		response.Success(c, dashboard)
	}
}

// ProfitHandler handles GET requests for the Dropi P&L report
func (h *GinHandlers) ProfitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := h.service.Profit(middleware.UserID(c))
		response.Handle(c, report, err)
	}
}

// AdContactsHandler handles GET requests for the contacts behind one
// dashboard row.
func (h *GinHandlers) AdContactsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		contacts, err := h.service.lucidbot.ContactsByAd(middleware.UserID(c), c.Param("adId"))
		response.Handle(c, contacts, err)
	}
}

func dateRange(since, until string) (string, string, error) {
	const layout = "2006-01-02"
	now := time.Now()

	if until == "" {
		until = now.Format(layout)
	} else if _, err := time.Parse(layout, until); err != nil {
		return "", "", errors.New("until must be YYYY-MM-DD")
	}
	if since == "" {
		since = now.AddDate(0, 0, -7).Format(layout)
	} else if _, err := time.Parse(layout, since); err != nil {
		return "", "", errors.New("since must be YYYY-MM-DD")
	}
	return since, until, nil
}
