package lucidbot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lucidlabs/lucid-analytics/internal/config"
	"github.com/lucidlabs/lucid-analytics/internal/metrics"
	"github.com/lucidlabs/lucid-analytics/internal/types"
	"github.com/lucidlabs/lucid-analytics/pkg/secrets"
)

var testDBCounter int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := atomic.AddInt64(&testDBCounter, 1)
	dsn := fmt.Sprintf("file:lucidbot_test_%d?mode=memory&cache=shared", n)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&types.LucidbotContact{}, &LucidbotConnection{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func newMockPanel(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/account", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-ACCESS-TOKEN") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "ok",
			"data":   map[string]interface{}{"id": 1, "name": "Test Account"},
		})
	})
	mux.HandleFunc("/users/find_by_custom_field", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-ACCESS-TOKEN") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req struct {
			Value string `json:"value"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "ok",
			"data": []map[string]interface{}{
				{
					"id":         101,
					"full_name":  "Comprador Uno",
					"phone":      "3001112233",
					"created_at": "2025-06-10T09:00:00",
					"custom_fields": map[string]interface{}{
						"AD ID":                   req.Value,
						"Total a pagar":           "1.234.567",
						"Producto_Ordenados":      "Smartwatch X2",
						"Calificacion_LucidSales": "caliente",
					},
				},
				{
					"id":         102,
					"full_name":  "Interesado Dos",
					"phone":      "3004445566",
					"created_at": "2025-06-11T14:30:00",
					"custom_fields": map[string]interface{}{
						"AD ID": req.Value,
					},
				},
				{
					// No id: must be skipped, not fatal
					"full_name": "Fantasma",
				},
			},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestService(t *testing.T, db *gorm.DB, baseURL string) *Service {
	t.Helper()

	box, err := secrets.NewBox("test-encryption-key")
	if err != nil {
		t.Fatalf("new box: %v", err)
	}

	cfg := config.LucidbotConfig{BaseURL: baseURL, AdFieldID: "728462"}
	return NewService(db, NewClient(cfg, 5*time.Second), box, cfg, metrics.Registry("test"))
}

func TestSyncContacts_ClassifiesAndSkips(t *testing.T) {
	panel := newMockPanel(t)
	db := newTestDB(t)
	s := newTestService(t, db, panel.URL)

	if _, err := s.Connect(context.Background(), 1, "panel-token"); err != nil {
		t.Fatalf("connect: %v", err)
	}

	synced, skipped, err := s.SyncContacts(context.Background(), 1, []string{"ad-1"})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if synced != 2 {
		t.Errorf("synced = %d, want 2", synced)
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}

	var sale types.LucidbotContact
	if err := db.Where("user_id = ? AND lucidbot_id = ?", 1, "101").First(&sale).Error; err != nil {
		t.Fatalf("load sale: %v", err)
	}
	if !sale.IsSale() {
		t.Error("contact 101 with amount due must classify as a sale")
	}
	if sale.AmountDue.Decimal.String() != "1234567" {
		t.Errorf("amount = %s, want 1234567 (thousands separators cleaned)", sale.AmountDue.Decimal)
	}
	if sale.Product != "Smartwatch X2" {
		t.Errorf("product = %q", sale.Product)
	}

	var lead types.LucidbotContact
	if err := db.Where("user_id = ? AND lucidbot_id = ?", 1, "102").First(&lead).Error; err != nil {
		t.Fatalf("load lead: %v", err)
	}
	if lead.IsSale() {
		t.Error("contact 102 without amount due must classify as a lead")
	}
}

func TestSyncContacts_Idempotent(t *testing.T) {
	panel := newMockPanel(t)
	db := newTestDB(t)
	s := newTestService(t, db, panel.URL)

	if _, err := s.Connect(context.Background(), 1, "panel-token"); err != nil {
		t.Fatalf("connect: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, _, err := s.SyncContacts(context.Background(), 1, []string{"ad-1"}); err != nil {
			t.Fatalf("sync %d: %v", i, err)
		}
	}

	var count int64
	db.Model(&types.LucidbotContact{}).Count(&count)
	if count != 2 {
		t.Errorf("rows after re-sync = %d, want 2", count)
	}
}

func TestSummariesByAd(t *testing.T) {
	panel := newMockPanel(t)
	db := newTestDB(t)
	s := newTestService(t, db, panel.URL)

	if _, err := s.Connect(context.Background(), 1, "panel-token"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, _, err := s.SyncContacts(context.Background(), 1, []string{"ad-1"}); err != nil {
		t.Fatalf("sync: %v", err)
	}

	summaries, err := s.SummariesByAd(1, []string{"ad-1", "ad-unknown"})
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}

	got := summaries["ad-1"]
	if got.Leads != 1 || got.Sales != 1 {
		t.Errorf("ad-1 leads=%d sales=%d, want 1/1", got.Leads, got.Sales)
	}
	if got.Revenue.String() != "1234567" {
		t.Errorf("revenue = %s, want 1234567", got.Revenue)
	}

	if _, present := summaries["ad-unknown"]; present {
		t.Error("ads with no contacts should not appear in the map")
	}
}

func TestStats_AndClear(t *testing.T) {
	panel := newMockPanel(t)
	db := newTestDB(t)
	s := newTestService(t, db, panel.URL)

	if _, err := s.Connect(context.Background(), 1, "panel-token"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, _, err := s.SyncContacts(context.Background(), 1, []string{"ad-1"}); err != nil {
		t.Fatalf("sync: %v", err)
	}

	stats, err := s.Stats(1)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalContacts != 2 {
		t.Errorf("total_contacts = %d, want 2", stats.TotalContacts)
	}
	if stats.TotalSales != 1 {
		t.Errorf("total_sales = %d, want 1", stats.TotalSales)
	}
	if stats.UniqueAds != 1 {
		t.Errorf("unique_ads = %d, want 1", stats.UniqueAds)
	}
	if stats.LastSync == nil {
		t.Error("last_sync must be set after a sync")
	}
	if stats.OldestContact == nil || stats.OldestContact.Day() != 10 {
		t.Errorf("oldest_contact = %v, want the 2025-06-10 contact", stats.OldestContact)
	}
	if stats.NewestContact == nil || stats.NewestContact.Day() != 11 {
		t.Errorf("newest_contact = %v, want the 2025-06-11 contact", stats.NewestContact)
	}

	deleted, err := s.ClearContacts(1)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	stats, err = s.Stats(1)
	if err != nil {
		t.Fatalf("stats after clear: %v", err)
	}
	if stats.TotalContacts != 0 || stats.LastSync != nil {
		t.Errorf("cache not empty after clear: contacts=%d last_sync=%v",
			stats.TotalContacts, stats.LastSync)
	}
}

func TestSyncContacts_NoConnection(t *testing.T) {
	panel := newMockPanel(t)
	db := newTestDB(t)
	s := newTestService(t, db, panel.URL)

	if _, _, err := s.SyncContacts(context.Background(), 7, []string{"ad-1"}); err != ErrNoConnection {
		t.Errorf("error = %v, want ErrNoConnection", err)
	}
}
