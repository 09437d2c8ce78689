package meta

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lucidlabs/lucid-analytics/internal/config"
)

func newTestClient(baseURL string) *Client {
	return NewClient(config.MetaConfig{BaseURL: baseURL, APIVersion: "v21.0"}, 5*time.Second)
}

func TestActPath(t *testing.T) {
	if got := actPath("1234567890"); got != "act_1234567890" {
		t.Errorf("actPath bare id = %q", got)
	}
	if got := actPath("act_1234567890"); got != "act_1234567890" {
		t.Errorf("actPath prefixed id = %q", got)
	}
}

func TestFetchAds_FollowsPaging(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("access_token") != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		if r.URL.Query().Get("after") == "" {
			fmt.Fprint(w, `{
				"data": [{"id":"ad-1","name":"A","campaign":{"id":"c-1","name":"C"},"adset":{"id":"s-1","name":"S"}}],
				"paging": {"next":"next-url","cursors":{"after":"cursor-1"}}
			}`)
			return
		}
		fmt.Fprint(w, `{
			"data": [{"id":"ad-2","name":"B","campaign":{"id":"c-1","name":"C"},"adset":{"id":"s-1","name":"S"}}],
			"paging": {"cursors":{"after":""}}
		}`)
	}))
	defer srv.Close()

	ads, err := newTestClient(srv.URL).FetchAds(context.Background(), "tok", "123")
	if err != nil {
		t.Fatalf("fetch ads: %v", err)
	}
	if len(ads) != 2 {
		t.Fatalf("ads = %d, want 2", len(ads))
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if ads[0].Campaign.ID != "c-1" || ads[1].ID != "ad-2" {
		t.Error("hierarchy fields not decoded")
	}
}

func TestFetchInsights_DecodesStringNumbers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]string{{
				"ad_id": "ad-1", "ad_name": "A",
				"spend": "12345.67", "impressions": "9000", "clicks": "120",
				"ctr": "1.33", "cpm": "8.4",
				"date_start": "2025-06-01", "date_stop": "2025-06-30",
			}},
			"paging": map[string]interface{}{"cursors": map[string]string{"after": ""}},
		})
	}))
	defer srv.Close()

	rows, err := newTestClient(srv.URL).FetchInsights(context.Background(), "tok", "123", "2025-06-01", "2025-06-30")
	if err != nil {
		t.Fatalf("fetch insights: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].Spend != "12345.67" || rows[0].Impressions != "9000" {
		t.Errorf("row = %+v", rows[0])
	}
}

func TestOAuthErrorBecomesTokenInvalid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"Error validating access token","type":"OAuthException","code":190}}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).VerifyAccount(context.Background(), "stale", "123")
	if err != ErrTokenInvalid {
		t.Errorf("error = %v, want ErrTokenInvalid", err)
	}
}

func TestGraphErrorSurfacesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"Unsupported get request","type":"GraphMethodException","code":100}}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).VerifyAccount(context.Background(), "tok", "123")
	if err == nil {
		t.Fatal("expected an error")
	}
	if err == ErrTokenInvalid {
		t.Error("non-OAuth errors must not map to ErrTokenInvalid")
	}
}
