package dropi

import (
	"fmt"
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

	// Unique shared-cache name per test so parallel tests don't share
	// tables.
	n := atomic.AddInt64(&testDBCounter, 1)
	dsn := fmt.Sprintf("file:dropi_test_%d?mode=memory&cache=shared", n)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err := db.AutoMigrate(
		&types.DropiOrder{},
		&types.DropiWalletMovement{},
		&DropiConnection{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func testSyncConfig() config.SyncConfig {
	return config.SyncConfig{
		IntervalMinutes:    120,
		FullOrdersMax:      10000,
		IncrementalMax:     500,
		FullWalletMax:      5000,
		IncrementalWallet:  1000,
		FullWindowDays:     730,
		IncrementalDays:    60,
		OrderCommitEvery:   50,
		WalletCommitEvery:  100,
		RequestTimeoutSecs: 5,
	}
}

func newTestService(t *testing.T, db *gorm.DB, client *Client) *Service {
	t.Helper()

	box, err := secrets.NewBox("test-encryption-key")
	if err != nil {
		t.Fatalf("new box: %v", err)
	}

	return &Service{
		db:         NewDatabase(db),
		client:     client,
		box:        box,
		cfg:        testSyncConfig(),
		ordersPage: 100,
		walletPage: 500,
		metrics:    metrics.Registry("test"),
		inflight:   make(map[uint]struct{}),
	}
}

func seedConnection(t *testing.T, s *Service, userID uint) {
	t.Helper()

	emailEnc, err := s.box.Encrypt("seller@example.com")
	if err != nil {
		t.Fatalf("encrypt email: %v", err)
	}
	passwordEnc, err := s.box.Encrypt("password123")
	if err != nil {
		t.Fatalf("encrypt password: %v", err)
	}

	conn := &DropiConnection{
		UserID:            userID,
		EmailEncrypted:    emailEnc,
		PasswordEncrypted: passwordEnc,
		Country:           "co",
		SyncStatus:        types.SyncPending,
		IsActive:          true,
	}
	if err := s.db.SaveConnection(conn); err != nil {
		t.Fatalf("save connection: %v", err)
	}
}

func testOrder(userID uint, orderID int64, status string) types.DropiOrder {
	return types.DropiOrder{
		UserID:         userID,
		DropiOrderID:   orderID,
		Status:         status,
		StatusRaw:      status,
		OrderCreatedAt: time.Now().AddDate(0, 0, -10),
		SyncedAt:       time.Now(),
	}
}
