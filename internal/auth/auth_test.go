package auth

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBCounter int64

func newTestService(t *testing.T) *Service {
	t.Helper()

	n := atomic.AddInt64(&testDBCounter, 1)
	dsn := fmt.Sprintf("file:auth_test_%d?mode=memory&cache=shared", n)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewService(db, "test-secret")
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestService(t)

	creds := Credentials{Email: "Seller@Example.com", Password: "hunter22", Name: "Seller"}

	issued, err := s.Register(creds)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if issued.Token == "" {
		t.Fatal("register returned empty token")
	}
	if issued.Email != "seller@example.com" {
		t.Errorf("email = %q, want lowercased", issued.Email)
	}

	// Login with the same credentials, differently cased email
	logged, err := s.Login(Credentials{Email: "seller@example.com  ", Password: "hunter22"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if logged.UserID != issued.UserID {
		t.Errorf("login user id = %d, want %d", logged.UserID, issued.UserID)
	}
}

func TestProfile(t *testing.T) {
	s := newTestService(t)

	issued, err := s.Register(Credentials{Email: "seller@example.com", Password: "hunter22", Name: "Seller"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	user, err := s.Profile(issued.UserID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if user.Email != "seller@example.com" || user.Name != "Seller" {
		t.Errorf("profile = %q/%q", user.Email, user.Name)
	}

	if _, err := s.Profile(issued.UserID + 99); err != gorm.ErrRecordNotFound {
		t.Errorf("unknown user error = %v, want gorm.ErrRecordNotFound", err)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	s := newTestService(t)

	creds := Credentials{Email: "seller@example.com", Password: "hunter22"}
	if _, err := s.Register(creds); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := s.Register(creds); err != ErrEmailTaken {
		t.Errorf("second register error = %v, want ErrEmailTaken", err)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	s := newTestService(t)

	if _, err := s.Register(Credentials{Email: "seller@example.com", Password: "hunter22"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := s.Login(Credentials{Email: "seller@example.com", Password: "wrong"}); err != ErrInvalidCredentials {
		t.Errorf("error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := s.Login(Credentials{Email: "nobody@example.com", Password: "hunter22"}); err != ErrInvalidCredentials {
		t.Errorf("unknown user error = %v, want ErrInvalidCredentials", err)
	}
}

func TestIssuedTokenCarriesClaims(t *testing.T) {
	s := newTestService(t)

	issued, err := s.Register(Credentials{Email: "seller@example.com", Password: "hunter22"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(issued.Token, &claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("parse token: %v", err)
	}

	if claims.UserID != issued.UserID {
		t.Errorf("claim user_id = %d, want %d", claims.UserID, issued.UserID)
	}
	if claims.Email != "seller@example.com" {
		t.Errorf("claim email = %q", claims.Email)
	}
	if claims.IsAdmin {
		t.Error("fresh accounts must not be admin")
	}
}
