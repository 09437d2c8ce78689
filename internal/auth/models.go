package auth

import (
	"time"

	"gorm.io/gorm"
)

// User is a platform account. All cached third-party data is scoped to
// a user; nothing is shared across users.
type User struct {
	gorm.Model   `json:"-"`
	Email        string    `gorm:"uniqueIndex" json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	IsAdmin      bool      `gorm:"default:false" json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
