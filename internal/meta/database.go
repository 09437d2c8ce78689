package meta

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Database handles Meta ad account persistence.
type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) GetAccount(userID uint, accountID string) (*MetaAccount, error) {
	var account MetaAccount
	err := d.db.Where("user_id = ? AND account_id = ?", userID, accountID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (d *Database) GetActiveAccount(userID uint, accountID string) (*MetaAccount, error) {
	var account MetaAccount
	err := d.db.Where("user_id = ? AND account_id = ? AND is_active = ?", userID, accountID, true).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (d *Database) ListAccounts(userID uint) ([]MetaAccount, error) {
	var accounts []MetaAccount
	err := d.db.Where("user_id = ? AND is_active = ?", userID, true).Find(&accounts).Error
	return accounts, err
}

func (d *Database) SaveAccount(account *MetaAccount) error {
	return d.db.Save(account).Error
}

// TouchAccount records when the stored token was last exercised.
func (d *Database) TouchAccount(id uint, at time.Time) error {
	return d.db.Model(&MetaAccount{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}
