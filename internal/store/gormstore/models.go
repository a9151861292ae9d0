package gormstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Account represents the accounts table.
type Account struct {
	AccountID string          `gorm:"type:uuid;primaryKey"`
	Username  string          `gorm:"not null;index:uniq_accounts_username,unique"`
	Email     string          `gorm:"not null;index:uniq_accounts_email,unique"`
	Balance   decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	Points    int64           `gorm:"not null"`
	Category  string          `gorm:"not null"`
	CreatedAt time.Time       `gorm:"not null"`
}

func (Account) TableName() string { return "accounts" }

func (account *Account) BeforeCreate(tx *gorm.DB) error {
	if account.AccountID == "" {
		account.AccountID = uuid.NewString()
	}
	return nil
}

// Purchase mirrors the purchases table.
type Purchase struct {
	PurchaseID string          `gorm:"type:uuid;primaryKey"`
	AccountID  string          `gorm:"type:uuid;not null;index:idx_purchases_account_created,priority:1"`
	ItemName   string          `gorm:"not null"`
	Price      decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	Status     string          `gorm:"not null"`
	CreatedAt  time.Time       `gorm:"not null;index:idx_purchases_account_created,priority:2"`
}

func (Purchase) TableName() string { return "purchases" }

func (purchase *Purchase) BeforeCreate(tx *gorm.DB) error {
	if purchase.PurchaseID == "" {
		purchase.PurchaseID = uuid.NewString()
	}
	return nil
}
