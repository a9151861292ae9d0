package gormstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/loyalty/pkg/loyalty"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	constraintAccountsUsername = "uniq_accounts_username"
	constraintAccountsEmail    = "uniq_accounts_email"
	pgUniqueViolationCode      = "23505"
	sqliteConstraintCode       = 19
	errorOperationStore        = "store"
	errorSubjectAccount        = "account"
	errorSubjectPurchase       = "purchase"
	errorCodeDelete            = "delete"
	errorCodeDuplicate         = "duplicate"
	errorCodeExists            = "exists"
	errorCodeGet               = "get"
	errorCodeInsert            = "insert"
	errorCodeInvalid           = "invalid"
	errorCodeList              = "list"
	errorCodeStats             = "stats"
	errorCodeUpdate            = "update"
	errorCodeUpdateStatus      = "update_status"
)

// Store implements loyalty.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore loyalty.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

func (store *Store) InsertAccount(ctx context.Context, account loyalty.Account) error {
	model := Account{
		AccountID: account.AccountID.String(),
		Username:  account.Username.String(),
		Email:     account.Email.String(),
		Balance:   account.Balance.Decimal(),
		Points:    account.Points,
		Category:  account.Category.String(),
		CreatedAt: time.Unix(account.CreatedUnixUTC, 0).UTC(),
	}
	if account.CreatedUnixUTC == 0 {
		model.CreatedAt = time.Now().UTC()
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if duplicate := mapUniqueViolation(err); duplicate != nil {
		return wrapStoreError(errorSubjectAccount, errorCodeDuplicate, duplicate)
	}
	if err != nil {
		return wrapStoreError(errorSubjectAccount, errorCodeInsert, err)
	}
	return nil
}

// GetAccount loads the account row; inside WithTx the row is locked for
// the rest of the unit of work.
func (store *Store) GetAccount(ctx context.Context, accountID loyalty.AccountID) (loyalty.Account, error) {
	var model Account
	err := store.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("account_id = ?", accountID.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return loyalty.Account{}, wrapStoreError(errorSubjectAccount, errorCodeGet, loyalty.ErrAccountNotFound)
		}
		return loyalty.Account{}, wrapStoreError(errorSubjectAccount, errorCodeGet, err)
	}
	account, err := mapAccount(model)
	if err != nil {
		return loyalty.Account{}, wrapStoreError(errorSubjectAccount, errorCodeInvalid, err)
	}
	return account, nil
}

func (store *Store) UpdateAccount(ctx context.Context, account loyalty.Account) error {
	result := store.db.WithContext(ctx).
		Model(&Account{}).
		Where("account_id = ?", account.AccountID.String()).
		Updates(map[string]interface{}{
			"username": account.Username.String(),
			"email":    account.Email.String(),
			"balance":  account.Balance.Decimal(),
			"points":   account.Points,
			"category": account.Category.String(),
		})
	if duplicate := mapUniqueViolation(result.Error); duplicate != nil {
		return wrapStoreError(errorSubjectAccount, errorCodeDuplicate, duplicate)
	}
	if result.Error != nil {
		return wrapStoreError(errorSubjectAccount, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectAccount, errorCodeUpdate, loyalty.ErrAccountNotFound)
	}
	return nil
}

// DeleteAccount removes the account and cascades to its purchases.
func (store *Store) DeleteAccount(ctx context.Context, accountID loyalty.AccountID) error {
	if err := store.db.WithContext(ctx).
		Where("account_id = ?", accountID.String()).
		Delete(&Purchase{}).Error; err != nil {
		return wrapStoreError(errorSubjectPurchase, errorCodeDelete, err)
	}
	result := store.db.WithContext(ctx).
		Where("account_id = ?", accountID.String()).
		Delete(&Account{})
	if result.Error != nil {
		return wrapStoreError(errorSubjectAccount, errorCodeDelete, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectAccount, errorCodeDelete, loyalty.ErrAccountNotFound)
	}
	return nil
}

func (store *Store) UsernameExists(ctx context.Context, username loyalty.Username) (bool, error) {
	var count int64
	err := store.db.WithContext(ctx).
		Model(&Account{}).
		Where("username = ?", username.String()).
		Count(&count).Error
	if err != nil {
		return false, wrapStoreError(errorSubjectAccount, errorCodeExists, err)
	}
	return count > 0, nil
}

func (store *Store) ListAccounts(ctx context.Context) ([]loyalty.Account, error) {
	var rows []Account
	if err := store.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectAccount, errorCodeList, err)
	}
	accounts := make([]loyalty.Account, 0, len(rows))
	for _, row := range rows {
		account, err := mapAccount(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectAccount, errorCodeInvalid, err)
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (store *Store) InsertPurchase(ctx context.Context, purchase loyalty.Purchase) error {
	model := Purchase{
		PurchaseID: purchase.TransactionID.String(),
		AccountID:  purchase.AccountID.String(),
		ItemName:   purchase.ItemName.String(),
		Price:      purchase.Price.Decimal(),
		Status:     purchase.Status.String(),
		CreatedAt:  time.Unix(purchase.CreatedUnixUTC, 0).UTC(),
	}
	if purchase.CreatedUnixUTC == 0 {
		model.CreatedAt = time.Now().UTC()
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return wrapStoreError(errorSubjectPurchase, errorCodeInsert, err)
	}
	return nil
}

// GetPurchase loads the purchase row; inside WithTx the row is locked for
// the rest of the unit of work.
func (store *Store) GetPurchase(ctx context.Context, transactionID loyalty.TransactionID) (loyalty.Purchase, error) {
	var model Purchase
	err := store.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("purchase_id = ?", transactionID.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return loyalty.Purchase{}, wrapStoreError(errorSubjectPurchase, errorCodeGet, loyalty.ErrTransactionNotFound)
		}
		return loyalty.Purchase{}, wrapStoreError(errorSubjectPurchase, errorCodeGet, err)
	}
	purchase, err := mapPurchase(model)
	if err != nil {
		return loyalty.Purchase{}, wrapStoreError(errorSubjectPurchase, errorCodeInvalid, err)
	}
	return purchase, nil
}

// UpdatePurchaseStatus flips the status only when the stored value still
// matches from, so the second of two concurrent refunds affects no rows.
func (store *Store) UpdatePurchaseStatus(ctx context.Context, transactionID loyalty.TransactionID, from, to loyalty.PurchaseStatus) error {
	result := store.db.WithContext(ctx).
		Model(&Purchase{}).
		Where("purchase_id = ? AND status = ?", transactionID.String(), from.String()).
		Update("status", to.String())
	if result.Error != nil {
		return wrapStoreError(errorSubjectPurchase, errorCodeUpdateStatus, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectPurchase, errorCodeUpdateStatus, loyalty.ErrAlreadyRefunded)
	}
	return nil
}

func (store *Store) ListPurchases(ctx context.Context) ([]loyalty.Purchase, error) {
	var rows []Purchase
	if err := store.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectPurchase, errorCodeList, err)
	}
	purchases := make([]loyalty.Purchase, 0, len(rows))
	for _, row := range rows {
		purchase, err := mapPurchase(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectPurchase, errorCodeInvalid, err)
		}
		purchases = append(purchases, purchase)
	}
	return purchases, nil
}

func (store *Store) PurchaseStats(ctx context.Context, accountID loyalty.AccountID) (loyalty.PurchaseStats, error) {
	var count int64
	err := store.db.WithContext(ctx).
		Model(&Purchase{}).
		Where("account_id = ?", accountID.String()).
		Count(&count).Error
	if err != nil {
		return loyalty.PurchaseStats{}, wrapStoreError(errorSubjectPurchase, errorCodeStats, err)
	}
	stats := loyalty.PurchaseStats{Count: count}
	if count == 0 {
		return stats, nil
	}
	var latest Purchase
	err = store.db.WithContext(ctx).
		Where("account_id = ?", accountID.String()).
		Order("created_at DESC").
		Take(&latest).Error
	if err != nil {
		return loyalty.PurchaseStats{}, wrapStoreError(errorSubjectPurchase, errorCodeStats, err)
	}
	stats.LastUnixUTC = latest.CreatedAt.Unix()
	return stats, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return loyalty.WrapError(errorOperationStore, subject, code, err)
}

func mapAccount(row Account) (loyalty.Account, error) {
	accountID, err := loyalty.NewAccountID(row.AccountID)
	if err != nil {
		return loyalty.Account{}, err
	}
	username, err := loyalty.NewUsername(row.Username)
	if err != nil {
		return loyalty.Account{}, err
	}
	email, err := loyalty.NewEmail(row.Email)
	if err != nil {
		return loyalty.Account{}, err
	}
	balance, err := loyalty.NewMoney(row.Balance)
	if err != nil {
		return loyalty.Account{}, err
	}
	category, err := loyalty.ParseCategory(row.Category)
	if err != nil {
		return loyalty.Account{}, err
	}
	return loyalty.Account{
		AccountID:      accountID,
		Username:       username,
		Email:          email,
		Balance:        balance,
		Points:         row.Points,
		Category:       category,
		CreatedUnixUTC: row.CreatedAt.Unix(),
	}, nil
}

func mapPurchase(row Purchase) (loyalty.Purchase, error) {
	transactionID, err := loyalty.NewTransactionID(row.PurchaseID)
	if err != nil {
		return loyalty.Purchase{}, err
	}
	accountID, err := loyalty.NewAccountID(row.AccountID)
	if err != nil {
		return loyalty.Purchase{}, err
	}
	itemName, err := loyalty.NewItemName(row.ItemName)
	if err != nil {
		return loyalty.Purchase{}, err
	}
	price, err := loyalty.NewPrice(row.Price)
	if err != nil {
		return loyalty.Purchase{}, err
	}
	status, err := loyalty.ParsePurchaseStatus(row.Status)
	if err != nil {
		return loyalty.Purchase{}, err
	}
	return loyalty.Purchase{
		TransactionID:  transactionID,
		AccountID:      accountID,
		ItemName:       itemName,
		Price:          price,
		Status:         status,
		CreatedUnixUTC: row.CreatedAt.Unix(),
	}, nil
}

func mapUniqueViolation(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolationCode {
			return nil
		}
		if strings.Contains(pgErr.ConstraintName, constraintAccountsEmail) {
			return loyalty.ErrDuplicateEmail
		}
		return loyalty.ErrDuplicateUsername
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code()&0xFF != sqliteConstraintCode {
			return nil
		}
		if strings.Contains(err.Error(), "email") {
			return loyalty.ErrDuplicateEmail
		}
		return loyalty.ErrDuplicateUsername
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return loyalty.ErrDuplicateUsername
	}
	return nil
}
