package loyalty

import (
	"context"
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// AccountID identifies a loyalty account.
type AccountID struct {
	value string
}

// TransactionID identifies a purchase transaction.
type TransactionID struct {
	value string
}

// Username is the unique account name, 6-18 alphanumeric characters.
type Username struct {
	value string
}

// Email is the unique account contact address.
type Email struct {
	value string
}

// ItemName names the purchased item.
type ItemName struct {
	value string
}

// Money is an exact non-negative decimal amount.
type Money struct {
	value decimal.Decimal
}

// Price is an exact strictly positive decimal amount.
type Price struct {
	value decimal.Decimal
}

// Category defines the account tier.
type Category string

const (
	CategoryBasic Category = "BASIC"
)

// PurchaseStatus defines the purchase lifecycle.
type PurchaseStatus string

const (
	PurchaseSettled  PurchaseStatus = "SETTLED"
	PurchaseRefunded PurchaseStatus = "REFUNDED"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9]{6,18}$`)

// NewAccountID validates and normalizes an account id.
func NewAccountID(raw string) (AccountID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return AccountID{}, fmt.Errorf("%w: empty value", ErrInvalidAccountID)
	}
	return AccountID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id AccountID) String() string {
	return id.value
}

// NewTransactionID validates and normalizes a transaction id.
func NewTransactionID(raw string) (TransactionID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return TransactionID{}, fmt.Errorf("%w: empty value", ErrInvalidTransactionID)
	}
	return TransactionID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id TransactionID) String() string {
	return id.value
}

// NewUsername validates an account name against the 6-18 alphanumeric rule.
func NewUsername(raw string) (Username, error) {
	trimmed := strings.TrimSpace(raw)
	if !usernamePattern.MatchString(trimmed) {
		return Username{}, fmt.Errorf("%w: must be 6-18 alphanumeric characters", ErrInvalidUsername)
	}
	return Username{value: trimmed}, nil
}

// String returns the normalized name.
func (username Username) String() string {
	return username.value
}

// NewEmail validates an address of the plain local@domain form.
func NewEmail(raw string) (Email, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Email{}, fmt.Errorf("%w: empty value", ErrInvalidEmail)
	}
	parsed, err := mail.ParseAddress(trimmed)
	if err != nil || parsed.Address != trimmed {
		return Email{}, fmt.Errorf("%w: must be a bare address", ErrInvalidEmail)
	}
	return Email{value: trimmed}, nil
}

// String returns the normalized address.
func (email Email) String() string {
	return email.value
}

// NewItemName validates a non-blank item name.
func NewItemName(raw string) (ItemName, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ItemName{}, fmt.Errorf("%w: empty value", ErrInvalidItemName)
	}
	return ItemName{value: trimmed}, nil
}

// String returns the normalized name.
func (name ItemName) String() string {
	return name.value
}

// NewMoney validates an amount and ensures it is not negative.
func NewMoney(raw decimal.Decimal) (Money, error) {
	if raw.IsNegative() {
		return Money{}, fmt.Errorf("%w: must not be negative", ErrInvalidAmount)
	}
	return Money{value: raw}, nil
}

// NewMoneyFromString parses a decimal string into a Money value.
func NewMoneyFromString(raw string) (Money, error) {
	parsed, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return Money{}, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return NewMoney(parsed)
}

// ZeroMoney returns the zero amount.
func ZeroMoney() Money {
	return Money{value: decimal.Zero}
}

// Decimal returns the underlying exact value.
func (money Money) Decimal() decimal.Decimal {
	return money.value
}

// Add returns the sum of two amounts.
func (money Money) Add(other Money) Money {
	return Money{value: money.value.Add(other.value)}
}

// Sub returns the difference, failing when the result would be negative.
func (money Money) Sub(other Money) (Money, error) {
	return NewMoney(money.value.Sub(other.value))
}

// LessThan reports whether money is strictly below other.
func (money Money) LessThan(other Money) bool {
	return money.value.LessThan(other.value)
}

// Equal reports numeric equality regardless of exponent.
func (money Money) Equal(other Money) bool {
	return money.value.Equal(other.value)
}

// String renders the amount as a decimal string.
func (money Money) String() string {
	return money.value.String()
}

// NewPrice validates a price and ensures it is strictly positive.
func NewPrice(raw decimal.Decimal) (Price, error) {
	if !raw.IsPositive() {
		return Price{}, fmt.Errorf("%w: must be greater than zero", ErrInvalidPrice)
	}
	return Price{value: raw}, nil
}

// NewPriceFromString parses a decimal string into a Price value.
func NewPriceFromString(raw string) (Price, error) {
	parsed, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return Price{}, fmt.Errorf("%w: %v", ErrInvalidPrice, err)
	}
	return NewPrice(parsed)
}

// Decimal returns the underlying exact value.
func (price Price) Decimal() decimal.Decimal {
	return price.value
}

// Money converts the price into a ledger amount.
func (price Price) Money() Money {
	return Money{value: price.value}
}

// String renders the price as a decimal string.
func (price Price) String() string {
	return price.value.String()
}

// ParseCategory validates a stored category value.
func ParseCategory(raw string) (Category, error) {
	switch Category(raw) {
	case CategoryBasic:
		return Category(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, raw)
}

// String returns the tier name.
func (category Category) String() string {
	return string(category)
}

// ParsePurchaseStatus validates a stored status value.
func ParsePurchaseStatus(raw string) (PurchaseStatus, error) {
	switch PurchaseStatus(raw) {
	case PurchaseSettled, PurchaseRefunded:
		return PurchaseStatus(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPurchaseStatus, raw)
}

// String returns the status name.
func (status PurchaseStatus) String() string {
	return string(status)
}

// Account is the stored loyalty account record.
type Account struct {
	AccountID      AccountID
	Username       Username
	Email          Email
	Balance        Money
	Points         int64
	Category       Category
	CreatedUnixUTC int64
}

// Purchase is the stored purchase transaction record.
// Price and CreatedUnixUTC are immutable once recorded.
type Purchase struct {
	TransactionID  TransactionID
	AccountID      AccountID
	ItemName       ItemName
	Price          Price
	Status         PurchaseStatus
	CreatedUnixUTC int64
}

// AccountUpdate carries optional profile changes; nil fields stay unchanged.
type AccountUpdate struct {
	Username *Username
	Email    *Email
}

// AccountSummary aggregates an account with its purchase history.
type AccountSummary struct {
	AccountID           AccountID
	Username            Username
	Email               Email
	Balance             Money
	Points              int64
	Category            Category
	PurchaseCount       int64
	LastPurchaseUnixUTC int64 // zero when the account has no purchases
}

// PurchaseStats is the per-account aggregate over all purchase rows.
type PurchaseStats struct {
	Count       int64
	LastUnixUTC int64
}

// Store is the persistence contract used by Service. Implementations must
// run every callback passed to WithTx inside one atomic unit of work and
// serialize conflicting writes on the same account or purchase row.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error
	InsertAccount(ctx context.Context, account Account) error
	GetAccount(ctx context.Context, accountID AccountID) (Account, error)
	UpdateAccount(ctx context.Context, account Account) error
	DeleteAccount(ctx context.Context, accountID AccountID) error
	UsernameExists(ctx context.Context, username Username) (bool, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	InsertPurchase(ctx context.Context, purchase Purchase) error
	GetPurchase(ctx context.Context, transactionID TransactionID) (Purchase, error)
	UpdatePurchaseStatus(ctx context.Context, transactionID TransactionID, from, to PurchaseStatus) error
	ListPurchases(ctx context.Context) ([]Purchase, error)
	PurchaseStats(ctx context.Context, accountID AccountID) (PurchaseStats, error)
}
