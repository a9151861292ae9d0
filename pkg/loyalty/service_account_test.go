package loyalty

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestCreateAccountInitializesDefaults(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	username := mustUsername(test, "alice0001")
	email := mustEmail(test, "alice@example.com")

	accountID, err := service.CreateAccount(context.Background(), username, email)
	if err != nil {
		test.Fatalf("create account: %v", err)
	}
	account := store.mustAccount(test, accountID)
	if !account.Balance.Equal(ZeroMoney()) {
		test.Fatalf("expected zero balance, got %s", account.Balance.String())
	}
	if account.Points != 0 {
		test.Fatalf("expected zero points, got %d", account.Points)
	}
	if account.Category != CategoryBasic {
		test.Fatalf("expected BASIC category, got %s", account.Category)
	}
}

func TestCreateAccountDuplicateUsername(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	username := mustUsername(test, "duplicate1")

	if _, err := service.CreateAccount(context.Background(), username, mustEmail(test, "first@example.com")); err != nil {
		test.Fatalf("create account: %v", err)
	}
	_, err := service.CreateAccount(context.Background(), username, mustEmail(test, "second@example.com"))
	if !errors.Is(err, ErrDuplicateUsername) {
		test.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
	if len(store.accounts) != 1 {
		test.Fatalf("expected a single account, got %d", len(store.accounts))
	}
}

func TestCreditAddsToBalance(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	accountID := store.seedAccount(test, "credituser1", "100")

	if err := service.Credit(context.Background(), accountID, mustMoney(test, "49.99")); err != nil {
		test.Fatalf("credit: %v", err)
	}
	account := store.mustAccount(test, accountID)
	if !account.Balance.Equal(mustMoney(test, "149.99")) {
		test.Fatalf("expected balance 149.99, got %s", account.Balance.String())
	}
}

func TestCreditUnknownAccount(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	accountID := mustAccountID(test, "missing")

	err := service.Credit(context.Background(), accountID, mustMoney(test, "10"))
	if !errors.Is(err, ErrAccountNotFound) {
		test.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestDebitSubtractsBalance(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	accountID := store.seedAccount(test, "debituser1", "100")

	if err := service.Debit(context.Background(), accountID, mustMoney(test, "60")); err != nil {
		test.Fatalf("debit: %v", err)
	}
	account := store.mustAccount(test, accountID)
	if !account.Balance.Equal(mustMoney(test, "40")) {
		test.Fatalf("expected balance 40, got %s", account.Balance.String())
	}
}

func TestDebitFullBalanceSucceeds(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	accountID := store.seedAccount(test, "debituser2", "75.50")

	if err := service.Debit(context.Background(), accountID, mustMoney(test, "75.50")); err != nil {
		test.Fatalf("debit: %v", err)
	}
	account := store.mustAccount(test, accountID)
	if !account.Balance.Equal(ZeroMoney()) {
		test.Fatalf("expected zero balance, got %s", account.Balance.String())
	}
}

func TestDebitInsufficientFunds(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	accountID := store.seedAccount(test, "debituser3", "50")

	err := service.Debit(context.Background(), accountID, mustMoney(test, "50.01"))
	if !errors.Is(err, ErrInsufficientFunds) {
		test.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	account := store.mustAccount(test, accountID)
	if !account.Balance.Equal(mustMoney(test, "50")) {
		test.Fatalf("expected balance unchanged at 50, got %s", account.Balance.String())
	}
}

func TestAdjustPointsAllowsNegativeTotal(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	accountID := store.seedAccount(test, "pointsuser1", "0")

	if err := service.AdjustPoints(context.Background(), accountID, 3); err != nil {
		test.Fatalf("adjust points: %v", err)
	}
	if err := service.AdjustPoints(context.Background(), accountID, -5); err != nil {
		test.Fatalf("adjust points: %v", err)
	}
	account := store.mustAccount(test, accountID)
	if account.Points != -2 {
		test.Fatalf("expected points -2, got %d", account.Points)
	}
}

func TestRenameToOwnUsernameSucceeds(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	accountID := store.seedAccount(test, "selfrename", "0")
	username := mustUsername(test, "selfrename")

	err := service.Rename(context.Background(), accountID, AccountUpdate{Username: &username})
	if err != nil {
		test.Fatalf("rename to own username: %v", err)
	}
}

func TestRenameToTakenUsernameFails(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	accountID := store.seedAccount(test, "renameuser1", "0")
	store.seedAccount(test, "renameuser2", "0")
	taken := mustUsername(test, "renameuser2")

	err := service.Rename(context.Background(), accountID, AccountUpdate{Username: &taken})
	if !errors.Is(err, ErrDuplicateUsername) {
		test.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
	account := store.mustAccount(test, accountID)
	if account.Username.String() != "renameuser1" {
		test.Fatalf("expected username unchanged, got %s", account.Username.String())
	}
}

func TestRenameUnsetFieldsStayUnchanged(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	accountID := store.seedAccount(test, "renameuser3", "0")
	email := mustEmail(test, "fresh@example.com")

	if err := service.Rename(context.Background(), accountID, AccountUpdate{Email: &email}); err != nil {
		test.Fatalf("rename: %v", err)
	}
	account := store.mustAccount(test, accountID)
	if account.Username.String() != "renameuser3" {
		test.Fatalf("expected username unchanged, got %s", account.Username.String())
	}
	if account.Email.String() != "fresh@example.com" {
		test.Fatalf("expected updated email, got %s", account.Email.String())
	}
}

func TestRemoveAccountCascadesToPurchases(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	accountID := store.seedAccount(test, "removeuser1", "100")
	if _, err := service.RecordPurchase(context.Background(), accountID, mustItemName(test, "widget"), mustPrice(test, "20")); err != nil {
		test.Fatalf("record purchase: %v", err)
	}

	if err := service.RemoveAccount(context.Background(), accountID); err != nil {
		test.Fatalf("remove account: %v", err)
	}
	if len(store.accounts) != 0 {
		test.Fatalf("expected no accounts, got %d", len(store.accounts))
	}
	if len(store.purchases) != 0 {
		test.Fatalf("expected purchases removed, got %d", len(store.purchases))
	}
}

func TestRemoveUnknownAccount(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)

	err := service.RemoveAccount(context.Background(), mustAccountID(test, "missing"))
	if !errors.Is(err, ErrAccountNotFound) {
		test.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestSummarizeAggregatesPurchases(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	clock := int64(100)
	service, err := NewService(store, func() int64 { clock++; return clock }, WithIDGenerator(newSequenceIDs()))
	if err != nil {
		test.Fatalf("new service: %v", err)
	}
	accountID := store.seedAccount(test, "summaryuser", "100")

	first, err := service.RecordPurchase(context.Background(), accountID, mustItemName(test, "widget"), mustPrice(test, "20"))
	if err != nil {
		test.Fatalf("record purchase: %v", err)
	}
	if _, err := service.RecordPurchase(context.Background(), accountID, mustItemName(test, "gadget"), mustPrice(test, "30")); err != nil {
		test.Fatalf("record purchase: %v", err)
	}
	if err := service.Refund(context.Background(), first); err != nil {
		test.Fatalf("refund: %v", err)
	}

	summary, err := service.Summarize(context.Background(), accountID)
	if err != nil {
		test.Fatalf("summarize: %v", err)
	}
	if summary.PurchaseCount != 2 {
		test.Fatalf("expected refunded purchases counted, got %d", summary.PurchaseCount)
	}
	second := store.mustPurchase(test, mustTransactionID(test, "id-2"))
	if summary.LastPurchaseUnixUTC != second.CreatedUnixUTC {
		test.Fatalf("expected last purchase at %d, got %d", second.CreatedUnixUTC, summary.LastPurchaseUnixUTC)
	}
	if summary.Category != CategoryBasic {
		test.Fatalf("expected BASIC category, got %s", summary.Category)
	}
}

func TestSummarizeWithoutPurchases(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	accountID := store.seedAccount(test, "emptysummary", "0")

	summary, err := service.Summarize(context.Background(), accountID)
	if err != nil {
		test.Fatalf("summarize: %v", err)
	}
	if summary.PurchaseCount != 0 || summary.LastPurchaseUnixUTC != 0 {
		test.Fatalf("expected empty history, got %+v", summary)
	}
}

func TestNewServiceRequiresDependencies(test *testing.T) {
	test.Parallel()
	_, err := NewService(nil, func() int64 { return 0 })
	if !errors.Is(err, ErrInvalidServiceConfig) {
		test.Fatalf("expected invalid service config error, got %v", err)
	}
	store := newStubStore(test)
	_, err = NewService(store, nil)
	if !errors.Is(err, ErrInvalidServiceConfig) {
		test.Fatalf("expected invalid service config error, got %v", err)
	}
}

type stubStore struct {
	mu              sync.Mutex
	accounts        map[AccountID]Account
	purchases       map[TransactionID]Purchase
	seeded          int64
	getAccountError error
	insertError     error
	updateError     error
}

func newStubStore(test *testing.T) *stubStore {
	test.Helper()
	return &stubStore{
		accounts:  make(map[AccountID]Account),
		purchases: make(map[TransactionID]Purchase),
	}
}

// WithTx serializes units of work the way a row-locking store would.
func (store *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	return fn(ctx, store)
}

func (store *stubStore) InsertAccount(ctx context.Context, account Account) error {
	if store.insertError != nil {
		return store.insertError
	}
	for _, existing := range store.accounts {
		if existing.Username == account.Username {
			return ErrDuplicateUsername
		}
	}
	store.accounts[account.AccountID] = account
	return nil
}

func (store *stubStore) GetAccount(ctx context.Context, accountID AccountID) (Account, error) {
	if store.getAccountError != nil {
		return Account{}, store.getAccountError
	}
	account, ok := store.accounts[accountID]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}

func (store *stubStore) UpdateAccount(ctx context.Context, account Account) error {
	if store.updateError != nil {
		return store.updateError
	}
	if _, ok := store.accounts[account.AccountID]; !ok {
		return ErrAccountNotFound
	}
	store.accounts[account.AccountID] = account
	return nil
}

func (store *stubStore) DeleteAccount(ctx context.Context, accountID AccountID) error {
	if _, ok := store.accounts[accountID]; !ok {
		return ErrAccountNotFound
	}
	delete(store.accounts, accountID)
	for transactionID, purchase := range store.purchases {
		if purchase.AccountID == accountID {
			delete(store.purchases, transactionID)
		}
	}
	return nil
}

func (store *stubStore) UsernameExists(ctx context.Context, username Username) (bool, error) {
	for _, account := range store.accounts {
		if account.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (store *stubStore) ListAccounts(ctx context.Context) ([]Account, error) {
	accounts := make([]Account, 0, len(store.accounts))
	for _, account := range store.accounts {
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (store *stubStore) InsertPurchase(ctx context.Context, purchase Purchase) error {
	store.purchases[purchase.TransactionID] = purchase
	return nil
}

func (store *stubStore) GetPurchase(ctx context.Context, transactionID TransactionID) (Purchase, error) {
	purchase, ok := store.purchases[transactionID]
	if !ok {
		return Purchase{}, ErrTransactionNotFound
	}
	return purchase, nil
}

func (store *stubStore) UpdatePurchaseStatus(ctx context.Context, transactionID TransactionID, from, to PurchaseStatus) error {
	purchase, ok := store.purchases[transactionID]
	if !ok {
		return ErrTransactionNotFound
	}
	if purchase.Status != from {
		return ErrAlreadyRefunded
	}
	purchase.Status = to
	store.purchases[transactionID] = purchase
	return nil
}

func (store *stubStore) ListPurchases(ctx context.Context) ([]Purchase, error) {
	purchases := make([]Purchase, 0, len(store.purchases))
	for _, purchase := range store.purchases {
		purchases = append(purchases, purchase)
	}
	return purchases, nil
}

func (store *stubStore) PurchaseStats(ctx context.Context, accountID AccountID) (PurchaseStats, error) {
	var stats PurchaseStats
	for _, purchase := range store.purchases {
		if purchase.AccountID != accountID {
			continue
		}
		stats.Count++
		if purchase.CreatedUnixUTC > stats.LastUnixUTC {
			stats.LastUnixUTC = purchase.CreatedUnixUTC
		}
	}
	return stats, nil
}

func (store *stubStore) seedAccount(test *testing.T, username string, balance string) AccountID {
	test.Helper()
	store.seeded++
	accountID := mustAccountID(test, fmt.Sprintf("seed-%d", store.seeded))
	store.accounts[accountID] = Account{
		AccountID:      accountID,
		Username:       mustUsername(test, username),
		Email:          mustEmail(test, username+"@example.com"),
		Balance:        mustMoney(test, balance),
		Points:         0,
		Category:       CategoryBasic,
		CreatedUnixUTC: 50,
	}
	return accountID
}

func (store *stubStore) mustAccount(test *testing.T, accountID AccountID) Account {
	test.Helper()
	account, ok := store.accounts[accountID]
	if !ok {
		test.Fatalf("account %s not found", accountID.String())
	}
	return account
}

func (store *stubStore) mustPurchase(test *testing.T, transactionID TransactionID) Purchase {
	test.Helper()
	purchase, ok := store.purchases[transactionID]
	if !ok {
		test.Fatalf("purchase %s not found", transactionID.String())
	}
	return purchase
}

func newSequenceIDs() func() string {
	var sequence int64
	return func() string {
		return fmt.Sprintf("id-%d", atomic.AddInt64(&sequence, 1))
	}
}

func mustNewService(test *testing.T, store Store) *Service {
	test.Helper()
	service, err := NewService(store, func() int64 { return 100 }, WithIDGenerator(newSequenceIDs()))
	if err != nil {
		test.Fatalf("new service: %v", err)
	}
	return service
}

func mustUsername(test *testing.T, raw string) Username {
	test.Helper()
	value, err := NewUsername(raw)
	if err != nil {
		test.Fatalf("username: %v", err)
	}
	return value
}

func mustEmail(test *testing.T, raw string) Email {
	test.Helper()
	value, err := NewEmail(raw)
	if err != nil {
		test.Fatalf("email: %v", err)
	}
	return value
}

func mustAccountID(test *testing.T, raw string) AccountID {
	test.Helper()
	value, err := NewAccountID(raw)
	if err != nil {
		test.Fatalf("account id: %v", err)
	}
	return value
}

func mustTransactionID(test *testing.T, raw string) TransactionID {
	test.Helper()
	value, err := NewTransactionID(raw)
	if err != nil {
		test.Fatalf("transaction id: %v", err)
	}
	return value
}

func mustItemName(test *testing.T, raw string) ItemName {
	test.Helper()
	value, err := NewItemName(raw)
	if err != nil {
		test.Fatalf("item name: %v", err)
	}
	return value
}

func mustMoney(test *testing.T, raw string) Money {
	test.Helper()
	value, err := NewMoneyFromString(raw)
	if err != nil {
		test.Fatalf("money: %v", err)
	}
	return value
}

func mustPrice(test *testing.T, raw string) Price {
	test.Helper()
	value, err := NewPriceFromString(raw)
	if err != nil {
		test.Fatalf("price: %v", err)
	}
	return value
}
