package loyalty

import "context"

// CreateAccount registers a new account with a zero balance, zero points,
// and the BASIC tier. The username must not already be taken.
func (service *Service) CreateAccount(ctx context.Context, username Username, email Email) (AccountID, error) {
	var accountID AccountID
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		taken, err := transactionStore.UsernameExists(ctx, username)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateUsername
		}
		created, err := NewAccountID(service.newID())
		if err != nil {
			return err
		}
		accountID = created
		return transactionStore.InsertAccount(ctx, Account{
			AccountID:      created,
			Username:       username,
			Email:          email,
			Balance:        ZeroMoney(),
			Points:         0,
			Category:       CategoryBasic,
			CreatedUnixUTC: service.nowFn(),
		})
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationCreateAccount,
		AccountID: accountID,
		Error:     operationError,
	})
	if operationError != nil {
		return AccountID{}, operationError
	}
	return accountID, nil
}

// Credit adds a non-negative amount to the account balance.
func (service *Service) Credit(ctx context.Context, accountID AccountID, amount Money) error {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		account, err := transactionStore.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		account.Balance = account.Balance.Add(amount)
		return transactionStore.UpdateAccount(ctx, account)
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationCredit,
		AccountID: accountID,
		Amount:    amount,
		Error:     operationError,
	})
	return operationError
}

// Debit subtracts an amount from the account balance. The check and the
// mutation happen on the locked account row, so a concurrent debit can
// never race past the funds check.
func (service *Service) Debit(ctx context.Context, accountID AccountID, amount Money) error {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		account, err := transactionStore.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if account.Balance.LessThan(amount) {
			return ErrInsufficientFunds
		}
		debited, err := account.Balance.Sub(amount)
		if err != nil {
			return err
		}
		account.Balance = debited
		return transactionStore.UpdateAccount(ctx, account)
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationDebit,
		AccountID: accountID,
		Amount:    amount,
		Error:     operationError,
	})
	return operationError
}

// AdjustPoints adds delta (possibly negative) to the points total. The
// adjustment is symmetric and not floored at zero; callers own the pairing
// of accruals and reversals.
func (service *Service) AdjustPoints(ctx context.Context, accountID AccountID, delta int64) error {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		account, err := transactionStore.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		account.Points += delta
		return transactionStore.UpdateAccount(ctx, account)
	})
	service.logOperation(ctx, OperationLog{
		Operation:   operationAdjustPoints,
		AccountID:   accountID,
		PointsDelta: delta,
		Error:       operationError,
	})
	return operationError
}

// Rename updates username and/or email; nil fields stay as they are.
// Uniqueness is re-checked only when the username actually changes, so
// renaming an account to its current username succeeds.
func (service *Service) Rename(ctx context.Context, accountID AccountID, update AccountUpdate) error {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		account, err := transactionStore.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if update.Username != nil && *update.Username != account.Username {
			taken, err := transactionStore.UsernameExists(ctx, *update.Username)
			if err != nil {
				return err
			}
			if taken {
				return ErrDuplicateUsername
			}
			account.Username = *update.Username
		}
		if update.Email != nil {
			account.Email = *update.Email
		}
		return transactionStore.UpdateAccount(ctx, account)
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationRename,
		AccountID: accountID,
		Error:     operationError,
	})
	return operationError
}

// RemoveAccount deletes the account and all of its purchases.
func (service *Service) RemoveAccount(ctx context.Context, accountID AccountID) error {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		if _, err := transactionStore.GetAccount(ctx, accountID); err != nil {
			return err
		}
		return transactionStore.DeleteAccount(ctx, accountID)
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationRemoveAccount,
		AccountID: accountID,
		Error:     operationError,
	})
	return operationError
}

// GetAccount returns the stored account record.
func (service *Service) GetAccount(ctx context.Context, accountID AccountID) (Account, error) {
	return service.store.GetAccount(ctx, accountID)
}

// ListAccounts returns all stored accounts.
func (service *Service) ListAccounts(ctx context.Context) ([]Account, error) {
	return service.store.ListAccounts(ctx)
}

// Summarize returns a read-only aggregate over the account and its
// purchase history. The count covers purchases of every status.
func (service *Service) Summarize(ctx context.Context, accountID AccountID) (AccountSummary, error) {
	account, err := service.store.GetAccount(ctx, accountID)
	if err != nil {
		return AccountSummary{}, err
	}
	stats, err := service.store.PurchaseStats(ctx, accountID)
	if err != nil {
		return AccountSummary{}, err
	}
	return AccountSummary{
		AccountID:           account.AccountID,
		Username:            account.Username,
		Email:               account.Email,
		Balance:             account.Balance,
		Points:              account.Points,
		Category:            account.Category,
		PurchaseCount:       stats.Count,
		LastPurchaseUnixUTC: stats.LastUnixUTC,
	}, nil
}
