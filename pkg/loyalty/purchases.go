package loyalty

import "context"

// RecordPurchase settles a purchase as one atomic unit: debit the account
// by the price, insert a SETTLED purchase stamped now, and credit the
// accrued points. Fails with ErrInsufficientFunds before any mutation when
// the price exceeds the balance.
func (service *Service) RecordPurchase(ctx context.Context, accountID AccountID, itemName ItemName, price Price) (TransactionID, error) {
	var transactionID TransactionID
	points := CalcPoints(price)
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		account, err := transactionStore.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if account.Balance.LessThan(price.Money()) {
			return ErrInsufficientFunds
		}
		debited, err := account.Balance.Sub(price.Money())
		if err != nil {
			return err
		}
		account.Balance = debited
		account.Points += points
		if err := transactionStore.UpdateAccount(ctx, account); err != nil {
			return err
		}
		created, err := NewTransactionID(service.newID())
		if err != nil {
			return err
		}
		transactionID = created
		return transactionStore.InsertPurchase(ctx, Purchase{
			TransactionID:  created,
			AccountID:      accountID,
			ItemName:       itemName,
			Price:          price,
			Status:         PurchaseSettled,
			CreatedUnixUTC: service.nowFn(),
		})
	})
	service.logOperation(ctx, OperationLog{
		Operation:     operationRecordPurchase,
		AccountID:     accountID,
		TransactionID: transactionID,
		Amount:        price.Money(),
		PointsDelta:   points,
		Error:         operationError,
	})
	if operationError != nil {
		return TransactionID{}, operationError
	}
	return transactionID, nil
}

// Refund reverses a settled purchase as one atomic unit: flip the status
// to REFUNDED, credit the account by the recorded price, and debit the
// points accrued for that price. A second refund of the same transaction
// observes REFUNDED and fails with ErrAlreadyRefunded.
func (service *Service) Refund(ctx context.Context, transactionID TransactionID) error {
	var accountID AccountID
	var refunded Money
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		purchase, err := transactionStore.GetPurchase(ctx, transactionID)
		if err != nil {
			return err
		}
		if purchase.Status != PurchaseSettled {
			return ErrAlreadyRefunded
		}
		if err := transactionStore.UpdatePurchaseStatus(ctx, transactionID, PurchaseSettled, PurchaseRefunded); err != nil {
			return err
		}
		account, err := transactionStore.GetAccount(ctx, purchase.AccountID)
		if err != nil {
			return err
		}
		accountID = purchase.AccountID
		refunded = purchase.Price.Money()
		account.Balance = account.Balance.Add(refunded)
		account.Points -= CalcPoints(purchase.Price)
		return transactionStore.UpdateAccount(ctx, account)
	})
	service.logOperation(ctx, OperationLog{
		Operation:     operationRefund,
		AccountID:     accountID,
		TransactionID: transactionID,
		Amount:        refunded,
		Error:         operationError,
	})
	return operationError
}

// GetPurchase returns the stored purchase record.
func (service *Service) GetPurchase(ctx context.Context, transactionID TransactionID) (Purchase, error) {
	return service.store.GetPurchase(ctx, transactionID)
}

// ListPurchases returns all stored purchases.
func (service *Service) ListPurchases(ctx context.Context) ([]Purchase, error) {
	return service.store.ListPurchases(ctx)
}
