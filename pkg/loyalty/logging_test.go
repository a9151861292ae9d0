package loyalty

import (
	"context"
	"testing"
)

type recorderLogger struct {
	entries []OperationLog
}

func (logger *recorderLogger) LogOperation(_ context.Context, entry OperationLog) {
	logger.entries = append(logger.entries, entry)
}

func TestServiceLogsCreditOperation(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	logger := &recorderLogger{}
	service, err := NewService(store, func() int64 { return 42 }, WithOperationLogger(logger), WithIDGenerator(newSequenceIDs()))
	if err != nil {
		test.Fatalf("service init failed: %v", err)
	}
	accountID := store.seedAccount(test, "loggeduser1", "0")
	amount := mustMoney(test, "25")

	if err := service.Credit(context.Background(), accountID, amount); err != nil {
		test.Fatalf("credit failed: %v", err)
	}
	if len(logger.entries) != 1 {
		test.Fatalf("expected one log entry, got %d", len(logger.entries))
	}
	entry := logger.entries[0]
	if entry.Operation != operationCredit || entry.AccountID != accountID || !entry.Amount.Equal(amount) {
		test.Fatalf("unexpected log entry: %+v", entry)
	}
	if entry.Error != nil || entry.Status != operationStatusOK {
		test.Fatalf("expected successful log entry, got %+v", entry)
	}
}

func TestServiceLogsErrorStatus(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	logger := &recorderLogger{}
	service, err := NewService(store, func() int64 { return 1 }, WithOperationLogger(logger), WithIDGenerator(newSequenceIDs()))
	if err != nil {
		test.Fatalf("service init failed: %v", err)
	}

	err = service.Credit(context.Background(), mustAccountID(test, "missing"), mustMoney(test, "5"))
	if err == nil {
		test.Fatalf("expected error")
	}
	if len(logger.entries) != 1 {
		test.Fatalf("expected one log entry, got %d", len(logger.entries))
	}
	if logger.entries[0].Status != operationStatusError || logger.entries[0].Error == nil {
		test.Fatalf("expected error log entry, got %+v", logger.entries[0])
	}
}
