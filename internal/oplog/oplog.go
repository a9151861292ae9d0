// Package oplog adapts a zap logger to the loyalty.OperationLogger callback.
package oplog

import (
	"context"

	"github.com/MarkoPoloResearchLab/loyalty/pkg/loyalty"
	"go.uber.org/zap"
)

// Logger emits one structured record per ledger operation.
type Logger struct {
	base *zap.Logger
}

// New wraps a zap logger.
func New(base *zap.Logger) *Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return &Logger{base: base}
}

// LogOperation implements loyalty.OperationLogger.
func (logger *Logger) LogOperation(_ context.Context, entry loyalty.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
	}
	if entry.AccountID.String() != "" {
		fields = append(fields, zap.String("account_id", entry.AccountID.String()))
	}
	if entry.TransactionID.String() != "" {
		fields = append(fields, zap.String("transaction_id", entry.TransactionID.String()))
	}
	if !entry.Amount.Equal(loyalty.ZeroMoney()) {
		fields = append(fields, zap.String("amount", entry.Amount.String()))
	}
	if entry.PointsDelta != 0 {
		fields = append(fields, zap.Int64("points_delta", entry.PointsDelta))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
		logger.base.Warn("ledger operation failed", fields...)
		return
	}
	logger.base.Info("ledger operation", fields...)
}
