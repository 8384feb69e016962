package dashboard

import (
	"context"

	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/authocard/pkg/cardledger"
)

// ZapOperationLogger forwards ledger operation outcomes to a zap logger.
type ZapOperationLogger struct {
	Logger *zap.Logger
}

func (zapLogger ZapOperationLogger) LogOperation(_ context.Context, entry cardledger.OperationLog) {
	if zapLogger.Logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
	}
	if entry.CardID != "" {
		fields = append(fields, zap.String("card_id", entry.CardID))
	}
	if entry.CardName != "" {
		fields = append(fields, zap.String("card_name", entry.CardName))
	}
	if !entry.Amount.IsZero() {
		fields = append(fields, zap.String("amount", entry.Amount.String()))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
		zapLogger.Logger.Warn("card operation failed", fields...)
		return
	}
	zapLogger.Logger.Info("card operation", fields...)
}
