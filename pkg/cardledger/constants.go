package cardledger

// StorageName keys the persisted dashboard snapshot.
const StorageName = "authocard-storage"

const (
	operationCreateCard        = "create_card"
	operationDeleteCard        = "delete_card"
	operationSetFreeze         = "set_freeze"
	operationUpdateLimits      = "update_limits"
	operationRecordDeposit     = "record_deposit"
	operationFraudCheck        = "fraud_check"
	operationDemoTransactions  = "demo_transactions"
	operationClearExpiredHolds = "clear_expired_holds"

	operationStatusOK    = "ok"
	operationStatusError = "error"
)

const (
	// processingHoldSeconds is the mandatory security hold after every deposit.
	processingHoldSeconds int64 = 24 * 60 * 60

	demoTransactionCount      = 10
	transactionLogLimit       = 50
	demoHistorySeconds  int64 = 7 * 24 * 60 * 60
	demoAmountFloor           = 5.0
	demoAmountSpan            = 500.0
	demoCompletedShare        = 0.9

	riskLowThreshold    = 0.7
	riskMediumThreshold = 0.9

	defaultExpiryYears = 3
)
