package cardledger

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type demoMerchant struct {
	name     string
	category CardCategory
}

// demoMerchants is the fixed merchant catalog for synthetic transactions.
var demoMerchants = []demoMerchant{
	{name: "Amazon", category: CategoryShopping},
	{name: "Netflix", category: CategorySubscriptions},
	{name: "Steam", category: CategoryGaming},
	{name: "Uber", category: CategoryTravel},
	{name: "Electric Co.", category: CategoryUtilities},
	{name: "Spotify", category: CategorySubscriptions},
	{name: "Best Buy", category: CategoryShopping},
	{name: "PlayStation Store", category: CategoryGaming},
	{name: "Delta Airlines", category: CategoryTravel},
	{name: "Water Utility", category: CategoryUtilities},
	{name: "Target", category: CategoryShopping},
	{name: "Epic Games", category: CategoryGaming},
}

// demoTransactionTypes weights purchases three to one against the other kinds.
var demoTransactionTypes = []TransactionType{
	TransactionPurchase,
	TransactionPurchase,
	TransactionPurchase,
	TransactionRefund,
	TransactionAuthorization,
	TransactionDeclined,
}

// GenerateDemoTransactions synthesizes a batch of plausible transactions
// against existing cards and merges it into the log, kept sorted most recent
// first and truncated to the most recent entries. A no-op without cards.
func (service *Service) GenerateDemoTransactions(ctx context.Context) ([]Transaction, error) {
	service.mu.Lock()
	defer service.mu.Unlock()

	var batch []Transaction
	operationError := func() error {
		if len(service.cards) == 0 {
			return nil
		}
		nowUnixUTC := service.nowFn()
		batch = make([]Transaction, 0, demoTransactionCount)
		for i := 0; i < demoTransactionCount; i++ {
			card := service.cards[service.rng.Intn(len(service.cards))]
			merchant := demoMerchants[service.rng.Intn(len(demoMerchants))]
			kind := demoTransactionTypes[service.rng.Intn(len(demoTransactionTypes))]
			status := TransactionCompleted
			if kind == TransactionDeclined {
				status = TransactionFailed
			} else if service.rng.Float64() >= demoCompletedShare {
				status = TransactionPending
			}
			amount := decimal.NewFromFloat(service.rng.Float64()*demoAmountSpan + demoAmountFloor).Round(2)
			batch = append(batch, Transaction{
				ID:               uuid.NewString(),
				CardID:           card.ID,
				CardName:         card.Name,
				Type:             kind,
				Amount:           amount,
				Merchant:         merchant.name,
				Category:         merchant.category,
				TimestampUnixUTC: nowUnixUTC - service.rng.Int63n(demoHistorySeconds),
				Status:           status,
			})
		}
		merged := make([]Transaction, 0, len(batch)+len(service.transactions))
		merged = append(merged, batch...)
		merged = append(merged, service.transactions...)
		sort.SliceStable(merged, func(left, right int) bool {
			return merged[left].TimestampUnixUTC > merged[right].TimestampUnixUTC
		})
		if len(merged) > transactionLogLimit {
			merged = merged[:transactionLogLimit]
		}
		if err := service.persist(ctx, service.cards, merged, service.activityLog); err != nil {
			return err
		}
		service.transactions = merged
		return nil
	}()
	service.logOperation(ctx, OperationLog{
		Operation: operationDemoTransactions,
		Error:     operationError,
	})
	return batch, operationError
}
