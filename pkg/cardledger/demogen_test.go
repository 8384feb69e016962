package cardledger

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func TestGenerateDemoTransactionsBatch(test *testing.T) {
	test.Parallel()
	clock := &fakeClock{now: fixedNow}
	service := mustNewService(test, &stubStore{}, clock.Now)
	seedActiveCards(test, service, 3)
	cardIDs := make(map[string]string)
	for _, card := range service.Cards() {
		cardIDs[card.ID] = card.Name
	}

	batch, err := service.GenerateDemoTransactions(context.Background())
	if err != nil {
		test.Fatalf("generate: %v", err)
	}
	if len(batch) != demoTransactionCount {
		test.Fatalf("expected %d transactions, got %d", demoTransactionCount, len(batch))
	}

	floor := decimal.NewFromFloat(demoAmountFloor)
	ceiling := decimal.NewFromFloat(demoAmountFloor + demoAmountSpan)
	allowedTypes := map[TransactionType]bool{
		TransactionPurchase:      true,
		TransactionRefund:        true,
		TransactionAuthorization: true,
		TransactionDeclined:      true,
	}
	for _, transaction := range batch {
		if _, known := cardIDs[transaction.CardID]; !known {
			test.Fatalf("transaction references unknown card %q", transaction.CardID)
		}
		if !allowedTypes[transaction.Type] {
			test.Fatalf("unexpected transaction type %q", transaction.Type)
		}
		if transaction.Amount.LessThan(floor) || transaction.Amount.GreaterThanOrEqual(ceiling) {
			test.Fatalf("amount %s outside [%s, %s)", transaction.Amount, floor, ceiling)
		}
		if transaction.Amount.Exponent() < -2 {
			test.Fatalf("amount %s not rounded to 2 decimals", transaction.Amount)
		}
		if transaction.TimestampUnixUTC > fixedNow || transaction.TimestampUnixUTC < fixedNow-demoHistorySeconds {
			test.Fatalf("timestamp %d outside the past 7 days", transaction.TimestampUnixUTC)
		}
		if transaction.Type == TransactionDeclined && transaction.Status != TransactionFailed {
			test.Fatalf("declined transaction must fail, got %s", transaction.Status)
		}
		if transaction.Type != TransactionDeclined && transaction.Status == TransactionFailed {
			test.Fatalf("only declined transactions fail, got %s for %s", transaction.Status, transaction.Type)
		}
		if transaction.Merchant == "" || transaction.Category == "" {
			test.Fatalf("incomplete merchant data: %+v", transaction)
		}
	}
}

func TestGenerateDemoTransactionsLogBounded(test *testing.T) {
	test.Parallel()
	service := mustNewService(test, &stubStore{}, (&fakeClock{now: fixedNow}).Now)
	seedActiveCards(test, service, 2)

	for run := 0; run < 7; run++ {
		if _, err := service.GenerateDemoTransactions(context.Background()); err != nil {
			test.Fatalf("run %d: %v", run, err)
		}
	}
	transactions := service.Transactions()
	if len(transactions) != transactionLogLimit {
		test.Fatalf("expected log capped at %d, got %d", transactionLogLimit, len(transactions))
	}
	for index := 1; index < len(transactions); index++ {
		if transactions[index-1].TimestampUnixUTC < transactions[index].TimestampUnixUTC {
			test.Fatalf("log not sorted descending at index %d", index)
		}
	}
}

func TestGenerateDemoTransactionsWithoutCards(test *testing.T) {
	test.Parallel()
	store := &stubStore{}
	service := mustNewService(test, store, (&fakeClock{now: fixedNow}).Now)
	batch, err := service.GenerateDemoTransactions(context.Background())
	if err != nil {
		test.Fatalf("generate: %v", err)
	}
	if len(batch) != 0 {
		test.Fatalf("expected empty batch without cards, got %d", len(batch))
	}
	if len(store.saved) != 0 {
		test.Fatalf("expected no snapshot writes without cards")
	}
}
