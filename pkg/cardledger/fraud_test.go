package cardledger

import (
	"context"
	"fmt"
	"testing"
)

func seedActiveCards(test *testing.T, service *Service, count int) {
	test.Helper()
	for i := 0; i < count; i++ {
		config := travelConfig()
		config.Name = fmt.Sprintf("Card %d", i)
		mustCreateCard(test, service, config)
	}
}

func TestSimulateFraudCheckFreezesHighRiskCards(test *testing.T) {
	test.Parallel()
	store := &stubStore{}
	service := mustNewService(test, store, (&fakeClock{now: fixedNow}).Now)
	seedActiveCards(test, service, 200)

	result, err := service.SimulateFraudCheck(context.Background())
	if err != nil {
		test.Fatalf("fraud check: %v", err)
	}
	if result.Evaluated != 200 {
		test.Fatalf("expected 200 evaluated cards, got %d", result.Evaluated)
	}
	if len(result.Flagged) == 0 {
		test.Fatalf("expected at least one flagged card across 200 draws")
	}

	for _, card := range service.Cards() {
		if card.RiskLevel == RiskHigh && card.Status != CardStatusFrozen {
			test.Fatalf("high-risk card %q not frozen", card.Name)
		}
		if card.RiskLevel != RiskHigh && card.Status != CardStatusActive {
			test.Fatalf("card %q lost its status without scoring high", card.Name)
		}
	}

	fraudEntries := 0
	for _, entry := range service.ActivityLog() {
		if entry.Action == ActionFraudDetected {
			fraudEntries++
		}
	}
	if fraudEntries != len(result.Flagged) {
		test.Fatalf("expected %d fraud entries, got %d", len(result.Flagged), fraudEntries)
	}
}

func TestSimulateFraudCheckSkipsInactiveCards(test *testing.T) {
	test.Parallel()
	service := mustNewService(test, &stubStore{}, (&fakeClock{now: fixedNow}).Now)
	card := mustCreateCard(test, service, travelConfig())
	if err := service.SetFreeze(context.Background(), card.ID, true); err != nil {
		test.Fatalf("freeze: %v", err)
	}

	result, err := service.SimulateFraudCheck(context.Background())
	if err != nil {
		test.Fatalf("fraud check: %v", err)
	}
	if result.Evaluated != 0 {
		test.Fatalf("expected no evaluated cards, got %d", result.Evaluated)
	}
	updated, _ := service.Card(card.ID)
	if updated.Status != CardStatusFrozen || updated.RiskLevel != RiskLow {
		test.Fatalf("frozen card must keep its state, got %+v", updated)
	}
}

func TestFraudAlertResetOnFlaggedPass(test *testing.T) {
	test.Parallel()
	service := mustNewService(test, &stubStore{}, (&fakeClock{now: fixedNow}).Now)
	seedActiveCards(test, service, 200)

	service.DismissFraudAlert()
	if !service.FraudAlertDismissed() {
		test.Fatalf("expected dismissed alert")
	}

	result, err := service.SimulateFraudCheck(context.Background())
	if err != nil {
		test.Fatalf("fraud check: %v", err)
	}
	if len(result.Flagged) == 0 {
		test.Fatalf("expected flagged cards")
	}
	if service.FraudAlertDismissed() {
		test.Fatalf("flagged pass must resurface the alert")
	}
	if got := len(service.HighRiskCards()); got != len(result.Flagged) {
		test.Fatalf("expected %d high-risk cards, got %d", len(result.Flagged), got)
	}
}

func TestSimulateFraudCheckNoActiveCardsIsNoOp(test *testing.T) {
	test.Parallel()
	store := &stubStore{}
	service := mustNewService(test, store, (&fakeClock{now: fixedNow}).Now)
	if _, err := service.SimulateFraudCheck(context.Background()); err != nil {
		test.Fatalf("fraud check: %v", err)
	}
	if len(store.saved) != 0 {
		test.Fatalf("expected no snapshot writes without active cards")
	}
}
