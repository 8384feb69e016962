package cardledger

import (
	"context"
	"fmt"
)

// FraudCheckResult summarizes one risk re-evaluation pass.
type FraudCheckResult struct {
	Evaluated int
	Flagged   []Card
}

// SimulateFraudCheck re-derives a risk level for every active card from the
// fixed distribution and force-freezes any card that comes out high. Each
// newly high-risk card gets a fraud_detected activity entry, and a flagged
// pass resurfaces a previously dismissed fraud alert. This is a simulation:
// only the distribution and the freeze-on-high policy are contractual.
func (service *Service) SimulateFraudCheck(ctx context.Context) (FraudCheckResult, error) {
	service.mu.Lock()
	defer service.mu.Unlock()

	var result FraudCheckResult
	operationError := func() error {
		activeIndexes := make([]int, 0, len(service.cards))
		for index, card := range service.cards {
			if card.Status == CardStatusActive {
				activeIndexes = append(activeIndexes, index)
			}
		}
		if len(activeIndexes) == 0 {
			return nil
		}
		nextCards := cloneCards(service.cards)
		flagged := make([]Card, 0)
		entries := make([]ActivityEntry, 0)
		for _, index := range activeIndexes {
			level := generateRiskLevel(service.rng)
			nextCards[index].RiskLevel = level
			if level != RiskHigh {
				continue
			}
			nextCards[index].Status = CardStatusFrozen
			flagged = append(flagged, nextCards[index])
			entries = append(entries, service.newActivityEntry(
				nextCards[index].ID,
				nextCards[index].Name,
				ActionFraudDetected,
				fmt.Sprintf("High risk activity detected on %q - Card frozen", nextCards[index].Name),
			))
		}
		nextLog := prependActivity(service.activityLog, entries...)
		if err := service.persist(ctx, nextCards, service.transactions, nextLog); err != nil {
			return err
		}
		service.cards = nextCards
		service.activityLog = nextLog
		if len(flagged) > 0 {
			service.alertDismissed = false
		}
		result = FraudCheckResult{Evaluated: len(activeIndexes), Flagged: flagged}
		return nil
	}()
	service.logOperation(ctx, OperationLog{
		Operation: operationFraudCheck,
		Error:     operationError,
	})
	return result, operationError
}

// DismissFraudAlert hides the fraud banner until the next flagged pass.
func (service *Service) DismissFraudAlert() {
	service.mu.Lock()
	defer service.mu.Unlock()
	service.alertDismissed = true
}

// FraudAlertDismissed reports the banner state. The flag is session-local and
// never persisted.
func (service *Service) FraudAlertDismissed() bool {
	service.mu.Lock()
	defer service.mu.Unlock()
	return service.alertDismissed
}

// HighRiskCards lists cards currently scored high, for the alert banner.
func (service *Service) HighRiskCards() []Card {
	service.mu.Lock()
	defer service.mu.Unlock()
	flagged := make([]Card, 0)
	for _, card := range service.cards {
		if card.RiskLevel == RiskHigh {
			flagged = append(flagged, card)
		}
	}
	return flagged
}
