package cardledger

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service owns the three collections of the card ledger and applies every
// mutation as a single atomic transition: the next state is built, persisted,
// and only then swapped into memory. A failed persist leaves the in-memory
// state untouched.
type Service struct {
	store                SnapshotStore
	nowFn                func() int64
	rng                  *rand.Rand
	logger               OperationLogger
	disposableOnlyDelete bool

	mu             sync.Mutex
	cards          []Card
	transactions   []Transaction
	activityLog    []ActivityEntry
	alertDismissed bool
}

// NewService wires a Service.
func NewService(store SnapshotStore, now func() int64, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{
		store:                store,
		nowFn:                now,
		rng:                  rand.New(rand.NewSource(time.Now().UnixNano())),
		disposableOnlyDelete: true,
	}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// Restore loads the persisted snapshot, if any. Called once at startup.
func (service *Service) Restore(ctx context.Context) error {
	snapshot, found, err := service.store.Load(ctx, StorageName)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	service.mu.Lock()
	defer service.mu.Unlock()
	service.cards = snapshot.Cards
	service.transactions = snapshot.Transactions
	service.activityLog = snapshot.ActivityLog
	return nil
}

// CreateCard mints a new card with synthetic identity fields, status active,
// risk low and zero balance, and appends a created activity entry.
func (service *Service) CreateCard(ctx context.Context, config CardConfig) (Card, error) {
	service.mu.Lock()
	defer service.mu.Unlock()

	var created Card
	operationError := func() error {
		if err := config.Validate(); err != nil {
			return err
		}
		nowUnixUTC := service.nowFn()
		expiry := config.ExpiryDate
		if expiry == "" {
			expiry = defaultExpiryDate(nowUnixUTC)
		}
		card := Card{
			ID:                  uuid.NewString(),
			Name:                config.Name,
			Type:                config.Type,
			CardNumber:          generateCardNumber(service.rng),
			CVV:                 generateCVV(service.rng),
			ExpiryDate:          expiry,
			Brand:               generateBrand(service.rng),
			Gradient:            generateGradient(service.rng),
			Categories:          append([]CardCategory(nil), config.Categories...),
			DailyLimit:          config.DailyLimit,
			PerTransactionLimit: config.PerTransactionLimit,
			AutoFreeze:          config.AutoFreeze,
			TwoFactorAuth:       config.TwoFactorAuth,
			InstantNotify:       config.InstantNotify,
			ActiveFromUnixUTC:   config.ActiveFromUnixUTC,
			ActiveUntilUnixUTC:  config.ActiveUntilUnixUTC,
			Status:              CardStatusActive,
			RiskLevel:           RiskLow,
			Balance:             decimal.Zero,
			Deposits:            []Deposit{},
			CreatedUnixUTC:      nowUnixUTC,
		}
		entry := service.newActivityEntry(card.ID, card.Name, ActionCreated, fmt.Sprintf("Card %q was created", card.Name))
		nextCards := append(cloneCards(service.cards), card)
		nextLog := prependActivity(service.activityLog, entry)
		if err := service.persist(ctx, nextCards, service.transactions, nextLog); err != nil {
			return err
		}
		service.cards = nextCards
		service.activityLog = nextLog
		created = card
		return nil
	}()
	service.logOperation(ctx, OperationLog{
		Operation: operationCreateCard,
		CardID:    created.ID,
		CardName:  config.Name,
		Error:     operationError,
	})
	return created, operationError
}

// DeleteCard removes a card. Unknown ids are a silent no-op; a live
// processing hold refuses the deletion because funds in flight must not be
// orphaned. Unless the delete policy is relaxed, only disposable cards may be
// deleted.
func (service *Service) DeleteCard(ctx context.Context, cardID string) error {
	service.mu.Lock()
	defer service.mu.Unlock()

	index := service.findCard(cardID)
	if index < 0 {
		return nil
	}
	card := service.cards[index]
	operationError := func() error {
		if service.holdActive(card) {
			return fmt.Errorf("%w: deposit still processing", ErrCardBusy)
		}
		if service.disposableOnlyDelete && card.Type != CardTypeDisposable {
			return fmt.Errorf("%w: only disposable cards can be deleted", ErrCardNotDisposable)
		}
		entry := service.newActivityEntry(card.ID, card.Name, ActionDeleted, fmt.Sprintf("Card %q was deleted", card.Name))
		nextCards := append(cloneCards(service.cards[:index]), service.cards[index+1:]...)
		nextLog := prependActivity(service.activityLog, entry)
		if err := service.persist(ctx, nextCards, service.transactions, nextLog); err != nil {
			return err
		}
		service.cards = nextCards
		service.activityLog = nextLog
		return nil
	}()
	service.logOperation(ctx, OperationLog{
		Operation: operationDeleteCard,
		CardID:    card.ID,
		CardName:  card.Name,
		Error:     operationError,
	})
	return operationError
}

// SetFreeze moves a card between active and frozen and appends an entry
// reflecting the resulting state. Unknown ids are a silent no-op; a live
// processing hold refuses the toggle.
func (service *Service) SetFreeze(ctx context.Context, cardID string, frozen bool) error {
	service.mu.Lock()
	defer service.mu.Unlock()

	index := service.findCard(cardID)
	if index < 0 {
		return nil
	}
	card := service.cards[index]
	operationError := func() error {
		if service.holdActive(card) {
			return fmt.Errorf("%w: deposit still processing", ErrCardBusy)
		}
		status := CardStatusActive
		action := ActionUnfrozen
		if frozen {
			status = CardStatusFrozen
			action = ActionFrozen
		}
		entry := service.newActivityEntry(card.ID, card.Name, action, fmt.Sprintf("Card %q was %s", card.Name, action))
		nextCards := cloneCards(service.cards)
		nextCards[index].Status = status
		nextLog := prependActivity(service.activityLog, entry)
		if err := service.persist(ctx, nextCards, service.transactions, nextLog); err != nil {
			return err
		}
		service.cards = nextCards
		service.activityLog = nextLog
		return nil
	}()
	service.logOperation(ctx, OperationLog{
		Operation: operationSetFreeze,
		CardID:    card.ID,
		CardName:  card.Name,
		Error:     operationError,
	})
	return operationError
}

// UpdateLimits overwrites both spending limits. Unknown ids are a silent
// no-op; negative limits are rejected.
func (service *Service) UpdateLimits(ctx context.Context, cardID string, dailyLimit decimal.Decimal, perTransactionLimit decimal.Decimal) error {
	service.mu.Lock()
	defer service.mu.Unlock()

	operationError := func() error {
		if dailyLimit.IsNegative() || perTransactionLimit.IsNegative() {
			return fmt.Errorf("%w: limits must be non-negative", ErrInvalidLimit)
		}
		index := service.findCard(cardID)
		if index < 0 {
			return nil
		}
		card := service.cards[index]
		description := fmt.Sprintf("Card %q limits updated: daily %s, per-transaction %s", card.Name, dailyLimit.String(), perTransactionLimit.String())
		entry := service.newActivityEntry(card.ID, card.Name, ActionLimitUpdated, description)
		nextCards := cloneCards(service.cards)
		nextCards[index].DailyLimit = dailyLimit
		nextCards[index].PerTransactionLimit = perTransactionLimit
		nextLog := prependActivity(service.activityLog, entry)
		if err := service.persist(ctx, nextCards, service.transactions, nextLog); err != nil {
			return err
		}
		service.cards = nextCards
		service.activityLog = nextLog
		return nil
	}()
	service.logOperation(ctx, OperationLog{
		Operation: operationUpdateLimits,
		CardID:    cardID,
		Error:     operationError,
	})
	return operationError
}

// RecordDeposit commits a confirmed value transfer: the balance increases by
// the deposit amount, the deposit record is appended, and the processing hold
// is set to exactly now plus 24 hours. The last deposit always wins the hold.
// Callers must pass a confirmed transfer reference only.
func (service *Service) RecordDeposit(ctx context.Context, cardID string, amount decimal.Decimal, txSignature string) error {
	service.mu.Lock()
	defer service.mu.Unlock()

	operationError := func() error {
		if !amount.IsPositive() {
			return fmt.Errorf("%w: deposit must be greater than zero", ErrInvalidAmount)
		}
		index := service.findCard(cardID)
		if index < 0 {
			return fmt.Errorf("%w: %s", ErrUnknownCard, cardID)
		}
		card := service.cards[index]
		nowUnixUTC := service.nowFn()
		deposit := Deposit{
			TxSignature:      txSignature,
			Amount:           amount,
			TimestampUnixUTC: nowUnixUTC,
		}
		description := fmt.Sprintf("Deposited %s to %q - activating in 24 hours", amount.String(), card.Name)
		entry := service.newActivityEntry(card.ID, card.Name, ActionDeposit, description)
		nextCards := cloneCards(service.cards)
		nextCards[index].Balance = card.Balance.Add(amount)
		nextCards[index].Deposits = append(append([]Deposit(nil), card.Deposits...), deposit)
		nextCards[index].ProcessingUntilUnixUTC = nowUnixUTC + processingHoldSeconds
		nextLog := prependActivity(service.activityLog, entry)
		if err := service.persist(ctx, nextCards, service.transactions, nextLog); err != nil {
			return err
		}
		service.cards = nextCards
		service.activityLog = nextLog
		return nil
	}()
	service.logOperation(ctx, OperationLog{
		Operation: operationRecordDeposit,
		CardID:    cardID,
		Amount:    amount,
		Error:     operationError,
	})
	return operationError
}

// IsProcessing reports whether the card carries a live processing hold.
func (service *Service) IsProcessing(cardID string) bool {
	service.mu.Lock()
	defer service.mu.Unlock()
	index := service.findCard(cardID)
	if index < 0 {
		return false
	}
	return service.holdActive(service.cards[index])
}

// ClearExpiredHolds nulls out processing holds whose expiry has passed.
// Idempotent bookkeeping; no activity entries are written.
func (service *Service) ClearExpiredHolds(ctx context.Context) error {
	service.mu.Lock()
	defer service.mu.Unlock()

	nowUnixUTC := service.nowFn()
	changed := false
	for _, card := range service.cards {
		if card.ProcessingUntilUnixUTC != 0 && card.ProcessingUntilUnixUTC <= nowUnixUTC {
			changed = true
			break
		}
	}
	if !changed {
		return nil
	}
	nextCards := cloneCards(service.cards)
	for index := range nextCards {
		if nextCards[index].ProcessingUntilUnixUTC != 0 && nextCards[index].ProcessingUntilUnixUTC <= nowUnixUTC {
			nextCards[index].ProcessingUntilUnixUTC = 0
		}
	}
	if err := service.persist(ctx, nextCards, service.transactions, service.activityLog); err != nil {
		return err
	}
	service.cards = nextCards
	return nil
}

// Card returns a copy of the card with the given id.
func (service *Service) Card(cardID string) (Card, bool) {
	service.mu.Lock()
	defer service.mu.Unlock()
	index := service.findCard(cardID)
	if index < 0 {
		return Card{}, false
	}
	return service.cards[index], true
}

// CardBalance returns the card's balance, false for unknown ids.
func (service *Service) CardBalance(cardID string) (decimal.Decimal, bool) {
	card, found := service.Card(cardID)
	if !found {
		return decimal.Zero, false
	}
	return card.Balance, true
}

// Cards returns a copy of all cards in creation order.
func (service *Service) Cards() []Card {
	service.mu.Lock()
	defer service.mu.Unlock()
	return cloneCards(service.cards)
}

// Transactions returns a copy of the transaction log, most recent first.
func (service *Service) Transactions() []Transaction {
	service.mu.Lock()
	defer service.mu.Unlock()
	return append([]Transaction(nil), service.transactions...)
}

// ActivityLog returns a copy of the audit trail, most recent first.
func (service *Service) ActivityLog() []ActivityEntry {
	service.mu.Lock()
	defer service.mu.Unlock()
	return append([]ActivityEntry(nil), service.activityLog...)
}

func (service *Service) persist(ctx context.Context, cards []Card, transactions []Transaction, activityLog []ActivityEntry) error {
	return service.store.Save(ctx, StorageName, Snapshot{
		Cards:        cards,
		Transactions: transactions,
		ActivityLog:  activityLog,
	})
}

func (service *Service) findCard(cardID string) int {
	for index, card := range service.cards {
		if card.ID == cardID {
			return index
		}
	}
	return -1
}

func (service *Service) holdActive(card Card) bool {
	return card.ProcessingUntilUnixUTC != 0 && card.ProcessingUntilUnixUTC > service.nowFn()
}

func (service *Service) newActivityEntry(cardID string, cardName string, action ActivityAction, description string) ActivityEntry {
	return ActivityEntry{
		ID:               uuid.NewString(),
		CardID:           cardID,
		CardName:         cardName,
		Action:           action,
		Description:      description,
		TimestampUnixUTC: service.nowFn(),
	}
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}

func cloneCards(cards []Card) []Card {
	return append([]Card(nil), cards...)
}

func prependActivity(log []ActivityEntry, entries ...ActivityEntry) []ActivityEntry {
	next := make([]ActivityEntry, 0, len(log)+len(entries))
	next = append(next, entries...)
	return append(next, log...)
}
