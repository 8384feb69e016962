package cardledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CardType classifies a spending instrument.
type CardType string

const (
	CardTypeVirtual    CardType = "virtual"
	CardTypePhysical   CardType = "physical"
	CardTypeDisposable CardType = "disposable"
)

// ParseCardType validates a raw card type.
func ParseCardType(raw string) (CardType, error) {
	switch CardType(raw) {
	case CardTypeVirtual, CardTypePhysical, CardTypeDisposable:
		return CardType(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCardType, raw)
}

// CardCategory tags an allowed merchant category.
type CardCategory string

const (
	CategoryShopping      CardCategory = "shopping"
	CategoryTravel        CardCategory = "travel"
	CategoryGaming        CardCategory = "gaming"
	CategoryUtilities     CardCategory = "utilities"
	CategorySubscriptions CardCategory = "subscriptions"
)

// ParseCardCategory validates a raw merchant category.
func ParseCardCategory(raw string) (CardCategory, error) {
	switch CardCategory(raw) {
	case CategoryShopping, CategoryTravel, CategoryGaming, CategoryUtilities, CategorySubscriptions:
		return CardCategory(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCardCategory, raw)
}

// CardStatus defines the card lifecycle.
type CardStatus string

const (
	CardStatusActive  CardStatus = "active"
	CardStatusFrozen  CardStatus = "frozen"
	CardStatusDeleted CardStatus = "deleted"
)

// RiskLevel is the coarse fraud-likelihood tag driving the freeze policy.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// CardBrand is the synthetic network brand shown on the card face.
type CardBrand string

const (
	BrandVisa       CardBrand = "visa"
	BrandMastercard CardBrand = "mastercard"
)

// TransactionType enumerates synthetic card usage kinds.
type TransactionType string

const (
	TransactionPurchase      TransactionType = "purchase"
	TransactionRefund        TransactionType = "refund"
	TransactionAuthorization TransactionType = "authorization"
	TransactionDeclined      TransactionType = "declined"
)

// TransactionStatus is the settlement outcome of a synthetic transaction.
type TransactionStatus string

const (
	TransactionCompleted TransactionStatus = "completed"
	TransactionPending   TransactionStatus = "pending"
	TransactionFailed    TransactionStatus = "failed"
)

// ActivityAction tags an audit entry with the mutation that produced it.
type ActivityAction string

const (
	ActionCreated       ActivityAction = "created"
	ActionFrozen        ActivityAction = "frozen"
	ActionUnfrozen      ActivityAction = "unfrozen"
	ActionDeleted       ActivityAction = "deleted"
	ActionLimitUpdated  ActivityAction = "limit_updated"
	ActionFraudDetected ActivityAction = "fraud_detected"
	ActionTransaction   ActivityAction = "transaction"
	ActionDeposit       ActivityAction = "deposit"
	ActionWithdraw      ActivityAction = "withdraw"
)

// Deposit records a confirmed funding event against a card.
type Deposit struct {
	TxSignature      string          `json:"txSignature"`
	Amount           decimal.Decimal `json:"amount"`
	TimestampUnixUTC int64           `json:"timestamp"`
}

// Card is a synthetic spending instrument with configurable limits and a
// lifecycle status. Identity fields are populated by the entity generators at
// creation time and never change afterwards.
type Card struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Type                CardType        `json:"type"`
	CardNumber          string          `json:"cardNumber"`
	CVV                 string          `json:"cvv"`
	ExpiryDate          string          `json:"expiryDate"`
	Brand               CardBrand       `json:"cardBrand"`
	Gradient            string          `json:"gradient"`
	Categories          []CardCategory  `json:"categories"`
	DailyLimit          decimal.Decimal `json:"dailyLimit"`
	PerTransactionLimit decimal.Decimal `json:"perTransactionLimit"`
	AutoFreeze          bool            `json:"autoFreezeAfterInactivity"`
	TwoFactorAuth       bool            `json:"twoFactorAuth"`
	InstantNotify       bool            `json:"instantNotifications"`
	ActiveFromUnixUTC   int64           `json:"activeFrom,omitempty"`
	ActiveUntilUnixUTC  int64           `json:"activeUntil,omitempty"`

	Status                 CardStatus      `json:"status"`
	RiskLevel              RiskLevel       `json:"riskLevel"`
	Balance                decimal.Decimal `json:"balance"`
	Deposits               []Deposit       `json:"deposits"`
	ProcessingUntilUnixUTC int64           `json:"processingUntil,omitempty"`
	CreatedUnixUTC         int64           `json:"createdAt"`
	LastUsedUnixUTC        int64           `json:"lastUsed,omitempty"`
}

// Transaction is an immutable record of synthetic card usage.
type Transaction struct {
	ID               string            `json:"id"`
	CardID           string            `json:"cardId"`
	CardName         string            `json:"cardName"`
	Type             TransactionType   `json:"type"`
	Amount           decimal.Decimal   `json:"amount"`
	Merchant         string            `json:"merchant"`
	Category         CardCategory      `json:"category"`
	TimestampUnixUTC int64             `json:"timestamp"`
	Status           TransactionStatus `json:"status"`
}

// ActivityEntry is an immutable, append-only audit record. The log is kept
// most-recent-first.
type ActivityEntry struct {
	ID               string         `json:"id"`
	CardID           string         `json:"cardId"`
	CardName         string         `json:"cardName"`
	Action           ActivityAction `json:"action"`
	Description      string         `json:"description"`
	TimestampUnixUTC int64          `json:"timestamp"`
}

// CardConfig carries the caller-supplied portion of a new card.
type CardConfig struct {
	Name                string
	Type                CardType
	ExpiryDate          string
	DailyLimit          decimal.Decimal
	PerTransactionLimit decimal.Decimal
	Categories          []CardCategory
	AutoFreeze          bool
	TwoFactorAuth       bool
	InstantNotify       bool
	ActiveFromUnixUTC   int64
	ActiveUntilUnixUTC  int64
}

// Validate rejects malformed card creation input.
func (config CardConfig) Validate() error {
	if strings.TrimSpace(config.Name) == "" {
		return fmt.Errorf("%w: card name is required", ErrInvalidConfiguration)
	}
	if _, err := ParseCardType(string(config.Type)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	if len(config.Categories) == 0 {
		return fmt.Errorf("%w: at least one category is required", ErrInvalidConfiguration)
	}
	for _, category := range config.Categories {
		if _, err := ParseCardCategory(string(category)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
		}
	}
	if config.DailyLimit.IsNegative() || config.PerTransactionLimit.IsNegative() {
		return fmt.Errorf("%w: limits must be non-negative", ErrInvalidConfiguration)
	}
	return nil
}

// Snapshot is the persisted state layout: the three owned collections under
// one blob.
type Snapshot struct {
	Cards        []Card          `json:"cards"`
	Transactions []Transaction   `json:"transactions"`
	ActivityLog  []ActivityEntry `json:"activityLog"`
}

// SnapshotStore is the persistence contract used by Service. The snapshot is
// loaded once at startup and rewritten whole on every mutation.
type SnapshotStore interface {
	Load(ctx context.Context, name string) (Snapshot, bool, error)
	Save(ctx context.Context, name string, snapshot Snapshot) error
}
