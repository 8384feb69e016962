package cardledger

import (
	"context"
	"math/rand"

	"github.com/shopspring/decimal"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// OperationLogger records domain-level events emitted by Service operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a state-changing card ledger operation.
type OperationLog struct {
	Operation string
	CardID    string
	CardName  string
	Amount    decimal.Decimal
	Status    string
	Error     error
}

// WithOperationLogger wires a logger that receives callbacks for every operation.
func WithOperationLogger(logger OperationLogger) ServiceOption {
	return func(service *Service) {
		service.logger = logger
	}
}

// WithRand replaces the randomness source behind the entity generators, the
// risk evaluator, and the demo transaction generator.
func WithRand(rng *rand.Rand) ServiceOption {
	return func(service *Service) {
		if rng != nil {
			service.rng = rng
		}
	}
}

// WithDeletePolicy controls whether only disposable cards may be deleted.
// The restriction is on unless explicitly relaxed.
func WithDeletePolicy(disposableOnly bool) ServiceOption {
	return func(service *Service) {
		service.disposableOnlyDelete = disposableOnly
	}
}
