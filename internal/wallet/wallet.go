package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Errors returned by wallet operations.
var (
	ErrNotConnected        = errors.New("wallet not connected")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrInvalidAmount       = errors.New("invalid transfer amount")
)

// Wallet is the capability interface over the user's funding wallet. Transfer
// returns a confirmation reference only after the transfer has settled; the
// ledger must never be mutated on an unconfirmed transfer.
type Wallet interface {
	Connect(ctx context.Context) (string, error)
	Disconnect()
	Connected() bool
	CurrentAddress() string
	Balance(ctx context.Context) (decimal.Decimal, error)
	Transfer(ctx context.Context, toAddress string, amount decimal.Decimal) (string, error)
}

const (
	base58Alphabet   = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
	addressLength    = 44
	signatureLength  = 88
	demoStartBalance = "12847.53"
)

// SimWallet is a simulated wallet for the demo dashboard: it holds a seeded
// balance and confirms transfers instantly with synthetic signatures.
type SimWallet struct {
	mu          sync.Mutex
	rng         *rand.Rand
	connected   bool
	address     string
	balance     decimal.Decimal
	transferErr error
}

// NewSimWallet returns a SimWallet with the demo starting balance.
func NewSimWallet() *SimWallet {
	return &SimWallet{
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		balance: decimal.RequireFromString(demoStartBalance),
	}
}

// Connect generates a session address on first use and marks the wallet
// connected.
func (wallet *SimWallet) Connect(_ context.Context) (string, error) {
	wallet.mu.Lock()
	defer wallet.mu.Unlock()
	if wallet.address == "" {
		wallet.address = wallet.randomStringLocked(addressLength)
	}
	wallet.connected = true
	return wallet.address, nil
}

// Disconnect drops the session. The address survives for reconnects.
func (wallet *SimWallet) Disconnect() {
	wallet.mu.Lock()
	defer wallet.mu.Unlock()
	wallet.connected = false
}

// Connected reports the session state.
func (wallet *SimWallet) Connected() bool {
	wallet.mu.Lock()
	defer wallet.mu.Unlock()
	return wallet.connected
}

// CurrentAddress returns the session address, empty before the first connect.
func (wallet *SimWallet) CurrentAddress() string {
	wallet.mu.Lock()
	defer wallet.mu.Unlock()
	return wallet.address
}

// Balance returns the remaining demo balance.
func (wallet *SimWallet) Balance(_ context.Context) (decimal.Decimal, error) {
	wallet.mu.Lock()
	defer wallet.mu.Unlock()
	if !wallet.connected {
		return decimal.Zero, ErrNotConnected
	}
	return wallet.balance, nil
}

// Transfer debits the demo balance and returns a synthetic confirmation
// signature. Failures leave the balance untouched.
func (wallet *SimWallet) Transfer(_ context.Context, toAddress string, amount decimal.Decimal) (string, error) {
	wallet.mu.Lock()
	defer wallet.mu.Unlock()
	if wallet.transferErr != nil {
		return "", wallet.transferErr
	}
	if !wallet.connected {
		return "", ErrNotConnected
	}
	if !amount.IsPositive() {
		return "", fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	if wallet.balance.LessThan(amount) {
		return "", fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, wallet.balance, amount)
	}
	if toAddress == "" {
		return "", fmt.Errorf("%w: empty destination", ErrInvalidAmount)
	}
	wallet.balance = wallet.balance.Sub(amount)
	return wallet.randomStringLocked(signatureLength), nil
}

// FailTransfers forces subsequent transfers to fail with the given error.
// Used by tests and the demo failure mode.
func (wallet *SimWallet) FailTransfers(err error) {
	wallet.mu.Lock()
	defer wallet.mu.Unlock()
	wallet.transferErr = err
}

func (wallet *SimWallet) randomStringLocked(length int) string {
	buffer := make([]byte, length)
	for index := range buffer {
		buffer[index] = base58Alphabet[wallet.rng.Intn(len(base58Alphabet))]
	}
	return string(buffer)
}
