package session

import (
	"context"
	"errors"
	"time"

	"github.com/kjannette/energy-market-backend/internal/cache"
	"github.com/kjannette/energy-market-backend/internal/ethereum"
	"github.com/kjannette/energy-market-backend/internal/fhe"
	"github.com/kjannette/energy-market-backend/internal/metrics"
	"github.com/kjannette/energy-market-backend/internal/models"
)

var (
	ErrNotConnected   = errors.New("wallet not connected")
	ErrNotInitialized = errors.New("FHE session not initialized")
	ErrActionInFlight = errors.New("action already in flight")
	ErrInvalidDraft   = errors.New("name, energy amount and price are required")
	ErrTradeNotFound  = errors.New("trade not found")
	ErrSessionClosed  = errors.New("session closed")
	ErrUnknownTab     = errors.New("unknown tab")
)

// AmountError is a draft amount that does not fit the contract's integer.
type AmountError struct {
	Field string
	Value string
}

func (e *AmountError) Error() string {
	return e.Field + " " + e.Value + " is too large"
}

// Toaster shows transient status messages.
type Toaster interface {
	Pending(msg string) string
	Success(msg string) string
	Error(msg string) string
}

type SnapshotStore interface {
	SaveAll(ctx context.Context, trades []models.Trade) error
}

type VerificationStore interface {
	Record(ctx context.Context, v *models.Verification) (*models.Verification, error)
}

type DraftGuard interface {
	PreTradeCheck(ctx context.Context, account string, energy, price uint64) error
}

type EventNotifier interface {
	TradeCreated(ctx context.Context, businessID, name string, pricePerUnit uint64, txHash string)
	TradeVerified(ctx context.Context, businessID, account string)
}

// Deps are the collaborators shared by every session. Optional fields may
// be left nil.
type Deps struct {
	Reader ethereum.MarketReader
	Writer ethereum.MarketWriter
	FHE    fhe.Client
	Cache  cache.DecryptCache
	Status Toaster

	Snapshots     SnapshotStore
	Verifications VerificationStore
	Guard         DraftGuard
	Notifier      EventNotifier
	Metrics       *metrics.Metrics

	LoadConcurrency int
	Now             func() time.Time
}

func (d *Deps) defaults() {
	if d.LoadConcurrency < 1 {
		d.LoadConcurrency = 1
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Cache == nil {
		d.Cache = cache.NewMemoryCache()
	}
}
