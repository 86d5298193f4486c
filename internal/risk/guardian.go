package risk

import (
	"context"
	"fmt"
)

// DailyTradeCounter abstracts the trade-counting dependency so Guardian
// can be tested without a real database.
type DailyTradeCounter interface {
	CountToday(ctx context.Context, account string) (int, error)
}

// Limits holds the draft thresholds from config.
// A zero value for any field means that check is disabled.
type Limits struct {
	MaxEnergyAmount uint64
	MaxPricePerUnit uint64
	MaxDailyTrades  int
}

type Guardian struct {
	limits  Limits
	counter DailyTradeCounter
}

func NewGuardian(limits Limits, counter DailyTradeCounter) *Guardian {
	return &Guardian{limits: limits, counter: counter}
}

// PreTradeCheck validates a draft before it is encrypted and submitted.
// Returns nil if the trade is allowed, a descriptive error if blocked.
func (g *Guardian) PreTradeCheck(ctx context.Context, account string, energy, price uint64) error {
	if g.limits.MaxEnergyAmount > 0 && energy > g.limits.MaxEnergyAmount {
		return fmt.Errorf("trade blocked: energy amount %d kWh exceeds max %d kWh",
			energy, g.limits.MaxEnergyAmount)
	}

	if g.limits.MaxPricePerUnit > 0 && price > g.limits.MaxPricePerUnit {
		return fmt.Errorf("trade blocked: price %d/kWh exceeds max %d/kWh",
			price, g.limits.MaxPricePerUnit)
	}

	if g.limits.MaxDailyTrades > 0 && g.counter != nil {
		count, err := g.counter.CountToday(ctx, account)
		if err != nil {
			return fmt.Errorf("trade blocked: unable to verify daily trade count: %w", err)
		}
		if count >= g.limits.MaxDailyTrades {
			return fmt.Errorf("trade blocked: daily limit of %d trades reached (%d created today)",
				g.limits.MaxDailyTrades, count)
		}
	}

	return nil
}
