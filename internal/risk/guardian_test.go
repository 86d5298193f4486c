package risk

import (
	"context"
	"fmt"
	"testing"
)

type mockCounter struct {
	count   int
	err     error
	account string
}

func (m *mockCounter) CountToday(_ context.Context, account string) (int, error) {
	m.account = account
	return m.count, m.err
}

const creator = "0x00000000000000000000000000000000000000a1"

func TestPreTradeCheck_EnergyAmount_Allowed(t *testing.T) {
	g := NewGuardian(Limits{MaxEnergyAmount: 500}, &mockCounter{})
	if err := g.PreTradeCheck(context.Background(), creator, 500, 25); err != nil {
		t.Fatalf("expected trade to be allowed, got: %v", err)
	}
}

func TestPreTradeCheck_EnergyAmount_Blocked(t *testing.T) {
	g := NewGuardian(Limits{MaxEnergyAmount: 500}, &mockCounter{})
	err := g.PreTradeCheck(context.Background(), creator, 501, 25)
	if err == nil {
		t.Fatal("expected trade to be blocked")
	}
	t.Logf("Correctly blocked: %v", err)
}

func TestPreTradeCheck_Price_Blocked(t *testing.T) {
	g := NewGuardian(Limits{MaxPricePerUnit: 30}, &mockCounter{})
	err := g.PreTradeCheck(context.Background(), creator, 150, 31)
	if err == nil {
		t.Fatal("expected trade to be blocked by price")
	}
	t.Logf("Correctly blocked: %v", err)
}

func TestPreTradeCheck_DisabledWhenZero(t *testing.T) {
	g := NewGuardian(Limits{}, &mockCounter{count: 9999})
	if err := g.PreTradeCheck(context.Background(), creator, 999999, 999999); err != nil {
		t.Fatalf("all-zero limits should allow everything, got: %v", err)
	}
}

func TestPreTradeCheck_DailyTrades_Allowed(t *testing.T) {
	c := &mockCounter{count: 49}
	g := NewGuardian(Limits{MaxDailyTrades: 50}, c)
	if err := g.PreTradeCheck(context.Background(), creator, 150, 25); err != nil {
		t.Fatalf("expected trade to be allowed (49/50), got: %v", err)
	}
	if c.account != creator {
		t.Fatalf("counter should be scoped to the creator, got %q", c.account)
	}
}

func TestPreTradeCheck_DailyTrades_Blocked(t *testing.T) {
	g := NewGuardian(Limits{MaxDailyTrades: 50}, &mockCounter{count: 50})
	err := g.PreTradeCheck(context.Background(), creator, 150, 25)
	if err == nil {
		t.Fatal("expected trade to be blocked (50/50)")
	}
	t.Logf("Correctly blocked: %v", err)
}

func TestPreTradeCheck_DailyTrades_CounterError(t *testing.T) {
	g := NewGuardian(Limits{MaxDailyTrades: 50}, &mockCounter{err: fmt.Errorf("db down")})
	err := g.PreTradeCheck(context.Background(), creator, 150, 25)
	if err == nil {
		t.Fatal("expected error when counter fails")
	}
	t.Logf("Correctly blocked on counter error: %v", err)
}

func TestPreTradeCheck_DailyTrades_NoCounter(t *testing.T) {
	g := NewGuardian(Limits{MaxDailyTrades: 1}, nil)
	if err := g.PreTradeCheck(context.Background(), creator, 150, 25); err != nil {
		t.Fatalf("missing counter should skip the daily check, got: %v", err)
	}
}

func TestPreTradeCheck_EnergyFailsFirst(t *testing.T) {
	g := NewGuardian(Limits{
		MaxEnergyAmount: 100,
		MaxDailyTrades:  50,
	}, &mockCounter{count: 50})

	err := g.PreTradeCheck(context.Background(), creator, 200, 25)
	if err == nil {
		t.Fatal("expected trade to be blocked by energy amount")
	}
	t.Logf("Correctly blocked: %v", err)
}
