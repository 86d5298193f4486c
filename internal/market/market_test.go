package market

import (
	"testing"

	"github.com/kjannette/energy-market-backend/internal/models"
)

const (
	alice = "0x1234567890AbcdEF1234567890aBcdef12345678"
	bob   = "0x00000000000000000000000000000000000000b0"
)

func sampleTrades() []models.Trade {
	return []models.Trade{
		{ID: "t1", Name: "Morning Solar Surplus", Description: "rooftop panels", EnergyAmount: 150, PricePerUnit: 25, Creator: alice, IsVerified: true, DecryptedValue: 150},
		{ID: "t2", Name: "Wind Night Batch", Description: "coastal turbine", EnergyAmount: 40, PricePerUnit: 10, Creator: bob},
		{ID: "t3", Name: "Battery Discharge", Description: "evening SOLAR storage", EnergyAmount: 10, PricePerUnit: 31, Creator: alice},
	}
}

func TestFilter(t *testing.T) {
	trades := sampleTrades()

	got := Filter(trades, "solar")
	if len(got) != 2 || got[0].ID != "t1" || got[1].ID != "t3" {
		t.Fatalf("expected t1,t3 got %+v", got)
	}

	// idempotent
	again := Filter(got, "solar")
	if len(again) != len(got) {
		t.Fatalf("filter not idempotent: %d vs %d", len(again), len(got))
	}

	if len(Filter(trades, "")) != 3 {
		t.Fatal("empty term should keep every trade")
	}
	if len(Filter(trades, "geothermal")) != 0 {
		t.Fatal("expected no match")
	}

	// substring of a name always matches
	for _, tr := range trades {
		sub := tr.Name[2:6]
		found := false
		for _, f := range Filter(trades, sub) {
			if f.ID == tr.ID {
				found = true
			}
		}
		if !found {
			t.Fatalf("substring %q of %q did not match", sub, tr.Name)
		}
	}
}

func TestComputeStats(t *testing.T) {
	s := ComputeStats(sampleTrades(), "0x1234567890abcdef1234567890abcdef12345678")

	if s.TotalEnergy != 200 {
		t.Fatalf("expected total 200, got %d", s.TotalEnergy)
	}
	if s.CompletedTrades != 1 || s.FilteredTrades != 3 {
		t.Fatalf("expected 1/3, got %d/%d", s.CompletedTrades, s.FilteredTrades)
	}
	if s.AvgPrice != 22 {
		t.Fatalf("expected avg 22, got %f", s.AvgPrice)
	}
	// 150*25 + 10*31, bob's trade excluded
	if s.UserEarnings != 4060 {
		t.Fatalf("expected earnings 4060, got %d", s.UserEarnings)
	}
}

func TestComputeStats_Empty(t *testing.T) {
	s := ComputeStats(nil, alice)
	if s.AvgPrice != 0 || s.TotalEnergy != 0 || s.UserEarnings != 0 {
		t.Fatalf("expected zero stats, got %+v", s)
	}
}

func TestComputeStats_NoAccount(t *testing.T) {
	if s := ComputeStats(sampleTrades(), ""); s.UserEarnings != 0 {
		t.Fatalf("disconnected caller should earn nothing, got %d", s.UserEarnings)
	}
}

func TestRecentTradesAndChart(t *testing.T) {
	var trades []models.Trade
	for i, e := range []uint64{5, 50, 500, 60, 70, 80, 90} {
		trades = append(trades, models.Trade{ID: string(rune('a' + i)), EnergyAmount: e})
	}

	recent := RecentTrades(trades, 5)
	if len(recent) != 5 || recent[0].ID != "g" || recent[4].ID != "c" {
		t.Fatalf("expected g..c newest first, got %+v", recent)
	}
	if len(RecentTrades(trades[:2], 5)) != 2 {
		t.Fatal("short list should return everything")
	}

	bars := Chart(trades)
	if len(bars) != ChartSize {
		t.Fatalf("expected %d bars, got %d", ChartSize, len(bars))
	}
	if bars[4].HeightPercent != 100 {
		t.Fatalf("expected 500 kWh capped at 100%%, got %f", bars[4].HeightPercent)
	}
	if bars[0].HeightPercent != 90 {
		t.Fatalf("expected 90%%, got %f", bars[0].HeightPercent)
	}
}

func TestSelectDisplay(t *testing.T) {
	trades := sampleTrades()
	local := uint64(40)

	d := SelectDisplay(trades[0], &local)
	if d.Kind != DisplayOnChain || *d.Value != 150 {
		t.Fatalf("verified trade should show on-chain value, got %+v", d)
	}

	d = SelectDisplay(trades[1], &local)
	if d.Kind != DisplayLocal || *d.Value != 40 || d.Label != "40 kWh (Locally Decrypted)" {
		t.Fatalf("expected local value, got %+v", d)
	}

	d = SelectDisplay(trades[1], nil)
	if d.Kind != DisplayEncrypted || d.Value != nil {
		t.Fatalf("expected placeholder, got %+v", d)
	}
}

func TestSanitizeDigits(t *testing.T) {
	cases := map[string]string{
		"150":    "150",
		"1.5e3":  "153",
		"-25kWh": "25",
		"":       "",
		"abc":    "",
	}
	for in, want := range cases {
		if got := SanitizeDigits(in); got != want {
			t.Fatalf("SanitizeDigits(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestShortAddress(t *testing.T) {
	if got := ShortAddress(alice); got != "0x1234...5678" {
		t.Fatalf("got %s", got)
	}
	if got := ShortAddress("0xabc"); got != "0xabc" {
		t.Fatalf("short input should pass through, got %s", got)
	}
}
