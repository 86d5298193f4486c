package market

import (
	"strings"

	"github.com/kjannette/energy-market-backend/internal/models"
)

const (
	ChartSize     = 5
	maxBarPercent = 100
)

// Filter keeps trades whose name or description contains term,
// case-insensitively. An empty term keeps everything.
func Filter(trades []models.Trade, term string) []models.Trade {
	needle := strings.ToLower(term)
	out := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if strings.Contains(strings.ToLower(t.Name), needle) ||
			strings.Contains(strings.ToLower(t.Description), needle) {
			out = append(out, t)
		}
	}
	return out
}

// ComputeStats derives the stats panel from an already filtered set.
// Earnings only count trades created by account.
func ComputeStats(filtered []models.Trade, account string) models.TradeStats {
	s := models.TradeStats{FilteredTrades: len(filtered)}
	var priceSum uint64
	for _, t := range filtered {
		s.TotalEnergy += t.EnergyAmount
		priceSum += t.PricePerUnit
		if t.IsVerified {
			s.CompletedTrades++
		}
		if account != "" && strings.EqualFold(t.Creator, account) {
			s.UserEarnings += t.EnergyAmount * t.PricePerUnit
		}
	}
	if len(filtered) > 0 {
		s.AvgPrice = float64(priceSum) / float64(len(filtered))
	}
	return s
}

type ChartBar struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	EnergyAmount  uint64  `json:"energyAmount"`
	PricePerUnit  uint64  `json:"pricePerUnit"`
	HeightPercent float64 `json:"heightPercent"`
}

// RecentTrades returns the last n trades newest first.
func RecentTrades(trades []models.Trade, n int) []models.Trade {
	if n <= 0 {
		return nil
	}
	start := max(len(trades)-n, 0)
	out := make([]models.Trade, 0, len(trades)-start)
	for i := len(trades) - 1; i >= start; i-- {
		out = append(out, trades[i])
	}
	return out
}

// Chart builds the recent-trades bar chart. Bars cap at 100%.
func Chart(trades []models.Trade) []ChartBar {
	recent := RecentTrades(trades, ChartSize)
	bars := make([]ChartBar, 0, len(recent))
	for _, t := range recent {
		bars = append(bars, ChartBar{
			ID:            t.ID,
			Name:          t.Name,
			EnergyAmount:  t.EnergyAmount,
			PricePerUnit:  t.PricePerUnit,
			HeightPercent: float64(min(t.EnergyAmount, maxBarPercent)),
		})
	}
	return bars
}

// FindTrade looks a trade up by id.
func FindTrade(trades []models.Trade, id string) (models.Trade, bool) {
	for _, t := range trades {
		if t.ID == id {
			return t, true
		}
	}
	return models.Trade{}, false
}
