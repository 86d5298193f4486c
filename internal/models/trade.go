package models

import "time"

// Trade is one energy listing as read from the market contract.
// The service never mutates a Trade; it only re-fetches.
type Trade struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	EnergyAmount         uint64    `json:"energyAmount"`
	PricePerUnit         uint64    `json:"pricePerUnit"`
	Description          string    `json:"description"`
	Timestamp            time.Time `json:"timestamp"`
	Creator              string    `json:"creator"`
	IsVerified           bool      `json:"isVerified"`
	DecryptedValue       uint64    `json:"decryptedValue"`
	EncryptedValueHandle *string   `json:"encryptedValueHandle,omitempty"`
}

// TotalValue is energy x price for a known clear energy amount.
func (t Trade) TotalValue(energy uint64) uint64 {
	return energy * t.PricePerUnit
}

// BusinessData mirrors the tuple returned by getBusinessData.
type BusinessData struct {
	Name           string
	PublicValue1   uint64
	PublicValue2   uint64
	Description    string
	Creator        string
	Timestamp      uint64
	DecryptedValue uint64
	IsVerified     bool
}

// ToTrade maps a contract record onto the service model.
func (b *BusinessData) ToTrade(id string) Trade {
	return Trade{
		ID:             id,
		Name:           b.Name,
		EnergyAmount:   b.PublicValue1,
		PricePerUnit:   b.PublicValue2,
		Description:    b.Description,
		Timestamp:      time.Unix(int64(b.Timestamp), 0).UTC(),
		Creator:        b.Creator,
		IsVerified:     b.IsVerified,
		DecryptedValue: b.DecryptedValue,
	}
}

// TradeStats is derived from the filtered trade set on every request.
type TradeStats struct {
	TotalEnergy     uint64  `json:"totalEnergy"`
	CompletedTrades int     `json:"completedTrades"`
	FilteredTrades  int     `json:"filteredTrades"`
	AvgPrice        float64 `json:"avgPrice"`
	UserEarnings    uint64  `json:"userEarnings"`
}
