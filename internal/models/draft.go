package models

import "time"

// Draft is the create-trade form. Numeric fields hold digit-only strings.
type Draft struct {
	Name         string `json:"name"`
	EnergyAmount string `json:"energyAmount"`
	PricePerUnit string `json:"pricePerUnit"`
	Description  string `json:"description"`
}

// Complete reports whether the submit control is enabled.
func (d Draft) Complete() bool {
	return d.Name != "" && d.EnergyAmount != "" && d.PricePerUnit != ""
}

// Verification is a successful local decryption recorded for history.
type Verification struct {
	ID         int64     `json:"id"`
	BusinessID string    `json:"businessId"`
	Account    string    `json:"account"`
	ClearValue uint64    `json:"clearValue"`
	Handle     string    `json:"handle"`
	CreatedAt  time.Time `json:"createdAt"`
}
