package market

import (
	"strconv"
	"strings"

	"github.com/kjannette/energy-market-backend/internal/models"
)

type DisplayKind string

const (
	DisplayOnChain   DisplayKind = "on_chain"
	DisplayLocal     DisplayKind = "local"
	DisplayEncrypted DisplayKind = "encrypted"
)

// Display is the single energy value shown for a trade.
type Display struct {
	Kind  DisplayKind `json:"kind"`
	Value *uint64     `json:"value,omitempty"`
	Label string      `json:"label"`
}

// SelectDisplay picks the on-chain value when the record is verified and
// carries a value, then a locally verified value, else the placeholder.
func SelectDisplay(t models.Trade, local *uint64) Display {
	switch {
	case t.IsVerified && t.DecryptedValue != 0:
		v := t.DecryptedValue
		return Display{Kind: DisplayOnChain, Value: &v, Label: formatKWh(v) + " (On-chain Verified)"}
	case local != nil:
		v := *local
		return Display{Kind: DisplayLocal, Value: &v, Label: formatKWh(v) + " (Locally Decrypted)"}
	default:
		return Display{Kind: DisplayEncrypted, Label: "FHE Encrypted kWh"}
	}
}

// SanitizeDigits drops every non-digit rune.
func SanitizeDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ShortAddress renders 0x1234...abcd.
func ShortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

func formatKWh(v uint64) string {
	return strconv.FormatUint(v, 10) + " kWh"
}
