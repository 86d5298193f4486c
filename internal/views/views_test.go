package views

import (
	"testing"
	"time"

	"github.com/kjannette/energy-market-backend/internal/market"
	"github.com/kjannette/energy-market-backend/internal/models"
	"github.com/kjannette/energy-market-backend/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const me = "0x00000000000000000000000000000000000000A1"

func readyState() session.State {
	return session.State{
		Account:     me,
		Initialized: true,
		Loaded:      true,
		Tab:         session.TabTrades,
		Trades: []models.Trade{
			{ID: "t1", Name: "Morning Solar", EnergyAmount: 150, PricePerUnit: 25, Creator: me, Timestamp: time.Unix(1700000000, 0)},
			{ID: "t2", Name: "Wind Batch", EnergyAmount: 40, PricePerUnit: 10, Creator: "0x00000000000000000000000000000000000000b2"},
			{ID: "t3", Name: "Hydro", EnergyAmount: 70, PricePerUnit: 12, IsVerified: true, DecryptedValue: 70, Creator: "0x00000000000000000000000000000000000000b2"},
		},
		Local:   map[string]uint64{},
		Actions: map[session.ActionKind]session.ActionStatus{},
	}
}

func TestGate(t *testing.T) {
	assert.Equal(t, GateConnectWallet, Gate(nil))

	st := readyState()
	assert.Equal(t, GateReady, Gate(&st))

	st.Loaded = false
	assert.Equal(t, GateLoading, Gate(&st))

	st.Initialized = false
	st.BootstrapFailed = true
	assert.Equal(t, GateInitializing, Gate(&st))
}

func TestSessionView(t *testing.T) {
	v := Session(nil)
	assert.Equal(t, GateConnectWallet, v.Gate)
	assert.Empty(t, v.Account)

	st := readyState()
	v = Session(&st)
	assert.Equal(t, "0x0000...00A1", v.AccountShort)
	assert.Equal(t, session.TabTrades, v.Tab)
}

func TestTrades_FilterAndSummaries(t *testing.T) {
	st := readyState()
	st.Search = "SOLAR"
	st.Local["t1"] = 150

	v := Trades(st)
	require.Len(t, v.Trades, 1)
	row := v.Trades[0]
	assert.Equal(t, "t1", row.ID)
	assert.Equal(t, "Encrypted", row.Badge)
	assert.Equal(t, "0x0000...00A1", row.CreatorShort)
	assert.Equal(t, market.DisplayLocal, row.Display.Kind)
	assert.Equal(t, int64(1700000000), row.Timestamp)
	assert.Nil(t, v.Empty)
}

func TestTrades_EmptyState(t *testing.T) {
	st := readyState()
	st.Trades = nil

	v := Trades(st)
	assert.NotNil(t, v.Trades, "encodes as [] not null")
	require.NotNil(t, v.Empty)
	assert.Equal(t, "Create First Trade", v.Empty.Action)
	assert.Equal(t, "No energy trades found", v.Empty.Message)
}

func TestDetail_DisplayAndButton(t *testing.T) {
	st := readyState()

	_, ok := Detail(st, "missing")
	assert.False(t, ok)

	d, ok := Detail(st, "t1")
	require.True(t, ok)
	assert.Equal(t, market.DisplayEncrypted, d.Display.Kind)
	assert.Nil(t, d.TotalValue)
	assert.Equal(t, "Verify Decryption", d.DecryptButton.Label)
	assert.True(t, d.CanVerify)

	st.Local["t1"] = 150
	d, _ = Detail(st, "t1")
	assert.Equal(t, "Re-verify", d.DecryptButton.Label)
	require.NotNil(t, d.TotalValue)
	assert.Equal(t, uint64(3750), *d.TotalValue)

	d, _ = Detail(st, "t3")
	assert.Equal(t, market.DisplayOnChain, d.Display.Kind)
	assert.Equal(t, "Verified", d.DecryptButton.Label)
	assert.Equal(t, uint64(840), *d.TotalValue)
	assert.False(t, d.CanVerify)

	st.Actions[session.ActionDecrypt] = session.ActionStatus{Kind: session.ActionDecrypt, State: session.StateInFlight}
	d, _ = Detail(st, "t1")
	assert.Equal(t, "Verifying...", d.DecryptButton.Label)
	assert.True(t, d.DecryptButton.Disabled)
}

func TestStats(t *testing.T) {
	st := readyState()
	v := Stats(st)
	assert.Equal(t, uint64(260), v.Stats.TotalEnergy)
	assert.Equal(t, 1, v.Stats.CompletedTrades)
	assert.Equal(t, uint64(3750), v.Stats.UserEarnings)
	assert.Equal(t, 3, v.TotalTrades)
	require.Len(t, v.Chart, 3)
	assert.Equal(t, "t3", v.Chart[0].ID, "newest first")
	assert.Equal(t, float64(100), v.Chart[2].HeightPercent, "bars cap at 100")

	st.Search = "nothing matches"
	v = Stats(st)
	assert.Zero(t, v.Stats.AvgPrice)
	assert.Len(t, v.Chart, 3)
}

func TestFAQ(t *testing.T) {
	entries := FAQ()
	require.Len(t, entries, 3)
	entries[0].Question = "changed"
	assert.NotEqual(t, "changed", FAQ()[0].Question)
}

func TestCreateModal(t *testing.T) {
	st := readyState()
	st.CreateOpen = true
	st.Draft = models.Draft{Name: "n", EnergyAmount: "150"}

	v := CreateModal(st)
	assert.True(t, v.Open)
	assert.False(t, v.CanSubmit)
	assert.True(t, v.SubmitButton.Disabled)

	st.Draft.PricePerUnit = "25"
	v = CreateModal(st)
	assert.True(t, v.CanSubmit)
	assert.Equal(t, "Create Trade", v.SubmitButton.Label)

	st.Actions[session.ActionCreate] = session.ActionStatus{State: session.StateInFlight}
	v = CreateModal(st)
	assert.True(t, v.Encrypting)
	assert.False(t, v.CanSubmit)
	assert.Equal(t, "Encrypting and Creating...", v.SubmitButton.Label)
}
