// Package views turns a session snapshot into the JSON view models the
// browser paints.
package views

import (
	"github.com/kjannette/energy-market-backend/internal/market"
	"github.com/kjannette/energy-market-backend/internal/models"
	"github.com/kjannette/energy-market-backend/internal/session"
)

type GateState string

const (
	GateConnectWallet GateState = "connect_wallet"
	GateInitializing  GateState = "initializing"
	GateLoading       GateState = "loading"
	GateReady         GateState = "ready"
)

// Gate picks the full-screen state. st is nil when no wallet is connected.
// A failed bootstrap stays on initializing until the wallet reconnects.
func Gate(st *session.State) GateState {
	switch {
	case st == nil:
		return GateConnectWallet
	case !st.Initialized:
		return GateInitializing
	case !st.Loaded:
		return GateLoading
	default:
		return GateReady
	}
}

type SessionView struct {
	Gate            GateState                                   `json:"gate"`
	Account         string                                      `json:"account,omitempty"`
	AccountShort    string                                      `json:"accountShort,omitempty"`
	BootstrapFailed bool                                        `json:"bootstrapFailed"`
	Tab             session.Tab                                 `json:"tab,omitempty"`
	Search          string                                      `json:"search"`
	CreateOpen      bool                                        `json:"createOpen"`
	SelectedID      string                                      `json:"selectedId,omitempty"`
	Actions         map[session.ActionKind]session.ActionStatus `json:"actions,omitempty"`
}

func Session(st *session.State) SessionView {
	v := SessionView{Gate: Gate(st)}
	if st == nil {
		return v
	}
	v.Account = st.Account
	v.AccountShort = market.ShortAddress(st.Account)
	v.BootstrapFailed = st.BootstrapFailed
	v.Tab = st.Tab
	v.Search = st.Search
	v.CreateOpen = st.CreateOpen
	v.SelectedID = st.SelectedID
	v.Actions = st.Actions
	return v
}

// TradeSummary is one row of the trade list.
type TradeSummary struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	EnergyAmount uint64         `json:"energyAmount"`
	PricePerUnit uint64         `json:"pricePerUnit"`
	IsVerified   bool           `json:"isVerified"`
	Badge        string         `json:"badge"`
	Creator      string         `json:"creator"`
	CreatorShort string         `json:"creatorShort"`
	Timestamp    int64          `json:"timestamp"`
	Display      market.Display `json:"display"`
}

type EmptyState struct {
	Message string `json:"message"`
	Action  string `json:"action"`
}

type TradesView struct {
	Search     string         `json:"search"`
	Refreshing bool           `json:"refreshing"`
	Trades     []TradeSummary `json:"trades"`
	Empty      *EmptyState    `json:"empty,omitempty"`
}

func Trades(st session.State) TradesView {
	filtered := market.Filter(st.Trades, st.Search)
	v := TradesView{
		Search:     st.Search,
		Refreshing: st.Actions[session.ActionRefresh].State == session.StateInFlight,
		Trades:     make([]TradeSummary, 0, len(filtered)),
	}
	for _, t := range filtered {
		v.Trades = append(v.Trades, summarize(t, localValue(st, t.ID)))
	}
	if len(v.Trades) == 0 {
		v.Empty = &EmptyState{Message: "No energy trades found", Action: "Create First Trade"}
	}
	return v
}

func summarize(t models.Trade, local *uint64) TradeSummary {
	badge := "Encrypted"
	if t.IsVerified {
		badge = "Verified"
	}
	return TradeSummary{
		ID:           t.ID,
		Name:         t.Name,
		EnergyAmount: t.EnergyAmount,
		PricePerUnit: t.PricePerUnit,
		IsVerified:   t.IsVerified,
		Badge:        badge,
		Creator:      t.Creator,
		CreatorShort: market.ShortAddress(t.Creator),
		Timestamp:    t.Timestamp.Unix(),
		Display:      market.SelectDisplay(t, local),
	}
}

func localValue(st session.State, id string) *uint64 {
	v, ok := st.Local[id]
	if !ok {
		return nil
	}
	return &v
}

type Button struct {
	Label    string `json:"label"`
	Disabled bool   `json:"disabled"`
}

// DetailView is the trade-detail modal.
type DetailView struct {
	Trade        models.Trade   `json:"trade"`
	CreatorShort string         `json:"creatorShort"`
	Display      market.Display `json:"display"`
	// TotalValue is energy x price, present only when a clear value is shown.
	TotalValue    *uint64 `json:"totalValue,omitempty"`
	DecryptButton Button  `json:"decryptButton"`
	CanVerify     bool    `json:"canVerify"`
}

// Detail renders the modal for id. ok is false when id is not in the list.
func Detail(st session.State, id string) (DetailView, bool) {
	t, ok := market.FindTrade(st.Trades, id)
	if !ok {
		return DetailView{}, false
	}
	local := localValue(st, id)
	d := market.SelectDisplay(t, local)
	v := DetailView{
		Trade:        t,
		CreatorShort: market.ShortAddress(t.Creator),
		Display:      d,
		CanVerify:    !t.IsVerified,
	}
	if d.Value != nil {
		total := t.TotalValue(*d.Value)
		v.TotalValue = &total
	}

	decrypting := st.Actions[session.ActionDecrypt].State == session.StateInFlight
	v.DecryptButton = Button{Disabled: decrypting}
	switch {
	case decrypting:
		v.DecryptButton.Label = "Verifying..."
	case t.IsVerified:
		v.DecryptButton.Label = "Verified"
	case local != nil:
		v.DecryptButton.Label = "Re-verify"
	default:
		v.DecryptButton.Label = "Verify Decryption"
	}
	return v, true
}

type StatsView struct {
	Stats       models.TradeStats `json:"stats"`
	TotalTrades int               `json:"totalTrades"`
	Chart       []market.ChartBar `json:"chart"`
}

// Stats follows the search filter; the chart always shows the latest trades.
func Stats(st session.State) StatsView {
	filtered := market.Filter(st.Trades, st.Search)
	return StatsView{
		Stats:       market.ComputeStats(filtered, st.Account),
		TotalTrades: len(st.Trades),
		Chart:       market.Chart(st.Trades),
	}
}

type FAQEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

var faq = []FAQEntry{
	{
		Question: "How does FHE protect my energy data?",
		Answer:   "Your energy production and consumption data is encrypted using Fully Homomorphic Encryption, allowing computations without revealing actual values.",
	},
	{
		Question: "Is my lifestyle pattern secure?",
		Answer:   "Yes! FHE ensures that your daily energy patterns remain private while still enabling efficient P2P energy trading with neighbors.",
	},
	{
		Question: "How are trades matched automatically?",
		Answer:   "Our system uses homomorphic computations to match energy supply and demand without decrypting sensitive personal data.",
	},
}

func FAQ() []FAQEntry {
	return append([]FAQEntry(nil), faq...)
}

// CreateModalView is the create-trade form.
type CreateModalView struct {
	Open         bool         `json:"open"`
	Draft        models.Draft `json:"draft"`
	Encrypting   bool         `json:"encrypting"`
	CanSubmit    bool         `json:"canSubmit"`
	SubmitButton Button       `json:"submitButton"`
}

func CreateModal(st session.State) CreateModalView {
	encrypting := st.Actions[session.ActionCreate].State == session.StateInFlight
	can := st.Draft.Complete() && !encrypting
	label := "Create Trade"
	if encrypting {
		label = "Encrypting and Creating..."
	}
	return CreateModalView{
		Open:         st.CreateOpen,
		Draft:        st.Draft,
		Encrypting:   encrypting,
		CanSubmit:    can,
		SubmitButton: Button{Label: label, Disabled: !can},
	}
}
