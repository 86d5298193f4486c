// Package session is the application state of one connected wallet. A
// Session lives from wallet connect to disconnect; every user action runs
// through it and is tracked by a per-kind Action state machine.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kjannette/energy-market-backend/internal/ethereum"
	"github.com/kjannette/energy-market-backend/internal/market"
	"github.com/kjannette/energy-market-backend/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	msgConnectFirst    = "Please connect wallet first"
	msgInitFailed      = "FHEVM initialization failed"
	msgLoadFailed      = "Failed to load data"
	msgCreating        = "Creating energy trade with FHE encryption..."
	msgAwaitingConfirm = "Waiting for transaction confirmation..."
	msgCreated         = "Energy trade created successfully!"
	msgRejected        = "Transaction rejected by user"
	msgSubmitFailed    = "Submission failed: "
	msgAlreadyVerified = "Data already verified on-chain"
	msgVerifying       = "Verifying decryption on-chain..."
	msgDecrypted       = "Energy data decrypted successfully!"
	msgRaceVerified    = "Data is already verified on-chain"
	msgDecryptFailed   = "Decryption failed: "
	msgAvailable       = "Contract is available and responding!"
	msgAvailFailed     = "Contract test failed"
)

type Tab string

const (
	TabTrades Tab = "trades"
	TabStats  Tab = "stats"
	TabFAQ    Tab = "faq"
)

func (t Tab) Valid() bool {
	return t == TabTrades || t == TabStats || t == TabFAQ
}

// State is a consistent copy of a session for rendering.
type State struct {
	Account         string                      `json:"account"`
	Initialized     bool                        `json:"initialized"`
	BootstrapFailed bool                        `json:"bootstrapFailed"`
	Loaded          bool                        `json:"loaded"`
	Trades          []models.Trade              `json:"trades"`
	Local           map[string]uint64           `json:"local"`
	Search          string                      `json:"search"`
	Tab             Tab                         `json:"tab"`
	CreateOpen      bool                        `json:"createOpen"`
	Draft           models.Draft                `json:"draft"`
	SelectedID      string                      `json:"selectedId,omitempty"`
	Actions         map[ActionKind]ActionStatus `json:"actions"`
}

type Session struct {
	deps    Deps
	account common.Address
	ctx     context.Context
	cancel  context.CancelFunc
	ready   chan struct{}
	actions map[ActionKind]*Action

	// cacheMu orders cache writes against the Clear in close.
	cacheMu sync.Mutex

	mu              sync.RWMutex
	closed          bool
	initialized     bool
	bootstrapFailed bool
	loaded          bool
	trades          []models.Trade
	search          string
	tab             Tab
	createOpen      bool
	draft           models.Draft
	selectedID      string
	handles         map[string]string
}

func newSession(deps Deps, account common.Address) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		deps:    deps,
		account: account,
		ctx:     ctx,
		cancel:  cancel,
		ready:   make(chan struct{}),
		actions: make(map[ActionKind]*Action, len(actionKinds)),
		tab:     TabTrades,
		handles: make(map[string]string),
	}
	for _, k := range actionKinds {
		s.actions[k] = newAction(k)
	}
	return s
}

func (s *Session) Account() common.Address { return s.account }

// Context is cancelled when the wallet disconnects. Actions started from
// the API run under it so they outlive the HTTP request.
func (s *Session) Context() context.Context { return s.ctx }

// Ready is closed once bootstrap and the first load have both finished.
func (s *Session) Ready() <-chan struct{} { return s.ready }

func (s *Session) Action(kind ActionKind) ActionStatus {
	return s.actions[kind].Status()
}

func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Session) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// start runs bootstrap and the initial load concurrently.
func (s *Session) start() {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.Bootstrap(s.ctx)
	}()
	go func() {
		defer wg.Done()
		s.LoadData(s.ctx)
	}()
	go func() {
		wg.Wait()
		close(s.ready)
	}()
}

func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.createOpen = false
	s.selectedID = ""
	s.draft = models.Draft{}
	s.trades = nil
	clear(s.handles)
	s.mu.Unlock()

	s.cancel()
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if err := s.deps.Cache.Clear(context.Background(), s.account.Hex()); err != nil {
		fmt.Printf("[SESSION] Failed to clear decryption cache for %s: %v\n", s.account.Hex(), err)
	}
}

// begin starts an action unless the session is gone or one of the same
// kind is running.
func (s *Session) begin(kind ActionKind) (*Action, error) {
	if s.Closed() {
		return nil, ErrSessionClosed
	}
	a := s.actions[kind]
	if err := a.Begin(); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Session) finish(a *Action, err error) {
	d := a.End(err)
	result := "success"
	if err != nil {
		result = "failed"
	}
	s.deps.Metrics.ObserveAction(string(a.kind), result, d)
}

// Bootstrap initializes the FHE session once per connection. A failure is
// final until the wallet reconnects.
func (s *Session) Bootstrap(ctx context.Context) error {
	if s.Initialized() {
		return nil
	}
	a, err := s.begin(ActionBootstrap)
	if err != nil {
		return err
	}

	err = s.deps.FHE.Initialize(ctx, s.deps.Reader.Address(), s.account)
	if s.Closed() {
		s.finish(a, ErrSessionClosed)
		return ErrSessionClosed
	}
	if err != nil {
		fmt.Printf("[SESSION] FHE initialization failed for %s: %v\n", s.account.Hex(), err)
		s.mu.Lock()
		s.bootstrapFailed = true
		s.mu.Unlock()
		s.deps.Status.Error(msgInitFailed)
		s.finish(a, err)
		return err
	}

	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()
	fmt.Printf("[SESSION] FHE ready for %s\n", s.account.Hex())
	s.finish(a, nil)
	return nil
}

// LoadData replaces the trade list with a fresh read of every record.
// Records that fail to load are logged and skipped.
func (s *Session) LoadData(ctx context.Context) error {
	a, err := s.begin(ActionRefresh)
	if err != nil {
		return err
	}

	trades, err := s.fetchTrades(ctx)
	if s.Closed() {
		s.finish(a, ErrSessionClosed)
		return ErrSessionClosed
	}

	s.mu.Lock()
	s.loaded = true
	if err == nil {
		for i := range trades {
			if h, ok := s.handles[trades[i].ID]; ok {
				trades[i].EncryptedValueHandle = &h
			}
		}
		s.trades = trades
	}
	s.mu.Unlock()

	if err != nil {
		fmt.Printf("[LOAD] Failed to load data: %v\n", err)
		s.deps.Status.Error(msgLoadFailed)
		s.finish(a, err)
		return err
	}

	s.deps.Metrics.SetTradesLoaded(len(trades))
	if s.deps.Snapshots != nil {
		if err := s.deps.Snapshots.SaveAll(ctx, trades); err != nil {
			fmt.Printf("[LOAD] Snapshot save failed: %v\n", err)
		}
	}
	fmt.Printf("[LOAD] Loaded %d trades\n", len(trades))
	s.finish(a, nil)
	return nil
}

func (s *Session) fetchTrades(ctx context.Context) ([]models.Trade, error) {
	ids, err := s.deps.Reader.GetAllBusinessIDs(ctx)
	if err != nil {
		return nil, err
	}

	// slots keep id order regardless of completion order
	slots := make([]*models.Trade, len(ids))
	var g errgroup.Group
	g.SetLimit(s.deps.LoadConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			bd, err := s.deps.Reader.GetBusinessData(ctx, id)
			if err != nil {
				fmt.Printf("[LOAD] Error loading trade data %s: %v\n", id, err)
				s.deps.Metrics.RecordFetchFailure()
				return nil
			}
			t := bd.ToTrade(id)
			slots[i] = &t
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	trades := make([]models.Trade, 0, len(ids))
	for _, t := range slots {
		if t != nil {
			trades = append(trades, *t)
		}
	}
	return trades, nil
}

// reload refreshes after a write; a load already running is good enough.
func (s *Session) reload(ctx context.Context) {
	if err := s.LoadData(ctx); err != nil && !errors.Is(err, ErrActionInFlight) && !errors.Is(err, ErrSessionClosed) {
		fmt.Printf("[SESSION] Reload after write failed: %v\n", err)
	}
}

// --- create modal ---

func (s *Session) OpenCreate() {
	s.mu.Lock()
	s.createOpen = true
	s.mu.Unlock()
}

// CloseCreate closes the modal and discards the draft.
func (s *Session) CloseCreate() {
	s.mu.Lock()
	s.createOpen = false
	s.draft = models.Draft{}
	s.mu.Unlock()
}

// UpdateDraft stores the form, keeping only digits in numeric fields.
func (s *Session) UpdateDraft(d models.Draft) models.Draft {
	d.EnergyAmount = market.SanitizeDigits(d.EnergyAmount)
	d.PricePerUnit = market.SanitizeDigits(d.PricePerUnit)
	s.mu.Lock()
	s.draft = d
	s.mu.Unlock()
	return d
}

func (s *Session) Draft() (models.Draft, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draft, s.createOpen
}

// CreateTrade encrypts the draft's energy amount, submits it with the
// public price and waits for confirmation. On failure the modal and draft
// are left as they were.
func (s *Session) CreateTrade(ctx context.Context) (*models.Trade, error) {
	draft, _ := s.Draft()
	if !draft.Complete() {
		return nil, ErrInvalidDraft
	}
	a, err := s.begin(ActionCreate)
	if err != nil {
		return nil, err
	}

	trade, txHash, err := s.submitTrade(ctx, draft)
	if s.Closed() {
		s.finish(a, ErrSessionClosed)
		return nil, ErrSessionClosed
	}
	if err != nil {
		msg := msgSubmitFailed + err.Error()
		if ethereum.IsUserRejected(err) {
			msg = msgRejected
		}
		fmt.Printf("[SESSION] Create trade failed: %v\n", err)
		s.deps.Status.Error(msg)
		s.finish(a, err)
		return nil, err
	}

	s.deps.Status.Success(msgCreated)
	s.reload(ctx)

	s.mu.Lock()
	s.createOpen = false
	s.draft = models.Draft{}
	s.mu.Unlock()

	if s.deps.Notifier != nil {
		go s.deps.Notifier.TradeCreated(context.WithoutCancel(ctx), trade.ID, trade.Name, trade.PricePerUnit, txHash)
	}
	s.finish(a, nil)
	return trade, nil
}

func (s *Session) submitTrade(ctx context.Context, draft models.Draft) (*models.Trade, string, error) {
	if !s.Initialized() {
		return nil, "", ErrNotInitialized
	}
	energy, err := parseAmount("energy amount", draft.EnergyAmount)
	if err != nil {
		return nil, "", err
	}
	price, err := parseAmount("price per unit", draft.PricePerUnit)
	if err != nil {
		return nil, "", err
	}

	if s.deps.Guard != nil {
		if err := s.deps.Guard.PreTradeCheck(ctx, s.account.Hex(), energy, price); err != nil {
			return nil, "", err
		}
	}

	s.deps.Status.Pending(msgCreating)

	contract := s.deps.Reader.Address()
	enc, err := s.deps.FHE.Encrypt(ctx, contract, s.account, energy)
	if err != nil {
		return nil, "", err
	}

	now := s.deps.Now()
	id := fmt.Sprintf("energy-trade-%d", now.UnixMilli())
	tx, err := s.deps.Writer.CreateBusinessData(ctx, ethereum.CreateBusinessInput{
		BusinessID:     id,
		Name:           draft.Name,
		EncryptedValue: enc.Handle,
		InputProof:     enc.Proof,
		PublicValue1:   energy,
		PublicValue2:   price,
		Description:    draft.Description,
	})
	if err != nil {
		return nil, "", err
	}

	s.deps.Status.Pending(msgAwaitingConfirm)
	if _, err := s.deps.Writer.WaitMined(ctx, tx); err != nil {
		return nil, "", err
	}

	fmt.Printf("[SESSION] Created %s (tx %s)\n", id, tx.Hash().Hex())
	return &models.Trade{
		ID:           id,
		Name:         draft.Name,
		EnergyAmount: energy,
		PricePerUnit: price,
		Description:  draft.Description,
		Timestamp:    now.UTC(),
		Creator:      s.account.Hex(),
	}, tx.Hash().Hex(), nil
}

// parseAmount reads a sanitized digit string. Values past uint64 are an
// error rather than a silent 0.
func parseAmount(field, s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, &AmountError{Field: field, Value: s}
		}
		return 0, fmt.Errorf("invalid %s %q", field, s)
	}
	return n, nil
}

// --- detail / decryption ---

func (s *Session) SelectTrade(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := market.FindTrade(s.trades, id); !ok {
		return ErrTradeNotFound
	}
	s.selectedID = id
	return nil
}

func (s *Session) CloseDetail() {
	s.mu.Lock()
	s.selectedID = ""
	s.mu.Unlock()
}

func (s *Session) trade(id string) (models.Trade, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return market.FindTrade(s.trades, id)
}

// LocalValue returns the locally verified clear value for id, if any.
func (s *Session) LocalValue(ctx context.Context, id string) (uint64, bool) {
	v, ok, err := s.deps.Cache.Get(ctx, s.account.Hex(), id)
	if err != nil {
		fmt.Printf("[SESSION] Cache read failed for %s: %v\n", id, err)
		return 0, false
	}
	return v, ok
}

// ToggleDecrypt clears a local value without touching the network, or
// runs DecryptData when there is none.
func (s *Session) ToggleDecrypt(ctx context.Context, id string) (*uint64, error) {
	if _, ok := s.LocalValue(ctx, id); ok {
		if err := s.deps.Cache.Delete(ctx, s.account.Hex(), id); err != nil {
			return nil, fmt.Errorf("clear local value: %w", err)
		}
		return nil, nil
	}
	return s.DecryptData(ctx, id)
}

// DecryptData returns the verified clear energy amount for id.
//
// A record already verified on-chain is returned as is, without FHE work.
// Otherwise the relayer decrypts the handle and the proof is submitted to
// the contract; the value is only trusted once that transaction confirms.
// If someone else verified the record in the meantime the contract's value
// wins: the list is reloaded and nil is returned without error.
func (s *Session) DecryptData(ctx context.Context, id string) (*uint64, error) {
	a, err := s.begin(ActionDecrypt)
	if err != nil {
		return nil, err
	}

	v, err := s.decrypt(ctx, id)
	if s.Closed() {
		s.finish(a, ErrSessionClosed)
		return nil, ErrSessionClosed
	}

	switch {
	case err == nil:
		if v != nil && !s.remember(ctx, id, *v) {
			s.finish(a, ErrSessionClosed)
			return nil, ErrSessionClosed
		}
		s.finish(a, nil)
		return v, nil
	case ethereum.IsAlreadyVerified(err):
		s.deps.Status.Success(msgRaceVerified)
		s.reload(ctx)
		s.finish(a, nil)
		return nil, nil
	default:
		fmt.Printf("[SESSION] Decryption of %s failed: %v\n", id, err)
		s.deps.Status.Error(msgDecryptFailed + err.Error())
		s.finish(a, err)
		return nil, err
	}
}

// remember caches a locally verified value unless the session has been
// torn down, in which case close has already cleared or is about to clear.
func (s *Session) remember(ctx context.Context, id string, v uint64) bool {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.Closed() {
		return false
	}
	if err := s.deps.Cache.Set(ctx, s.account.Hex(), id, v); err != nil {
		fmt.Printf("[SESSION] Cache write failed for %s: %v\n", id, err)
	}
	return true
}

func (s *Session) decrypt(ctx context.Context, id string) (*uint64, error) {
	if t, ok := s.trade(id); ok && t.IsVerified {
		s.deps.Status.Success(msgAlreadyVerified)
		v := t.DecryptedValue
		return &v, nil
	}

	bd, err := s.deps.Reader.GetBusinessData(ctx, id)
	if err != nil {
		return nil, err
	}
	if bd.IsVerified {
		s.deps.Status.Success(msgAlreadyVerified)
		v := bd.DecryptedValue
		return &v, nil
	}

	handle, err := s.deps.Reader.GetEncryptedValue(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.handles[id] = handle.Hex()
	s.mu.Unlock()

	contract := s.deps.Reader.Address()
	values, err := s.deps.FHE.VerifyDecryption(ctx, []common.Hash{handle}, contract,
		func(ctx context.Context, clearValues, proof []byte) error {
			tx, err := s.deps.Writer.VerifyDecryption(ctx, id, clearValues, proof)
			if err != nil {
				return err
			}
			_, err = s.deps.Writer.WaitMined(ctx, tx)
			return err
		})
	if err != nil {
		return nil, err
	}

	s.deps.Status.Pending(msgVerifying)
	v := values[handle]

	s.reload(ctx)
	s.deps.Status.Success(msgDecrypted)

	if s.deps.Verifications != nil {
		_, err := s.deps.Verifications.Record(ctx, &models.Verification{
			BusinessID: id,
			Account:    s.account.Hex(),
			ClearValue: v,
			Handle:     handle.Hex(),
		})
		if err != nil {
			fmt.Printf("[SESSION] Verification log write failed: %v\n", err)
		}
	}
	if s.deps.Notifier != nil {
		go s.deps.Notifier.TradeVerified(context.WithoutCancel(ctx), id, s.account.Hex())
	}
	return &v, nil
}

// --- navigation ---

func (s *Session) SetSearch(term string) {
	s.mu.Lock()
	s.search = term
	s.mu.Unlock()
}

func (s *Session) SetTab(tab Tab) error {
	if !tab.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTab, tab)
	}
	s.mu.Lock()
	s.tab = tab
	s.mu.Unlock()
	return nil
}

// State copies everything a view needs. Local values are read through the
// decryption cache.
func (s *Session) State(ctx context.Context) State {
	s.mu.RLock()
	st := State{
		Account:         s.account.Hex(),
		Initialized:     s.initialized,
		BootstrapFailed: s.bootstrapFailed,
		Loaded:          s.loaded,
		Trades:          append([]models.Trade(nil), s.trades...),
		Search:          s.search,
		Tab:             s.tab,
		CreateOpen:      s.createOpen,
		Draft:           s.draft,
		SelectedID:      s.selectedID,
	}
	s.mu.RUnlock()

	st.Local = make(map[string]uint64)
	for _, t := range st.Trades {
		if v, ok := s.LocalValue(ctx, t.ID); ok {
			st.Local[t.ID] = v
		}
	}
	st.Actions = make(map[ActionKind]ActionStatus, len(s.actions))
	for k, a := range s.actions {
		st.Actions[k] = a.Status()
	}
	return st
}
