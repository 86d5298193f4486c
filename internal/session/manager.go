package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kjannette/energy-market-backend/internal/wallet"
)

// Manager owns the current Session and swaps it on wallet events.
type Manager struct {
	deps Deps

	mu      sync.RWMutex
	current *Session
	onStart []func(*Session)
}

func NewManager(deps Deps) *Manager {
	deps.defaults()
	return &Manager{deps: deps}
}

// OnSessionStart registers fn to run after each new session is created.
func (m *Manager) OnSessionStart(fn func(*Session)) {
	m.mu.Lock()
	m.onStart = append(m.onStart, fn)
	m.mu.Unlock()
}

// HandleWalletEvent is subscribed to the wallet connector.
func (m *Manager) HandleWalletEvent(e wallet.Event) {
	switch e.Kind {
	case wallet.EventConnected:
		m.Connect(e.Address)
	case wallet.EventDisconnected:
		m.Disconnect()
	}
}

// Connect tears down any previous session and starts a new one for account.
func (m *Manager) Connect(account common.Address) *Session {
	s := newSession(m.deps, account)

	m.mu.Lock()
	prev := m.current
	m.current = s
	hooks := append([]func(*Session){}, m.onStart...)
	m.mu.Unlock()

	if prev != nil {
		m.teardown(prev)
	}

	fmt.Printf("[SESSION] Started for %s\n", account.Hex())
	m.deps.Metrics.SetSessionActive(true)
	s.start()
	for _, fn := range hooks {
		fn(s)
	}
	return s
}

func (m *Manager) Disconnect() {
	m.mu.Lock()
	prev := m.current
	m.current = nil
	m.mu.Unlock()

	if prev != nil {
		m.teardown(prev)
		m.deps.Metrics.SetSessionActive(false)
	}
}

func (m *Manager) teardown(s *Session) {
	s.close()
	m.deps.FHE.Reset()
	fmt.Printf("[SESSION] Closed for %s\n", s.account.Hex())
}

// Current returns the live session or nil.
func (m *Manager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Require returns the live session, or shows the connect prompt.
func (m *Manager) Require() (*Session, error) {
	s := m.Current()
	if s == nil {
		m.deps.Status.Error(msgConnectFirst)
		return nil, ErrNotConnected
	}
	return s, nil
}

// Refresh reloads the live session's trades. It does nothing while
// disconnected or when a load is already running, and is cut short if the
// session ends.
func (m *Manager) Refresh(ctx context.Context) error {
	s := m.Current()
	if s == nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.Context(), cancel)
	defer stop()

	err := s.LoadData(ctx)
	if errors.Is(err, ErrActionInFlight) || errors.Is(err, ErrSessionClosed) {
		return nil
	}
	return err
}

// TestAvailability probes the contract. Any answer counts as available.
func (m *Manager) TestAvailability(ctx context.Context) (bool, error) {
	ok, err := m.deps.Reader.IsAvailable(ctx)
	if err != nil {
		fmt.Printf("[SESSION] Availability probe failed: %v\n", err)
		m.deps.Status.Error(msgAvailFailed)
		return false, err
	}
	m.deps.Status.Success(msgAvailable)
	return ok, nil
}

// Close ends the live session, if any.
func (m *Manager) Close() {
	m.Disconnect()
}
