// Package wallet is the local wallet connector: it owns the signing key,
// tracks connection state, and gates every signature behind an optional
// approve/reject step.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/kjannette/energy-market-backend/internal/ethereum"
)

var (
	ErrNotConnected     = errors.New("wallet not connected")
	ErrNoKey            = errors.New("no wallet key configured")
	ErrApprovalNotFound = errors.New("approval request not found")
)

type EventKind string

const (
	EventConnected    EventKind = "connected"
	EventDisconnected EventKind = "disconnected"
)

type Event struct {
	Kind    EventKind
	Address common.Address
}

// State is what the UI sees of the wallet.
type State struct {
	Address     string `json:"address"`
	IsConnected bool   `json:"isConnected"`
}

type Options struct {
	PrivateKeyHex   string
	KeystorePath    string
	Passphrase      string
	RequireApproval bool
}

// ApprovalRequest describes a transaction waiting for the user.
type ApprovalRequest struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	Value     string    `json:"value"`
	DataBytes int       `json:"dataBytes"`
	Nonce     uint64    `json:"nonce"`
	CreatedAt time.Time `json:"createdAt"`
}

type pendingApproval struct {
	req      ApprovalRequest
	decision chan bool
}

type Connector struct {
	opts Options

	mu        sync.Mutex
	key       *ecdsa.PrivateKey
	address   common.Address
	connected bool
	pending   map[string]*pendingApproval
	subs      []func(Event)
}

var _ ethereum.Signer = (*Connector)(nil)

func NewConnector(opts Options) *Connector {
	return &Connector{
		opts:    opts,
		pending: make(map[string]*pendingApproval),
	}
}

// HasKey reports whether Connect can succeed.
func (c *Connector) HasKey() bool {
	return c.opts.PrivateKeyHex != "" || c.opts.KeystorePath != ""
}

// Subscribe registers fn for connect/disconnect events. Handlers run
// synchronously on the goroutine that changed the state.
func (c *Connector) Subscribe(fn func(Event)) {
	c.mu.Lock()
	c.subs = append(c.subs, fn)
	c.mu.Unlock()
}

func (c *Connector) Connect() (common.Address, error) {
	c.mu.Lock()
	if c.connected {
		addr := c.address
		c.mu.Unlock()
		return addr, nil
	}
	if c.key == nil {
		key, err := c.loadKey()
		if err != nil {
			c.mu.Unlock()
			return common.Address{}, err
		}
		c.key = key
		c.address = crypto.PubkeyToAddress(key.PublicKey)
	}
	c.connected = true
	addr := c.address
	subs := append([]func(Event){}, c.subs...)
	c.mu.Unlock()

	fmt.Printf("[WALLET] Connected %s\n", addr.Hex())
	for _, fn := range subs {
		fn(Event{Kind: EventConnected, Address: addr})
	}
	return addr, nil
}

func (c *Connector) Disconnect() {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	c.connected = false
	addr := c.address
	for id, p := range c.pending {
		p.decision <- false
		delete(c.pending, id)
	}
	subs := append([]func(Event){}, c.subs...)
	c.mu.Unlock()

	fmt.Printf("[WALLET] Disconnected %s\n", addr.Hex())
	for _, fn := range subs {
		fn(Event{Kind: EventDisconnected, Address: addr})
	}
}

func (c *Connector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return State{}
	}
	return State{Address: c.address.Hex(), IsConnected: true}
}

// Address implements ethereum.Signer.
func (c *Connector) Address() (common.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return common.Address{}, ErrNotConnected
	}
	return c.address, nil
}

// SignTx implements ethereum.Signer. With approvals enabled it blocks until
// the request is approved, rejected, the wallet disconnects or ctx ends.
func (c *Connector) SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	key := c.key
	var p *pendingApproval
	if c.opts.RequireApproval {
		p = c.enqueueLocked(tx)
	}
	c.mu.Unlock()

	if p != nil {
		fmt.Printf("[WALLET] Waiting for approval %s (to %s)\n", p.req.ID, p.req.To)
		select {
		case ok := <-p.decision:
			if !ok {
				return nil, ethereum.ErrUserRejected
			}
		case <-ctx.Done():
			c.mu.Lock()
			delete(c.pending, p.req.ID)
			c.mu.Unlock()
			return nil, ctx.Err()
		}
	}

	return types.SignTx(tx, types.NewEIP155Signer(chainID), key)
}

func (c *Connector) enqueueLocked(tx *types.Transaction) *pendingApproval {
	to := ""
	if tx.To() != nil {
		to = tx.To().Hex()
	}
	p := &pendingApproval{
		req: ApprovalRequest{
			ID:        uuid.NewString(),
			To:        to,
			Value:     tx.Value().String(),
			DataBytes: len(tx.Data()),
			Nonce:     tx.Nonce(),
			CreatedAt: time.Now().UTC(),
		},
		decision: make(chan bool, 1),
	}
	c.pending[p.req.ID] = p
	return p
}

// Pending lists approval requests oldest first.
func (c *Connector) Pending() []ApprovalRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ApprovalRequest, 0, len(c.pending))
	for _, p := range c.pending {
		out = append(out, p.req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (c *Connector) Approve(id string) error { return c.decide(id, true) }
func (c *Connector) Reject(id string) error  { return c.decide(id, false) }

func (c *Connector) decide(id string, ok bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, found := c.pending[id]
	if !found {
		return ErrApprovalNotFound
	}
	delete(c.pending, id)
	p.decision <- ok
	return nil
}

func (c *Connector) loadKey() (*ecdsa.PrivateKey, error) {
	switch {
	case c.opts.PrivateKeyHex != "":
		pk, err := crypto.HexToECDSA(strings.TrimPrefix(c.opts.PrivateKeyHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		return pk, nil
	case c.opts.KeystorePath != "":
		raw, err := os.ReadFile(c.opts.KeystorePath)
		if err != nil {
			return nil, fmt.Errorf("read keystore: %w", err)
		}
		k, err := keystore.DecryptKey(raw, c.opts.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("decrypt keystore: %w", err)
		}
		return k.PrivateKey, nil
	default:
		return nil, ErrNoKey
	}
}
