package session

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/kjannette/energy-market-backend/internal/ethereum"
	"github.com/kjannette/energy-market-backend/internal/fhe"
	"github.com/kjannette/energy-market-backend/internal/models"
)

var (
	testContract = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	testAccount  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
)

// fakeChain is an in-memory market contract.
type fakeChain struct {
	mu        sync.Mutex
	ids       []string
	records   map[string]*models.BusinessData
	handles   map[string]common.Hash
	fetchErrs map[string]error

	idsErr     error
	createErr  error
	verifyErr  error
	availErr   error
	blockIDs   chan struct{}
	dataCalls  atomic.Int32
	inFlight   atomic.Int32
	maxFlight  atomic.Int32
	created    []ethereum.CreateBusinessInput
	verifiedBy string
	// raceValue, when set, makes another party win the verification race.
	raceValue uint64
}

var (
	_ ethereum.MarketReader = (*fakeChain)(nil)
	_ ethereum.MarketWriter = (*fakeChain)(nil)
)

func newFakeChain() *fakeChain {
	return &fakeChain{
		records:   make(map[string]*models.BusinessData),
		handles:   make(map[string]common.Hash),
		fetchErrs: make(map[string]error),
	}
}

func (c *fakeChain) add(id string, bd models.BusinessData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, id)
	c.records[id] = &bd
	c.handles[id] = common.BytesToHash([]byte(id))
}

func (c *fakeChain) Address() common.Address { return testContract }

func (c *fakeChain) GetAllBusinessIDs(ctx context.Context) ([]string, error) {
	if c.blockIDs != nil {
		select {
		case <-c.blockIDs:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.idsErr != nil {
		return nil, c.idsErr
	}
	return append([]string(nil), c.ids...), nil
}

func (c *fakeChain) GetBusinessData(_ context.Context, id string) (*models.BusinessData, error) {
	c.dataCalls.Add(1)
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		m := c.maxFlight.Load()
		if n <= m || c.maxFlight.CompareAndSwap(m, n) {
			break
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fetchErrs[id]; err != nil {
		return nil, err
	}
	bd, ok := c.records[id]
	if !ok {
		return nil, errors.New("execution reverted: Business not found")
	}
	cp := *bd
	return &cp, nil
}

func (c *fakeChain) GetEncryptedValue(_ context.Context, id string) (common.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handles[id], nil
}

func (c *fakeChain) IsAvailable(context.Context) (bool, error) {
	return c.availErr == nil, c.availErr
}

func (c *fakeChain) CreateBusinessData(_ context.Context, in ethereum.CreateBusinessInput) (*types.Transaction, error) {
	if c.createErr != nil {
		return nil, c.createErr
	}
	c.mu.Lock()
	c.created = append(c.created, in)
	c.mu.Unlock()
	c.add(in.BusinessID, models.BusinessData{
		Name:         in.Name,
		PublicValue1: in.PublicValue1,
		PublicValue2: in.PublicValue2,
		Description:  in.Description,
		Creator:      testAccount.Hex(),
		Timestamp:    1700000000,
	})
	return testTx(), nil
}

// VerifyDecryption accepts the first proof for a record; the clear value
// is the single byte the fake relayer encodes.
func (c *fakeChain) VerifyDecryption(_ context.Context, id string, clearValues, _ []byte) (*types.Transaction, error) {
	if c.verifyErr != nil {
		return nil, c.verifyErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	bd := c.records[id]
	if c.raceValue != 0 {
		bd.IsVerified = true
		bd.DecryptedValue = c.raceValue
	}
	if bd.IsVerified {
		return nil, fmt.Errorf("verifyDecryption: %w", ethereum.ErrAlreadyVerified)
	}
	bd.IsVerified = true
	bd.DecryptedValue = new(big.Int).SetBytes(clearValues).Uint64()
	c.verifiedBy = id
	return testTx(), nil
}

func (c *fakeChain) WaitMined(context.Context, *types.Transaction) (*types.Receipt, error) {
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(1)}, nil
}

func testTx() *types.Transaction {
	return types.NewTransaction(0, testContract, big.NewInt(0), 21000, big.NewInt(1), nil)
}

// fakeFHE returns fixed clear values per handle.
type fakeFHE struct {
	mu          sync.Mutex
	initErr     error
	encryptErr  error
	blockInit   chan struct{}
	plain       map[common.Hash]uint64
	user        *common.Address
	initCalls   atomic.Int32
	encCalls    atomic.Int32
	verifyCalls atomic.Int32
	resets      atomic.Int32
}

var _ fhe.Client = (*fakeFHE)(nil)

func newFakeFHE() *fakeFHE {
	return &fakeFHE{plain: make(map[common.Hash]uint64)}
}

func (f *fakeFHE) Initialize(ctx context.Context, _, user common.Address) error {
	f.initCalls.Add(1)
	if f.blockInit != nil {
		select {
		case <-f.blockInit:
		case <-ctx.Done():
		}
	}
	if f.initErr != nil {
		return f.initErr
	}
	f.mu.Lock()
	f.user = &user
	f.mu.Unlock()
	return nil
}

func (f *fakeFHE) Encrypt(_ context.Context, _, user common.Address, value uint64) (*fhe.EncryptedInput, error) {
	f.encCalls.Add(1)
	if f.encryptErr != nil {
		return nil, f.encryptErr
	}
	return &fhe.EncryptedInput{Handle: common.BigToHash(new(big.Int).SetUint64(value)), Proof: []byte{0x01}}, nil
}

func (f *fakeFHE) VerifyDecryption(ctx context.Context, handles []common.Hash, _ common.Address, submit fhe.SubmitFunc) (map[common.Hash]uint64, error) {
	f.verifyCalls.Add(1)
	out := make(map[common.Hash]uint64)
	f.mu.Lock()
	for _, h := range handles {
		out[h] = f.plain[h]
	}
	f.mu.Unlock()
	v := out[handles[0]]
	if err := submit(ctx, new(big.Int).SetUint64(v).Bytes(), []byte{0xaa}); err != nil {
		return nil, err
	}
	return out, nil
}

func (f *fakeFHE) Reset() {
	f.resets.Add(1)
	f.mu.Lock()
	f.user = nil
	f.mu.Unlock()
}

func (f *fakeFHE) calls() int32 {
	return f.initCalls.Load() + f.encCalls.Load() + f.verifyCalls.Load()
}

type toast struct {
	kind models.StatusKind
	msg  string
}

type toastRecorder struct {
	mu  sync.Mutex
	all []toast
}

func (r *toastRecorder) add(k models.StatusKind, msg string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, toast{k, msg})
	return msg
}

func (r *toastRecorder) Pending(msg string) string { return r.add(models.StatusPending, msg) }
func (r *toastRecorder) Success(msg string) string { return r.add(models.StatusSuccess, msg) }
func (r *toastRecorder) Error(msg string) string   { return r.add(models.StatusError, msg) }

func (r *toastRecorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.all))
	for i, t := range r.all {
		out[i] = t.msg
	}
	return out
}

func (r *toastRecorder) last() toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.all) == 0 {
		return toast{}
	}
	return r.all[len(r.all)-1]
}

type recordingStore struct {
	mu     sync.Mutex
	saves  int
	last   []models.Trade
	logged []models.Verification
}

func (s *recordingStore) SaveAll(_ context.Context, trades []models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	s.last = trades
	return nil
}

func (s *recordingStore) Record(_ context.Context, v *models.Verification) (*models.Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logged = append(s.logged, *v)
	return v, nil
}

type blockingGuard struct{ err error }

func (g blockingGuard) PreTradeCheck(context.Context, string, uint64, uint64) error { return g.err }
