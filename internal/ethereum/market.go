package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/kjannette/energy-market-backend/internal/models"
)

const explorerTxPrefix = "https://sepolia.etherscan.io/tx/"

// MarketReader is the read-only contract handle.
type MarketReader interface {
	Address() common.Address
	GetAllBusinessIDs(ctx context.Context) ([]string, error)
	GetBusinessData(ctx context.Context, id string) (*models.BusinessData, error)
	GetEncryptedValue(ctx context.Context, id string) (common.Hash, error)
	IsAvailable(ctx context.Context) (bool, error)
}

// MarketWriter is the signer-bound contract handle.
type MarketWriter interface {
	CreateBusinessData(ctx context.Context, in CreateBusinessInput) (*types.Transaction, error)
	VerifyDecryption(ctx context.Context, id string, clearValues, proof []byte) (*types.Transaction, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

type CreateBusinessInput struct {
	BusinessID     string
	Name           string
	EncryptedValue common.Hash
	InputProof     []byte
	PublicValue1   uint64
	PublicValue2   uint64
	Description    string
}

// Market wraps an Ethereum Client and binds the energy market contract.
type Market struct {
	client    *Client
	address   common.Address
	marketABI abi.ABI
}

var (
	_ MarketReader = (*Market)(nil)
	_ MarketWriter = (*Market)(nil)
)

func NewMarket(client *Client, contractAddr string) (*Market, error) {
	mABI, err := abi.JSON(mustMarketABI())
	if err != nil {
		return nil, fmt.Errorf("parse market ABI: %w", err)
	}
	return &Market{
		client:    client,
		address:   common.HexToAddress(contractAddr),
		marketABI: mABI,
	}, nil
}

func (m *Market) Address() common.Address { return m.address }

func (m *Market) ExplorerURL(txHash string) string {
	return explorerTxPrefix + txHash
}

func (m *Market) GetAllBusinessIDs(ctx context.Context) ([]string, error) {
	out, err := m.call(ctx, "getAllBusinessIds")
	if err != nil {
		return nil, err
	}
	ids, ok := out[0].([]string)
	if !ok {
		return nil, fmt.Errorf("getAllBusinessIds: unexpected type %T", out[0])
	}
	return ids, nil
}

func (m *Market) GetBusinessData(ctx context.Context, id string) (*models.BusinessData, error) {
	out, err := m.call(ctx, "getBusinessData", id)
	if err != nil {
		return nil, err
	}
	if len(out) != 8 {
		return nil, fmt.Errorf("getBusinessData: expected 8 values, got %d", len(out))
	}

	bd := &models.BusinessData{}
	var ok bool
	if bd.Name, ok = out[0].(string); !ok {
		return nil, fmt.Errorf("getBusinessData: bad name type %T", out[0])
	}
	bd.PublicValue1 = toUint64(out[1])
	bd.PublicValue2 = toUint64(out[2])
	if bd.Description, ok = out[3].(string); !ok {
		return nil, fmt.Errorf("getBusinessData: bad description type %T", out[3])
	}
	creator, ok := out[4].(common.Address)
	if !ok {
		return nil, fmt.Errorf("getBusinessData: bad creator type %T", out[4])
	}
	bd.Creator = creator.Hex()
	bd.Timestamp = toUint64(out[5])
	bd.DecryptedValue = toUint64(out[6])
	if bd.IsVerified, ok = out[7].(bool); !ok {
		return nil, fmt.Errorf("getBusinessData: bad isVerified type %T", out[7])
	}
	return bd, nil
}

func (m *Market) GetEncryptedValue(ctx context.Context, id string) (common.Hash, error) {
	out, err := m.call(ctx, "getEncryptedValue", id)
	if err != nil {
		return common.Hash{}, err
	}
	h, ok := out[0].([32]byte)
	if !ok {
		return common.Hash{}, fmt.Errorf("getEncryptedValue: unexpected type %T", out[0])
	}
	return common.Hash(h), nil
}

func (m *Market) IsAvailable(ctx context.Context) (bool, error) {
	out, err := m.call(ctx, "isAvailable")
	if err != nil {
		return false, err
	}
	ok, _ := out[0].(bool)
	return ok, nil
}

// CreateBusinessData submits the encrypted energy amount with its input
// proof. Price stays in the clear.
func (m *Market) CreateBusinessData(ctx context.Context, in CreateBusinessInput) (*types.Transaction, error) {
	data, err := m.marketABI.Pack("createBusinessData",
		in.BusinessID, in.Name, [32]byte(in.EncryptedValue), in.InputProof,
		new(big.Int).SetUint64(in.PublicValue1), new(big.Int).SetUint64(in.PublicValue2),
		in.Description)
	if err != nil {
		return nil, fmt.Errorf("pack createBusinessData: %w", err)
	}
	return m.client.SignAndSend(ctx, m.address, big.NewInt(0), data)
}

func (m *Market) VerifyDecryption(ctx context.Context, id string, clearValues, proof []byte) (*types.Transaction, error) {
	data, err := m.marketABI.Pack("verifyDecryption", id, clearValues, proof)
	if err != nil {
		return nil, fmt.Errorf("pack verifyDecryption: %w", err)
	}
	return m.client.SignAndSend(ctx, m.address, big.NewInt(0), data)
}

func (m *Market) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := m.client.WaitMined(ctx, tx)
	if err != nil {
		return receipt, err
	}
	fmt.Printf("[ETH] TX confirmed in block %s: %s\n", receipt.BlockNumber, m.ExplorerURL(tx.Hash().Hex()))
	return receipt, nil
}

func (m *Market) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := m.marketABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	result, err := m.client.CallContract(ctx, m.address, data)
	if err != nil {
		return nil, fmt.Errorf("%s call: %w", method, err)
	}
	out, err := m.marketABI.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: empty result", method)
	}
	return out, nil
}

// --- helpers ---

// toUint64 treats anything that does not fit as 0.
func toUint64(v any) uint64 {
	switch n := v.(type) {
	case *big.Int:
		if n == nil || n.Sign() < 0 || !n.IsUint64() {
			return 0
		}
		return n.Uint64()
	case uint32:
		return uint64(n)
	case uint64:
		return n
	case uint8:
		return uint64(n)
	case uint16:
		return uint64(n)
	default:
		return 0
	}
}
