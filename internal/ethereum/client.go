package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Signer is the wallet side of a transaction: who sends it and who signs it.
type Signer interface {
	Address() (common.Address, error)
	SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

type Client struct {
	rpc      *ethclient.Client
	signer   Signer
	chainID  *big.Int
	gasLimit uint64
	gasMul   float64
}

func NewClient(rpcURL string, signer Signer, chainID int64, gasLimit int, gasMultiplier float64) (*Client, error) {
	rpc, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial RPC: %w", err)
	}

	return &Client{
		rpc:      rpc,
		signer:   signer,
		chainID:  big.NewInt(chainID),
		gasLimit: uint64(gasLimit),
		gasMul:   gasMultiplier,
	}, nil
}

func (c *Client) ChainID() *big.Int { return c.chainID }
func (c *Client) GasLimit() uint64  { return c.gasLimit }
func (c *Client) Close()            { c.rpc.Close() }

func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	price, err := c.rpc.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	// Apply multiplier
	mul := new(big.Float).SetFloat64(c.gasMul)
	adjusted := new(big.Float).Mul(new(big.Float).SetInt(price), mul)
	result, _ := adjusted.Int(nil)
	return result, nil
}

// EstimateGas returns the estimated gas plus 20% headroom. A revert during
// estimation is returned as an error so callers see the contract's reason
// before anything is signed.
func (c *Client) EstimateGas(ctx context.Context, from, to common.Address, value *big.Int, data []byte) (uint64, error) {
	est, err := c.rpc.EstimateGas(ctx, geth.CallMsg{From: from, To: &to, Value: value, Data: data})
	if err != nil {
		if reason, ok := RevertReason(err); ok {
			return 0, classifyRevert(reason)
		}
		fmt.Printf("[ETH] Gas estimation failed, using limit %d: %v\n", c.gasLimit, err)
		return c.gasLimit, nil
	}
	return est + est/5, nil
}

// SignAndSend builds a legacy transaction from the connected signer, has the
// wallet sign it and broadcasts it. The returned transaction is unconfirmed.
func (c *Client) SignAndSend(ctx context.Context, to common.Address, value *big.Int, data []byte) (*types.Transaction, error) {
	if c.signer == nil {
		return nil, errors.New("no signer configured")
	}
	from, err := c.signer.Address()
	if err != nil {
		return nil, fmt.Errorf("signer: %w", err)
	}

	gas, err := c.EstimateGas(ctx, from, to, value, data)
	if err != nil {
		return nil, err
	}
	nonce, err := c.rpc.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("get nonce: %w", err)
	}
	gasPrice, err := c.GasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := c.signer.SignTx(ctx, tx, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}

	if err := c.rpc.SendTransaction(ctx, signed); err != nil {
		if reason, ok := RevertReason(err); ok {
			return nil, classifyRevert(reason)
		}
		return nil, fmt.Errorf("send tx: %w", err)
	}

	return signed, nil
}

// WaitMined blocks until the transaction has a receipt. There is no local
// timeout; cancel ctx to stop waiting. A failed receipt returns ErrTxReverted.
func (c *Client) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, c.rpc, tx.Hash())
	if err != nil {
		return nil, fmt.Errorf("wait for %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s", ErrTxReverted, tx.Hash().Hex())
	}
	return receipt, nil
}

// CallContract performs a read-only eth_call against the latest block.
func (c *Client) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	out, err := c.rpc.CallContract(ctx, geth.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		if reason, ok := RevertReason(err); ok {
			return nil, classifyRevert(reason)
		}
		return nil, err
	}
	return out, nil
}
