package fhe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kjannette/energy-market-backend/internal/httputil"
)

// RelayerClient talks JSON over HTTP to an FHE relayer.
type RelayerClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retry      httputil.RetryConfig

	mu      sync.Mutex
	session *relayerSession
}

type relayerSession struct {
	ID       string
	User     common.Address
	Contract common.Address
	Started  time.Time
}

var _ Client = (*RelayerClient)(nil)

func NewRelayerClient(baseURL, apiKey string) *RelayerClient {
	return &RelayerClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			MaxDelay:    10 * time.Second,
			Tag:         "FHE",
		},
	}
}

type sessionRequest struct {
	ContractAddress string `json:"contractAddress"`
	UserAddress     string `json:"userAddress"`
}

type sessionResponse struct {
	SessionID   string `json:"sessionId"`
	PublicKeyID string `json:"publicKeyId"`
}

func (c *RelayerClient) Initialize(ctx context.Context, contract, user common.Address) error {
	var resp sessionResponse
	err := c.post(ctx, "/v1/keys/session", sessionRequest{
		ContractAddress: contract.Hex(),
		UserAddress:     user.Hex(),
	}, &resp)
	if err != nil {
		return fmt.Errorf("initialize session: %w", err)
	}
	if resp.SessionID == "" {
		return fmt.Errorf("initialize session: relayer returned empty session id")
	}

	c.mu.Lock()
	c.session = &relayerSession{ID: resp.SessionID, User: user, Contract: contract, Started: time.Now()}
	c.mu.Unlock()

	fmt.Printf("[FHE] Session ready for %s (key %s)\n", user.Hex(), resp.PublicKeyID)
	return nil
}

func (c *RelayerClient) Reset() {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
}

func (c *RelayerClient) sessionFor(user common.Address) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || c.session.User != user {
		return "", ErrNotInitialized
	}
	return c.session.ID, nil
}

type inputProofRequest struct {
	SessionID       string       `json:"sessionId"`
	ContractAddress string       `json:"contractAddress"`
	UserAddress     string       `json:"userAddress"`
	Values          []inputValue `json:"values"`
}

type inputValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type inputProofResponse struct {
	Handles    []string `json:"handles"`
	InputProof string   `json:"inputProof"`
}

func (c *RelayerClient) Encrypt(ctx context.Context, contract, user common.Address, value uint64) (*EncryptedInput, error) {
	if value > MaxUint32 {
		return nil, fmt.Errorf("%w: %d", ErrValueTooLarge, value)
	}
	sessionID, err := c.sessionFor(user)
	if err != nil {
		return nil, err
	}

	var resp inputProofResponse
	err = c.post(ctx, "/v1/input-proof", inputProofRequest{
		SessionID:       sessionID,
		ContractAddress: contract.Hex(),
		UserAddress:     user.Hex(),
		Values:          []inputValue{{Type: "euint32", Value: strconv.FormatUint(value, 10)}},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}
	if len(resp.Handles) != 1 {
		return nil, fmt.Errorf("encrypt: expected 1 handle, got %d", len(resp.Handles))
	}

	return &EncryptedInput{
		Handle: common.HexToHash(resp.Handles[0]),
		Proof:  common.FromHex(resp.InputProof),
	}, nil
}

type publicDecryptRequest struct {
	ContractAddress string   `json:"contractAddress"`
	Handles         []string `json:"handles"`
}

type publicDecryptResponse struct {
	ClearValues           map[string]string `json:"clearValues"`
	ABIEncodedClearValues string            `json:"abiEncodedClearValues"`
	DecryptionProof       string            `json:"decryptionProof"`
}

func (c *RelayerClient) VerifyDecryption(ctx context.Context, handles []common.Hash, contract common.Address, submit SubmitFunc) (map[common.Hash]uint64, error) {
	req := publicDecryptRequest{ContractAddress: contract.Hex()}
	for _, h := range handles {
		req.Handles = append(req.Handles, h.Hex())
	}

	var resp publicDecryptResponse
	if err := c.post(ctx, "/v1/public-decrypt", req, &resp); err != nil {
		return nil, fmt.Errorf("public decrypt: %w", err)
	}

	values, err := parseClearValues(handles, resp.ClearValues)
	if err != nil {
		return nil, err
	}

	if err := submit(ctx, common.FromHex(resp.ABIEncodedClearValues), common.FromHex(resp.DecryptionProof)); err != nil {
		return nil, err
	}
	return values, nil
}

// parseClearValues matches relayer keys to handles case-insensitively.
func parseClearValues(handles []common.Hash, raw map[string]string) (map[common.Hash]uint64, error) {
	byHash := make(map[common.Hash]string, len(raw))
	for k, v := range raw {
		byHash[common.HexToHash(k)] = v
	}

	out := make(map[common.Hash]uint64, len(handles))
	for _, h := range handles {
		v, ok := byHash[h]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingValue, h.Hex())
		}
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse clear value for %s: %w", h.Hex(), err)
		}
		out[h] = n
	}
	return out, nil
}

func (c *RelayerClient) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		return req, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("relayer returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
