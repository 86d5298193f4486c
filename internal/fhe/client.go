// Package fhe is the boundary to the fully-homomorphic-encryption service.
// Ciphertext construction, proofs and threshold decryption happen on the
// other side of this interface.
package fhe

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrNotInitialized = errors.New("fhe session not initialized")
	ErrValueTooLarge  = errors.New("value does not fit in euint32")
	ErrMissingValue   = errors.New("relayer returned no clear value for handle")
)

// MaxUint32 is the largest plaintext accepted for an euint32 input.
const MaxUint32 = 1<<32 - 1

// EncryptedInput is a ciphertext handle plus the proof binding it to a
// contract and user.
type EncryptedInput struct {
	Handle common.Hash
	Proof  []byte
}

// SubmitFunc writes the clear values and decryption proof on chain and
// returns once the transaction is confirmed.
type SubmitFunc func(ctx context.Context, abiEncodedClearValues, decryptionProof []byte) error

type Client interface {
	// Initialize prepares a session for user; call once per wallet connection.
	Initialize(ctx context.Context, contract, user common.Address) error
	Encrypt(ctx context.Context, contract, user common.Address, value uint64) (*EncryptedInput, error)
	// VerifyDecryption returns clear values only after submit succeeded.
	VerifyDecryption(ctx context.Context, handles []common.Hash, contract common.Address, submit SubmitFunc) (map[common.Hash]uint64, error)
	// Reset drops the session, e.g. on wallet disconnect.
	Reset()
}
