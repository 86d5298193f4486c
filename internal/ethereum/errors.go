package ethereum

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	// ErrUserRejected means the wallet declined to sign.
	ErrUserRejected = errors.New("user rejected transaction")
	// ErrAlreadyVerified is the contract's answer when a record was verified by someone else first.
	ErrAlreadyVerified = errors.New("Data already verified")
	// ErrTxReverted is returned for mined transactions with a failed receipt.
	ErrTxReverted = errors.New("transaction reverted")
)

var rejectionPhrases = []string{
	"user rejected transaction",
	"user rejected",
	"user denied",
	"rejected by user",
}

// IsUserRejected reports whether err came from a wallet refusing to sign.
func IsUserRejected(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUserRejected) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range rejectionPhrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsAlreadyVerified reports whether err is the contract's "already verified" revert.
func IsAlreadyVerified(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrAlreadyVerified) || strings.Contains(err.Error(), ErrAlreadyVerified.Error())
}

// RevertReason extracts a Solidity revert string from a JSON-RPC error.
func RevertReason(err error) (string, bool) {
	var de rpc.DataError
	if errors.As(err, &de) {
		if hexData, ok := de.ErrorData().(string); ok {
			if reason, uerr := abi.UnpackRevert(common.FromHex(hexData)); uerr == nil {
				return reason, true
			}
		}
	}
	const marker = "execution reverted: "
	if i := strings.Index(err.Error(), marker); i >= 0 {
		return err.Error()[i+len(marker):], true
	}
	return "", false
}

func classifyRevert(reason string) error {
	if strings.Contains(reason, ErrAlreadyVerified.Error()) {
		return fmt.Errorf("%w: %s", ErrAlreadyVerified, reason)
	}
	return fmt.Errorf("execution reverted: %s", reason)
}
