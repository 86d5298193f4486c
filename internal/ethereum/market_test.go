package ethereum

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcDataError struct {
	msg  string
	data any
}

func (e *rpcDataError) Error() string  { return e.msg }
func (e *rpcDataError) ErrorData() any { return e.data }

func encodeRevert(t *testing.T, reason string) string {
	t.Helper()
	strType, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	packed, err := abi.Arguments{{Type: strType}}.Pack(reason)
	require.NoError(t, err)
	selector := []byte{0x08, 0xc3, 0x79, 0xa0}
	return "0x" + common.Bytes2Hex(append(selector, packed...))
}

func TestRevertReason_FromErrorData(t *testing.T) {
	err := &rpcDataError{msg: "execution reverted", data: encodeRevert(t, "Data already verified")}

	reason, ok := RevertReason(err)
	require.True(t, ok)
	assert.Equal(t, "Data already verified", reason)

	classified := classifyRevert(reason)
	assert.True(t, errors.Is(classified, ErrAlreadyVerified))
	assert.True(t, IsAlreadyVerified(fmt.Errorf("verifyDecryption: %w", classified)))
}

func TestRevertReason_FromMessage(t *testing.T) {
	reason, ok := RevertReason(errors.New("execution reverted: Business not found"))
	require.True(t, ok)
	assert.Equal(t, "Business not found", reason)

	classified := classifyRevert(reason)
	assert.False(t, IsAlreadyVerified(classified))
	assert.Contains(t, classified.Error(), "Business not found")
}

func TestRevertReason_NotARevert(t *testing.T) {
	_, ok := RevertReason(errors.New("connection refused"))
	assert.False(t, ok)
}

func TestIsUserRejected(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{ErrUserRejected, true},
		{fmt.Errorf("sign tx: %w", ErrUserRejected), true},
		{errors.New("MetaMask Tx Signature: User denied transaction signature."), true},
		{errors.New("insufficient funds for gas"), false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsUserRejected(tc.err), "err=%v", tc.err)
	}
}

func TestToUint64(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 80)
	assert.Equal(t, uint64(150), toUint64(big.NewInt(150)))
	assert.Equal(t, uint64(0), toUint64(huge))
	assert.Equal(t, uint64(0), toUint64(big.NewInt(-3)))
	assert.Equal(t, uint64(0), toUint64((*big.Int)(nil)))
	assert.Equal(t, uint64(42), toUint64(uint32(42)))
	assert.Equal(t, uint64(0), toUint64("150"))
}

func TestNewMarket_PacksCalls(t *testing.T) {
	m, err := NewMarket(nil, "0x00000000000000000000000000000000000000aa")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xaa"), m.Address())

	for _, name := range []string{"getAllBusinessIds", "getBusinessData", "getEncryptedValue",
		"isAvailable", "createBusinessData", "verifyDecryption"} {
		_, ok := m.marketABI.Methods[name]
		assert.True(t, ok, "missing method %s", name)
	}

	data, err := m.marketABI.Pack("createBusinessData",
		"energy-trade-1", "Morning Solar Surplus", [32]byte{1}, []byte{0xde, 0xad},
		big.NewInt(150), big.NewInt(25), "rooftop panels")
	require.NoError(t, err)
	assert.Equal(t, m.marketABI.Methods["createBusinessData"].ID, data[:4])
}

func TestGetBusinessDataDecode(t *testing.T) {
	m, err := NewMarket(nil, "0x00000000000000000000000000000000000000aa")
	require.NoError(t, err)

	creator := common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678")
	raw, err := m.marketABI.Methods["getBusinessData"].Outputs.Pack(
		"Morning Solar Surplus", big.NewInt(150), big.NewInt(25), "rooftop panels",
		creator, big.NewInt(1700000000), uint32(150), true)
	require.NoError(t, err)

	out, err := m.marketABI.Unpack("getBusinessData", raw)
	require.NoError(t, err)
	require.Len(t, out, 8)
	assert.Equal(t, uint64(150), toUint64(out[1]))
	assert.Equal(t, uint64(150), toUint64(out[6]))
	assert.Equal(t, creator, out[4])
}
