package sdk_test

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pooled_fund/contract/fixedpoint"
	"pooled_fund/sdk"
)

var (
	tokenA = sdk.NumberedAddress(0xa)
	alice  = sdk.NumberedAddress(1)
	bob    = sdk.NumberedAddress(2)
)

func TestAddressParsing(t *testing.T) {
	a, err := sdk.AddressFromString("0x000000000000000000000000000000000000000a")
	require.NoError(t, err)
	assert.Equal(t, tokenA, a)

	_, err = sdk.AddressFromString("hive:alice")
	require.ErrorIs(t, err, sdk.ErrInvalidAddress)
	assert.True(t, sdk.IsPrecondition(err))

	assert.False(t, sdk.IsValid(sdk.ZeroAddress))
	assert.True(t, sdk.IsValid(alice))
}

func TestManualClock(t *testing.T) {
	c := sdk.NewManualClock(100)
	assert.Equal(t, int64(100), c.Now())
	assert.Equal(t, int64(150), c.Advance(50))
	c.Set(10)
	env := sdk.NewEnv(c, alice)
	assert.Equal(t, int64(10), env.Timestamp)
	assert.Equal(t, alice, env.Sender)
}

// TestMockCustodyAllowances checks the pull flow the fund relies on for contributions.
func TestMockCustodyAllowances(t *testing.T) {
	c := sdk.NewMockCustody()
	c.Mint(tokenA, alice, uint256.NewInt(100))

	err := c.TransferFrom(tokenA, bob, alice, bob, uint256.NewInt(10))
	require.ErrorIs(t, err, sdk.ErrInsufficientAllowance)

	require.NoError(t, c.Approve(tokenA, alice, bob, uint256.NewInt(30)))
	require.NoError(t, c.TransferFrom(tokenA, bob, alice, bob, uint256.NewInt(10)))

	left, _ := c.Allowance(tokenA, alice, bob)
	assert.Equal(t, uint64(20), left.Uint64())
	bal, _ := c.BalanceOf(tokenA, bob)
	assert.Equal(t, uint64(10), bal.Uint64())

	err = c.Transfer(tokenA, bob, alice, uint256.NewInt(11))
	require.ErrorIs(t, err, sdk.ErrInsufficientFunds)
	require.ErrorIs(t, err, sdk.ErrCollaborator)

	c.Freeze(tokenA, true)
	require.ErrorIs(t, c.Transfer(tokenA, bob, alice, uint256.NewInt(1)), sdk.ErrTokenFrozen)

	// zero transfers on an unknown token must not blow up
	require.NoError(t, c.Transfer(sdk.NumberedAddress(0xff), alice, bob, new(uint256.Int)))
}

func TestMockTicker(t *testing.T) {
	denom := sdk.NumberedAddress(0xd)
	tk := sdk.NewMockTicker(sdk.NumberedAddress(0x0c), sdk.NewManualClock(5))
	tk.SetRate(tokenA, fixedpoint.MustParse("2.5", 18))

	v, err := tk.ValueAtRate(tokenA, uint256.NewInt(4), denom)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), v.Uint64())

	v, err = tk.ValueAtRate(denom, uint256.NewInt(7), denom)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), v.Uint64())

	_, err = tk.ValueAtRate(bob, uint256.NewInt(1), denom)
	require.ErrorIs(t, err, sdk.ErrNoRate)

	p, err := tk.PriceOf(tokenA)
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.Timestamp)

	vs, err := tk.ValuesAtRate([]sdk.Address{tokenA, denom}, []*uint256.Int{uint256.NewInt(2), uint256.NewInt(3)}, denom)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), vs[0].Uint64())
	assert.Equal(t, uint64(3), vs[1].Uint64())
}

func TestMockRegistryAndDirectory(t *testing.T) {
	reg := sdk.NewMockRegistry(tokenA, uint256.NewInt(3))
	dir := sdk.NewMockDirectory()
	regAddr := sdk.NumberedAddress(0x77)
	dir.AddRegistry(regAddr, reg)

	got, err := dir.Registry(regAddr)
	require.NoError(t, err)
	require.NoError(t, got.AddFund(bob, alice))
	assert.Len(t, reg.CallsTo("AddFund"), 1)
	assert.Equal(t, uint64(3), got.UserRegistrationFee().Uint64())

	_, err = dir.Ticker(regAddr)
	require.ErrorIs(t, err, sdk.ErrUnknownService)
}
