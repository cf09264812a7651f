package fund_test

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pooled_fund/contract/fixedpoint"
	"pooled_fund/contract/fund"
	"pooled_fund/sdk"
)

// =============================================================================
// Manager token actions
// =============================================================================

func TestManagerActionsAreAudited(t *testing.T) {
	fx := newFixture(t)
	fx.admit(alice, plainRequest(1000, 1000))

	_, err := fx.fund.ManagerWithdraw(alice, denom, carol, u(1), "nope")
	require.ErrorIs(t, err, fund.ErrUnauthorized)
	_, err = fx.fund.ManagerWithdraw(managerAddr, denom, carol, u(1), "   ")
	require.ErrorIs(t, err, fund.ErrAnnotationRequired)
	_, err = fx.fund.ManagerWithdraw(managerAddr, denom, sdk.ZeroAddress, u(1), "burn it")
	require.ErrorIs(t, err, fund.ErrInvalidAddress)

	res, err := fx.fund.ManagerWithdraw(managerAddr, denom, carol, u(300), "pay the auditor")
	require.NoError(t, err)
	assert.Equal(t, fund.ResultSuccess, res)
	assert.Equal(t, uint64(300), fx.balance(denom, carol))

	// a failing transfer completes and is logged as a failure
	res, err = fx.fund.ManagerWithdraw(managerAddr, denom, carol, u(5000), "too much")
	require.NoError(t, err)
	assert.Equal(t, fund.ResultFailure, res)
	assert.Equal(t, uint64(700), fx.balance(denom, fundAddr))

	fx.give(bob, tokenX, 100)
	res, err = fx.fund.ManagerDeposit(managerAddr, tokenX, bob, u(100), "swap proceeds")
	require.NoError(t, err)
	assert.Equal(t, fund.ResultSuccess, res)
	assert.Equal(t, uint64(100), fx.balance(tokenX, fundAddr))

	res, err = fx.fund.ManagerApprove(managerAddr, denom, carol, u(50), "auditor allowance")
	require.NoError(t, err)
	assert.Equal(t, fund.ResultSuccess, res)
	allowance, err := fx.custody.Allowance(denom, fundAddr, carol)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), allowance.Uint64())

	entries, err := fx.fund.ManagementLog()
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, fund.LogWithdrawal, entries[0].Type)
	assert.Equal(t, fund.ResultSuccess, entries[0].Result)
	assert.Equal(t, carol, entries[0].Account)
	assert.Equal(t, "pay the auditor", entries[0].Annotation)
	assert.Equal(t, fund.ResultFailure, entries[1].Result)
	assert.Equal(t, uint64(5000), entries[1].Quantity.Uint64())
	assert.Equal(t, fund.LogDeposit, entries[2].Type)
	assert.Equal(t, bob, entries[2].Account)
	assert.Equal(t, fund.LogApproval, entries[3].Type)
	assert.Equal(t, start, entries[3].Timestamp)

	assert.Equal(t, 1.0, fx.metric("pooled_fund_management_actions_total", "type", "withdrawal", "result", "failure"))
	assert.Equal(t, 1.0, fx.metric("pooled_fund_management_actions_total", "type", "deposit", "result", "success"))
}

// TestManagerActionFailsBeforeMovingTokens checks that bookkeeping which
// cannot be recorded stops the action before custody is asked to move anything.
func TestManagerActionFailsBeforeMovingTokens(t *testing.T) {
	fx := newFixture(t)
	fx.admit(alice, plainRequest(1000, 1000))
	before, err := fx.fund.ManagementLog()
	require.NoError(t, err)

	// the fund's tokenY position is already at the top of the range
	fx.custody.Mint(tokenY, fundAddr, new(uint256.Int).SetAllOne())
	fx.give(bob, tokenY, 10)

	_, err = fx.fund.ManagerDeposit(managerAddr, tokenY, bob, u(10), "cannot be booked")
	require.ErrorIs(t, err, fixedpoint.ErrOverflow)
	assert.Equal(t, uint64(10), fx.balance(tokenY, bob), "custody untouched")
	after, err := fx.fund.ManagementLog()
	require.NoError(t, err)
	assert.Len(t, after, len(before))

	// an overdraft is logged as a failure without a custody call
	res, err := fx.fund.ManagerWithdraw(managerAddr, denom, carol, u(5000), "overdraft")
	require.NoError(t, err)
	assert.Equal(t, fund.ResultFailure, res)
	assert.Zero(t, fx.balance(denom, carol))
	assert.Equal(t, uint64(1000), fx.balance(denom, fundAddr))
	bal, err := fx.fund.BalanceOfToken(denom)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), bal.Uint64())

	after, err = fx.fund.ManagementLog()
	require.NoError(t, err)
	require.Len(t, after, len(before)+1)
	assert.Equal(t, fund.ResultFailure, after[len(before)].Result)
	assert.Equal(t, 1.0, fx.metric("pooled_fund_management_actions_total", "type", "withdrawal", "result", "failure"))
}

func TestManagerActionsTrackOwnedTokens(t *testing.T) {
	fx := newFixture(t)
	fx.admit(alice, plainRequest(1000, 1000))
	fx.give(bob, tokenX, 100)

	_, err := fx.fund.ManagerDeposit(managerAddr, tokenX, bob, u(100), "in")
	require.NoError(t, err)
	owned, _ := fx.fund.OwnedTokens()
	assert.ElementsMatch(t, []sdk.Address{denom, tokenX}, owned)

	_, err = fx.fund.ManagerWithdraw(managerAddr, tokenX, bob, u(100), "out")
	require.NoError(t, err)
	owned, _ = fx.fund.OwnedTokens()
	assert.Equal(t, []sdk.Address{denom}, owned)

	// unapproved tokens are held but never valued
	fx.give(bob, tokenY, 40)
	_, err = fx.fund.ManagerDeposit(managerAddr, tokenY, bob, u(40), "airdrop")
	require.NoError(t, err)
	owned, _ = fx.fund.OwnedTokens()
	assert.Equal(t, []sdk.Address{denom}, owned)
	bal, err := fx.fund.BalanceOfToken(tokenY)
	require.NoError(t, err)
	assert.Equal(t, uint64(40), bal.Uint64())

	require.NoError(t, fx.fund.ApproveTokens(boardAddr, []sdk.Address{tokenY}))
	owned, _ = fx.fund.OwnedTokens()
	assert.ElementsMatch(t, []sdk.Address{denom, tokenY}, owned)
	value, _ := fx.fund.FundValue()
	assert.Equal(t, uint64(1040), value.Uint64())
}

func TestDisapproveTokens(t *testing.T) {
	fx := newFixture(t)
	fx.admit(alice, plainRequest(1000, 1000))
	fx.give(alice, tokenX, 100)
	require.NoError(t, fx.fund.MakeContribution(alice, alice, tokenX, u(100), u(0)))

	require.ErrorIs(t, fx.fund.DisapproveTokens(managerAddr, []sdk.Address{tokenX}), fund.ErrUnauthorized)
	require.ErrorIs(t, fx.fund.DisapproveTokens(boardAddr, []sdk.Address{denom}), fund.ErrDenominationToken)

	value, _ := fx.fund.FundValue()
	assert.Equal(t, uint64(1200), value.Uint64())

	require.NoError(t, fx.fund.DisapproveTokens(boardAddr, []sdk.Address{tokenX}))
	approved, _ := fx.fund.IsApproved(tokenX)
	assert.False(t, approved)
	owned, _ := fx.fund.OwnedTokens()
	assert.Equal(t, []sdk.Address{denom}, owned)
	value, _ = fx.fund.FundValue()
	assert.Equal(t, uint64(1000), value.Uint64())
}

// =============================================================================
// Valuation snapshots
// =============================================================================

func TestRecordFundValue(t *testing.T) {
	fx := newFixture(t)
	fx.admit(alice, plainRequest(1000, 1000))

	_, err := fx.fund.RecordFundValue(alice)
	require.ErrorIs(t, err, fund.ErrUnauthorized)
	_, err = fx.fund.RecordFundValue(managerAddr)
	require.ErrorIs(t, err, fund.ErrValueAlreadyRecorded)

	fx.clock.Set(start + 1)
	fv, err := fx.fund.RecordFundValue(boardAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), fv.Value.Uint64())
	assert.Equal(t, start+1, fv.Timestamp)

	fx.clock.Set(start + 2)
	_, err = fx.fund.RecordFundValue(managerAddr)
	require.NoError(t, err)

	values, _ := fx.fund.FundValues()
	assert.Len(t, values, 3)
	assert.Equal(t, 3.0, fx.metric("pooled_fund_value_snapshots_total"))
	assert.InDelta(t, 1e-15, fx.metric("pooled_fund_value"), 1e-20)
}

func TestSnapshotsFollowRecomputationDelay(t *testing.T) {
	fx := newFixture(t)
	fx.admit(alice, plainRequest(1000, 1000))

	fx.clock.Set(start + 5)
	require.NoError(t, fx.fund.MakeContribution(alice, alice, denom, u(10), u(0)))
	values, _ := fx.fund.FundValues()
	assert.Len(t, values, 1)

	fx.clock.Set(start + 10)
	require.NoError(t, fx.fund.MakeContribution(alice, alice, denom, u(10), u(0)))
	values, _ = fx.fund.FundValues()
	require.Len(t, values, 2)
	assert.Equal(t, uint64(1020), values[1].Value.Uint64())
}

// TestTickerOutageSkipsSnapshot checks a failing valuation never blocks an
// operation that does not need prices.
func TestTickerOutageSkipsSnapshot(t *testing.T) {
	fx := newFixture(t)
	fx.admit(alice, plainRequest(1000, 1000))

	fx.clock.Set(start + 20)
	fx.ticker.Err = errors.New("oracle offline")
	res, err := fx.fund.ManagerApprove(managerAddr, denom, carol, u(1), "allowance")
	require.NoError(t, err)
	assert.Equal(t, fund.ResultSuccess, res)
	values, _ := fx.fund.FundValues()
	assert.Len(t, values, 1)

	_, err = fx.fund.RecordFundValue(managerAddr)
	require.ErrorIs(t, err, fund.ErrCollaborator)

	fx.ticker.Err = nil
	_, err = fx.fund.RecordFundValue(managerAddr)
	require.NoError(t, err)
}

// TestDecimalsOutageLeavesNoSnapshot checks a snapshot is either fully
// recorded with its metric or not written at all.
func TestDecimalsOutageLeavesNoSnapshot(t *testing.T) {
	fx := newFixture(t)
	fx.admit(alice, plainRequest(1000, 1000))
	require.Equal(t, 1.0, fx.metric("pooled_fund_value_snapshots_total"))

	fx.clock.Set(start + 20)
	fx.custody.DecimalsErr = errors.New("token contract unreachable")
	res, err := fx.fund.ManagerApprove(managerAddr, denom, carol, u(1), "allowance")
	require.NoError(t, err)
	assert.Equal(t, fund.ResultSuccess, res)
	values, err := fx.fund.FundValues()
	require.NoError(t, err)
	assert.Len(t, values, 1)
	assert.Equal(t, 1.0, fx.metric("pooled_fund_value_snapshots_total"))

	_, err = fx.fund.RecordFundValue(managerAddr)
	require.ErrorIs(t, err, fund.ErrCollaborator)
	values, _ = fx.fund.FundValues()
	assert.Len(t, values, 1)

	fx.custody.DecimalsErr = nil
	fv, err := fx.fund.RecordFundValue(managerAddr)
	require.NoError(t, err)
	assert.Equal(t, start+20, fv.Timestamp)
	values, _ = fx.fund.FundValues()
	assert.Len(t, values, 2)
	assert.Equal(t, 2.0, fx.metric("pooled_fund_value_snapshots_total"))
}
