package fund_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pooled_fund/contract/fund"
	"pooled_fund/sdk"
)

// =============================================================================
// Direct contributions
// =============================================================================

func TestMakeContributionPermissions(t *testing.T) {
	fx := newFixture(t)
	fx.admit(alice, plainRequest(1000, 1000))
	fx.give(bob, denom, 1000)

	require.ErrorIs(t, fx.fund.MakeContribution(bob, alice, denom, u(100), u(0)), fund.ErrNotContributor)
	require.ErrorIs(t, fx.fund.MakeContribution(bob, carol, denom, u(100), u(0)), fund.ErrNotMember)
	require.ErrorIs(t, fx.fund.PermitContributor(bob, carol), fund.ErrNotMember)

	require.NoError(t, fx.fund.PermitContributor(alice, bob))
	ok, err := fx.fund.IsContributor(alice, bob)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, fx.fund.MakeContribution(bob, alice, denom, u(100), u(100)))
	assert.Equal(t, uint64(1100), fx.shares(alice))
	assert.Zero(t, fx.shares(bob))
	assert.Equal(t, uint64(900), fx.balance(denom, bob))

	d, _ := fx.fund.MemberDetails(alice)
	assert.Equal(t, uint64(1100), d.TotalUnlockable.Uint64())

	contributions, _ := fx.fund.Contributions(alice)
	require.Len(t, contributions, 2)
	assert.Equal(t, bob, contributions[1].Contributor)
	assert.Equal(t, uint64(100), contributions[1].Shares.Uint64())

	require.NoError(t, fx.fund.RevokeContributor(alice, bob))
	require.ErrorIs(t, fx.fund.MakeContribution(bob, alice, denom, u(100), u(0)), fund.ErrNotContributor)

	assert.Equal(t, 1.0, fx.metric("pooled_fund_contributions_total", "kind", "direct"))
	assert.Equal(t, 1.0, fx.metric("pooled_fund_contributions_total", "kind", "initial"))
}

// TestContributionPricesOtherTokens contributes 250 tokenX at a rate of 2
// into a fund worth 1000 with 1000 shares out.
func TestContributionPricesOtherTokens(t *testing.T) {
	fx := newFixture(t)
	fx.admit(alice, plainRequest(1000, 1000))
	fx.give(alice, tokenX, 250)

	shares, err := fx.fund.EquivalentShares(tokenX, u(250))
	require.NoError(t, err)
	assert.Equal(t, uint64(500), shares.Uint64())

	require.ErrorIs(t, fx.fund.MakeContribution(alice, alice, tokenX, u(250), u(501)), fund.ErrExcessiveShares)
	require.ErrorIs(t, fx.fund.MakeContribution(alice, alice, tokenY, u(250), u(0)), fund.ErrTokenNotApproved)

	fx.clock.Set(start + int64(recompDelay))
	require.NoError(t, fx.fund.MakeContribution(alice, alice, tokenX, u(250), u(500)))
	assert.Equal(t, uint64(1500), fx.shares(alice))

	owned, _ := fx.fund.OwnedTokens()
	assert.ElementsMatch(t, []sdk.Address{denom, tokenX}, owned)

	// the snapshot taken after the call already counts the new tokens
	last, ok, err := fx.fund.LastFundValue()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(1500), last.Value.Uint64())
	assert.Equal(t, start+int64(recompDelay), last.Timestamp)

	live, err := fx.fund.FundValue()
	require.NoError(t, err)
	assert.Equal(t, uint64(1500), live.Uint64())
}

func TestDegenerateValuationPricesAtZero(t *testing.T) {
	fx := newFixture(t)
	fx.admit(alice, plainRequest(1000, 1000))

	// the manager moves everything out, then a snapshot records a worthless fund
	_, err := fx.fund.ManagerWithdraw(managerAddr, denom, carol, u(1000), "move to cold storage")
	require.NoError(t, err)
	fx.clock.Set(start + int64(recompDelay))
	fv, err := fx.fund.RecordFundValue(managerAddr)
	require.NoError(t, err)
	assert.True(t, fv.Value.IsZero())

	shares, err := fx.fund.EquivalentShares(denom, u(100))
	require.NoError(t, err)
	assert.True(t, shares.IsZero())
}

// =============================================================================
// Recurring contributions
// =============================================================================

func TestCurrentPeriodStart(t *testing.T) {
	s := &fund.RecurringContribution{Period: 10, TerminationTime: 1100}
	cases := []struct {
		now   int64
		start int64
	}{
		{1000, 990},
		{1085, 1080},
		{1089, 1080},
		{1090, 1080},
		{1091, 1090},
		{1100, 1090},
		{1200, 1090},
		{5, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.start, fund.CurrentPeriodStart(s, c.now), "now=%d", c.now)
	}
}

func TestRecurringPayments(t *testing.T) {
	fx := newFixture(t)
	fx.admit(alice, plainRequest(1000, 1000))
	term := start + 100

	require.ErrorIs(t, fx.fund.SetRecurringContribution(bob, alice, denom, u(10), 10, term), fund.ErrNotContributor)
	require.ErrorIs(t, fx.fund.SetRecurringContribution(alice, alice, denom, u(10), 0, term), fund.ErrInvalidSchedule)
	require.ErrorIs(t, fx.fund.SetRecurringContribution(alice, alice, denom, u(10), 10, start), fund.ErrInvalidSchedule)
	require.ErrorIs(t, fx.fund.SetRecurringContribution(alice, alice, denom, u(10), 10, start+201), fund.ErrInvalidSchedule)
	require.ErrorIs(t, fx.fund.SetRecurringContribution(alice, alice, denom, u(0), 10, term), fund.ErrZeroQuantity)
	require.ErrorIs(t, fx.fund.SetRecurringContribution(alice, alice, tokenY, u(10), 10, term), fund.ErrTokenNotApproved)
	require.NoError(t, fx.fund.SetRecurringContribution(alice, alice, denom, u(10), 10, term))

	s, ok, err := fx.fund.RecurringContribution(alice, alice)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, term, s.TerminationTime)
	assert.Zero(t, s.PreviousContributionTime)

	pay := func(at int64, caller sdk.Address) error {
		fx.clock.Set(at)
		expected, err := fx.fund.EquivalentShares(denom, u(10))
		require.NoError(t, err)
		return fx.fund.MakeRecurringPayment(caller, alice, alice, expected)
	}

	require.ErrorIs(t, pay(1085, bob), fund.ErrUnauthorized)
	require.NoError(t, pay(1085, alice))
	require.ErrorIs(t, pay(1089, alice), fund.ErrAlreadyPaid)
	require.ErrorIs(t, pay(1090, managerAddr), fund.ErrAlreadyPaid)
	require.NoError(t, pay(1091, managerAddr))
	require.ErrorIs(t, pay(1100, boardAddr), fund.ErrAlreadyPaid)
	require.ErrorIs(t, pay(1101, alice), fund.ErrScheduleTerminated)

	s, _, _ = fx.fund.RecurringContribution(alice, alice)
	assert.Equal(t, int64(1091), s.PreviousContributionTime)

	contributions, _ := fx.fund.Contributions(alice)
	assert.Len(t, contributions, 3)
	assert.Equal(t, uint64(1020), fx.balance(denom, fundAddr))
	assert.Equal(t, 2.0, fx.metric("pooled_fund_contributions_total", "kind", "recurring"))
}

func TestRecurringPaymentFromAnotherContributor(t *testing.T) {
	fx := newFixture(t)
	fx.admit(alice, plainRequest(1000, 1000))
	fx.give(bob, denom, 100)
	require.NoError(t, fx.fund.PermitContributor(alice, bob))
	require.NoError(t, fx.fund.SetRecurringContribution(bob, alice, denom, u(10), 50, start+200))

	require.NoError(t, fx.fund.MakeRecurringPayment(alice, alice, bob, u(0)))
	assert.Equal(t, uint64(90), fx.balance(denom, bob))

	// revoking the permission stalls the schedule but keeps it around
	require.NoError(t, fx.fund.RevokeContributor(alice, bob))
	fx.clock.Set(start + 60)
	require.ErrorIs(t, fx.fund.MakeRecurringPayment(bob, alice, bob, u(0)), fund.ErrNotContributor)
	_, ok, _ := fx.fund.RecurringContribution(alice, bob)
	assert.True(t, ok)

	require.ErrorIs(t, fx.fund.RemoveRecurringContribution(carol, alice, bob), fund.ErrUnauthorized)
	require.NoError(t, fx.fund.RemoveRecurringContribution(alice, alice, bob))
	require.ErrorIs(t, fx.fund.RemoveRecurringContribution(bob, alice, bob), fund.ErrNoSchedule)
	require.ErrorIs(t, fx.fund.MakeRecurringPayment(bob, alice, bob, u(0)), fund.ErrNoSchedule)
}

func TestRecurringScheduleFromRequest(t *testing.T) {
	fx := newFixture(t)
	req := plainRequest(1000, 1000)
	req.Recurring = &fund.RecurringRequest{Token: denom, Quantity: u(25), Period: 30, Duration: 150}
	fx.admit(alice, req)

	s, ok, err := fx.fund.RecurringContribution(alice, alice)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, start+150, s.TerminationTime)
	assert.Equal(t, uint64(25), s.Quantity.Uint64())

	// nothing paid yet, the first period is open right away
	require.NoError(t, fx.fund.MakeRecurringPayment(alice, alice, alice, u(0)))
	assert.Equal(t, uint64(1025), fx.balance(denom, fundAddr))
}
