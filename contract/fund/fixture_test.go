package fund_test

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"pooled_fund/contract/fixedpoint"
	"pooled_fund/contract/fund"
	"pooled_fund/contract/state"
	"pooled_fund/sdk"
)

var (
	fundAddr     = sdk.NumberedAddress(0xf0)
	boardAddr    = sdk.NumberedAddress(0xb0)
	managerAddr  = sdk.NumberedAddress(0xaa)
	denom        = sdk.NumberedAddress(0xd0)
	tokenX       = sdk.NumberedAddress(0x70)
	tokenY       = sdk.NumberedAddress(0x79)
	tickerAddr   = sdk.NumberedAddress(0x71)
	registryAddr = sdk.NumberedAddress(0x72)
	oracleAddr   = sdk.NumberedAddress(0x73)
	alice        = sdk.NumberedAddress(0x01)
	bob          = sdk.NumberedAddress(0x02)
	carol        = sdk.NumberedAddress(0x03)
)

const (
	start       int64  = 1000
	minLockup   uint64 = 100
	minPayout   uint64 = 100
	recompDelay uint64 = 10
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

type fixture struct {
	t        *testing.T
	clock    *sdk.ManualClock
	custody  *sdk.MockCustody
	ticker   *sdk.MockTicker
	registry *sdk.MockRegistry
	dir      *sdk.MockDirectory
	store    *state.MemoryStore
	prom     *prometheus.Registry
	fund     *fund.Fund
}

func defaultParameters() fund.Parameters {
	return fund.Parameters{
		Address:               fundAddr,
		Owner:                 boardAddr,
		Manager:               managerAddr,
		Name:                  "Test Fund",
		Symbol:                "TF",
		ShareDecimals:         18,
		DenominationToken:     denom,
		MinimumLockupDuration: minLockup,
		MinimumPayoutDuration: minPayout,
		RecomputationDelay:    recompDelay,
		Ticker:                tickerAddr,
		Registry:              registryAddr,
	}
}

// newFixture builds a fund at time 1000 with the denomination (rate 1) and tokenX (rate 2) approved.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{
		t:       t,
		clock:   sdk.NewManualClock(start),
		custody: sdk.NewMockCustody(),
		dir:     sdk.NewMockDirectory(),
		store:   state.NewMemoryStore(),
	}
	fx.custody.SetDecimals(denom, 18)
	fx.ticker = sdk.NewMockTicker(oracleAddr, fx.clock)
	fx.ticker.SetRate(tokenX, fixedpoint.MustParse("2", 18))
	fx.ticker.SetRate(tokenY, fixedpoint.MustParse("1", 18))
	fx.registry = sdk.NewMockRegistry(denom, u(5))
	fx.dir.AddTicker(tickerAddr, fx.ticker)
	fx.dir.AddRegistry(registryAddr, fx.registry)
	fx.fund = fx.open(fx.store)
	return fx
}

// open builds a fund over store with a fresh metrics registry.
func (fx *fixture) open(store state.Store) *fund.Fund {
	fx.t.Helper()
	fx.prom = prometheus.NewRegistry()
	f, err := fund.New(fund.Config{
		Store:          store,
		Custody:        fx.custody,
		Directory:      fx.dir,
		Clock:          fx.clock,
		Parameters:     defaultParameters(),
		ApprovedTokens: []sdk.Address{tokenX},
	}, fund.WithPromRegistry(fx.prom))
	require.NoError(fx.t, err)
	return f
}

// give mints tokens to holder and lets the fund pull all of them.
func (fx *fixture) give(holder, token sdk.Address, qty uint64) {
	fx.custody.Mint(token, holder, u(qty))
	require.NoError(fx.t, fx.custody.Approve(token, holder, fundAddr, u(1_000_000_000)))
}

func (fx *fixture) balance(token, holder sdk.Address) uint64 {
	b, err := fx.custody.BalanceOf(token, holder)
	require.NoError(fx.t, err)
	return b.Uint64()
}

func (fx *fixture) shares(holder sdk.Address) uint64 {
	b, err := fx.fund.ShareBalance(holder)
	require.NoError(fx.t, err)
	return b.Uint64()
}

func plainRequest(initial, expected uint64) fund.MembershipRequest {
	return fund.MembershipRequest{
		LockupDuration:      minLockup,
		PayoutDuration:      minPayout,
		Token:               denom,
		InitialContribution: u(initial),
		ExpectedShares:      u(expected),
	}
}

// admit funds the candidate and runs the request/approve round trip.
func (fx *fixture) admit(candidate sdk.Address, req fund.MembershipRequest) {
	fx.t.Helper()
	fx.give(candidate, req.Token, req.InitialContribution.Uint64()*10)
	require.NoError(fx.t, fx.fund.RequestMembership(registryAddr, candidate, req))
	require.NoError(fx.t, fx.fund.ApproveMembershipRequest(managerAddr, candidate))
}

// metric reads one counter or gauge sample from the fixture registry.
// labels are name/value pairs, a missing series reads as zero.
func (fx *fixture) metric(name string, labels ...string) float64 {
	fx.t.Helper()
	families, err := fx.prom.Gather()
	require.NoError(fx.t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			got := map[string]string{}
			for _, lp := range m.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for i := 0; i+1 < len(labels); i += 2 {
				if got[labels[i]] != labels[i+1] {
					continue next
				}
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	return 0
}
