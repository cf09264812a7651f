package sdk

import (
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"pooled_fund/contract/fixedpoint"
)

// In memory collaborators. The debug bootstrap and the tests run against these.

var (
	ErrInsufficientFunds     = fmt.Errorf("%w: insufficient balance", ErrCollaborator)
	ErrInsufficientAllowance = fmt.Errorf("%w: insufficient allowance", ErrCollaborator)
	ErrTokenFrozen           = fmt.Errorf("%w: token frozen", ErrCollaborator)
	ErrNoRate                = fmt.Errorf("%w: no rate for token", ErrCollaborator)
	ErrUnknownService        = fmt.Errorf("%w: unknown service address", ErrCollaborator)
)

// --- custody ---

type allowanceKey struct {
	token, owner, spender Address
}

// MockCustody is a multi token ledger with allowances. Tokens can be frozen
// so every movement of them fails.
type MockCustody struct {
	mu         sync.Mutex
	balances   map[Address]map[Address]*uint256.Int
	allowances map[allowanceKey]*uint256.Int
	decimals   map[Address]uint8
	frozen     map[Address]bool

	// DecimalsErr, when set, fails every Decimals lookup.
	DecimalsErr error
}

func NewMockCustody() *MockCustody {
	return &MockCustody{
		balances:   make(map[Address]map[Address]*uint256.Int),
		allowances: make(map[allowanceKey]*uint256.Int),
		decimals:   make(map[Address]uint8),
		frozen:     make(map[Address]bool),
	}
}

// SetDecimals registers a token's precision, unknown tokens report 18.
func (m *MockCustody) SetDecimals(token Address, d uint8) {
	m.mu.Lock()
	m.decimals[token] = d
	m.mu.Unlock()
}

// Mint credits qty out of thin air.
func (m *MockCustody) Mint(token, to Address, qty *uint256.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credit(token, to, qty)
}

// Freeze makes every transfer and approval of token fail until unfrozen.
func (m *MockCustody) Freeze(token Address, frozen bool) {
	m.mu.Lock()
	m.frozen[token] = frozen
	m.mu.Unlock()
}

func (m *MockCustody) balance(token, owner Address) *uint256.Int {
	if b, ok := m.balances[token][owner]; ok {
		return b
	}
	return new(uint256.Int)
}

func (m *MockCustody) ledger(token Address) map[Address]*uint256.Int {
	if m.balances[token] == nil {
		m.balances[token] = make(map[Address]*uint256.Int)
	}
	return m.balances[token]
}

func (m *MockCustody) credit(token, to Address, qty *uint256.Int) {
	m.ledger(token)[to] = new(uint256.Int).Add(m.balance(token, to), qty)
}

func (m *MockCustody) move(token, from, to Address, qty *uint256.Int) error {
	if m.frozen[token] {
		return ErrTokenFrozen
	}
	bal := m.balance(token, from)
	if bal.Lt(qty) {
		return fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientFunds, from.Hex(), bal.Dec(), qty.Dec())
	}
	m.ledger(token)[from] = new(uint256.Int).Sub(bal, qty)
	m.credit(token, to, qty)
	return nil
}

func (m *MockCustody) BalanceOf(token, owner Address) (*uint256.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance(token, owner).Clone(), nil
}

func (m *MockCustody) Transfer(token, from, to Address, qty *uint256.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.move(token, from, to, qty)
}

func (m *MockCustody) TransferFrom(token, spender, from, to Address, qty *uint256.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := allowanceKey{token, from, spender}
	allowed, ok := m.allowances[key]
	if !ok || allowed.Lt(qty) {
		return ErrInsufficientAllowance
	}
	if err := m.move(token, from, to, qty); err != nil {
		return err
	}
	m.allowances[key] = new(uint256.Int).Sub(allowed, qty)
	return nil
}

func (m *MockCustody) Approve(token, owner, spender Address, qty *uint256.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frozen[token] {
		return ErrTokenFrozen
	}
	m.allowances[allowanceKey{token, owner, spender}] = qty.Clone()
	return nil
}

func (m *MockCustody) Allowance(token, owner, spender Address) (*uint256.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.allowances[allowanceKey{token, owner, spender}]; ok {
		return a.Clone(), nil
	}
	return new(uint256.Int), nil
}

func (m *MockCustody) Decimals(token Address) (uint8, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DecimalsErr != nil {
		return 0, m.DecimalsErr
	}
	if d, ok := m.decimals[token]; ok {
		return d, nil
	}
	return 18, nil
}

// --- ticker ---

// RateDecimals is the precision of ticker rates.
const RateDecimals = 18

// MockTicker values tokens with fixed 18 decimal rates expressed in
// denomination units per token unit. The denomination itself is always 1:1.
type MockTicker struct {
	mu     sync.Mutex
	oracle Address
	clock  Clock
	rates  map[Address]*uint256.Int
	Err    error
}

func NewMockTicker(oracle Address, clock Clock) *MockTicker {
	return &MockTicker{oracle: oracle, clock: clock, rates: make(map[Address]*uint256.Int)}
}

// SetRate sets the rate for token, e.g. fixedpoint.MustParse("2.5", 18).
func (t *MockTicker) SetRate(token Address, rate *uint256.Int) {
	t.mu.Lock()
	t.rates[token] = rate.Clone()
	t.mu.Unlock()
}

func (t *MockTicker) rate(token, denomination Address) (*uint256.Int, error) {
	if t.Err != nil {
		return nil, t.Err
	}
	if token == denomination {
		u, _ := fixedpoint.Unit(RateDecimals)
		return u, nil
	}
	r, ok := t.rates[token]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRate, token.Hex())
	}
	return r, nil
}

func (t *MockTicker) PriceOf(token Address) (Price, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return Price{}, t.Err
	}
	r, ok := t.rates[token]
	if !ok {
		return Price{}, fmt.Errorf("%w: %s", ErrNoRate, token.Hex())
	}
	return Price{Value: r.Clone(), Timestamp: t.clock.Now(), Oracle: t.oracle}, nil
}

func (t *MockTicker) ValueAtRate(token Address, qty *uint256.Int, denomination Address) (*uint256.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, err := t.rate(token, denomination)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulDec(qty, r, RateDecimals)
}

func (t *MockTicker) ValuesAtRate(tokens []Address, qtys []*uint256.Int, denomination Address) ([]*uint256.Int, error) {
	if len(tokens) != len(qtys) {
		return nil, errors.New("tokens and quantities differ in length")
	}
	out := make([]*uint256.Int, len(tokens))
	for i := range tokens {
		v, err := t.ValueAtRate(tokens[i], qtys[i], denomination)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// --- registry ---

// RegistryCall is one recorded mirror call.
type RegistryCall struct {
	Method    string
	Fund      Address
	Subject   Address
	Secondary Address
}

// MockRegistry records every call. Set Err to make the next calls fail.
type MockRegistry struct {
	mu       sync.Mutex
	feeToken Address
	fee      *uint256.Int
	calls    []RegistryCall
	Err      error
}

func NewMockRegistry(feeToken Address, fee *uint256.Int) *MockRegistry {
	if fee == nil {
		fee = new(uint256.Int)
	}
	return &MockRegistry{feeToken: feeToken, fee: fee.Clone()}
}

func (r *MockRegistry) record(c RegistryCall) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.calls = append(r.calls, c)
	return nil
}

func (r *MockRegistry) AddFund(fund, sponsor Address) error {
	return r.record(RegistryCall{Method: "AddFund", Fund: fund, Subject: sponsor})
}

func (r *MockRegistry) UpdateManager(fund, oldManager, newManager Address) error {
	return r.record(RegistryCall{Method: "UpdateManager", Fund: fund, Subject: newManager, Secondary: oldManager})
}

func (r *MockRegistry) ApproveMembershipRequest(fund, candidate Address) error {
	return r.record(RegistryCall{Method: "ApproveMembershipRequest", Fund: fund, Subject: candidate})
}

func (r *MockRegistry) DenyMembershipRequest(fund, candidate Address) error {
	return r.record(RegistryCall{Method: "DenyMembershipRequest", Fund: fund, Subject: candidate})
}

func (r *MockRegistry) FeeToken() Address { return r.feeToken }

func (r *MockRegistry) UserRegistrationFee() *uint256.Int { return r.fee.Clone() }

// Calls returns a copy of the recorded calls.
func (r *MockRegistry) Calls() []RegistryCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RegistryCall(nil), r.calls...)
}

// CallsTo filters recorded calls by method name.
func (r *MockRegistry) CallsTo(method string) []RegistryCall {
	var out []RegistryCall
	for _, c := range r.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// --- directory ---

// MockDirectory maps addresses to collaborator instances.
type MockDirectory struct {
	mu         sync.Mutex
	tickers    map[Address]Ticker
	registries map[Address]Registry
}

func NewMockDirectory() *MockDirectory {
	return &MockDirectory{tickers: make(map[Address]Ticker), registries: make(map[Address]Registry)}
}

func (d *MockDirectory) AddTicker(addr Address, t Ticker) {
	d.mu.Lock()
	d.tickers[addr] = t
	d.mu.Unlock()
}

func (d *MockDirectory) AddRegistry(addr Address, r Registry) {
	d.mu.Lock()
	d.registries[addr] = r
	d.mu.Unlock()
}

func (d *MockDirectory) Ticker(addr Address) (Ticker, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.tickers[addr]
	if !ok {
		return nil, fmt.Errorf("%w: ticker %s", ErrUnknownService, addr.Hex())
	}
	return t, nil
}

func (d *MockDirectory) Registry(addr Address) (Registry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.registries[addr]
	if !ok {
		return nil, fmt.Errorf("%w: registry %s", ErrUnknownService, addr.Hex())
	}
	return r, nil
}
