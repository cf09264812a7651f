// Package fund is the accounting engine of a pooled investment fund: members,
// contributions, share issuance, benefit vesting, recurring payments, custody
// bookkeeping, the manager audit log and valuation snapshots.
//
// Every mutating call runs serially under one mutex and stages its writes in
// a state.Txn. Collaborator side effects (token pulls and pushes, registry
// notifications) run after the staged writes succeeded and before commit;
// a failing effect compensates the ones before it and the overlay is dropped.
package fund

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"sync"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"

	"pooled_fund/contract/fixedpoint"
	"pooled_fund/contract/iterset"
	"pooled_fund/contract/shares"
	"pooled_fund/contract/state"
	"pooled_fund/internal/metrics"
	"pooled_fund/sdk"
)

// MaxDuration bounds every configured duration so timestamp + duration sums
// stay far away from int64 overflow.
const MaxDuration = uint64(1) << 40

type Config struct {
	Store     state.Store
	Custody   sdk.TokenCustody
	Directory sdk.Directory
	Clock     sdk.Clock
	// Parameters and ApprovedTokens only matter when the store holds no fund yet.
	Parameters     Parameters
	ApprovedTokens []sdk.Address
}

type OptionFunc func(*Fund)

func WithLogger(logger *slog.Logger) OptionFunc {
	return func(f *Fund) { f.logger = logger }
}

func WithPromRegistry(reg prometheus.Registerer) OptionFunc {
	return func(f *Fund) { f.promRegistry = reg }
}

type Fund struct {
	mu           sync.Mutex
	store        state.Store
	custody      sdk.TokenCustody
	directory    sdk.Directory
	clock        sdk.Clock
	logger       *slog.Logger
	promRegistry prometheus.Registerer
	metrics      *metrics.FundMetrics

	members  iterset.Set
	approved iterset.Set
	owned    iterset.Set
	shares   shares.Ledger
	values   state.Log
	mgmtLog  state.Log
}

// New opens the fund stored in cfg.Store, creating it from cfg.Parameters
// when the store is empty. A fresh fund registers itself with its registry.
func New(cfg Config, opts ...OptionFunc) (*Fund, error) {
	if cfg.Store == nil || cfg.Custody == nil || cfg.Directory == nil || cfg.Clock == nil {
		return nil, errors.New("fund: store, custody, directory and clock are required")
	}
	f := &Fund{
		store:     cfg.Store,
		custody:   cfg.Custody,
		directory: cfg.Directory,
		clock:     cfg.Clock,
		members:   iterset.New(prefix(kMembers)),
		approved:  iterset.New(prefix(kApproved)),
		owned:     iterset.New(prefix(kOwned)),
		shares:    shares.New(prefix(kShares), false),
		values:    state.NewLog(prefix(kFundValues)),
		mgmtLog:   state.NewLog(prefix(kManagementLog)),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		// throw away logs so call sites never guard
		f.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	f.metrics = metrics.NewFundMetrics(f.promRegistry)

	initialized, err := f.isInitialized()
	if err != nil {
		return nil, err
	}
	if initialized {
		p, err := f.Parameters()
		if err != nil {
			return nil, err
		}
		n, err := f.NumMembers()
		if err != nil {
			return nil, err
		}
		f.metrics.Members.Set(float64(n))
		f.logger.Info("fund resumed", "fund", p.Address.Hex(), "members", n)
		return f, nil
	}
	if err := f.initialize(cfg); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Fund) isInitialized() (bool, error) {
	_, ok, err := f.store.Get(paramsKey())
	return ok, err
}

func validateParameters(p *Parameters) error {
	switch {
	case !sdk.IsValid(p.Address), !sdk.IsValid(p.Owner), !sdk.IsValid(p.Manager):
		return fmt.Errorf("%w: fund, owner and manager must be set", ErrInvalidParameters)
	case !sdk.IsValid(p.DenominationToken):
		return fmt.Errorf("%w: denomination token must be set", ErrInvalidParameters)
	case p.ShareDecimals > fixedpoint.MaxDecimals:
		return fmt.Errorf("%w: share decimals %d", ErrInvalidParameters, p.ShareDecimals)
	case p.MinimumLockupDuration > MaxDuration, p.MinimumPayoutDuration > MaxDuration, p.RecomputationDelay > MaxDuration:
		return ErrDurationTooLong
	}
	return nil
}

func (f *Fund) initialize(cfg Config) error {
	p := cfg.Parameters
	if err := validateParameters(&p); err != nil {
		return err
	}
	if _, err := f.directory.Ticker(p.Ticker); err != nil {
		return collaborator("resolve ticker", err)
	}
	registry, err := f.directory.Registry(p.Registry)
	if err != nil {
		return collaborator("resolve registry", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	op := &operation{f: f, env: sdk.NewEnv(f.clock, p.Manager), tx: state.Begin(f.store), params: &p}
	op.saveParams()
	tokens := append([]sdk.Address{p.DenominationToken}, cfg.ApprovedTokens...)
	if err := f.approveTokens(op, tokens); err != nil {
		op.tx.Discard()
		return err
	}
	op.effect("registry add fund", func() error { return registry.AddFund(p.Address, p.Manager) }, nil)
	if err := op.finish(); err != nil {
		return err
	}
	f.logger.Info("fund created",
		"event", "fi",
		"fund", p.Address.Hex(),
		"owner", p.Owner.Hex(),
		"manager", p.Manager.Hex(),
		"denomination", p.DenominationToken.Hex(),
	)
	return nil
}

// ---------- operation plumbing ----------

type effect struct {
	name string
	do   func() error
	undo func() error
}

// operation is the per call context: one time reading, one txn, the fund's
// token balances as they will be once the queued effects ran.
type operation struct {
	f        *Fund
	env      sdk.Env
	tx       *state.Txn
	params   *Parameters
	denomDec *uint8
	balances map[sdk.Address]*uint256.Int
	effects  []effect
	// moved is set once custody changed outside the effect queue
	moved    bool
	events   []func()
}

func (f *Fund) begin(caller sdk.Address) (*operation, error) {
	op := &operation{f: f, env: sdk.NewEnv(f.clock, caller), tx: state.Begin(f.store)}
	data, ok, err := op.tx.Get(paramsKey())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	if op.params, err = decodeParams(data); err != nil {
		return nil, err
	}
	return op, nil
}

// update runs fn as one atomic operation on behalf of caller.
func (f *Fund) update(caller sdk.Address, fn func(op *operation) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	op, err := f.begin(caller)
	if err != nil {
		return err
	}
	if err := fn(op); err != nil {
		op.tx.Discard()
		return err
	}
	return op.finish()
}

// view runs fn against a txn that is never committed.
func (f *Fund) view(fn func(op *operation) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	op, err := f.begin(sdk.ZeroAddress)
	if err != nil {
		return err
	}
	defer op.tx.Discard()
	return fn(op)
}

// finish runs the queued effects, commits and then emits events.
func (op *operation) finish() error {
	for i, e := range op.effects {
		if err := e.do(); err != nil {
			for j := i - 1; j >= 0; j-- {
				prev := op.effects[j]
				if prev.undo == nil {
					continue
				}
				if uerr := prev.undo(); uerr != nil {
					op.f.logger.Error("compensation failed, custody needs reconciling",
						"effect", prev.name,
						"error", uerr,
					)
					err = errors.Join(err, uerr)
				}
			}
			op.tx.Discard()
			return collaborator(e.name, err)
		}
	}
	if err := op.tx.Commit(); err != nil {
		if len(op.effects) > 0 || op.moved {
			op.f.logger.Error("commit failed after collaborator effects ran", "error", err)
		}
		return fmt.Errorf("commit fund state: %w", err)
	}
	for _, emit := range op.events {
		emit()
	}
	return nil
}

func (op *operation) effect(name string, do, undo func() error) {
	op.effects = append(op.effects, effect{name: name, do: do, undo: undo})
}

func (op *operation) emit(fn func()) { op.events = append(op.events, fn) }

func (op *operation) now() int64 { return op.env.Timestamp }

func (op *operation) saveParams() {
	op.tx.Set(paramsKey(), encodeParams(op.params))
}

// ---------- authorization ----------

func (op *operation) requireOwner() error {
	if op.env.Sender != op.params.Owner {
		return fmt.Errorf("%w: owner only", ErrUnauthorized)
	}
	return nil
}

func (op *operation) requireManager() error {
	if op.env.Sender != op.params.Manager {
		return fmt.Errorf("%w: manager only", ErrUnauthorized)
	}
	return nil
}

func (op *operation) requireManagerOrOwner() error {
	if op.env.Sender != op.params.Manager && op.env.Sender != op.params.Owner {
		return fmt.Errorf("%w: manager or owner only", ErrUnauthorized)
	}
	return nil
}

func (op *operation) requireRegistry() error {
	if op.env.Sender != op.params.Registry {
		return fmt.Errorf("%w: registry only", ErrUnauthorized)
	}
	return nil
}

// ---------- collaborators ----------

func (op *operation) ticker() (sdk.Ticker, error) {
	t, err := op.f.directory.Ticker(op.params.Ticker)
	if err != nil {
		return nil, collaborator("resolve ticker", err)
	}
	return t, nil
}

func (op *operation) registry() (sdk.Registry, error) {
	r, err := op.f.directory.Registry(op.params.Registry)
	if err != nil {
		return nil, collaborator("resolve registry", err)
	}
	return r, nil
}

func (op *operation) denominationDecimals() (uint8, error) {
	if op.denomDec != nil {
		return *op.denomDec, nil
	}
	d, err := op.f.custody.Decimals(op.params.DenominationToken)
	if err != nil {
		return 0, collaborator("denomination decimals", err)
	}
	op.denomDec = &d
	return d, nil
}

// balanceOf is the fund's holding of token once the queued effects ran.
func (op *operation) balanceOf(token sdk.Address) (*uint256.Int, error) {
	if op.balances == nil {
		op.balances = make(map[sdk.Address]*uint256.Int)
	}
	if b, ok := op.balances[token]; ok {
		return b, nil
	}
	b, err := op.f.custody.BalanceOf(token, op.params.Address)
	if err != nil {
		return nil, collaborator("fund balance", err)
	}
	op.balances[token] = b
	return b, nil
}

func (op *operation) credit(token sdk.Address, qty *uint256.Int) error {
	b, err := op.balanceOf(token)
	if err != nil {
		return err
	}
	nb, err := fixedpoint.Add(b, qty)
	if err != nil {
		return err
	}
	op.balances[token] = nb
	return nil
}

func (op *operation) debit(token sdk.Address, qty *uint256.Int) error {
	b, err := op.balanceOf(token)
	if err != nil {
		return err
	}
	nb, err := fixedpoint.Sub(b, qty)
	if err != nil {
		return err
	}
	op.balances[token] = nb
	return nil
}

// stage runs fn against a nested txn and a copy of the predicted balances.
// Nothing reaches op until the returned apply runs, and apply cannot fail.
func (op *operation) stage(fn func() error) (apply func(), err error) {
	tx, balances := op.tx, op.balances
	op.tx, op.balances = tx.Nest(), maps.Clone(balances)
	defer func() { op.tx, op.balances = tx, balances }()
	if err := fn(); err != nil {
		return nil, err
	}
	staged, stagedBalances := op.tx, op.balances
	return func() {
		op.tx.Merge(staged)
		op.balances = stagedBalances
	}, nil
}

// pull queues moving qty of token from owner into the fund using the fund's allowance.
func (op *operation) pull(token, from sdk.Address, qty *uint256.Int) error {
	if qty.IsZero() {
		return nil
	}
	if err := op.credit(token, qty); err != nil {
		return err
	}
	custody, fund, amount := op.f.custody, op.params.Address, qty.Clone()
	op.effect("pull "+token.Hex(),
		func() error { return custody.TransferFrom(token, fund, from, fund, amount) },
		func() error { return custody.Transfer(token, fund, from, amount) },
	)
	return nil
}

// push queues paying qty of token out of the fund.
func (op *operation) push(token, to sdk.Address, qty *uint256.Int) error {
	if qty.IsZero() {
		return nil
	}
	if err := op.debit(token, qty); err != nil {
		return err
	}
	custody, fund, amount := op.f.custody, op.params.Address, qty.Clone()
	op.effect("push "+token.Hex(),
		func() error { return custody.Transfer(token, fund, to, amount) },
		nil,
	)
	return nil
}
