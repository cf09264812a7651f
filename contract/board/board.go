// Package board is the governance engine of the fund: a set of directors
// raising motions, voting on them and executing the passed ones.
//
// A motion carries one administrative command as a slot encoded payload.
// Executing it calls the matching setter on the Fund under the board's own
// address, which has to be the fund's owner, or changes the director set.
// The fund commits its change itself; the board then records the outcome
// in its own state. Lock order is board then fund, the fund never calls back.
package board

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"pooled_fund/contract/iterset"
	"pooled_fund/contract/state"
	"pooled_fund/internal/metrics"
	"pooled_fund/sdk"
)

// DefaultMotionDuration is seven days.
const DefaultMotionDuration uint64 = 7 * 24 * 60 * 60

// MaxMotionDuration keeps createdAt + duration inside int64, same bound as the fund's durations.
const MaxMotionDuration uint64 = 1 << 40

// Fund is what the board administers. *fund.Fund satisfies it.
type Fund interface {
	SetManager(caller, manager sdk.Address) error
	SetDenominationToken(caller, token sdk.Address) error
	SetMinimumLockupDuration(caller sdk.Address, d uint64) error
	SetMinimumPayoutDuration(caller sdk.Address, d uint64) error
	SetRecomputationDelay(caller sdk.Address, d uint64) error
	SetTicker(caller, ticker sdk.Address) error
	SetRegistry(caller, registry sdk.Address) error
	ResetMemberUnlockTime(caller, member sdk.Address) error
	SetFundOwner(caller, owner sdk.Address) error
	ApproveTokens(caller sdk.Address, tokens []sdk.Address) error
	DisapproveTokens(caller sdk.Address, tokens []sdk.Address) error
}

type Config struct {
	Store state.Store
	Clock sdk.Clock
	Fund  Fund
	// Address, Directors and MotionDuration only matter when the store holds no board yet.
	Address        sdk.Address
	Directors      []sdk.Address
	MotionDuration uint64
}

type OptionFunc func(*Board)

func WithLogger(logger *slog.Logger) OptionFunc {
	return func(b *Board) { b.logger = logger }
}

func WithPromRegistry(reg prometheus.Registerer) OptionFunc {
	return func(b *Board) { b.promRegistry = reg }
}

type Board struct {
	mu           sync.Mutex
	store        state.Store
	clock        sdk.Clock
	fund         Fund
	logger       *slog.Logger
	promRegistry prometheus.Registerer
	metrics      *metrics.BoardMetrics

	directors iterset.Set
	motions   state.Log
}

// New opens the board in cfg.Store or creates it with the initial directors.
func New(cfg Config, opts ...OptionFunc) (*Board, error) {
	if cfg.Store == nil || cfg.Clock == nil || cfg.Fund == nil {
		return nil, errors.New("board: store, clock and fund are required")
	}
	b := &Board{
		store:     cfg.Store,
		clock:     cfg.Clock,
		fund:      cfg.Fund,
		directors: iterset.New(prefix(kDirectors)),
		motions:   state.NewLog(prefix(kMotions)),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	b.metrics = metrics.NewBoardMetrics(b.promRegistry)

	_, initialized, err := b.store.Get(paramsKey())
	if err != nil {
		return nil, err
	}
	if !initialized {
		if err := b.initialize(cfg); err != nil {
			return nil, err
		}
	}
	n, err := b.NumDirectors()
	if err != nil {
		return nil, err
	}
	b.metrics.Directors.Set(float64(n))
	if initialized {
		b.logger.Info("board resumed", "directors", n)
	}
	return b, nil
}

func (b *Board) initialize(cfg Config) error {
	if !sdk.IsValid(cfg.Address) {
		return fmt.Errorf("%w: board address must be set", ErrInvalidConfig)
	}
	if len(cfg.Directors) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrLastDirector)
	}
	if cfg.MotionDuration > MaxMotionDuration {
		return fmt.Errorf("%w: motion duration %d above %d", ErrInvalidConfig, cfg.MotionDuration, MaxMotionDuration)
	}
	p := &Parameters{Address: cfg.Address, MotionDuration: cfg.MotionDuration}
	if p.MotionDuration == 0 {
		p.MotionDuration = DefaultMotionDuration
	}
	tx := state.Begin(b.store)
	tx.Set(paramsKey(), encodeParams(p))
	for _, d := range cfg.Directors {
		if !sdk.IsValid(d) {
			tx.Discard()
			return fmt.Errorf("%w: director", ErrInvalidAddress)
		}
		if _, err := b.directors.Add(tx, d); err != nil {
			tx.Discard()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit board state: %w", err)
	}
	emitDirectorsChangedEvent(b.logger, "initial", cfg.Directors)
	b.logger.Info("board created", "event", "bi", "board", p.Address.Hex(), "motion_duration", p.MotionDuration)
	return nil
}

// ---------- operation plumbing ----------

type operation struct {
	env    sdk.Env
	tx     *state.Txn
	params *Parameters
	events []func()
}

func (op *operation) now() int64 { return op.env.Timestamp }

func (op *operation) emit(fn func()) { op.events = append(op.events, fn) }

func (b *Board) begin(caller sdk.Address) (*operation, error) {
	op := &operation{env: sdk.NewEnv(b.clock, caller), tx: state.Begin(b.store)}
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

// update runs fn atomically for caller, events go out after the commit.
func (b *Board) update(caller sdk.Address, fn func(op *operation) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	op, err := b.begin(caller)
	if err != nil {
		return err
	}
	if err := fn(op); err != nil {
		op.tx.Discard()
		return err
	}
	if err := op.tx.Commit(); err != nil {
		return fmt.Errorf("commit board state: %w", err)
	}
	for _, emit := range op.events {
		emit()
	}
	return nil
}

func (b *Board) view(fn func(op *operation) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	op, err := b.begin(sdk.ZeroAddress)
	if err != nil {
		return err
	}
	defer op.tx.Discard()
	return fn(op)
}

func (b *Board) requireDirector(op *operation) error {
	ok, err := b.directors.Contains(op.tx, op.env.Sender)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotDirector, op.env.Sender.Hex())
	}
	return nil
}

func (b *Board) loadMotion(op *operation, id uint64) (*Motion, error) {
	n, err := b.motions.Len(op.tx)
	if err != nil {
		return nil, err
	}
	if id >= n {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchMotion, id)
	}
	data, err := b.motions.At(op.tx, id)
	if err != nil {
		return nil, err
	}
	return decodeMotion(data)
}

func (b *Board) saveMotion(op *operation, m *Motion) error {
	return b.motions.Replace(op.tx, m.ID, encodeMotion(m))
}

// setStatus moves m to s, queuing the transition event when it changed.
func (b *Board) setStatus(op *operation, m *Motion, s Status) {
	from := m.Status
	if from == s {
		return
	}
	m.Status = s
	id := m.ID
	op.emit(func() {
		b.metrics.Transitions.WithLabelValues(s.String()).Inc()
		emitStatusChangedEvent(b.logger, id, from, s)
	})
}

func (b *Board) loadVote(op *operation, id uint64, director sdk.Address) (Vote, error) {
	data, ok, err := op.tx.Get(voteKey(id, director))
	if err != nil || !ok {
		return VoteAbsent, err
	}
	if len(data) != 1 {
		return VoteAbsent, fmt.Errorf("vote record of motion %d: %d bytes", id, len(data))
	}
	return Vote(data[0]), nil
}

// ---------- motions ----------

// InitiateMotion opens a motion of type t. The payload is decoded right away
// so a malformed command never reaches a vote.
func (b *Board) InitiateMotion(caller sdk.Address, t MotionType, description string, payload []byte) (uint64, error) {
	var id uint64
	err := b.update(caller, func(op *operation) error {
		if err := b.requireDirector(op); err != nil {
			return err
		}
		if !t.Valid() {
			return fmt.Errorf("%w: %d", ErrUnknownMotionType, t)
		}
		if strings.TrimSpace(description) == "" {
			return ErrDescriptionRequired
		}
		if _, err := DecodeCommand(t, payload); err != nil {
			return err
		}
		n, err := b.motions.Len(op.tx)
		if err != nil {
			return err
		}
		now := op.now()
		m := &Motion{
			ID:          n,
			Type:        t,
			Status:      StatusActive,
			Initiator:   caller,
			CreatedAt:   now,
			ExpiresAt:   now + int64(op.params.MotionDuration),
			Description: description,
			Payload:     append([]byte(nil), payload...),
		}
		if _, err := b.motions.Append(op.tx, encodeMotion(m)); err != nil {
			return err
		}
		op.emit(func() {
			b.metrics.Motions.WithLabelValues(t.String()).Inc()
			emitMotionCreatedEvent(b.logger, m)
		})
		id = m.ID
		return nil
	})
	return id, err
}

// Propose is InitiateMotion for an already built command.
func (b *Board) Propose(caller sdk.Address, cmd Command, description string) (uint64, error) {
	return b.InitiateMotion(caller, cmd.Type(), description, cmd.Payload())
}

func (b *Board) VoteFor(caller sdk.Address, id uint64) error { return b.vote(caller, id, VoteYes) }

func (b *Board) VoteAgainst(caller sdk.Address, id uint64) error { return b.vote(caller, id, VoteNo) }

func (b *Board) Abstain(caller sdk.Address, id uint64) error { return b.vote(caller, id, VoteAbstain) }

// bucket points at the tally a vote counts towards, nil for VoteAbsent.
func bucket(m *Motion, v Vote) *uint64 {
	switch v {
	case VoteYes:
		return &m.VotesFor
	case VoteNo:
		return &m.VotesAgainst
	case VoteAbstain:
		return &m.Abstentions
	}
	return nil
}

// vote records v for the caller. Repeating the current vote changes nothing,
// switching moves the caller from one tally to the other. The status is
// recomputed from the tallies on every change.
func (b *Board) vote(caller sdk.Address, id uint64, v Vote) error {
	return b.update(caller, func(op *operation) error {
		if err := b.requireDirector(op); err != nil {
			return err
		}
		m, err := b.loadMotion(op, id)
		if err != nil {
			return err
		}
		if !m.Status.Open() {
			return fmt.Errorf("%w: cannot vote on %s motion", ErrInvalidTransition, m.Status)
		}
		if op.now() > m.ExpiresAt {
			return ErrMotionExpired
		}
		prev, err := b.loadVote(op, id, caller)
		if err != nil {
			return err
		}
		if prev == v {
			return nil
		}
		if old := bucket(m, prev); old != nil {
			*old--
		}
		*bucket(m, v)++
		op.tx.Set(voteKey(id, caller), []byte{byte(v)})
		n, err := b.directors.Len(op.tx)
		if err != nil {
			return err
		}
		b.setStatus(op, m, m.tally(n))
		if err := b.saveMotion(op, m); err != nil {
			return err
		}
		op.emit(func() {
			b.metrics.Votes.WithLabelValues(v.String()).Inc()
			emitVoteEvent(b.logger, m, caller, v)
		})
		return nil
	})
}

// CancelMotion lets the initiator pull an active motion nobody voted on yet.
func (b *Board) CancelMotion(caller sdk.Address, id uint64) error {
	return b.update(caller, func(op *operation) error {
		if err := b.requireDirector(op); err != nil {
			return err
		}
		m, err := b.loadMotion(op, id)
		if err != nil {
			return err
		}
		if m.Initiator != caller {
			return ErrNotInitiator
		}
		if m.Status != StatusActive {
			return fmt.Errorf("%w: cannot cancel %s motion", ErrInvalidTransition, m.Status)
		}
		if m.votesCast() > 0 {
			return ErrVotesCast
		}
		b.setStatus(op, m, StatusCancelled)
		return b.saveMotion(op, m)
	})
}

// ExpireMotion closes an open motion whose voting window is over.
func (b *Board) ExpireMotion(caller sdk.Address, id uint64) error {
	return b.update(caller, func(op *operation) error {
		if err := b.requireDirector(op); err != nil {
			return err
		}
		m, err := b.loadMotion(op, id)
		if err != nil {
			return err
		}
		if !m.Status.Open() {
			return fmt.Errorf("%w: cannot expire %s motion", ErrInvalidTransition, m.Status)
		}
		if op.now() <= m.ExpiresAt {
			return ErrMotionNotExpired
		}
		b.setStatus(op, m, StatusExpired)
		return b.saveMotion(op, m)
	})
}

// ExecuteMotion runs a passed motion once. A rejected command is not an
// error, the motion ends up ExecutionFailed and that status comes back.
// The status is meaningless when err is set.
func (b *Board) ExecuteMotion(caller sdk.Address, id uint64) (Status, error) {
	var status Status
	err := b.update(caller, func(op *operation) error {
		if err := b.requireDirector(op); err != nil {
			return err
		}
		m, err := b.loadMotion(op, id)
		if err != nil {
			return err
		}
		if m.Status != StatusPassed {
			return fmt.Errorf("%w: cannot execute %s motion", ErrInvalidTransition, m.Status)
		}
		if op.now() > m.ExpiresAt {
			return ErrMotionExpired
		}
		cmd, err := DecodeCommand(m.Type, m.Payload)
		if err != nil {
			// checked at initiation, a stored motion that fails here is corrupt
			return fmt.Errorf("motion %d: %w", id, err)
		}
		execErr := b.dispatch(op, cmd)
		status = StatusExecuted
		if execErr != nil {
			status = StatusExecutionFailed
		}
		b.setStatus(op, m, status)
		if err := b.saveMotion(op, m); err != nil {
			if execErr == nil && isFundCommand(cmd) {
				b.logger.Error("fund change applied but motion status not saved", "id", id, "error", err)
			}
			return err
		}
		op.emit(func() {
			b.metrics.Executions.WithLabelValues(m.Type.String(), status.String()).Inc()
			emitExecutedEvent(b.logger, m, execErr)
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return status, nil
}

func isFundCommand(cmd Command) bool {
	switch cmd.(type) {
	case AddDirectors, RemoveDirectors:
		return false
	}
	return true
}

// dispatch applies one command. Fund setters run under the board's address.
func (b *Board) dispatch(op *operation, cmd Command) error {
	self := op.params.Address
	switch c := cmd.(type) {
	case SetManager:
		return b.fund.SetManager(self, c.Manager)
	case SetDenominationToken:
		return b.fund.SetDenominationToken(self, c.Token)
	case SetMinimumLockupDuration:
		return b.fund.SetMinimumLockupDuration(self, c.Seconds)
	case SetMinimumPayoutDuration:
		return b.fund.SetMinimumPayoutDuration(self, c.Seconds)
	case SetRecomputationDelay:
		return b.fund.SetRecomputationDelay(self, c.Seconds)
	case SetTicker:
		return b.fund.SetTicker(self, c.Ticker)
	case SetRegistry:
		return b.fund.SetRegistry(self, c.Registry)
	case ResetMemberUnlockTime:
		return b.fund.ResetMemberUnlockTime(self, c.Member)
	case SetFundOwner:
		return b.fund.SetFundOwner(self, c.Owner)
	case ApproveTokens:
		return b.fund.ApproveTokens(self, c.Tokens)
	case DisapproveTokens:
		return b.fund.DisapproveTokens(self, c.Tokens)
	case AddDirectors:
		return b.addDirectors(op, c.Directors)
	case RemoveDirectors:
		return b.removeDirectors(op, c.Directors)
	}
	return fmt.Errorf("%w: %T", ErrUnknownMotionType, cmd)
}

// ---------- directors ----------

// addDirectors checks the whole list before adding anything.
func (b *Board) addDirectors(op *operation, list []sdk.Address) error {
	for _, d := range list {
		if !sdk.IsValid(d) {
			return fmt.Errorf("%w: director", ErrInvalidAddress)
		}
		ok, err := b.directors.Contains(op.tx, d)
		if err != nil {
			return err
		}
		if ok {
			return fmt.Errorf("%w: %s", ErrAlreadyDirector, d.Hex())
		}
	}
	for _, d := range list {
		if _, err := b.directors.Add(op.tx, d); err != nil {
			return err
		}
	}
	return b.directorsChanged(op, "added", list)
}

// removeDirectors refuses to empty the board or to remove a non director.
func (b *Board) removeDirectors(op *operation, list []sdk.Address) error {
	distinct := map[sdk.Address]struct{}{}
	for _, d := range list {
		ok, err := b.directors.Contains(op.tx, d)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotDirector, d.Hex())
		}
		distinct[d] = struct{}{}
	}
	n, err := b.directors.Len(op.tx)
	if err != nil {
		return err
	}
	if uint64(len(distinct)) >= n {
		return ErrLastDirector
	}
	for _, d := range list {
		if _, err := b.directors.Remove(op.tx, d); err != nil {
			return err
		}
	}
	return b.directorsChanged(op, "removed", list)
}

func (b *Board) directorsChanged(op *operation, action string, list []sdk.Address) error {
	n, err := b.directors.Len(op.tx)
	if err != nil {
		return err
	}
	changed := append([]sdk.Address(nil), list...)
	op.emit(func() {
		b.metrics.Directors.Set(float64(n))
		emitDirectorsChangedEvent(b.logger, action, changed)
	})
	return nil
}

// ResignAsDirector removes the caller from the board. The last director stays.
func (b *Board) ResignAsDirector(caller sdk.Address) error {
	return b.update(caller, func(op *operation) error {
		if err := b.requireDirector(op); err != nil {
			return err
		}
		n, err := b.directors.Len(op.tx)
		if err != nil {
			return err
		}
		if n <= 1 {
			return ErrLastDirector
		}
		if _, err := b.directors.Remove(op.tx, caller); err != nil {
			return err
		}
		return b.directorsChanged(op, "resigned", []sdk.Address{caller})
	})
}

// ---------- queries ----------

func (b *Board) Parameters() (Parameters, error) {
	var p Parameters
	err := b.view(func(op *operation) error {
		p = *op.params
		return nil
	})
	return p, err
}

func (b *Board) Motion(id uint64) (Motion, error) {
	var m Motion
	err := b.view(func(op *operation) error {
		loaded, err := b.loadMotion(op, id)
		if err != nil {
			return err
		}
		m = *loaded
		return nil
	})
	return m, err
}

func (b *Board) NumMotions() (uint64, error) {
	var n uint64
	err := b.view(func(op *operation) (err error) {
		n, err = b.motions.Len(op.tx)
		return err
	})
	return n, err
}

// MotionVote is the director's current vote, VoteAbsent when none was cast.
func (b *Board) MotionVote(id uint64, director sdk.Address) (Vote, error) {
	var v Vote
	err := b.view(func(op *operation) error {
		if _, err := b.loadMotion(op, id); err != nil {
			return err
		}
		var err error
		v, err = b.loadVote(op, id, director)
		return err
	})
	return v, err
}

func (b *Board) Directors() ([]sdk.Address, error) {
	var out []sdk.Address
	err := b.view(func(op *operation) (err error) {
		out, err = b.directors.Items(op.tx)
		return err
	})
	return out, err
}

func (b *Board) IsDirector(a sdk.Address) (bool, error) {
	var ok bool
	err := b.view(func(op *operation) (err error) {
		ok, err = b.directors.Contains(op.tx, a)
		return err
	})
	return ok, err
}

func (b *Board) NumDirectors() (uint64, error) {
	var n uint64
	err := b.view(func(op *operation) (err error) {
		n, err = b.directors.Len(op.tx)
		return err
	})
	return n, err
}
