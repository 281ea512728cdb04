package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alpha-fi/cheddar-maze-minter/core/events"
	"github.com/alpha-fi/cheddar-maze-minter/native/minter"
	"github.com/alpha-fi/cheddar-maze-minter/observability"
	"github.com/alpha-fi/cheddar-maze-minter/services/minterd/ledger"
	"github.com/alpha-fi/cheddar-maze-minter/services/minterd/receipts"
	minterstate "github.com/alpha-fi/cheddar-maze-minter/state/minter"
	"github.com/alpha-fi/cheddar-maze-minter/storage"
)

// Sink accepts ledger calls released after commit.
type Sink interface {
	Enqueue(call ledger.MintCall) error
}

// ReceiptRecorder stores an audit record for a committed mint.
type ReceiptRecorder interface {
	Record(ctx context.Context, requestID string, res *minter.MintResult) (*receipts.Receipt, error)
}

// Options wires the executor's collaborators. Nil fields fall back to no-ops.
type Options struct {
	Sink         Sink
	Receipts     ReceiptRecorder
	Emitter      events.Emitter
	Logger       *slog.Logger
	Now          func() time.Time
	MinGas       uint64
	ReferralMemo string
	NewID        func() string
}

// MintOutcome is the committed result of one issuance request.
type MintOutcome struct {
	RequestID string
	Result    *minter.MintResult
}

// Executor hosts the minter engine. It admits one request at a time, stages the
// request's writes in a journal, and commits them atomically or drops them all.
// Ledger calls and events are released only after a successful commit.
type Executor struct {
	mu sync.Mutex

	db       storage.Database
	sink     Sink
	receipts ReceiptRecorder
	emitter  events.Emitter
	logger   *slog.Logger
	metrics  *observability.MinterMetrics
	now      func() time.Time
	minGas   uint64
	memo     string
	newID    func() string

	contract   string
	dailyQuota *big.Int
}

func New(db storage.Database, opts Options) *Executor {
	x := &Executor{
		db:       db,
		sink:     opts.Sink,
		receipts: opts.Receipts,
		emitter:  opts.Emitter,
		logger:   opts.Logger,
		metrics:  observability.Minter(),
		now:      opts.Now,
		minGas:   opts.MinGas,
		memo:     opts.ReferralMemo,
		newID:    opts.NewID,
	}
	if x.emitter == nil {
		x.emitter = events.NoopEmitter{}
	}
	if x.logger == nil {
		x.logger = slog.Default()
	}
	if x.now == nil {
		x.now = time.Now
	}
	if x.minGas == 0 {
		x.minGas = minter.DefaultMinMintGas
	}
	if x.newID == nil {
		x.newID = uuid.NewString
	}
	return x
}

type session struct {
	engine  *minter.Engine
	journal *storage.Journal
	buffer  *events.Buffer
	outbox  *outbox
}

func (x *Executor) newSession() *session {
	s := &session{
		journal: storage.NewJournal(x.db),
		buffer:  events.NewBuffer(),
		outbox:  &outbox{},
	}
	engine := minter.NewEngine()
	engine.SetState(minterstate.NewStore(s.journal))
	engine.SetEmitter(s.buffer)
	engine.SetLedger(s.outbox)
	engine.SetLogger(x.logger)
	engine.SetNowFunc(x.now)
	engine.SetMinGas(x.minGas)
	engine.SetReferralMemo(x.memo)
	s.engine = engine
	return s
}

// run executes fn against a fresh session while holding the request lock. The
// journal is committed when fn succeeds and discarded otherwise.
func (x *Executor) run(fn func(*minter.Engine) error) (*session, error) {
	s := x.newSession()
	if err := fn(s.engine); err != nil {
		s.journal.Discard()
		s.buffer.Discard()
		return nil, err
	}
	if err := s.journal.Commit(); err != nil {
		s.buffer.Discard()
		return nil, fmt.Errorf("commit state: %w", err)
	}
	return s, nil
}

// release hands committed events to the emitter and ledger calls to the sink.
func (x *Executor) release(s *session, requestID string) {
	s.buffer.Flush(x.emitter)
	if x.sink == nil {
		return
	}
	for _, call := range s.outbox.mintCalls(x.contract, requestID) {
		if err := x.sink.Enqueue(call); err != nil {
			x.logger.Error("mint call not dispatched",
				"request_id", call.RequestID,
				"recipient", call.ReceiverID,
				"amount", call.Amount,
				"error", err)
		}
	}
}

// Bootstrap initialises the gateway from params on first start and loads the
// immutable settings otherwise. It reports whether initialisation happened.
func (x *Executor) Bootstrap(params minter.InitParams) (bool, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	var initialised bool
	var view *minter.ConfigView
	s, err := x.run(func(engine *minter.Engine) error {
		ok, err := engine.Initialized()
		if err != nil {
			return err
		}
		if !ok {
			if err := engine.Init(params); err != nil {
				return err
			}
			initialised = true
		}
		view, err = engine.Config()
		return err
	})
	if err != nil {
		return false, err
	}
	x.release(s, x.newID())

	x.contract = view.Ledger
	quota, err := minter.ParseAmount(view.DailyQuota)
	if err != nil {
		return false, err
	}
	x.dailyQuota = quota
	x.metrics.SetActive(view.Active)
	if initialised {
		x.logger.Info("minter initialised", "ledger", view.Ledger, "admin", view.Admin, "minter", view.Minter,
			"daily_quota", view.DailyQuota, "user_quota", view.UserQuota)
	} else if params.Ledger != "" && params.Ledger != view.Ledger {
		x.logger.Warn("genesis ledger differs from persisted state; keeping persisted value",
			"genesis", params.Ledger, "persisted", view.Ledger)
	}
	return initialised, nil
}

// Mint runs one issuance request on behalf of caller. The receipt is recorded
// after the request lock is released.
func (x *Executor) Mint(ctx context.Context, caller string, req minter.MintRequest) (*MintOutcome, error) {
	requestID, res, err := x.issue(caller, req)
	if err != nil {
		return nil, err
	}
	if x.receipts != nil {
		if _, err := x.receipts.Record(ctx, requestID, res); err != nil {
			x.logger.Error("failed to record mint receipt", "request_id", requestID, "error", err)
		}
	}
	x.logger.Info("mint committed",
		"request_id", requestID,
		"recipient", res.Recipient,
		"referral", res.Referral,
		"user_minted", minter.FormatAmount(res.UserMinted),
		"referral_minted", minter.FormatAmount(res.ReferralMinted),
		"day", res.Day)
	return &MintOutcome{RequestID: requestID, Result: res}, nil
}

func (x *Executor) issue(caller string, req minter.MintRequest) (string, *minter.MintResult, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	var res *minter.MintResult
	s, err := x.run(func(engine *minter.Engine) error {
		var err error
		res, err = engine.Issue(caller, req)
		return err
	})
	x.metrics.RecordOperation("mint", Outcome(err))
	if err != nil {
		return "", nil, err
	}
	requestID := x.newID()
	x.release(s, requestID)
	x.metrics.RecordMint(res.UserMinted, res.ReferralMinted, res.Truncated())
	x.metrics.RecordDailyUse(res.DailyUse, x.dailyQuota)
	return requestID, res, nil
}

// ToggleActive flips the active flag on behalf of caller.
func (x *Executor) ToggleActive(ctx context.Context, caller string) (bool, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	var active bool
	s, err := x.run(func(engine *minter.Engine) error {
		var err error
		active, err = engine.ToggleActive(caller)
		return err
	})
	x.metrics.RecordOperation("toggle_active", Outcome(err))
	if err != nil {
		return false, err
	}
	x.release(s, x.newID())
	x.metrics.SetActive(active)
	return active, nil
}

// ChangeMinter replaces the minter identity on behalf of caller.
func (x *Executor) ChangeMinter(ctx context.Context, caller, next string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	s, err := x.run(func(engine *minter.Engine) error {
		return engine.ChangeMinter(caller, next)
	})
	x.metrics.RecordOperation("change_minter", Outcome(err))
	if err != nil {
		return err
	}
	x.release(s, x.newID())
	return nil
}

// Config returns the current configuration view.
func (x *Executor) Config(ctx context.Context) (*minter.ConfigView, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	s := x.newSession()
	defer s.journal.Discard()
	return s.engine.Config()
}

// AccountMint returns the live per-account view.
func (x *Executor) AccountMint(ctx context.Context, account string) (*minter.AccountView, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	s := x.newSession()
	defer s.journal.Discard()
	return s.engine.AccountMint(account)
}

// Outcome maps an engine error to a stable metrics label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, minter.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, minter.ErrInactive):
		return "inactive"
	case errors.Is(err, minter.ErrInsufficientBudget):
		return "insufficient_budget"
	case errors.Is(err, minter.ErrGlobalQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, minter.ErrInvalidAmount),
		errors.Is(err, minter.ErrInvalidRecipient),
		errors.Is(err, minter.ErrInvalidMinter):
		return "invalid"
	default:
		return "error"
	}
}
