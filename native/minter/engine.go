package minter

import (
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/alpha-fi/cheddar-maze-minter/core/events"
	"github.com/alpha-fi/cheddar-maze-minter/core/types"
)

// DefaultReferralMemo tags ledger calls that pay a referrer.
const DefaultReferralMemo = "referral"

type engineState interface {
	MinterConfigGet() (*Config, bool, error)
	MinterConfigPut(cfg *Config) error
	MinterWindowGet() (*DayWindow, bool, error)
	MinterWindowPut(window *DayWindow) error
	MinterAccountGet(account string) (*AccountMintRecord, bool, error)
	MinterAccountPut(account string, record *AccountMintRecord) error
}

// Engine gates token issuance behind the minter/admin roles and the daily quotas.
// It is not safe for concurrent use; the host runs one request at a time and
// discards the state of any request that returns an error.
type Engine struct {
	state        engineState
	emitter      events.Emitter
	ledger       TokenLedger
	logger       *slog.Logger
	nowFn        func() time.Time
	minGas       uint64
	referralMemo string
}

// NewEngine constructs a minter engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter:      events.NoopEmitter{},
		ledger:       NoopLedger{},
		logger:       slog.Default(),
		nowFn:        time.Now,
		minGas:       DefaultMinMintGas,
		referralMemo: DefaultReferralMemo,
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetLedger configures the token ledger capability receiving mint calls.
func (e *Engine) SetLedger(ledger TokenLedger) {
	if ledger == nil {
		e.ledger = NoopLedger{}
		return
	}
	e.ledger = ledger
}

// SetLogger configures the structured logger.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	e.logger = logger
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		e.nowFn = time.Now
		return
	}
	e.nowFn = now
}

// SetMinGas sets the execution budget a mint request must attach.
func (e *Engine) SetMinGas(gas uint64) { e.minGas = gas }

// SetReferralMemo sets the memo attached to referral payouts.
func (e *Engine) SetReferralMemo(memo string) {
	memo = strings.TrimSpace(memo)
	if memo == "" {
		memo = DefaultReferralMemo
	}
	e.referralMemo = memo
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(WrapEvent(evt))
}

func (e *Engine) now() time.Time {
	if e == nil || e.nowFn == nil {
		return time.Now()
	}
	return e.nowFn()
}

func (e *Engine) log() *slog.Logger {
	if e == nil || e.logger == nil {
		return slog.Default()
	}
	return e.logger
}

func (e *Engine) loadConfig() (*Config, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	cfg, ok, err := e.state.MinterConfigGet()
	if err != nil {
		return nil, fmt.Errorf("minter: load config: %w", err)
	}
	if !ok || cfg == nil {
		return nil, ErrNotInitialized
	}
	return cfg, nil
}

func (e *Engine) loadWindow() (*DayWindow, error) {
	window, ok, err := e.state.MinterWindowGet()
	if err != nil {
		return nil, fmt.Errorf("minter: load day window: %w", err)
	}
	if !ok || window == nil {
		return &DayWindow{DailyMints: big.NewInt(0)}, nil
	}
	if window.DailyMints == nil {
		window.DailyMints = big.NewInt(0)
	}
	return window, nil
}

// Initialized reports whether Init has run against the configured state.
func (e *Engine) Initialized() (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	_, ok, err := e.state.MinterConfigGet()
	if err != nil {
		return false, fmt.Errorf("minter: load config: %w", err)
	}
	return ok, nil
}

// Init stores the initial configuration. Minting starts active with an empty day
// window.
func (e *Engine) Init(params InitParams) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	ok, err := e.Initialized()
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyInitialized
	}
	cfg := &Config{
		Ledger:     strings.TrimSpace(params.Ledger),
		Admin:      strings.TrimSpace(params.Admin),
		Minter:     strings.TrimSpace(params.Minter),
		Active:     true,
		DailyQuota: newBigInt(params.TotalLimit),
		UserQuota:  newBigInt(params.UserLimit),
	}
	switch {
	case cfg.Ledger == "":
		return fmt.Errorf("%w: ledger identity required", ErrInvalidInit)
	case cfg.Admin == "":
		return fmt.Errorf("%w: admin identity required", ErrInvalidInit)
	case cfg.Minter == "":
		return fmt.Errorf("%w: minter identity required", ErrInvalidInit)
	case params.TotalLimit == nil || !validAmount(params.TotalLimit):
		return fmt.Errorf("%w: total limit must be a 128-bit unsigned integer", ErrInvalidInit)
	case params.UserLimit == nil || !validAmount(params.UserLimit):
		return fmt.Errorf("%w: user limit must be a 128-bit unsigned integer", ErrInvalidInit)
	}
	if err := e.state.MinterConfigPut(cfg); err != nil {
		return fmt.Errorf("minter: persist config: %w", err)
	}
	if err := e.state.MinterWindowPut(&DayWindow{DailyMints: big.NewInt(0)}); err != nil {
		return fmt.Errorf("minter: persist day window: %w", err)
	}
	e.emit(InitializedEvent(cfg))
	return nil
}

// Issue processes a mint request from caller. The global cap aborts the whole
// request; the per-account cap truncates the recipient's share, possibly to zero.
// The referral share is paid in full and never counted against any account.
func (e *Engine) Issue(caller string, req MintRequest) (*MintResult, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := assertMinter(cfg, caller); err != nil {
		return nil, err
	}
	if req.Gas < e.minGas {
		return nil, fmt.Errorf("%w: at least %d gas must be attached, got %d", ErrInsufficientBudget, e.minGas, req.Gas)
	}
	recipient := strings.TrimSpace(req.Recipient)
	if recipient == "" {
		return nil, ErrInvalidRecipient
	}
	if !validAmount(req.Amount) {
		return nil, fmt.Errorf("%w: amount must be a 128-bit unsigned integer", ErrInvalidAmount)
	}
	amount := new(big.Int).Set(req.Amount)
	referral := strings.TrimSpace(req.Referral)
	hasReferral := req.HasReferral()

	day := DayIndex(e.now())
	window, err := e.loadWindow()
	if err != nil {
		return nil, err
	}
	tracker := newQuotaTracker(e.state, cfg, window)
	tracker.rollover(day)
	if err := tracker.checkGlobalCap(amount); err != nil {
		return nil, err
	}

	userAmount, referralAmount := SplitReferral(amount, hasReferral)
	userMinted, err := tracker.grantToAccount(recipient, day, userAmount)
	if err != nil {
		return nil, err
	}

	if userMinted.Sign() > 0 {
		e.ledger.Mint(recipient, new(big.Int).Set(userMinted), strings.TrimSpace(req.Memo))
	}
	if hasReferral && referralAmount.Sign() > 0 {
		e.ledger.Mint(referral, new(big.Int).Set(referralAmount), e.referralMemo)
	}

	result := &MintResult{
		Recipient:      recipient,
		Referral:       referral,
		Requested:      amount,
		UserMinted:     userMinted,
		ReferralMinted: referralAmount,
		Day:            day,
		DailyUse:       tracker.dailyUse(),
	}
	e.emit(MintIssuedEvent(result))
	return result, nil
}

// ToggleActive flips the active flag and returns its new value. Admin only.
func (e *Engine) ToggleActive(caller string) (bool, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return false, err
	}
	if err := assertAdmin(cfg, caller); err != nil {
		return false, err
	}
	cfg.Active = !cfg.Active
	if err := e.state.MinterConfigPut(cfg); err != nil {
		return false, fmt.Errorf("minter: persist config: %w", err)
	}
	e.log().Info(fmt.Sprintf("setting contract active=%t", cfg.Active), "admin", caller)
	e.emit(ActiveToggledEvent(caller, cfg.Active))
	return cfg.Active, nil
}

// ChangeMinter replaces the minter identity. Admin only.
func (e *Engine) ChangeMinter(caller, minter string) error {
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	if err := assertAdmin(cfg, caller); err != nil {
		return err
	}
	next := strings.TrimSpace(minter)
	if next == "" {
		return ErrInvalidMinter
	}
	previous := cfg.Minter
	cfg.Minter = next
	if err := e.state.MinterConfigPut(cfg); err != nil {
		return fmt.Errorf("minter: persist config: %w", err)
	}
	e.log().Info(fmt.Sprintf("setting new minter: %s", next), "previous", previous)
	e.emit(MinterChangedEvent(caller, previous, next))
	return nil
}

// Config returns the current configuration. No authorisation is required.
func (e *Engine) Config() (*ConfigView, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	window, err := e.loadWindow()
	if err != nil {
		return nil, err
	}
	dailyUse := big.NewInt(0)
	if window.LastMintDay == DayIndex(e.now()) {
		dailyUse = newBigInt(window.DailyMints)
	}
	return &ConfigView{
		Ledger:      cfg.Ledger,
		Admin:       cfg.Admin,
		Minter:      cfg.Minter,
		Active:      cfg.Active,
		DailyQuota:  FormatAmount(cfg.DailyQuota),
		UserQuota:   FormatAmount(cfg.UserQuota),
		DailyUse:    FormatAmount(dailyUse),
		LastMintDay: window.LastMintDay,
	}, nil
}

// AccountMint returns the live per-account total for the current day.
func (e *Engine) AccountMint(account string) (*AccountView, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(account)
	if trimmed == "" {
		return nil, ErrInvalidRecipient
	}
	day := DayIndex(e.now())
	tracker := newQuotaTracker(e.state, cfg, nil)
	minted, err := tracker.liveMinted(trimmed, day)
	if err != nil {
		return nil, err
	}
	remaining := new(big.Int).Sub(newBigInt(cfg.UserQuota), minted)
	if remaining.Sign() < 0 {
		remaining.SetInt64(0)
	}
	return &AccountView{
		Account:   trimmed,
		Day:       day,
		Minted:    FormatAmount(minted),
		Remaining: FormatAmount(remaining),
	}, nil
}
