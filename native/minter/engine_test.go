package minter

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/alpha-fi/cheddar-maze-minter/core/events"
)

type memoryState struct {
	cfg      *Config
	window   *DayWindow
	accounts map[string]*AccountMintRecord
}

func newMemoryState() *memoryState {
	return &memoryState{accounts: make(map[string]*AccountMintRecord)}
}

func (m *memoryState) MinterConfigGet() (*Config, bool, error) {
	if m.cfg == nil {
		return nil, false, nil
	}
	return m.cfg.Clone(), true, nil
}

func (m *memoryState) MinterConfigPut(cfg *Config) error {
	m.cfg = cfg.Clone()
	return nil
}

func (m *memoryState) MinterWindowGet() (*DayWindow, bool, error) {
	if m.window == nil {
		return nil, false, nil
	}
	return m.window.Clone(), true, nil
}

func (m *memoryState) MinterWindowPut(window *DayWindow) error {
	m.window = window.Clone()
	return nil
}

func (m *memoryState) MinterAccountGet(account string) (*AccountMintRecord, bool, error) {
	record, ok := m.accounts[account]
	if !ok {
		return nil, false, nil
	}
	return &AccountMintRecord{Day: record.Day, Minted: newBigInt(record.Minted)}, true, nil
}

func (m *memoryState) MinterAccountPut(account string, record *AccountMintRecord) error {
	m.accounts[account] = &AccountMintRecord{Day: record.Day, Minted: newBigInt(record.Minted)}
	return nil
}

type ledgerCall struct {
	recipient string
	amount    *big.Int
	memo      string
}

type recordingLedger struct {
	calls []ledgerCall
}

func (l *recordingLedger) Mint(recipient string, amount *big.Int, memo string) {
	l.calls = append(l.calls, ledgerCall{recipient: recipient, amount: amount, memo: memo})
}

const (
	ledgerID = "cheddar.near"
	adminID  = "admin.near"
	minterID = "minter.near"
	alice    = "alice.near"
	bob      = "bob.near"
	charlie  = "charlie.near"
)

type fixture struct {
	engine *Engine
	state  *memoryState
	ledger *recordingLedger
	events *events.Buffer
	now    time.Time
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithLimits(t, 22, 10)
}

func newFixtureWithLimits(t *testing.T, total, user int64) *fixture {
	t.Helper()
	f := &fixture{
		state:  newMemoryState(),
		ledger: &recordingLedger{},
		events: events.NewBuffer(),
		now:    time.UnixMilli(DayMillis),
	}
	engine := NewEngine()
	engine.SetState(f.state)
	engine.SetLedger(f.ledger)
	engine.SetEmitter(f.events)
	engine.SetNowFunc(func() time.Time { return f.now })
	if err := engine.Init(InitParams{
		Ledger:     ledgerID,
		Admin:      adminID,
		Minter:     minterID,
		TotalLimit: big.NewInt(total),
		UserLimit:  big.NewInt(user),
	}); err != nil {
		t.Fatalf("init: %v", err)
	}
	f.engine = engine
	return f
}

func mintReq(recipient string, amount int64) MintRequest {
	return MintRequest{Recipient: recipient, Amount: big.NewInt(amount), Gas: DefaultMinMintGas}
}

func (f *fixture) mint(t *testing.T, recipient string, amount int64) (int64, int64) {
	t.Helper()
	res, err := f.engine.Issue(minterID, mintReq(recipient, amount))
	if err != nil {
		t.Fatalf("mint %s %d: %v", recipient, amount, err)
	}
	return res.UserMinted.Int64(), res.ReferralMinted.Int64()
}

func (f *fixture) requireAccount(t *testing.T, account string, day uint64, minted int64) {
	t.Helper()
	record, ok := f.state.accounts[account]
	if !ok {
		t.Fatalf("expected record for %s", account)
	}
	if record.Day != day || record.Minted.Int64() != minted {
		t.Fatalf("unexpected record for %s: day=%d minted=%s, want day=%d minted=%d", account, record.Day, record.Minted, day, minted)
	}
}

func (f *fixture) requireWindow(t *testing.T, day uint64, total int64) {
	t.Helper()
	if f.state.window.LastMintDay != day || f.state.window.DailyMints.Int64() != total {
		t.Fatalf("unexpected window: day=%d total=%s, want day=%d total=%d", f.state.window.LastMintDay, f.state.window.DailyMints, day, total)
	}
}

func TestInitDefaults(t *testing.T) {
	f := newFixture(t)
	if !f.state.cfg.Active {
		t.Fatalf("must be active by default")
	}
	f.requireWindow(t, 0, 0)
	if err := f.engine.Init(InitParams{Ledger: ledgerID, Admin: adminID, Minter: minterID, TotalLimit: big.NewInt(1), UserLimit: big.NewInt(1)}); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestInitValidation(t *testing.T) {
	tooLarge := new(big.Int).Add(MaxAmount, big.NewInt(1))
	cases := []struct {
		name   string
		params InitParams
	}{
		{name: "missing ledger", params: InitParams{Admin: adminID, Minter: minterID, TotalLimit: big.NewInt(1), UserLimit: big.NewInt(1)}},
		{name: "missing admin", params: InitParams{Ledger: ledgerID, Minter: minterID, TotalLimit: big.NewInt(1), UserLimit: big.NewInt(1)}},
		{name: "missing minter", params: InitParams{Ledger: ledgerID, Admin: adminID, TotalLimit: big.NewInt(1), UserLimit: big.NewInt(1)}},
		{name: "nil total", params: InitParams{Ledger: ledgerID, Admin: adminID, Minter: minterID, UserLimit: big.NewInt(1)}},
		{name: "negative user", params: InitParams{Ledger: ledgerID, Admin: adminID, Minter: minterID, TotalLimit: big.NewInt(1), UserLimit: big.NewInt(-1)}},
		{name: "total above 128 bits", params: InitParams{Ledger: ledgerID, Admin: adminID, Minter: minterID, TotalLimit: tooLarge, UserLimit: big.NewInt(1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := NewEngine()
			engine.SetState(newMemoryState())
			if err := engine.Init(tc.params); !errors.Is(err, ErrInvalidInit) {
				t.Fatalf("expected ErrInvalidInit, got %v", err)
			}
		})
	}
}

func TestNotInitialized(t *testing.T) {
	engine := NewEngine()
	engine.SetState(newMemoryState())
	if _, err := engine.Issue(minterID, mintReq(alice, 1)); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if _, err := engine.Config(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized from config, got %v", err)
	}
}

func TestNilState(t *testing.T) {
	engine := NewEngine()
	if _, err := engine.Issue(minterID, mintReq(alice, 1)); !errors.Is(err, errNilState) {
		t.Fatalf("expected errNilState, got %v", err)
	}
}

func TestToggleActive(t *testing.T) {
	f := newFixture(t)
	active, err := f.engine.ToggleActive(adminID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if active || f.state.cfg.Active {
		t.Fatalf("expected inactive after first toggle")
	}
	active, err = f.engine.ToggleActive(adminID)
	if err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	if !active || !f.state.cfg.Active {
		t.Fatalf("expected active after second toggle")
	}

	var toggles int
	for _, evt := range f.events.Events() {
		if evt.EventType() == EventTypeActiveToggled {
			toggles++
		}
	}
	if toggles != 2 {
		t.Fatalf("expected 2 toggle events, got %d", toggles)
	}
}

func TestAdminActionsRequireAdmin(t *testing.T) {
	f := newFixture(t)
	for _, caller := range []string{minterID, alice, "", ledgerID} {
		if _, err := f.engine.ToggleActive(caller); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("toggle by %q: expected ErrUnauthorized, got %v", caller, err)
		}
		if err := f.engine.ChangeMinter(caller, bob); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("change minter by %q: expected ErrUnauthorized, got %v", caller, err)
		}
	}
	if !f.state.cfg.Active || f.state.cfg.Minter != minterID {
		t.Fatalf("config must be untouched: %+v", f.state.cfg)
	}
}

func TestChangeMinter(t *testing.T) {
	f := newFixture(t)
	if err := f.engine.ChangeMinter(adminID, "  "); !errors.Is(err, ErrInvalidMinter) {
		t.Fatalf("expected ErrInvalidMinter, got %v", err)
	}
	if err := f.engine.ChangeMinter(adminID, bob); err != nil {
		t.Fatalf("change minter: %v", err)
	}
	if _, err := f.engine.Issue(minterID, mintReq(alice, 1)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("old minter must be rejected, got %v", err)
	}
	res, err := f.engine.Issue(bob, mintReq(alice, 1))
	if err != nil {
		t.Fatalf("new minter mint: %v", err)
	}
	if res.UserMinted.Int64() != 1 {
		t.Fatalf("unexpected minted amount %s", res.UserMinted)
	}
}

func TestMintNotMinter(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Issue(adminID, mintReq(alice, 1))
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err.Error() != "minter: unauthorized: must be a minter" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestMintInactive(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.ToggleActive(adminID); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if _, err := f.engine.Issue(minterID, mintReq(alice, 1)); !errors.Is(err, ErrInactive) {
		t.Fatalf("expected ErrInactive, got %v", err)
	}
	// The minter check runs before the active check.
	if _, err := f.engine.Issue(alice, mintReq(alice, 1)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-minter while inactive, got %v", err)
	}
	f.requireWindow(t, 0, 0)
}

func TestMintRequiresBudget(t *testing.T) {
	f := newFixture(t)
	req := mintReq(alice, 1)
	req.Gas = DefaultMinMintGas - 1
	if _, err := f.engine.Issue(minterID, req); !errors.Is(err, ErrInsufficientBudget) {
		t.Fatalf("expected ErrInsufficientBudget, got %v", err)
	}
	f.requireWindow(t, 0, 0)
	if len(f.ledger.calls) != 0 {
		t.Fatalf("no ledger call expected")
	}

	f.engine.SetMinGas(5)
	req.Gas = 5
	if _, err := f.engine.Issue(minterID, req); err != nil {
		t.Fatalf("mint with lowered threshold: %v", err)
	}
}

func TestMintRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.Issue(minterID, mintReq(" ", 1)); !errors.Is(err, ErrInvalidRecipient) {
		t.Fatalf("expected ErrInvalidRecipient, got %v", err)
	}
	req := mintReq(alice, 1)
	req.Amount = nil
	if _, err := f.engine.Issue(minterID, req); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for missing amount, got %v", err)
	}
	req.Amount = big.NewInt(-1)
	if _, err := f.engine.Issue(minterID, req); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative amount, got %v", err)
	}
	req.Amount = new(big.Int).Add(MaxAmount, big.NewInt(1))
	if _, err := f.engine.Issue(minterID, req); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount above 128 bits, got %v", err)
	}
}

func TestMintZeroAmount(t *testing.T) {
	f := newFixture(t)
	f.mint(t, alice, 4)

	req := mintReq(alice, 0)
	req.Referral = bob
	res, err := f.engine.Issue(minterID, req)
	if err != nil {
		t.Fatalf("zero mint: %v", err)
	}
	if res.UserMinted.Sign() != 0 || res.ReferralMinted.Sign() != 0 {
		t.Fatalf("zero mint: got (%s,%s), want (0,0)", res.UserMinted, res.ReferralMinted)
	}
	if res.Truncated() {
		t.Fatalf("zero mint must not report truncation")
	}
	if len(f.ledger.calls) != 1 {
		t.Fatalf("zero mint must not reach the ledger, got %d calls", len(f.ledger.calls))
	}
	f.requireAccount(t, alice, 1, 4)
	f.requireWindow(t, 1, 4)
	if _, ok := f.state.accounts[bob]; ok {
		t.Fatalf("referrer record must not be written")
	}
}

func TestMintSequence(t *testing.T) {
	f := newFixture(t)

	if u, r := f.mint(t, alice, 1); u != 1 || r != 0 {
		t.Fatalf("mint alice 1: got (%d,%d)", u, r)
	}
	if u, r := f.mint(t, alice, 9); u != 9 || r != 0 {
		t.Fatalf("mint alice 9: got (%d,%d)", u, r)
	}
	f.requireAccount(t, alice, 1, 10)
	f.requireWindow(t, 1, 10)

	f.mint(t, bob, 4)
	f.requireAccount(t, alice, 1, 10)
	f.requireAccount(t, bob, 1, 4)

	f.mint(t, charlie, 8)
	f.requireWindow(t, 1, 22)

	f.advance(24 * time.Hour)
	f.mint(t, alice, 7)
	f.requireWindow(t, 2, 7)

	// same day but a bit later
	f.advance(12 * time.Hour)
	f.mint(t, alice, 2)
	f.requireWindow(t, 2, 9)
	f.requireAccount(t, alice, 2, 9)

	// few days later
	f.advance(3 * 24 * time.Hour)
	f.mint(t, alice, 2)
	f.requireWindow(t, 5, 2)
	f.requireAccount(t, alice, 5, 2)

	// bob's record stays in the old day until he mints again
	f.requireAccount(t, bob, 1, 4)
	f.mint(t, bob, 1)
	f.requireAccount(t, bob, 5, 1)
	f.requireWindow(t, 5, 3)
}

func TestPerAccountCapTruncates(t *testing.T) {
	f := newFixture(t)
	f.mint(t, alice, 1)
	f.mint(t, alice, 9)
	ledgerCalls := len(f.ledger.calls)

	u, r := f.mint(t, alice, 1)
	if u != 0 || r != 0 {
		t.Fatalf("expected (0,0) once the user cap is reached, got (%d,%d)", u, r)
	}
	if len(f.ledger.calls) != ledgerCalls {
		t.Fatalf("no ledger call expected for a zero grant")
	}
	f.requireAccount(t, alice, 1, 10)
	// the global total still counts the rejected share
	f.requireWindow(t, 1, 11)

	if u, _ := f.mint(t, bob, 4); u != 4 {
		t.Fatalf("bob: got %d", u)
	}
	if u, _ := f.mint(t, charlie, 7); u != 7 {
		t.Fatalf("charlie: got %d", u)
	}
	f.requireWindow(t, 1, 22)
}

func TestPartialGrant(t *testing.T) {
	f := newFixture(t)
	f.mint(t, alice, 5)
	u, _ := f.mint(t, alice, 6)
	if u != 5 {
		t.Fatalf("expected grant clamped to 5, got %d", u)
	}
	f.requireAccount(t, alice, 1, 10)
	last := f.ledger.calls[len(f.ledger.calls)-1]
	if last.recipient != alice || last.amount.Int64() != 5 {
		t.Fatalf("unexpected ledger call %+v", last)
	}
}

func TestGlobalQuotaExceededAborts(t *testing.T) {
	f := newFixture(t)
	f.mint(t, alice, 8)
	f.mint(t, bob, 8)
	ledgerCalls := len(f.ledger.calls)
	emitted := len(f.events.Events())

	_, err := f.engine.Issue(minterID, mintReq(charlie, 8))
	if !errors.Is(err, ErrGlobalQuotaExceeded) {
		t.Fatalf("expected ErrGlobalQuotaExceeded, got %v", err)
	}
	var quotaErr *GlobalQuotaExceededError
	if !errors.As(err, &quotaErr) || quotaErr.Used.Int64() != 24 {
		t.Fatalf("expected used=24, got %v", err)
	}
	if err.Error() != "minter: total daily mint quota exceeded. Used: 24" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	f.requireWindow(t, 1, 16)
	if _, ok := f.state.accounts[charlie]; ok {
		t.Fatalf("charlie must not have a record after an aborted mint")
	}
	if len(f.ledger.calls) != ledgerCalls || len(f.events.Events()) != emitted {
		t.Fatalf("aborted mint must not call the ledger or emit events")
	}
}

func TestGlobalQuotaScenario(t *testing.T) {
	f := newFixture(t)
	steps := []struct {
		account string
		amount  int64
		want    int64
	}{
		{alice, 1, 1},
		{alice, 9, 9},
		{alice, 1, 0},
		{bob, 4, 4},
		{charlie, 7, 7},
	}
	for _, step := range steps {
		if u, r := f.mint(t, step.account, step.amount); u != step.want || r != 0 {
			t.Fatalf("mint %s %d: got (%d,%d) want (%d,0)", step.account, step.amount, u, r, step.want)
		}
	}
	f.requireWindow(t, 1, 22)

	for _, delta := range []int64{1, 5} {
		_, err := f.engine.Issue(minterID, mintReq(bob, delta))
		var quotaErr *GlobalQuotaExceededError
		if !errors.As(err, &quotaErr) {
			t.Fatalf("expected quota error for delta %d, got %v", delta, err)
		}
		if quotaErr.Used.Int64() != 22+delta {
			t.Fatalf("expected used %d, got %s", 22+delta, quotaErr.Used)
		}
		f.requireWindow(t, 1, 22)
	}
}

func TestGlobalCapAppliesAfterRollover(t *testing.T) {
	f := newFixture(t)
	f.mint(t, alice, 5)
	f.advance(24 * time.Hour)
	_, err := f.engine.Issue(minterID, mintReq(bob, 23))
	if !errors.Is(err, ErrGlobalQuotaExceeded) {
		t.Fatalf("expected quota error on a fresh day, got %v", err)
	}
	// the rollover is discarded together with the rejected request
	f.requireWindow(t, 1, 5)
}

func TestReferralSplit(t *testing.T) {
	f := newFixture(t)
	req := mintReq(alice, 20)
	req.Referral = bob
	res, err := f.engine.Issue(minterID, req)
	if err != nil {
		t.Fatalf("mint with referral: %v", err)
	}
	if res.UserMinted.Int64() != 10 || res.ReferralMinted.Int64() != 1 {
		t.Fatalf("expected (10,1), got (%s,%s)", res.UserMinted, res.ReferralMinted)
	}
	f.requireAccount(t, alice, 1, 10)
	if _, ok := f.state.accounts[bob]; ok {
		t.Fatalf("referrer record must remain absent")
	}
	f.requireWindow(t, 1, 20)

	if len(f.ledger.calls) != 2 {
		t.Fatalf("expected two ledger calls, got %d", len(f.ledger.calls))
	}
	if c := f.ledger.calls[0]; c.recipient != alice || c.amount.Int64() != 10 {
		t.Fatalf("unexpected user call %+v", c)
	}
	if c := f.ledger.calls[1]; c.recipient != bob || c.amount.Int64() != 1 || c.memo != DefaultReferralMemo {
		t.Fatalf("unexpected referral call %+v", c)
	}
}

func TestReferralPaidWhenRecipientCapped(t *testing.T) {
	f := newFixture(t)
	f.mint(t, alice, 10)
	req := mintReq(alice, 12)
	req.Referral = bob
	res, err := f.engine.Issue(minterID, req)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if res.UserMinted.Sign() != 0 || res.ReferralMinted.Int64() != 0 {
		t.Fatalf("12/20 truncates to 0 referral; got (%s,%s)", res.UserMinted, res.ReferralMinted)
	}
	if len(f.ledger.calls) != 1 {
		t.Fatalf("expected only the first mint call, got %d", len(f.ledger.calls))
	}
}

func TestReferralIgnoresReferrerCap(t *testing.T) {
	f := newFixtureWithLimits(t, 100, 10)
	f.mint(t, bob, 10)
	req := mintReq(alice, 12)
	req.Referral = bob
	res, err := f.engine.Issue(minterID, req)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if res.ReferralMinted.Int64() != 0 {
		t.Fatalf("expected floor(12/20)=0, got %s", res.ReferralMinted)
	}

	f.advance(24 * time.Hour)
	f.mint(t, bob, 10)
	req = mintReq(alice, 20)
	req.Referral = bob
	res, err = f.engine.Issue(minterID, req)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if res.ReferralMinted.Int64() != 1 {
		t.Fatalf("referrer at cap must still be paid, got %s", res.ReferralMinted)
	}
	f.requireAccount(t, bob, 2, 10)
}

func TestSplitReferral(t *testing.T) {
	cases := []struct {
		amount       int64
		referral     bool
		wantUser     int64
		wantReferral int64
	}{
		{amount: 20, referral: false, wantUser: 20, wantReferral: 0},
		{amount: 20, referral: true, wantUser: 19, wantReferral: 1},
		{amount: 19, referral: true, wantUser: 19, wantReferral: 0},
		{amount: 41, referral: true, wantUser: 39, wantReferral: 2},
		{amount: 1000, referral: true, wantUser: 950, wantReferral: 50},
	}
	for _, tc := range cases {
		user, referral := SplitReferral(big.NewInt(tc.amount), tc.referral)
		if user.Int64() != tc.wantUser || referral.Int64() != tc.wantReferral {
			t.Fatalf("split(%d,%v) = (%s,%s), want (%d,%d)", tc.amount, tc.referral, user, referral, tc.wantUser, tc.wantReferral)
		}
	}
}

func TestStaleAccountRecordIgnored(t *testing.T) {
	f := newFixture(t)
	f.mint(t, alice, 10)
	f.advance(24 * time.Hour)
	if u, _ := f.mint(t, alice, 10); u != 10 {
		t.Fatalf("expected a fresh cap on a new day, got %d", u)
	}
	f.requireAccount(t, alice, 2, 10)
}

func TestDayIndex(t *testing.T) {
	cases := []struct {
		at   time.Time
		want uint64
	}{
		{at: time.UnixMilli(0), want: 0},
		{at: time.UnixMilli(DayMillis - 1), want: 0},
		{at: time.UnixMilli(DayMillis), want: 1},
		{at: time.Date(2024, time.January, 1, 23, 59, 59, 0, time.UTC), want: 19723},
		{at: time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC), want: 19724},
		{at: time.UnixMilli(-5), want: 0},
	}
	for _, tc := range cases {
		if got := DayIndex(tc.at); got != tc.want {
			t.Fatalf("DayIndex(%s) = %d, want %d", tc.at, got, tc.want)
		}
	}
	// successive calendar days never decrease
	prev := DayIndex(time.Date(2024, time.January, 30, 12, 0, 0, 0, time.UTC))
	for i := 1; i < 40; i++ {
		next := DayIndex(time.Date(2024, time.January, 30+i, 12, 0, 0, 0, time.UTC))
		if next != prev+1 {
			t.Fatalf("day %d: expected %d, got %d", i, prev+1, next)
		}
		prev = next
	}
}

func TestConfigView(t *testing.T) {
	f := newFixture(t)
	f.mint(t, alice, 3)
	view, err := f.engine.Config()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if view.Minter != minterID || view.Admin != adminID || view.Ledger != ledgerID || !view.Active {
		t.Fatalf("unexpected view %+v", view)
	}
	if view.DailyQuota != "22" || view.UserQuota != "10" || view.DailyUse != "3" || view.LastMintDay != 1 {
		t.Fatalf("unexpected quotas %+v", view)
	}

	f.advance(24 * time.Hour)
	view, err = f.engine.Config()
	if err != nil {
		t.Fatalf("config next day: %v", err)
	}
	if view.DailyUse != "0" || view.LastMintDay != 1 {
		t.Fatalf("expected zero daily use on a new day, got %+v", view)
	}
}

func TestAccountMintView(t *testing.T) {
	f := newFixture(t)
	f.mint(t, alice, 4)
	view, err := f.engine.AccountMint(alice)
	if err != nil {
		t.Fatalf("account view: %v", err)
	}
	if view.Minted != "4" || view.Remaining != "6" || view.Day != 1 {
		t.Fatalf("unexpected view %+v", view)
	}
	view, err = f.engine.AccountMint(bob)
	if err != nil {
		t.Fatalf("account view bob: %v", err)
	}
	if view.Minted != "0" || view.Remaining != "10" {
		t.Fatalf("unexpected view %+v", view)
	}
	f.advance(24 * time.Hour)
	view, err = f.engine.AccountMint(alice)
	if err != nil {
		t.Fatalf("account view next day: %v", err)
	}
	if view.Minted != "0" || view.Day != 2 {
		t.Fatalf("stale record must read as zero, got %+v", view)
	}
}

func TestMintIssuedEvent(t *testing.T) {
	f := newFixtureWithLimits(t, 100, 10)
	req := mintReq(alice, 40)
	req.Referral = bob
	if _, err := f.engine.Issue(minterID, req); err != nil {
		t.Fatalf("mint: %v", err)
	}
	all := f.events.Events()
	last, ok := events.Structured(all[len(all)-1])
	if !ok {
		t.Fatalf("expected structured event")
	}
	if last.Type != EventTypeMintIssued {
		t.Fatalf("unexpected event type %s", last.Type)
	}
	want := map[string]string{
		"recipient":      alice,
		"referral":       bob,
		"requested":      "40",
		"userMinted":     "10",
		"referralMinted": "2",
		"day":            "1",
		"dailyUse":       "40",
		"truncated":      "true",
	}
	for k, v := range want {
		if last.Attributes[k] != v {
			t.Fatalf("attribute %s = %q, want %q", k, last.Attributes[k], v)
		}
	}
}
