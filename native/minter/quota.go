package minter

import (
	"fmt"
	"math/big"
	"time"
)

// DayIndex returns the quota window containing t: unix milliseconds divided by the
// day length. Instants before the epoch fall into day zero.
func DayIndex(t time.Time) uint64 {
	ms := t.UnixMilli()
	if ms < 0 {
		return 0
	}
	return uint64(ms / DayMillis)
}

// quotaTracker applies the global and per-account caps for one request. The global
// cap is a hard gate; the per-account cap truncates.
type quotaTracker struct {
	state   engineState
	window  *DayWindow
	daily   *big.Int
	perUser *big.Int
}

func newQuotaTracker(state engineState, cfg *Config, window *DayWindow) *quotaTracker {
	if window == nil {
		window = &DayWindow{DailyMints: big.NewInt(0)}
	}
	return &quotaTracker{
		state:   state,
		window:  window.Clone(),
		daily:   newBigInt(cfg.DailyQuota),
		perUser: newBigInt(cfg.UserQuota),
	}
}

// rollover moves the window to day, restarting the running total when the day changed.
func (q *quotaTracker) rollover(day uint64) {
	if q.window.LastMintDay == day {
		return
	}
	q.window.LastMintDay = day
	q.window.DailyMints = big.NewInt(0)
}

// checkGlobalCap adds amount to the running total and persists the window, or returns
// a GlobalQuotaExceededError without touching state.
func (q *quotaTracker) checkGlobalCap(amount *big.Int) error {
	used := new(big.Int).Add(q.window.DailyMints, amount)
	if used.Cmp(q.daily) > 0 {
		return &GlobalQuotaExceededError{Used: used}
	}
	q.window.DailyMints = used
	if err := q.state.MinterWindowPut(q.window.Clone()); err != nil {
		return fmt.Errorf("minter: persist day window: %w", err)
	}
	return nil
}

// liveMinted returns the account's total for day, treating stale records as zero.
func (q *quotaTracker) liveMinted(account string, day uint64) (*big.Int, error) {
	record, ok, err := q.state.MinterAccountGet(account)
	if err != nil {
		return nil, fmt.Errorf("minter: load account record: %w", err)
	}
	if !ok || record == nil || record.Day != day {
		return big.NewInt(0), nil
	}
	return newBigInt(record.Minted), nil
}

// grantToAccount returns how much of requested the account may still receive today
// and records the grant. Accounts already at the cap get zero and keep their record.
func (q *quotaTracker) grantToAccount(account string, day uint64, requested *big.Int) (*big.Int, error) {
	minted, err := q.liveMinted(account, day)
	if err != nil {
		return nil, err
	}
	if minted.Cmp(q.perUser) >= 0 {
		return big.NewInt(0), nil
	}
	remaining := new(big.Int).Sub(q.perUser, minted)
	granted := minBig(requested, remaining)
	record := &AccountMintRecord{Day: day, Minted: new(big.Int).Add(minted, granted)}
	if err := q.state.MinterAccountPut(account, record); err != nil {
		return nil, fmt.Errorf("minter: persist account record: %w", err)
	}
	return granted, nil
}

func (q *quotaTracker) dailyUse() *big.Int {
	return newBigInt(q.window.DailyMints)
}
