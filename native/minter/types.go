package minter

import (
	"math/big"
	"strings"
)

const (
	// DayMillis is the length of one quota window.
	DayMillis = int64(24 * 3600 * 1000)

	// DefaultMinMintGas is the execution budget a mint request must attach (30 Tgas).
	DefaultMinMintGas = uint64(30_000_000_000_000)

	// referralShareDivisor routes 1/20 (5%) of a referred mint to the referrer.
	referralShareDivisor = 20
)

// Config is the mutable configuration of the minting gateway. The admin is fixed at
// initialisation; the minter and the active flag are admin-mutable.
type Config struct {
	Ledger     string
	Admin      string
	Minter     string
	Active     bool
	DailyQuota *big.Int
	UserQuota  *big.Int
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	clone.DailyQuota = newBigInt(c.DailyQuota)
	clone.UserQuota = newBigInt(c.UserQuota)
	return &clone
}

// DayWindow tracks the global running total for the current day.
type DayWindow struct {
	LastMintDay uint64
	DailyMints  *big.Int
}

// Clone returns a deep copy of the window.
func (w *DayWindow) Clone() *DayWindow {
	if w == nil {
		return nil
	}
	return &DayWindow{LastMintDay: w.LastMintDay, DailyMints: newBigInt(w.DailyMints)}
}

// AccountMintRecord is the per-recipient running total. A record whose Day differs
// from the current day is stale and counts as zero.
type AccountMintRecord struct {
	Day    uint64
	Minted *big.Int
}

// InitParams carries the one-time initialisation values.
type InitParams struct {
	Ledger     string
	Admin      string
	Minter     string
	TotalLimit *big.Int
	UserLimit  *big.Int
}

// MintRequest is a single issuance request submitted by the minter.
type MintRequest struct {
	Recipient string
	Amount    *big.Int
	Referral  string
	Gas       uint64
	Memo      string
}

// HasReferral reports whether a referrer account was supplied.
func (r MintRequest) HasReferral() bool {
	return strings.TrimSpace(r.Referral) != ""
}

// MintResult reports what was actually granted for a request.
type MintResult struct {
	Recipient      string
	Referral       string
	Requested      *big.Int
	UserMinted     *big.Int
	ReferralMinted *big.Int
	Day            uint64
	DailyUse       *big.Int
}

// Truncated reports whether the per-account cap reduced the recipient's share.
func (r *MintResult) Truncated() bool {
	if r == nil || r.Requested == nil {
		return false
	}
	wanted, _ := SplitReferral(r.Requested, r.Referral != "")
	return r.UserMinted == nil || r.UserMinted.Cmp(wanted) < 0
}

// ConfigView is the human-readable configuration returned by queries.
type ConfigView struct {
	Ledger      string `json:"ledger"`
	Admin       string `json:"admin"`
	Minter      string `json:"minter"`
	Active      bool   `json:"active"`
	DailyQuota  string `json:"daily_quota"`
	UserQuota   string `json:"user_quota"`
	DailyUse    string `json:"daily_use"`
	LastMintDay uint64 `json:"last_mint_day"`
}

// AccountView is the human-readable state of one recipient for the current day.
type AccountView struct {
	Account   string `json:"account"`
	Day       uint64 `json:"day"`
	Minted    string `json:"minted"`
	Remaining string `json:"remaining"`
}

func newBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
