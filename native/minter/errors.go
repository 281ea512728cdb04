package minter

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	ErrUnauthorized        = errors.New("minter: unauthorized")
	ErrInactive            = errors.New("minter: contract is deactivated")
	ErrInsufficientBudget  = errors.New("minter: insufficient execution budget")
	ErrGlobalQuotaExceeded = errors.New("minter: total daily mint quota exceeded")
	ErrInvalidAmount       = errors.New("minter: invalid amount")
	ErrInvalidRecipient    = errors.New("minter: recipient required")
	ErrInvalidMinter       = errors.New("minter: minter identity required")
	ErrInvalidInit         = errors.New("minter: invalid initialisation parameters")
	ErrNotInitialized      = errors.New("minter: not initialised")
	ErrAlreadyInitialized  = errors.New("minter: already initialised")

	errNilState = errors.New("minter engine: state not configured")
)

// GlobalQuotaExceededError reports the running total a rejected request would have
// produced. It matches ErrGlobalQuotaExceeded under errors.Is.
type GlobalQuotaExceededError struct {
	Used *big.Int
}

func (e *GlobalQuotaExceededError) Error() string {
	used := "0"
	if e != nil && e.Used != nil {
		used = e.Used.String()
	}
	return fmt.Sprintf("%s. Used: %s", ErrGlobalQuotaExceeded.Error(), used)
}

// Is allows errors.Is(err, ErrGlobalQuotaExceeded).
func (e *GlobalQuotaExceededError) Is(target error) bool {
	return target == ErrGlobalQuotaExceeded
}
