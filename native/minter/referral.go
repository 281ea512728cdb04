package minter

import "math/big"

// SplitReferral divides a requested amount between the recipient and an optional
// referrer. The referrer receives floor(amount/20); the recipient receives the rest.
func SplitReferral(amount *big.Int, hasReferral bool) (user *big.Int, referral *big.Int) {
	total := newBigInt(amount)
	if !hasReferral {
		return total, big.NewInt(0)
	}
	referral = new(big.Int).Quo(total, big.NewInt(referralShareDivisor))
	user = new(big.Int).Sub(total, referral)
	return user, referral
}
