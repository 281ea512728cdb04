package executor

import (
	"fmt"
	"math/big"

	"github.com/alpha-fi/cheddar-maze-minter/native/minter"
	"github.com/alpha-fi/cheddar-maze-minter/services/minterd/ledger"
)

type pendingMint struct {
	recipient string
	amount    *big.Int
	memo      string
}

// outbox captures the engine's ledger calls for one request. It is released only
// after the request's writes commit.
type outbox struct {
	calls []pendingMint
}

var _ minter.TokenLedger = (*outbox)(nil)

func (o *outbox) Mint(recipient string, amount *big.Int, memo string) {
	o.calls = append(o.calls, pendingMint{recipient: recipient, amount: new(big.Int).Set(amount), memo: memo})
}

func (o *outbox) mintCalls(contract, requestID string) []ledger.MintCall {
	out := make([]ledger.MintCall, 0, len(o.calls))
	for i, call := range o.calls {
		out = append(out, ledger.MintCall{
			Contract:   contract,
			ReceiverID: call.recipient,
			Amount:     minter.FormatAmount(call.amount),
			Memo:       call.memo,
			Deposit:    ledger.MintDeposit,
			RequestID:  fmt.Sprintf("%s:%d", requestID, i),
		})
	}
	return out
}
