package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/alpha-fi/cheddar-maze-minter/crypto"
)

// MintDeposit is the nominal deposit attached to every mint call. The ledger
// refuses privileged calls that carry no deposit.
const MintDeposit = "1"

// MintCall is one outbound issuance instruction.
type MintCall struct {
	Contract   string `json:"contract"`
	ReceiverID string `json:"receiver_id"`
	Amount     string `json:"amount"`
	Memo       string `json:"memo,omitempty"`
	Deposit    string `json:"deposit"`
	RequestID  string `json:"request_id"`
}

// Client performs mint calls against the token ledger.
type Client interface {
	Mint(ctx context.Context, call MintCall) error
}

type signedParams struct {
	Call      MintCall `json:"call"`
	Signer    string   `json:"signer"`
	Signature string   `json:"signature"`
}

// RPCClient is a lightweight JSON-RPC client for the ledger's ft_mint method.
type RPCClient struct {
	endpoint  string
	authToken string
	signer    *crypto.PrivateKey
	http      *http.Client
	nextID    atomic.Int64
}

// NewRPCClient constructs a client. A nil signer sends unsigned calls, which the
// ledger only accepts in development setups.
func NewRPCClient(endpoint, authToken string, signer *crypto.PrivateKey, timeout time.Duration) *RPCClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RPCClient{
		endpoint:  strings.TrimSpace(endpoint),
		authToken: authToken,
		signer:    signer,
		http:      &http.Client{Timeout: timeout},
	}
}

// SetHTTPClient swaps the transport, typically for an instrumented one.
func (c *RPCClient) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.http = client
	}
}

// Mint signs call and submits it as ft_mint.
func (c *RPCClient) Mint(ctx context.Context, call MintCall) error {
	if call.Deposit == "" {
		call.Deposit = MintDeposit
	}
	params, err := c.sign(call)
	if err != nil {
		return err
	}
	return c.call(ctx, "ft_mint", params, nil)
}

func (c *RPCClient) sign(call MintCall) (signedParams, error) {
	params := signedParams{Call: call}
	if c.signer == nil {
		return params, nil
	}
	payload, err := json.Marshal(call)
	if err != nil {
		return params, err
	}
	sig, err := c.signer.Sign(payload)
	if err != nil {
		return params, fmt.Errorf("sign mint call: %w", err)
	}
	params.Signer = c.signer.PubKey().Address().String()
	params.Signature = hexutil.Encode(sig)
	return params, nil
}

// RPCError is a JSON-RPC error object returned by the ledger.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("ledger rpc error %d: %s", e.Code, e.Message)
}

func (c *RPCClient) call(ctx context.Context, method string, params interface{}, out interface{}) error {
	if c.endpoint == "" {
		return errors.New("ledger endpoint not configured")
	}
	id := c.nextID.Add(1)
	bodyStruct := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
		"params":  params,
	}
	buf, err := json.Marshal(bodyStruct)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(c.authToken) != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ledger rpc %s failed: status=%d", method, resp.StatusCode)
	}
	var rpcResp struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Result  json.RawMessage `json:"result"`
		Error   *RPCError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return err
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if out == nil {
		return nil
	}
	if len(rpcResp.Result) == 0 {
		return fmt.Errorf("ledger rpc returned empty result")
	}
	return json.Unmarshal(rpcResp.Result, out)
}
