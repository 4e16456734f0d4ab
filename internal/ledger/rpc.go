package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// RPCConfig contains ledger node connection configuration.
type RPCConfig struct {
	Endpoint     string        `json:"endpoint"`
	Commitment   string        `json:"commitment"` // "processed", "confirmed", "finalized"
	PollInterval time.Duration `json:"poll_interval"`
	HTTPTimeout  time.Duration `json:"http_timeout"`
}

// RPCClient implements Client against a ledger gateway node speaking JSON-RPC.
// The node encodes intents into wire transactions; this client never handles
// raw transaction bytes.
type RPCClient struct {
	cfg    RPCConfig
	http   *http.Client
	logger *zap.Logger
}

// NewRPCClient creates a ledger client for the configured node endpoint.
func NewRPCClient(cfg RPCConfig, logger *zap.Logger) (*RPCClient, error) {
	if cfg.Endpoint == "" {
		return nil, E(KindInvalidParameter, "ledger.NewRPCClient", fmt.Errorf("endpoint is required"))
	}
	if cfg.Commitment == "" {
		cfg.Commitment = "confirmed"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	return &RPCClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.HTTPTimeout},
		logger: logger,
	}, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *RPCClient) call(ctx context.Context, op, method string, params, out any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return E(KindInvalidParameter, op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return E(KindInvalidParameter, op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return E(KindUnreachable, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Errorf(KindUnreachable, op, "node returned status %d", resp.StatusCode)
	}

	var rr rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return E(KindUnreachable, op, err)
	}
	if rr.Error != nil {
		return E(kindFromRPCError(rr.Error), op, fmt.Errorf("rpc error %d: %s", rr.Error.Code, rr.Error.Message))
	}
	if out != nil {
		if err := json.Unmarshal(rr.Result, out); err != nil {
			return E(KindRejected, op, err)
		}
	}
	return nil
}

// kindFromRPCError maps a node-side refusal to a failure kind. Slippage and
// missing-venue refusals must stay distinguishable from generic rejections.
func kindFromRPCError(e *rpcError) Kind {
	msg := strings.ToLower(e.Message)
	switch {
	case strings.Contains(msg, "slippage"):
		return KindSlippageExceeded
	case strings.Contains(msg, "market not found"), strings.Contains(msg, "pool not found"):
		return KindVenueNotFound
	default:
		return KindRejected
	}
}

type submitResult struct {
	Signature string `json:"signature"`
	Address   string `json:"address,omitempty"`
}

// Submit sends the intent to the node for encoding and submission.
func (c *RPCClient) Submit(ctx context.Context, intent Intent) (*Pending, error) {
	const op = "ledger.Submit"

	params := map[string]any{
		"type":       intent.IntentType(),
		"intent":     intent,
		"commitment": c.cfg.Commitment,
	}
	var res submitResult
	if err := c.call(ctx, op, "submitIntent", params, &res); err != nil {
		return nil, err
	}

	c.logger.Debug("intent submitted",
		zap.String("type", intent.IntentType()),
		zap.String("signature", res.Signature))

	return &Pending{
		Signature:   Signature(res.Signature),
		NewAddress:  Address(res.Address),
		SubmittedAt: time.Now(),
	}, nil
}

type signatureStatus struct {
	Confirmed bool   `json:"confirmed"`
	Failed    bool   `json:"failed"`
	Slot      uint64 `json:"slot"`
	Err       string `json:"err,omitempty"`
}

// Confirm polls the node for finality of a pending transaction.
func (c *RPCClient) Confirm(ctx context.Context, p *Pending, timeout time.Duration) (*Receipt, error) {
	const op = "ledger.Confirm"

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		var st signatureStatus
		err := c.call(ctx, op, "getSignatureStatus", map[string]any{
			"signature":  string(p.Signature),
			"commitment": c.cfg.Commitment,
		}, &st)
		switch {
		case err != nil && KindOf(err) == KindUnreachable:
			// Transient lookup failure; keep polling until the deadline.
		case err != nil:
			return nil, err
		case st.Failed:
			return nil, Errorf(KindRejected, op, "transaction %s failed: %s", p.Signature, st.Err)
		case st.Confirmed:
			return &Receipt{Signature: p.Signature, Slot: st.Slot, ConfirmedAt: time.Now()}, nil
		}

		if time.Now().After(deadline) {
			return nil, Errorf(KindUnreachable, op, "confirmation timeout for %s after %s", p.Signature, timeout)
		}
		select {
		case <-ctx.Done():
			return nil, E(KindUnreachable, op, ctx.Err())
		case <-ticker.C:
		}
	}
}

// GetAccount looks up account state; a missing account is (nil, nil).
func (c *RPCClient) GetAccount(ctx context.Context, addr Address) (*AccountInfo, error) {
	const op = "ledger.GetAccount"

	var res struct {
		Exists bool   `json:"exists"`
		Owner  string `json:"owner"`
		Mint   string `json:"mint"`
		Amount uint64 `json:"amount"`
	}
	if err := c.call(ctx, op, "getAccountInfo", map[string]any{"address": string(addr)}, &res); err != nil {
		return nil, err
	}
	if !res.Exists {
		return nil, nil
	}
	return &AccountInfo{
		Address: addr,
		Owner:   Address(res.Owner),
		Mint:    Address(res.Mint),
		Amount:  res.Amount,
	}, nil
}

// GetMarketState loads venue state; a missing market or pool is (nil, nil).
func (c *RPCClient) GetMarketState(ctx context.Context, market Address) (*MarketState, error) {
	const op = "ledger.GetMarketState"

	var res struct {
		Exists       bool         `json:"exists"`
		Bids         []PriceLevel `json:"bids"`
		Asks         []PriceLevel `json:"asks"`
		LastPrice    float64      `json:"last_price"`
		BaseReserve  uint64       `json:"base_reserve"`
		QuoteReserve uint64       `json:"quote_reserve"`
	}
	if err := c.call(ctx, op, "getMarketState", map[string]any{"address": string(market)}, &res); err != nil {
		return nil, err
	}
	if !res.Exists {
		return nil, nil
	}
	return &MarketState{
		Address:      market,
		Bids:         res.Bids,
		Asks:         res.Asks,
		LastPrice:    res.LastPrice,
		BaseReserve:  res.BaseReserve,
		QuoteReserve: res.QuoteReserve,
	}, nil
}

// FindTransaction searches for a confirmed transaction matching the logical
// intent; no match is (nil, nil).
func (c *RPCClient) FindTransaction(ctx context.Context, q TxQuery) (*Receipt, error) {
	const op = "ledger.FindTransaction"

	var res struct {
		Found       bool   `json:"found"`
		Signature   string `json:"signature"`
		Slot        uint64 `json:"slot"`
		ConfirmedAt string `json:"confirmed_at"`
	}
	err := c.call(ctx, op, "findTransaction", map[string]any{
		"destination": string(q.Destination),
		"amount":      q.Amount,
		"after":       q.After.Format(time.RFC3339),
	}, &res)
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return nil, nil
	}
	confirmedAt, _ := time.Parse(time.RFC3339, res.ConfirmedAt)
	return &Receipt{Signature: Signature(res.Signature), Slot: res.Slot, ConfirmedAt: confirmedAt}, nil
}
