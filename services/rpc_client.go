// services/rpc_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrTransactionNotFound = errors.New("transaction not found")

// confirmTransactionInitialTimeout bounds how long a caller waits for a
// submitted transaction to reach the requested commitment.
const confirmTransactionInitialTimeout = 60 * time.Second

// LedgerClient is a JSON-RPC 2.0 connection bound to a single ledger
// endpoint. All ledger network traffic goes through its methods, and the
// RPCExecutor is the only component allowed to construct and drive one.
type LedgerClient struct {
	Endpoint   string
	HTTPClient *http.Client
}

func NewLedgerClient(endpoint string) *LedgerClient {
	return &LedgerClient{
		Endpoint: endpoint,
		HTTPClient: &http.Client{
			Timeout: confirmTransactionInitialTimeout + 10*time.Second,
		},
	}
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      int         `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error,omitempty"`
}

func (c *LedgerClient) call(ctx context.Context, method string, params interface{}, out interface{}) error {
	reqBody := rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.Endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("rpc call %s failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("rpc %s: http %d: %s", method, resp.StatusCode, string(body))
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("rpc %s: error %d: %s", method, rpcResp.Error.Code, rpcResp.Error.Message)
	}

	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("failed to unmarshal %s result: %w", method, err)
		}
	}
	return nil
}

// Health performs the lightweight "are you alive" check.
func (c *LedgerClient) Health(ctx context.Context) error {
	var status string
	if err := c.call(ctx, "getHealth", nil, &status); err != nil {
		return err
	}
	if status != "ok" {
		return fmt.Errorf("endpoint reports unhealthy: %s", status)
	}
	return nil
}

// LatestBlockhash fetches the recent blockhash new transactions must
// reference.
func (c *LedgerClient) LatestBlockhash(ctx context.Context) (string, error) {
	var result struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getLatestBlockhash", []interface{}{map[string]string{"commitment": "finalized"}}, &result); err != nil {
		return "", err
	}
	if result.Value.Blockhash == "" {
		return "", errors.New("empty blockhash in response")
	}
	return result.Value.Blockhash, nil
}

// SendTransaction submits a signed, base64-encoded transaction and
// returns its signature.
func (c *LedgerClient) SendTransaction(ctx context.Context, txBase64 string) (string, error) {
	var signature string
	params := []interface{}{txBase64, map[string]string{"encoding": "base64"}}
	if err := c.call(ctx, "sendTransaction", params, &signature); err != nil {
		return "", err
	}
	return signature, nil
}

// ConfirmTransaction polls signature status until the requested
// commitment is reached or the timeout elapses. Once sent, a transaction
// is not cancellable — a timeout here means "outcome unknown", not
// "nothing happened".
func (c *LedgerClient) ConfirmTransaction(ctx context.Context, signature, commitment string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		var result struct {
			Value []*struct {
				ConfirmationStatus string      `json:"confirmationStatus"`
				Err                interface{} `json:"err"`
			} `json:"value"`
		}
		params := []interface{}{[]string{signature}}
		if err := c.call(ctx, "getSignatureStatuses", params, &result); err == nil {
			if len(result.Value) > 0 && result.Value[0] != nil {
				st := result.Value[0]
				if st.Err != nil {
					return fmt.Errorf("transaction %s failed on-chain: %v", signature, st.Err)
				}
				if st.ConfirmationStatus == "finalized" || st.ConfirmationStatus == commitment {
					return nil
				}
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for confirmation of %s: %w", signature, ctx.Err())
		case <-ticker.C:
		}
	}
}

// TransactionDetail is the subset of a committed transaction the
// pipeline reads back: its slot, block time and emitted log lines.
type TransactionDetail struct {
	Slot        uint64   `json:"slot"`
	BlockTime   *int64   `json:"blockTime"`
	LogMessages []string `json:"logMessages"`
}

// GetTransaction re-fetches a committed transaction by signature.
// Returns ErrTransactionNotFound when the ledger has no record of it.
func (c *LedgerClient) GetTransaction(ctx context.Context, signature string) (*TransactionDetail, error) {
	var result *struct {
		Slot      uint64 `json:"slot"`
		BlockTime *int64 `json:"blockTime"`
		Meta      *struct {
			LogMessages []string `json:"logMessages"`
		} `json:"meta"`
	}
	params := []interface{}{signature, map[string]string{"encoding": "json", "commitment": "finalized"}}
	if err := c.call(ctx, "getTransaction", params, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, ErrTransactionNotFound
	}

	detail := &TransactionDetail{Slot: result.Slot, BlockTime: result.BlockTime}
	if result.Meta != nil {
		detail.LogMessages = result.Meta.LogMessages
	}
	return detail, nil
}

// IsRateLimitError classifies errors that should back off harder than
// ordinary transient failures.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "rate limit")
}
