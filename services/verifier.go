// services/verifier.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Memo markers are emitted into transaction logs as
// "PROVELT_MEMO:{...json...}" so completions can be audited
// independently of minting.
const memoMarkerPrefix = "PROVELT_MEMO:"

// VerifyResult reports whether a committed transaction carries the
// structured completion marker. Data is kept raw so repeated calls on a
// finalized transaction return byte-identical payloads.
type VerifyResult struct {
	Verified  bool            `json:"verified"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp *time.Time      `json:"timestamp,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// LogVerifier re-reads committed transactions and extracts the memo
// marker. Read-only and idempotent — safe to call any number of times.
type LogVerifier struct {
	Executor *RPCExecutor
}

func NewLogVerifier(executor *RPCExecutor) *LogVerifier {
	return &LogVerifier{Executor: executor}
}

func (v *LogVerifier) Verify(ctx context.Context, signature string) VerifyResult {
	var detail *TransactionDetail
	err := v.Executor.Execute(ctx, func(client *LedgerClient) error {
		d, err := client.GetTransaction(ctx, signature)
		if err != nil {
			return err
		}
		detail = d
		return nil
	}, nil)
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			return VerifyResult{Verified: false, Error: "transaction not found on chain"}
		}
		return VerifyResult{Verified: false, Error: err.Error()}
	}

	var ts *time.Time
	if detail.BlockTime != nil {
		t := time.Unix(*detail.BlockTime, 0).UTC()
		ts = &t
	}

	for _, line := range detail.LogMessages {
		idx := strings.Index(line, memoMarkerPrefix)
		if idx < 0 {
			continue
		}
		payload := strings.TrimSpace(line[idx+len(memoMarkerPrefix):])
		if !json.Valid([]byte(payload)) {
			continue
		}
		return VerifyResult{Verified: true, Data: json.RawMessage(payload), Timestamp: ts}
	}

	return VerifyResult{Verified: false, Timestamp: ts, Error: "no completion marker in transaction logs"}
}
