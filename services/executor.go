// services/executor.go
package services

import (
	"context"
	"fmt"
	"log"
	"time"
)

// ExecuteOptions tune one Execute call. Zero values take the defaults.
type ExecuteOptions struct {
	MaxRetries    int           // default 3
	RetryDelay    time.Duration // default 1s; scaled linearly per attempt, doubled for rate limits
	AllowFailover bool
}

func defaultExecuteOptions() ExecuteOptions {
	return ExecuteOptions{MaxRetries: 3, RetryDelay: time.Second, AllowFailover: true}
}

// RPCExecutor wraps ledger operations with bounded retry, backoff and
// endpoint failover. It is the only component permitted to perform
// network calls against the ledger; everything above it hands over a
// closure and never touches a raw connection.
//
// Retries are sequential, never parallel, so one logical operation can
// not land on-chain twice from a single call.
type RPCExecutor struct {
	Registry *EndpointRegistry

	// injectable seams for tests
	newClient func(endpoint string) *LedgerClient
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewRPCExecutor(registry *EndpointRegistry) *RPCExecutor {
	return &RPCExecutor{
		Registry:  registry,
		newClient: NewLedgerClient,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Execute runs op against the current best endpoint, retrying with
// linear backoff (doubled for rate-limit errors) and walking the ranked
// endpoint order when failover is enabled. The last error is propagated
// once retries are exhausted.
func (e *RPCExecutor) Execute(ctx context.Context, op func(client *LedgerClient) error, opts *ExecuteOptions) error {
	o := defaultExecuteOptions()
	if opts != nil {
		if opts.MaxRetries > 0 {
			o.MaxRetries = opts.MaxRetries
		}
		if opts.RetryDelay > 0 {
			o.RetryDelay = opts.RetryDelay
		}
		o.AllowFailover = opts.AllowFailover
	}

	endpoint := e.Registry.SelectBest(ctx)

	var lastErr error
	for attempt := 0; attempt < o.MaxRetries; attempt++ {
		if attempt > 0 && o.AllowFailover {
			endpoint = e.Registry.NextAfter(endpoint)
			log.Printf("🔁 [RPC] Failing over to %s (attempt %d/%d)", endpoint, attempt+1, o.MaxRetries)
		}

		err := op(e.newClient(endpoint))
		if err == nil {
			e.Registry.MarkHealthy(endpoint)
			return nil
		}
		lastErr = err
		log.Printf("❌ [RPC] Attempt %d/%d on %s failed: %v", attempt+1, o.MaxRetries, endpoint, err)

		if attempt == o.MaxRetries-1 {
			break
		}

		delay := o.RetryDelay * time.Duration(attempt+1)
		if IsRateLimitError(err) {
			delay = o.RetryDelay * 2 * time.Duration(attempt+1)
		}
		if err := e.sleep(ctx, delay); err != nil {
			return fmt.Errorf("rpc execute cancelled: %w", err)
		}
	}

	return fmt.Errorf("rpc retries exhausted after %d attempts: %w", o.MaxRetries, lastErr)
}
