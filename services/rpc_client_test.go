package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLedger is an in-process JSON-RPC 2.0 endpoint. Handlers are keyed
// by method name; a missing method returns a -32601 error.
func fakeLedger(t *testing.T, handlers map[string]func(params []interface{}) (interface{}, *rpcError)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var params []interface{}
		if req.Params != nil {
			raw, _ := json.Marshal(req.Params)
			_ = json.Unmarshal(raw, &params)
		}

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if handler, ok := handlers[req.Method]; ok {
			result, rpcErr := handler(params)
			if rpcErr != nil {
				resp["error"] = rpcErr
			} else {
				resp["result"] = result
			}
		} else {
			resp["error"] = &rpcError{Code: -32601, Message: "method not found"}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func healthyHandler(params []interface{}) (interface{}, *rpcError) {
	return "ok", nil
}

func TestLedgerClientHealth(t *testing.T) {
	srv := fakeLedger(t, map[string]func([]interface{}) (interface{}, *rpcError){
		"getHealth": healthyHandler,
	})

	client := NewLedgerClient(srv.URL)
	require.NoError(t, client.Health(context.Background()))
}

func TestLedgerClientHealthUnhealthy(t *testing.T) {
	srv := fakeLedger(t, map[string]func([]interface{}) (interface{}, *rpcError){
		"getHealth": func(params []interface{}) (interface{}, *rpcError) {
			return "behind", nil
		},
	})

	client := NewLedgerClient(srv.URL)
	assert.Error(t, client.Health(context.Background()))
}

func TestLedgerClientGetTransactionNotFound(t *testing.T) {
	srv := fakeLedger(t, map[string]func([]interface{}) (interface{}, *rpcError){
		"getTransaction": func(params []interface{}) (interface{}, *rpcError) {
			return nil, nil // ledger has no record: result is null
		},
	})

	client := NewLedgerClient(srv.URL)
	_, err := client.GetTransaction(context.Background(), "missing-signature")
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestLedgerClientLatestBlockhash(t *testing.T) {
	srv := fakeLedger(t, map[string]func([]interface{}) (interface{}, *rpcError){
		"getLatestBlockhash": func(params []interface{}) (interface{}, *rpcError) {
			return map[string]interface{}{"value": map[string]string{"blockhash": "9sHcv8xM3tQ"}}, nil
		},
	})

	client := NewLedgerClient(srv.URL)
	hash, err := client.LatestBlockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "9sHcv8xM3tQ", hash)
}

func TestIsRateLimitError(t *testing.T) {
	assert.False(t, IsRateLimitError(nil))
	assert.False(t, IsRateLimitError(errors.New("connection reset by peer")))
	assert.True(t, IsRateLimitError(errors.New("rpc sendTransaction: http 429: slow down")))
	assert.True(t, IsRateLimitError(errors.New("Too Many Requests")))
	assert.True(t, IsRateLimitError(errors.New("rate limit exceeded")))
}
