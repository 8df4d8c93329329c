package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func verifierOver(t *testing.T, handlers map[string]func([]interface{}) (interface{}, *rpcError)) *LogVerifier {
	t.Helper()
	srv := fakeLedger(t, handlers)
	r := testRegistry([]string{srv.URL}, map[string]bool{srv.URL: true})
	e, _ := testExecutor(r)
	return NewLogVerifier(e)
}

func txResult(blockTime int64, logs []string) map[string]interface{} {
	return map[string]interface{}{
		"slot":      uint64(314159),
		"blockTime": blockTime,
		"meta":      map[string]interface{}{"logMessages": logs},
	}
}

func TestVerifyFindsMemoMarker(t *testing.T) {
	v := verifierOver(t, map[string]func([]interface{}) (interface{}, *rpcError){
		"getTransaction": func(params []interface{}) (interface{}, *rpcError) {
			return txResult(1780000000, []string{
				"Program badge_compression invoke [1]",
				`Program log: PROVELT_MEMO:{"type":"completion","challengeId":"c-1","userId":"u-1"}`,
				"Program badge_compression success",
			}), nil
		},
	})

	result := v.Verify(context.Background(), "sig-1")
	require.True(t, result.Verified)
	assert.JSONEq(t, `{"type":"completion","challengeId":"c-1","userId":"u-1"}`, string(result.Data))
	require.NotNil(t, result.Timestamp)
	assert.Equal(t, int64(1780000000), result.Timestamp.Unix())
}

func TestVerifyIsIdempotent(t *testing.T) {
	v := verifierOver(t, map[string]func([]interface{}) (interface{}, *rpcError){
		"getTransaction": func(params []interface{}) (interface{}, *rpcError) {
			return txResult(1780000000, []string{
				`Program log: PROVELT_MEMO:{"type":"completion","score":99}`,
			}), nil
		},
	})

	first := v.Verify(context.Background(), "sig-1")
	second := v.Verify(context.Background(), "sig-1")
	require.True(t, first.Verified)
	require.True(t, second.Verified)
	assert.Equal(t, []byte(first.Data), []byte(second.Data), "repeated verification of a finalized transaction is byte-identical")
}

func TestVerifyNoMarkerInLogs(t *testing.T) {
	v := verifierOver(t, map[string]func([]interface{}) (interface{}, *rpcError){
		"getTransaction": func(params []interface{}) (interface{}, *rpcError) {
			return txResult(1780000000, []string{"Program log: nothing to see"}), nil
		},
	})

	result := v.Verify(context.Background(), "sig-1")
	assert.False(t, result.Verified)
	assert.Contains(t, result.Error, "no completion marker")
}

func TestVerifyTransactionNotFound(t *testing.T) {
	v := verifierOver(t, map[string]func([]interface{}) (interface{}, *rpcError){
		"getTransaction": func(params []interface{}) (interface{}, *rpcError) {
			return nil, nil
		},
	})

	result := v.Verify(context.Background(), "sig-unknown")
	assert.False(t, result.Verified)
	assert.Equal(t, "transaction not found on chain", result.Error)
}

func TestVerifySkipsMalformedMarkerPayload(t *testing.T) {
	v := verifierOver(t, map[string]func([]interface{}) (interface{}, *rpcError){
		"getTransaction": func(params []interface{}) (interface{}, *rpcError) {
			return txResult(1780000000, []string{
				"Program log: PROVELT_MEMO:not-json",
				`Program log: PROVELT_MEMO:{"ok":true}`,
			}), nil
		},
	})

	result := v.Verify(context.Background(), "sig-1")
	require.True(t, result.Verified)
	assert.JSONEq(t, `{"ok":true}`, string(result.Data))
}
