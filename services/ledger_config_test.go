package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadLedgerConfigDefaults(t *testing.T) {
	t.Setenv("LEDGER_NETWORK", "")
	t.Setenv("LEDGER_RPC_URL", "")
	t.Setenv("TREASURY_SECRET_KEY", "")
	t.Setenv("BADGE_TREE_ADDRESS", "")
	t.Setenv("BADGE_COLLECTION_ADDRESS", "")

	cfg := LoadLedgerConfig()
	assert.Equal(t, "devnet", cfg.Network)
	assert.False(t, cfg.MintConfigured())
	assert.False(t, cfg.HasSigner())
}

func TestLoadLedgerConfigScrubsPlaceholders(t *testing.T) {
	t.Setenv("LEDGER_NETWORK", "mainnet")
	t.Setenv("TREASURY_SECRET_KEY", "YOUR_TREASURY_SECRET_HERE")
	t.Setenv("BADGE_TREE_ADDRESS", "<tree address>")
	t.Setenv("BADGE_COLLECTION_ADDRESS", "ExampleCollection1111111111111111")

	cfg := LoadLedgerConfig()
	assert.Equal(t, "mainnet", cfg.Network)
	assert.False(t, cfg.HasSigner(), "placeholder secrets are treated as absent")
	assert.False(t, cfg.MintConfigured(), "placeholder addresses are treated as absent")
}

func TestLoadLedgerConfigConfigured(t *testing.T) {
	t.Setenv("LEDGER_NETWORK", "devnet")
	t.Setenv("TREASURY_SECRET_KEY", testSecret())
	t.Setenv("BADGE_TREE_ADDRESS", testAddress(1))
	t.Setenv("BADGE_COLLECTION_ADDRESS", testAddress(2))

	cfg := LoadLedgerConfig()
	assert.True(t, cfg.MintConfigured())
	assert.True(t, cfg.HasSigner())
}

func TestMintConfiguredRequiresBothAddresses(t *testing.T) {
	cfg := &LedgerConfig{TreeAddress: testAddress(1)}
	assert.False(t, cfg.MintConfigured(), "tree alone is not enough")

	cfg = &LedgerConfig{CollectionAddress: testAddress(2)}
	assert.False(t, cfg.MintConfigured(), "collection alone is not enough")
}
