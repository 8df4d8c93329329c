// services/ledger_config.go
package services

import (
	"log"
	"os"

	"provelt-badge-service/utils"
)

// LedgerConfig carries the environment-level ledger settings. Values
// are opaque strings; example/placeholder values from docs are scrubbed
// to empty so the service falls back to simulated mode instead of
// burning fees against a misconfigured network.
type LedgerConfig struct {
	Network           string // "mainnet", "devnet" or "testnet"
	RPCOverride       string // optional single-endpoint override
	TreasurySecret    string // signing authority secret key (base58)
	TreeAddress       string // allocation tree badges are minted into
	CollectionAddress string // verifiable parent collection
}

func LoadLedgerConfig() *LedgerConfig {
	cfg := &LedgerConfig{
		Network:           os.Getenv("LEDGER_NETWORK"),
		RPCOverride:       os.Getenv("LEDGER_RPC_URL"),
		TreasurySecret:    os.Getenv("TREASURY_SECRET_KEY"),
		TreeAddress:       os.Getenv("BADGE_TREE_ADDRESS"),
		CollectionAddress: os.Getenv("BADGE_COLLECTION_ADDRESS"),
	}

	if cfg.Network == "" {
		cfg.Network = "devnet"
	}

	if utils.IsPlaceholder(cfg.TreasurySecret) {
		cfg.TreasurySecret = ""
	}
	if utils.IsPlaceholder(cfg.TreeAddress) {
		log.Println("⚠️  BADGE_TREE_ADDRESS missing or placeholder — minting disabled")
		cfg.TreeAddress = ""
	}
	if utils.IsPlaceholder(cfg.CollectionAddress) {
		log.Println("⚠️  BADGE_COLLECTION_ADDRESS missing or placeholder — minting disabled")
		cfg.CollectionAddress = ""
	}

	return cfg
}

// MintConfigured requires both the allocation tree and the collection.
// Absence of either means minting must not be attempted.
func (c *LedgerConfig) MintConfigured() bool {
	return c.TreeAddress != "" && c.CollectionAddress != ""
}

// HasSigner reports whether a usable signing authority is present.
func (c *LedgerConfig) HasSigner() bool {
	return c.TreasurySecret != ""
}
