// utils/address.go
package utils

import (
	"strings"

	"github.com/mr-tron/base58"
)

// IsValidAddress reports whether s is a well-formed ledger address
// (base58, 32 bytes decoded).
func IsValidAddress(s string) bool {
	raw, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(raw) == 32
}

// LooksLikeWalletAddress is the compatibility heuristic for identifiers
// that carry a raw wallet address instead of a profile ID: profile IDs
// are UUIDs (36 chars), addresses are longer.
func LooksLikeWalletAddress(s string) bool {
	return len(s) > 36
}

var placeholderMarkers = []string{
	"YOUR_", "EXAMPLE", "CHANGEME", "REPLACE", "PLACEHOLDER", "<", "XXXX",
}

// IsPlaceholder detects example/template values copied from docs so they
// are treated as "not configured" rather than sent to the ledger.
func IsPlaceholder(s string) bool {
	if strings.TrimSpace(s) == "" {
		return true
	}
	upper := strings.ToUpper(s)
	for _, marker := range placeholderMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

// RedactAddress keeps enough of an address to recognize it in a status
// response without exposing the whole value.
func RedactAddress(s string) string {
	if len(s) <= 8 {
		return s
	}
	return s[:4] + "..." + s[len(s)-4:]
}
