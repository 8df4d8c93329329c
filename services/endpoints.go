// services/endpoints.go
package services

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Default RPC endpoints per network, in rank order.
var defaultEndpoints = map[string][]string{
	"mainnet": {
		"https://rpc.provelt.network",
		"https://ledger-mainnet.rpcpool.io",
		"https://mainnet.ledger-rpc.com",
	},
	"devnet": {
		"https://rpc-devnet.provelt.network",
		"https://ledger-devnet.rpcpool.io",
	},
	"testnet": {
		"https://rpc-testnet.provelt.network",
	},
}

const defaultProbeTimeout = 5 * time.Second

// EndpointHealth is the last observed probe state for one endpoint.
type EndpointHealth struct {
	URL         string    `json:"url"`
	Rank        int       `json:"rank"`
	LastProbeAt time.Time `json:"last_probe_at"`
	LastHealthy bool      `json:"last_healthy"`
}

// EndpointRegistry tracks the ranked RPC endpoints for one network and
// which of them answered a health probe most recently. The current-rank
// pointer is an atomic so concurrent readers never block on probes; no
// endpoint is ever permanently blacklisted — every SelectBest revisits
// probes so a recovered endpoint comes back on its own.
type EndpointRegistry struct {
	network      string
	urls         []string
	current      atomic.Int32
	probeTimeout time.Duration

	// probeFn is swapped in tests; defaults to a getHealth RPC call.
	probeFn func(ctx context.Context, url string) bool

	mu     sync.RWMutex
	health map[string]*EndpointHealth
}

// NewEndpointRegistry builds a registry for the given network. A
// non-empty override URL is ranked first, ahead of the defaults.
func NewEndpointRegistry(network, override string) *EndpointRegistry {
	urls := defaultEndpoints[network]
	if len(urls) == 0 {
		urls = defaultEndpoints["devnet"]
	}
	if override != "" {
		ranked := make([]string, 0, len(urls)+1)
		ranked = append(ranked, override)
		for _, u := range urls {
			if u != override {
				ranked = append(ranked, u)
			}
		}
		urls = ranked
	}

	r := &EndpointRegistry{
		network:      network,
		urls:         urls,
		probeTimeout: defaultProbeTimeout,
		health:       make(map[string]*EndpointHealth, len(urls)),
	}
	r.probeFn = r.healthProbe
	for i, u := range urls {
		r.health[u] = &EndpointHealth{URL: u, Rank: i}
	}
	return r
}

func (r *EndpointRegistry) Network() string { return r.network }

// Endpoints returns the ranked endpoint list.
func (r *EndpointRegistry) Endpoints() []string {
	out := make([]string, len(r.urls))
	copy(out, r.urls)
	return out
}

// Current returns the endpoint subsequent calls currently prefer.
func (r *EndpointRegistry) Current() string {
	return r.urls[int(r.current.Load())%len(r.urls)]
}

// Probe runs a bounded-time liveness check and records the result.
func (r *EndpointRegistry) Probe(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()

	healthy := r.probeFn(ctx, url)
	r.recordProbe(url, healthy)
	return healthy
}

func (r *EndpointRegistry) healthProbe(ctx context.Context, url string) bool {
	return NewLedgerClient(url).Health(ctx) == nil
}

func (r *EndpointRegistry) recordProbe(url string, healthy bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.health[url]; ok {
		h.LastProbeAt = time.Now()
		h.LastHealthy = healthy
	}
}

// SelectBest probes candidates starting from the current endpoint, then
// the rest in rank order, and returns the first healthy one — updating
// the current-rank pointer so later calls stick to it until a failure
// forces re-ranking. If every probe fails or times out, the top-ranked
// endpoint is returned as a last resort.
func (r *EndpointRegistry) SelectBest(ctx context.Context) string {
	start := int(r.current.Load()) % len(r.urls)
	for i := 0; i < len(r.urls); i++ {
		idx := (start + i) % len(r.urls)
		url := r.urls[idx]
		if r.Probe(ctx, url) {
			r.current.Store(int32(idx))
			return url
		}
		log.Printf("⚠️  [RPC] Endpoint unhealthy: %s", url)
	}
	log.Printf("❌ [RPC] All %d endpoints failed probes — falling back to top-ranked", len(r.urls))
	return r.urls[0]
}

// MarkHealthy pins the current-rank pointer to the endpoint that just
// served a successful operation.
func (r *EndpointRegistry) MarkHealthy(url string) {
	for i, u := range r.urls {
		if u == url {
			r.current.Store(int32(i))
			r.recordProbe(url, true)
			return
		}
	}
}

// NextAfter returns the next endpoint in rank order, wrapping around.
// The executor walks this order when failover is enabled.
func (r *EndpointRegistry) NextAfter(url string) string {
	for i, u := range r.urls {
		if u == url {
			return r.urls[(i+1)%len(r.urls)]
		}
	}
	return r.urls[0]
}

// Health returns a snapshot of per-endpoint probe state.
func (r *EndpointRegistry) Health() []EndpointHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]EndpointHealth, 0, len(r.urls))
	for _, u := range r.urls {
		out = append(out, *r.health[u])
	}
	return out
}

// RefreshHealth re-probes every endpoint; run periodically so the
// status surface stays current even between mint calls.
func (r *EndpointRegistry) RefreshHealth(ctx context.Context) {
	for _, u := range r.urls {
		r.Probe(ctx, u)
	}
}

// Reset drops probe history and restores the default ranking.
func (r *EndpointRegistry) Reset() {
	r.current.Store(0)
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, u := range r.urls {
		r.health[u] = &EndpointHealth{URL: u, Rank: i}
	}
}
