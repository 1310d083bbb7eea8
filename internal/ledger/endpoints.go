package ledger

import (
	"sort"
	"sync"
	"time"
)

const (
	defaultMaxConsecutiveErrors = 3
	defaultRecoveryInterval     = 30 * time.Second
	ewmaAlpha                   = 0.3                    // Weight for new latency samples
	defaultInitialLatency       = 100 * time.Millisecond // Sentinel latency for unmeasured endpoints
)

// EndpointHealth tracks the health state of a single RPC endpoint.
type EndpointHealth struct {
	URL             string
	Latency         time.Duration // EWMA
	ConsecutiveErrs int
	LastSuccess     time.Time
	LastError       time.Time
	Healthy         bool
	latencySamples  int
}

// EndpointTracker orders a set of RPC endpoints by health and latency.
type EndpointTracker struct {
	mu        sync.RWMutex
	endpoints []*EndpointHealth
	maxErrors int           // consecutive errors before marking unhealthy
	recovery  time.Duration // wait before retrying an unhealthy endpoint
}

// NewEndpointTracker creates a tracker from a list of URLs. All endpoints start healthy.
func NewEndpointTracker(urls []string) *EndpointTracker {
	endpoints := make([]*EndpointHealth, len(urls))
	for i, u := range urls {
		endpoints[i] = &EndpointHealth{
			URL:     u,
			Healthy: true,
			Latency: defaultInitialLatency,
		}
	}
	return &EndpointTracker{
		endpoints: endpoints,
		maxErrors: defaultMaxConsecutiveErrors,
		recovery:  defaultRecoveryInterval,
	}
}

// RecordSuccess records a call the endpoint answered, successfully or with a
// deterministic error such as a revert.
func (et *EndpointTracker) RecordSuccess(url string, latency time.Duration) {
	et.mu.Lock()
	defer et.mu.Unlock()

	ep := et.find(url)
	if ep == nil {
		return
	}

	ep.ConsecutiveErrs = 0
	ep.LastSuccess = time.Now()
	ep.Healthy = true

	if ep.latencySamples == 0 {
		ep.Latency = latency
	} else {
		ep.Latency = time.Duration(ewmaAlpha*float64(latency) + (1-ewmaAlpha)*float64(ep.Latency))
	}
	ep.latencySamples++
}

// RecordError records a transport failure against the endpoint.
func (et *EndpointTracker) RecordError(url string) {
	et.mu.Lock()
	defer et.mu.Unlock()

	ep := et.find(url)
	if ep == nil {
		return
	}

	ep.ConsecutiveErrs++
	ep.LastError = time.Now()
	if ep.ConsecutiveErrs >= et.maxErrors {
		ep.Healthy = false
	}
}

// Ordered returns the endpoints to try, healthy ones first by latency, then
// unhealthy ones whose recovery interval elapsed. When nothing qualifies every
// endpoint is returned in configuration order so the client is never left
// without a connection.
func (et *EndpointTracker) Ordered() []string {
	et.mu.RLock()
	defer et.mu.RUnlock()

	now := time.Now()

	type candidate struct {
		url     string
		latency time.Duration
		recover bool
	}

	var candidates []candidate
	for _, ep := range et.endpoints {
		if ep.Healthy {
			candidates = append(candidates, candidate{url: ep.URL, latency: ep.Latency})
		} else if !ep.LastError.IsZero() && now.Sub(ep.LastError) >= et.recovery {
			candidates = append(candidates, candidate{url: ep.URL, latency: time.Hour, recover: true})
		}
	}

	if len(candidates) == 0 {
		urls := make([]string, len(et.endpoints))
		for i, ep := range et.endpoints {
			urls[i] = ep.URL
		}
		return urls
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].recover != candidates[j].recover {
			return !candidates[i].recover
		}
		return candidates[i].latency < candidates[j].latency
	})

	urls := make([]string, len(candidates))
	for i, c := range candidates {
		urls[i] = c.url
	}
	return urls
}

// Snapshot returns a copy of every endpoint's state.
func (et *EndpointTracker) Snapshot() []EndpointHealth {
	et.mu.RLock()
	defer et.mu.RUnlock()

	out := make([]EndpointHealth, len(et.endpoints))
	for i, ep := range et.endpoints {
		out[i] = *ep
	}
	return out
}

// Len returns the total number of tracked endpoints.
func (et *EndpointTracker) Len() int {
	et.mu.RLock()
	defer et.mu.RUnlock()
	return len(et.endpoints)
}

// find returns the endpoint with the given URL (must hold lock).
func (et *EndpointTracker) find(url string) *EndpointHealth {
	for _, ep := range et.endpoints {
		if ep.URL == url {
			return ep
		}
	}
	return nil
}
