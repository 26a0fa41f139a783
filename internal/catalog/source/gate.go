package source

import (
	"context"
	"net/http"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// DefaultGateCapacity caps simultaneous in-flight requests per source.
const DefaultGateCapacity = 10

// Gate bounds a source's outbound network traffic. The semaphore limits
// in-flight requests, the optional limiter spaces them out. Both are honored
// on every call, and the semaphore slot is released on every path, including
// cancellation.
type Gate struct {
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// NewGate builds a gate with the given in-flight capacity. requestsPerSecond
// <= 0 disables request spacing.
func NewGate(capacity int64, requestsPerSecond float64) *Gate {
	if capacity <= 0 {
		capacity = DefaultGateCapacity
	}
	g := &Gate{sem: semaphore.NewWeighted(capacity)}
	if requestsPerSecond > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return g
}

// Do executes the request through the gate.
func (g *Gate) Do(ctx context.Context, client *http.Client, req *http.Request) (*http.Response, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer g.sem.Release(1)

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	return client.Do(req.WithContext(ctx))
}
