package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGateBoundsInFlightRequests(t *testing.T) {
	const capacity = 3
	const requests = 12

	var inFlight, peak atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
	}))
	defer server.Close()

	gate := NewGate(capacity, 0)
	client := server.Client()

	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, err := http.NewRequest(http.MethodGet, server.URL, nil)
			if err != nil {
				t.Error(err)
				return
			}
			resp, err := gate.Do(context.Background(), client, req)
			if err != nil {
				t.Error(err)
				return
			}
			resp.Body.Close()
		}()
	}
	wg.Wait()

	if got := peak.Load(); got > capacity {
		t.Errorf("peak in-flight requests = %d, want <= %d", got, capacity)
	}
}

func TestGateHonorsCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	gate := NewGate(1, 0)
	client := server.Client()

	// occupy the only slot
	occupied := make(chan struct{})
	go func() {
		req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
		close(occupied)
		resp, err := gate.Do(context.Background(), client, req)
		if err == nil {
			resp.Body.Close()
		}
	}()
	<-occupied
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	if _, err := gate.Do(ctx, client, req); err == nil {
		t.Fatal("Do succeeded while the gate was full and the context expired")
	}
}
