// Package health serves the liveness and readiness probes.
package health

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/noah-isme/backend-apotek/internal/common"
)

const defaultProbeTimeout = 500 * time.Millisecond

var draining atomic.Bool

// SetReady(false) makes readiness fail immediately, ahead of graceful
// shutdown, so the load balancer stops routing new requests here.
func SetReady(v bool) {
	draining.Store(!v)
}

// Probe is one named dependency check.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler serves /health/live and /health/ready.
type Handler struct {
	Probes  []Probe
	Timeout time.Duration // per probe
}

func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// Ready runs every probe concurrently and answers 503 when any fails, with
// each probe's result under its name.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if draining.Load() {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting down"})
		return
	}
	if len(h.Probes) == 0 {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "dependencies unavailable"})
		return
	}

	results := h.run(r.Context())
	code := http.StatusOK
	for _, res := range results {
		if res != "ok" {
			code = http.StatusServiceUnavailable
			break
		}
	}
	common.JSON(w, code, results)
}

func (h Handler) run(ctx context.Context) map[string]string {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]string, len(h.Probes))
	)
	for _, p := range h.Probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			status := "ok"
			if err := p.Check(pctx); err != nil {
				status = err.Error()
			}
			mu.Lock()
			results[p.Name] = status
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}
