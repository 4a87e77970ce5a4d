// Package controlplane is a loopback-only HTTP introspection surface,
// adapted from the teacher pack's internal/privileged.ControlPlane:
// /actors lists live processes and /send injects a raw message into a
// named actor's mailbox, bypassing capability checks, for debugging a
// running kernel from the outside. It is never reachable by a guest actor
// and exists purely for operators.
package controlplane

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"nanokern/internal/future"
	"nanokern/internal/ipc"
	"nanokern/internal/logsink"
	"nanokern/internal/process"
)

// ControlPlane serves /actors and /send over loopback. waker is the
// scheduler's Wake entry point, used to promote an actor a /send call
// found Blocked back onto its resident core's ready queue.
type ControlPlane struct {
	registry *process.Registry
	waker    process.Waker
	log      *logsink.Logger
	srv      *http.Server
}

// New builds a ControlPlane over registry. waker may be nil in tests that
// never exercise the blocked-wake path.
func New(registry *process.Registry, waker process.Waker, log *logsink.Logger) *ControlPlane {
	return &ControlPlane{registry: registry, waker: waker, log: log}
}

// Handler returns the routed mux, exposed separately so tests can drive it
// with httptest without binding a real socket.
func (c *ControlPlane) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/actors", c.handleActors)
	mux.HandleFunc("/send", c.handleSend)
	return mux
}

// ListenAndServe binds addr (callers should pass a loopback address, e.g.
// "127.0.0.1:8080") and blocks until the server stops or errors.
func (c *ControlPlane) ListenAndServe(addr string) error {
	c.srv = &http.Server{Addr: addr, Handler: c.Handler()}
	c.log.Infof("control plane listening on %s", addr)
	return c.srv.ListenAndServe()
}

// Shutdown gracefully stops a running server; a no-op if ListenAndServe
// was never called.
func (c *ControlPlane) Shutdown(ctx context.Context) error {
	if c.srv == nil {
		return nil
	}
	return c.srv.Shutdown(ctx)
}

type actorView struct {
	ID       uint32 `json:"id"`
	Name     string `json:"name"`
	State    string `json:"state"`
	CoreID   int    `json:"core_id"`
	CPUTicks uint64 `json:"cpu_ticks"`
	QueueLen int    `json:"queue_len"`
}

func (c *ControlPlane) handleActors(w http.ResponseWriter, r *http.Request) {
	procs := c.registry.Snapshot()
	out := make([]actorView, 0, len(procs))
	for _, p := range procs {
		out = append(out, actorView{
			ID:       uint32(p.ID),
			Name:     p.Name,
			State:    p.State().String(),
			CoreID:   p.CoreID,
			CPUTicks: p.CPUTicks.Load(),
			QueueLen: p.Queue.Len(),
		})
	}
	w.Header().Set("content-type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

type sendRequest struct {
	To    string    `json:"to"`
	Label uint64    `json:"label"`
	Data  [3]uint64 `json:"data"`
}

type sendResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Drained bool   `json:"drained"`
}

// handleSend pushes a message straight into the named actor's queue, then
// waits briefly to report whether the actor actually drained it — useful
// for confirming a target is alive and reading its mailbox, not just that
// the push itself succeeded.
func (c *ControlPlane) handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(sendResponse{Error: err.Error()})
		return
	}
	named, ok := c.registry.ByName(req.To)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(sendResponse{Error: "unknown actor"})
		return
	}
	p, ok := c.registry.Lookup(named.ID)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(sendResponse{Error: "unknown actor"})
		return
	}

	msg := ipc.Message{Label: req.Label, Data: req.Data}
	if err := p.Queue.Push(msg); err != nil {
		w.WriteHeader(http.StatusInsufficientStorage)
		_ = json.NewEncoder(w).Encode(sendResponse{Error: err.Error()})
		return
	}
	if p.CompareAndSwapState(process.Blocked, process.Ready) && c.waker != nil {
		// fromCoreID -1 never equals a real core id, so the scheduler
		// always treats an out-of-band injection as cross-core and defers
		// it through the target core's wake ring rather than mutating
		// another core's ready queue directly from this HTTP goroutine.
		c.waker.Wake(p, -1)
	}

	fut := future.New(func() (bool, error) {
		deadline := time.After(300 * time.Millisecond)
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-deadline:
				return false, nil
			case <-ticker.C:
				if p.Queue.Len() == 0 {
					return true, nil
				}
			}
		}
	})
	drained, _ := fut.Await()

	w.Header().Set("content-type", "application/json")
	_ = json.NewEncoder(w).Encode(sendResponse{OK: true, Drained: drained})
}
