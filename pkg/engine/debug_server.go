package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-drift/surfacehost/pkg/logging"
	"github.com/go-drift/surfacehost/pkg/platform"
	"github.com/go-drift/surfacehost/pkg/scheduler"
	"github.com/go-drift/surfacehost/pkg/surface"
)

// debugServer manages the HTTP server for surface inspection.
type debugServer struct {
	server   *http.Server
	listener net.Listener
	mu       sync.Mutex
}

// SurfaceNode is the JSON form of one registered surface.
// Uses SafeFloat for bounds that are routinely infinite.
type SurfaceNode struct {
	ID              surface.ID      `json:"id"`
	Module          string          `json:"module"`
	Status          string          `json:"status"`
	DisplayMode     string          `json:"displayMode"`
	Renders         bool            `json:"renders"`
	Constraints     SafeConstraints `json:"constraints"`
	Direction       string          `json:"direction"`
	Offset          SafeOffset      `json:"offset"`
	Scale           SafeFloat       `json:"scale"`
	SwapInRTL       bool            `json:"swapInRTL"`
	PropsGeneration uint64          `json:"propsGeneration"`
}

// SafeFloat wraps a float64 to handle Inf/NaN in JSON encoding.
type SafeFloat float64

func (f SafeFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsInf(v, 1) {
		return []byte(`"Infinity"`), nil
	}
	if math.IsInf(v, -1) {
		return []byte(`"-Infinity"`), nil
	}
	if math.IsNaN(v) {
		return []byte(`"NaN"`), nil
	}
	return json.Marshal(v)
}

// SafeOffset is a JSON-safe version of layout.Offset.
type SafeOffset struct {
	X SafeFloat `json:"x"`
	Y SafeFloat `json:"y"`
}

// SafeConstraints is a JSON-safe version of layout.Constraints.
type SafeConstraints struct {
	MinWidth  SafeFloat `json:"minWidth"`
	MaxWidth  SafeFloat `json:"maxWidth"`
	MinHeight SafeFloat `json:"minHeight"`
	MaxHeight SafeFloat `json:"maxHeight"`
}

func surfaceNode(snap surface.Snapshot) SurfaceNode {
	c := snap.Constraints
	return SurfaceNode{
		ID:          snap.ID,
		Module:      snap.ModuleName,
		Status:      snap.Status.String(),
		DisplayMode: snap.DisplayMode.String(),
		Renders:     snap.Renders(),
		Constraints: SafeConstraints{
			MinWidth:  SafeFloat(c.MinSize.Width),
			MaxWidth:  SafeFloat(c.MaxSize.Width),
			MinHeight: SafeFloat(c.MinSize.Height),
			MaxHeight: SafeFloat(c.MaxSize.Height),
		},
		Direction: c.Direction.String(),
		Offset: SafeOffset{
			X: SafeFloat(snap.Context.ViewportOffset.X),
			Y: SafeFloat(snap.Context.ViewportOffset.Y),
		},
		Scale:           SafeFloat(snap.Context.PointScaleFactor),
		SwapInRTL:       snap.Context.SwapLeftAndRightInRTL,
		PropsGeneration: snap.PropsGeneration,
	}
}

// StartDebugServer starts the HTTP debug server on the specified port.
// Returns the actual port (useful when port=0 for ephemeral allocation).
func (e *Engine) StartDebugServer(port int) (int, error) {
	e.debug.mu.Lock()
	defer e.debug.mu.Unlock()

	if e.debug.server != nil {
		// Already running - return current port
		return e.debug.listener.Addr().(*net.TCPAddr).Port, nil
	}

	// Bind listener first to fail fast on port conflicts
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return 0, fmt.Errorf("debug server listen: %w", err)
	}

	actualPort := listener.Addr().(*net.TCPAddr).Port

	mux := http.NewServeMux()
	mux.HandleFunc("/health", e.handleHealth)
	mux.HandleFunc("/surfaces", e.handleSurfaces)
	mux.HandleFunc("/frames", e.handleFrameTimeline)
	mux.HandleFunc("/lifecycle", e.handleLifecycle)
	mux.HandleFunc("/runtime", e.handleRuntime)

	server := &http.Server{Handler: mux}
	e.debug.server = server
	e.debug.listener = listener

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			// Server failed - clear state so it can be restarted
			e.debug.mu.Lock()
			if e.debug.server == server {
				e.debug.server = nil
				e.debug.listener = nil
			}
			e.debug.mu.Unlock()
			logging.Logger().Error("debug server failed", "err", err)
		}
	}()

	e.sampler.start(NewRuntimeSampleBuffer(e.runtimeWindow, e.runtimeInterval), func() RuntimeSample {
		return readRuntimeSample(e.sched.Snapshots())
	})
	logging.Logger().Info("debug server listening", "port", actualPort)
	return actualPort, nil
}

// StopDebugServer gracefully shuts down the debug server.
func (e *Engine) StopDebugServer() {
	e.debug.mu.Lock()
	server := e.debug.server
	e.debug.server = nil
	e.debug.listener = nil
	e.debug.mu.Unlock()

	if server == nil {
		return
	}
	e.sampler.halt()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, v any) {
	// Encode to buffer first so we can catch errors
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, fmt.Sprintf("json encode error: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// handleHealth returns a simple health check response with the number of
// frames requested so far.
func (e *Engine) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, struct {
		Status        string `json:"status"`
		FrameRequests uint64 `json:"frameRequests"`
	}{Status: "ok", FrameRequests: e.FrameRequests()})
}

// handleSurfaces returns every registered surface as JSON.
func (e *Engine) handleSurfaces(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snaps := e.sched.Snapshots()
	resp := struct {
		Surfaces []SurfaceNode `json:"surfaces"`
	}{
		Surfaces: make([]SurfaceNode, 0, len(snaps)),
	}
	for _, snap := range snaps {
		resp.Surfaces = append(resp.Surfaces, surfaceNode(snap))
	}
	writeJSON(w, resp)
}

// handleFrameTimeline returns recent frame samples as JSON.
func (e *Engine) handleFrameTimeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := e.sched.FrameTimeline()
	applyFrameFilters(r, &resp)
	writeJSON(w, resp)
}

// handleRuntime returns recent runtime samples as JSON.
func (e *Engine) handleRuntime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	samples := e.sampler.samples()
	if samples == nil {
		samples = []RuntimeSample{}
	}
	writeJSON(w, struct {
		Samples []RuntimeSample `json:"samples"`
	}{Samples: samples})
}

// handleLifecycle reports the app lifecycle state on GET and changes it on
// POST with a state query parameter.
func (e *Engine) handleLifecycle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		state, err := platform.ParseLifecycleState(r.URL.Query().Get("state"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := e.host.SetLifecycleState(state); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, struct {
		State platform.LifecycleState `json:"state"`
	}{State: e.host.LifecycleState()})
}

func applyFrameFilters(r *http.Request, resp *scheduler.FrameTimeline) {
	limit := 0
	if value := r.URL.Query().Get("limit"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	var filters []func(scheduler.FrameSample) bool

	if v := parseFloatQuery(r, "min_ms"); v > 0 {
		filters = append(filters, func(s scheduler.FrameSample) bool { return s.FrameMs >= v })
	}
	if value := r.URL.Query().Get("failed"); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil && parsed {
			filters = append(filters, func(s scheduler.FrameSample) bool { return s.Counts.Failed > 0 })
		}
	}
	if value := r.URL.Query().Get("surface"); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 32); err == nil {
			id := surface.ID(parsed)
			filters = append(filters, func(s scheduler.FrameSample) bool {
				for _, timing := range s.Surfaces {
					if timing.Surface == id {
						return true
					}
				}
				return false
			})
		}
	}

	if len(filters) > 0 {
		filtered := make([]scheduler.FrameSample, 0, len(resp.Samples))
	outer:
		for _, sample := range resp.Samples {
			for _, f := range filters {
				if !f(sample) {
					continue outer
				}
			}
			filtered = append(filtered, sample)
		}
		resp.Samples = filtered
	}

	if limit > 0 && len(resp.Samples) > limit {
		resp.Samples = resp.Samples[len(resp.Samples)-limit:]
	}
}

func parseFloatQuery(r *http.Request, key string) float64 {
	value := r.URL.Query().Get(key)
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed <= 0 {
		return 0
	}
	return parsed
}
