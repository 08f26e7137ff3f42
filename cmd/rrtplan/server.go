package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rrt-planner/planner"
	"rrt-planner/workspace"
)

const (
	defaultTickMS      = 1000 / 60
	defaultPlanTimeout = 30 * time.Second
	shutdownTimeout    = 5 * time.Second
)

// PlanRequest names a stored layout or carries one inline.
type PlanRequest struct {
	LayoutName string            `json:"layout_name,omitempty"`
	Layout     *workspace.Layout `json:"layout,omitempty"`
	Algorithm  string            `json:"algorithm"`
	Options    *planner.Options  `json:"options,omitempty"`
}

type PlanResponse struct {
	Success    bool                       `json:"success"`
	Message    string                     `json:"message,omitempty"`
	Path       [][]float64                `json:"path,omitempty"`
	Length     float64                    `json:"length,omitempty"`
	Nodes      int                        `json:"nodes"`
	Iterations int                        `json:"iterations"`
	GeoJSON    *geojson.FeatureCollection `json:"geojson,omitempty"`
}

// StreamRequest opens a /stream session. TickMS defaults to 60 frames per second.
type StreamRequest struct {
	PlanRequest
	TickMS            int `json:"tick_ms"`
	IterationsPerTick int `json:"iterations_per_tick"`
}

// StreamFrame is sent after every tick that changed something.
type StreamFrame struct {
	Tick       int                        `json:"tick"`
	HasPath    bool                       `json:"has_path"`
	Length     float64                    `json:"length,omitempty"`
	Nodes      int                        `json:"nodes"`
	Iterations int                        `json:"iterations"`
	GeoJSON    *geojson.FeatureCollection `json:"geojson"`
}

type server struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	layouts map[string]*workspace.Layout
}

func newServer(logger *zap.Logger, layouts map[string]*workspace.Layout) *server {
	if layouts == nil {
		layouts = map[string]*workspace.Layout{}
	}
	return &server{
		logger:   logger,
		layouts:  layouts,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/plan", corsMiddleware(s.planHandler))
	mux.HandleFunc("/layouts", corsMiddleware(s.layoutsHandler))
	mux.HandleFunc("/health", corsMiddleware(s.healthHandler))
	mux.HandleFunc("/stream", s.streamHandler)
	return mux
}

func runServe(c *cli.Context, logger *zap.Logger) error {
	var layouts map[string]*workspace.Layout
	if dir := c.String(flagLayouts); dir != "" {
		loaded, err := workspace.LoadLayoutDir(dir, logger)
		if err != nil {
			return err
		}
		layouts = loaded
	}

	srv := &http.Server{
		Addr:    c.String(flagAddr),
		Handler: newServer(logger, layouts).routes(),
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// corsMiddleware adds CORS headers to allow frontend requests
func corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		// Handle preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// resolve builds the workspace and planner a request describes.
func (s *server) resolve(req PlanRequest, logger *zap.Logger) (*workspace.Workspace, *planner.Planner, error) {
	layout := req.Layout
	if layout == nil {
		s.mu.RLock()
		layout = s.layouts[req.LayoutName]
		s.mu.RUnlock()
		if layout == nil {
			return nil, nil, errors.Errorf("unknown layout %q", req.LayoutName)
		}
	}
	ws, err := layout.Build(logger)
	if err != nil {
		return nil, nil, err
	}

	name := req.Algorithm
	if name == "" {
		name = planner.RRT.String()
	}
	alg, err := planner.ParseAlgorithm(name)
	if err != nil {
		return nil, nil, err
	}

	opts := planner.DefaultOptions()
	if req.Options != nil {
		opts = *req.Options
	}
	p, err := planner.New(alg, ws, opts, logger)
	if err != nil {
		return nil, nil, err
	}
	return ws, p, nil
}

// POST /plan - run a planner to completion and return the path
func (s *server) planHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// options decode on top of the defaults
	req := PlanRequest{Options: optionsPtr(planner.DefaultOptions())}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Warn("invalid plan request", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Options == nil {
		req.Options = optionsPtr(planner.DefaultOptions())
	}
	if req.Options.MaxIterations == 0 {
		req.Options.MaxIterations = 1_000_000
	}

	logger := s.logger.With(zap.String("request", "plan"), zap.String("layout", req.LayoutName))
	ws, p, err := s.resolve(req, logger)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, PlanResponse{Message: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), defaultPlanTimeout)
	defer cancel()
	if err := p.FindPath(ctx); err != nil {
		logger.Warn("no path", zap.Error(err))
		writeJSON(w, http.StatusOK, PlanResponse{
			Message:    err.Error(),
			Nodes:      ws.NodeCount(),
			Iterations: p.Stats().Iterations,
		})
		return
	}

	path := make([][]float64, 0, len(ws.PathIDs()))
	for _, v := range ws.Path() {
		path = append(path, []float64{v.X(), v.Y()})
	}
	writeJSON(w, http.StatusOK, PlanResponse{
		Success:    true,
		Path:       path,
		Length:     ws.PathLength(),
		Nodes:      ws.NodeCount(),
		Iterations: p.Stats().Iterations,
		GeoJSON:    ws.FeatureCollection(),
	})
}

// GET /layouts - names of the stored layouts
func (s *server) layoutsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.mu.RLock()
	names := make([]string, 0, len(s.layouts))
	for name := range s.layouts {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	writeJSON(w, http.StatusOK, map[string]interface{}{"layouts": names})
}

// GET /health - Health check endpoint
func (s *server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	count := len(s.layouts)
	s.mu.RUnlock()

	algorithms := make([]string, 0, len(planner.Algorithms()))
	for _, alg := range planner.Algorithms() {
		algorithms = append(algorithms, alg.String())
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ready",
		"layouts":    count,
		"algorithms": algorithms,
	})
}

// GET /stream - websocket session. The client sends a StreamRequest, then
// "pause", "resume" or "toggle" text messages; the server answers with a
// StreamFrame after every tick that changed the scene.
func (s *server) streamHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	req := StreamRequest{PlanRequest: PlanRequest{Options: optionsPtr(planner.DefaultOptions())}}
	if err := conn.ReadJSON(&req); err != nil {
		s.logger.Warn("invalid stream request", zap.Error(err))
		return
	}
	if req.Options == nil {
		req.Options = optionsPtr(planner.DefaultOptions())
	}
	if req.TickMS <= 0 {
		req.TickMS = defaultTickMS
	}
	if req.IterationsPerTick <= 0 {
		req.IterationsPerTick = 1
	}

	gate := planner.NewGate()
	req.Options.Gate = gate
	logger := s.logger.With(zap.String("request", "stream"), zap.String("remote", r.RemoteAddr))
	ws, p, err := s.resolve(req.PlanRequest, logger)
	if err != nil {
		_ = conn.WriteJSON(map[string]string{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			switch string(msg) {
			case "pause":
				gate.Pause()
			case "resume":
				gate.Resume()
			case "toggle":
				gate.Toggle()
			}
		}
	}()

	logger.Info("stream started", zap.Int("tick_ms", req.TickMS))
	if err := s.stream(ctx, conn, ws, p, gate, req); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("stream ended", zap.Error(err))
		return
	}
	logger.Info("stream closed", zap.Int("iterations", p.Stats().Iterations))
}

// stream advances obstacles and the planner once per tick on the calling goroutine.
func (s *server) stream(ctx context.Context, conn *websocket.Conn, ws *workspace.Workspace, p *planner.Planner, gate *planner.Gate, req StreamRequest) error {
	interval := time.Duration(req.TickMS) * time.Millisecond
	dt := interval.Seconds()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for tick := 1; ; tick++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if gate.Paused() {
			continue
		}

		if err := ws.Update(dt); err != nil {
			return err
		}
		for i := 0; i < req.IterationsPerTick; i++ {
			if _, err := p.Iterate(ctx); err != nil {
				return err
			}
		}

		if !ws.Stale() && len(ws.DynamicObstacles()) == 0 {
			continue
		}
		frame := StreamFrame{
			Tick:       tick,
			HasPath:    ws.HasPath(),
			Length:     ws.PathLength(),
			Nodes:      ws.NodeCount(),
			Iterations: p.Stats().Iterations,
			GeoJSON:    ws.FeatureCollection(),
		}
		if err := conn.WriteJSON(frame); err != nil {
			return err
		}
		ws.ClearStale()
	}
}

func optionsPtr(o planner.Options) *planner.Options { return &o }
