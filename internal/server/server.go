package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/san-kum/railsim/internal/analysis"
	"github.com/san-kum/railsim/internal/dynamo"
	"github.com/san-kum/railsim/internal/integrators"
	"github.com/san-kum/railsim/internal/rail"
	"github.com/san-kum/railsim/internal/sim"
	"github.com/san-kum/railsim/internal/storage"
)

// liveDecimation keeps the websocket stream around 100 samples per simulated
// second at the default step size.
const liveDecimation = 10

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server exposes stored runs and on-demand simulations over HTTP. One
// simulation per request; each handler builds its own simulator, so
// concurrent requests do not share state.
type Server struct {
	store  *storage.Store
	params rail.Params
	router *mux.Router
}

func New(store *storage.Store, params rail.Params) *Server {
	s := &Server{store: store, params: params, router: mux.NewRouter()}

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/runs", s.handleListRuns).Methods("GET")
	api.HandleFunc("/runs/{id}", s.handleGetRun).Methods("GET")
	api.HandleFunc("/runs/{id}/series", s.handleGetSeries).Methods("GET")
	api.HandleFunc("/simulate", s.handleSimulate).Methods("POST")
	api.HandleFunc("/live", s.handleLive).Methods("GET")

	return s
}

func (s *Server) Router() http.Handler { return s.router }

func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.List()
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	meta, err := s.store.Load(mux.Vars(r)["id"])
	if err != nil {
		httpError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, meta)
}

func (s *Server) handleGetSeries(w http.ResponseWriter, r *http.Request) {
	series, err := s.store.LoadSeries(mux.Vars(r)["id"])
	if err != nil {
		httpError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, series)
}

// SimulateRequest is the POST /api/simulate body. Units match the config
// file: millimeters for the gap and skew.
type SimulateRequest struct {
	SpacingMM     float64 `json:"spacing_mm"`
	InitialSkewMM float64 `json:"initial_skew_mm"`
	MaxDistance   float64 `json:"max_distance_m,omitempty"`
	RailAngle     float64 `json:"rail_angle_rad,omitempty"`
	RailCurvature float64 `json:"rail_curvature_rad_per_m,omitempty"`
	Save          bool    `json:"save,omitempty"`
}

type SimulateResponse struct {
	RunID    string             `json:"run_id,omitempty"`
	Diverged bool               `json:"diverged"`
	Reason   string             `json:"reason,omitempty"`
	Duration float64            `json:"duration"`
	Distance float64            `json:"distance"`
	Metrics  map[string]float64 `json:"metrics"`
	Verdict  *analysis.Verdict  `json:"verdict"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}

	cfg := s.configFrom(req)
	simulator, err := sim.New(s.params, cfg, integrators.NewRK4())
	if err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}

	result, err := simulator.Run(r.Context())
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}

	analyzer := analysis.NewAnalyzer(s.params, cfg.Spacing, analysis.DefaultThresholds())
	verdict, err := analyzer.Analyze(result.Times, result.States, result.Left, result.Right, result.Diverged)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}

	resp := SimulateResponse{
		Diverged: result.Diverged,
		Reason:   result.Reason,
		Duration: result.Duration(),
		Distance: result.Distance(),
		Metrics:  result.Metrics,
		Verdict:  verdict,
	}

	if req.Save && s.store != nil {
		runID, err := s.store.Save(cfg, result, verdict)
		if err != nil {
			log.Printf("save run: %v", err)
		} else {
			resp.RunID = runID
		}
	}

	writeJSON(w, resp)
}

func (s *Server) configFrom(req SimulateRequest) sim.Config {
	cfg := sim.DefaultConfig()
	if req.SpacingMM > 0 {
		cfg.Spacing = req.SpacingMM / 1000
	}
	if req.InitialSkewMM != 0 {
		cfg.InitialTheta = sim.SkewToTheta(req.InitialSkewMM, s.params.WheelBase)
	}
	if req.MaxDistance > 0 {
		cfg.MaxDistance = req.MaxDistance
	}
	cfg.RailAngle = req.RailAngle
	cfg.RailCurvature = req.RailCurvature
	return cfg
}

// LiveSample is one decimated state frame pushed over the websocket.
type LiveSample struct {
	T          float64 `json:"t"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Theta      float64 `json:"theta"`
	VY         float64 `json:"vy"`
	LeftForce  float64 `json:"left_force"`
	RightForce float64 `json:"right_force"`
}

type liveStreamer struct {
	conn  *websocket.Conn
	count int
	err   error
}

func (o *liveStreamer) OnStep(x dynamo.State, left, right rail.ContactResult, t float64) {
	o.count++
	if o.err != nil || o.count%liveDecimation != 0 {
		return
	}
	o.err = o.conn.WriteJSON(LiveSample{
		T:          t,
		X:          x[rail.IdxX],
		Y:          x[rail.IdxY],
		Theta:      x[rail.IdxTheta],
		VY:         x[rail.IdxVY],
		LeftForce:  left.Total(),
		RightForce: right.Total(),
	})
}

// handleLive upgrades to a websocket, runs a fresh simulation for the query
// parameters, and streams decimated samples as they are produced. The
// connection closes when the run completes.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	req := SimulateRequest{SpacingMM: 10, InitialSkewMM: 5}
	if v, err := strconv.ParseFloat(r.URL.Query().Get("spacing_mm"), 64); err == nil {
		req.SpacingMM = v
	}
	if v, err := strconv.ParseFloat(r.URL.Query().Get("initial_skew_mm"), 64); err == nil {
		req.InitialSkewMM = v
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	simulator, err := sim.New(s.params, s.configFrom(req), integrators.NewRK4())
	if err != nil {
		conn.WriteJSON(map[string]string{"error": err.Error()})
		return
	}

	streamer := &liveStreamer{conn: conn}
	simulator.AddObserver(streamer)

	result, err := simulator.Run(r.Context())
	if err != nil {
		conn.WriteJSON(map[string]string{"error": err.Error()})
		return
	}

	conn.WriteJSON(map[string]any{
		"done":     true,
		"diverged": result.Diverged,
		"metrics":  result.Metrics,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func httpError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
