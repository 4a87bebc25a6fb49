// Package httpapi implements the external handover-control, feature-vector
// export, prediction-stub, and QoS-feedback surface described in spec §6,
// grounded on the teacher's gorilla/mux xApp HTTP server
// (test-deployment/ric-platform-agents/05-network-functions/traffic-steering-xapp.go).
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/nephio-oran-claude-agents/internal/domain"
	"github.com/nephio-oran-claude-agents/internal/engine"
	"github.com/nephio-oran-claude-agents/internal/engineerr"
	"github.com/nephio-oran-claude-agents/internal/predictor"
)

// EngineController is the subset of *engine.Engine the HTTP layer drives.
type EngineController interface {
	CurrentMode() engine.Mode
	SetMode(*engine.Mode)
	Tick(ctx context.Context, ueID string, nowS, tttSeconds float64, qosRNG *rand.Rand) (domain.HandoverEvent, domain.FeatureVector, error)
	QoSFeedback(serviceType string, passed bool)
	AdaptiveRequiredConfidence(serviceType string, priority int) float64
}

// StateReader is the subset of *network.Manager the HTTP layer reads from.
type StateReader interface {
	FeatureVector(ueID string, nowS float64, qosRNG *rand.Rand) (domain.FeatureVector, error)
	ConnectedTo(ueID string) (string, bool)
}

// Clock supplies the simulation time used to drive on-demand engine ticks.
type Clock interface {
	NowS() float64
}

// WallClock is a Clock measuring elapsed seconds since it was constructed.
type WallClock struct {
	start time.Time
}

// NewWallClock returns a Clock anchored to the current time.
func NewWallClock() *WallClock { return &WallClock{start: time.Now()} }

// NowS returns elapsed seconds since the clock was constructed.
func (c *WallClock) NowS() float64 { return time.Since(c.start).Seconds() }

// MetricsHandler serves the Prometheus scrape surface (spec §6).
type MetricsHandler interface {
	Handler() http.Handler
}

// Server wires the spec §6 HTTP surface onto a gorilla/mux router.
type Server struct {
	engine     EngineController
	state      StateReader
	predictor  predictor.Predictor
	metrics    MetricsHandler
	clock      Clock
	tttSeconds float64
	log        *slog.Logger

	router *mux.Router
}

// NewServer constructs a Server and registers every route. predictor and
// metrics may be nil: with a nil predictor /predict responds 503, and with
// nil metrics no /metrics route is registered.
func NewServer(eng EngineController, state StateReader, pred predictor.Predictor, metrics MetricsHandler, clock Clock, tttSeconds float64, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = NewWallClock()
	}
	s := &Server{
		engine:     eng,
		state:      state,
		predictor:  pred,
		metrics:    metrics,
		clock:      clock,
		tttSeconds: tttSeconds,
		log:        logger,
		router:     mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

// Router returns the underlying http.Handler, suitable for http.ListenAndServe.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods("GET")
	s.router.HandleFunc("/mode", s.handleGetMode).Methods("GET")
	s.router.HandleFunc("/mode", s.handlePostMode).Methods("POST")
	s.router.HandleFunc("/handover", s.handlePostHandover).Methods("POST")
	s.router.HandleFunc("/state/{ue_id}", s.handleGetState).Methods("GET")
	s.router.HandleFunc("/predict", s.handlePostPredict).Methods("POST")
	s.router.HandleFunc("/qos-feedback", s.handlePostQoSFeedback).Methods("POST")
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

type modeResponse struct {
	Mode  string `json:"mode"`
	UseML bool   `json:"use_ml"`
}

func (s *Server) handleGetMode(w http.ResponseWriter, r *http.Request) {
	mode := s.engine.CurrentMode()
	writeJSON(w, http.StatusOK, modeResponse{Mode: string(mode), UseML: mode == engine.ModeML})
}

func (s *Server) handlePostMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UseML bool `json:"use_ml"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	mode := engine.ModeA3
	if body.UseML {
		mode = engine.ModeML
	}
	s.engine.SetMode(&mode)
	writeJSON(w, http.StatusOK, modeResponse{Mode: string(mode), UseML: body.UseML})
}

func (s *Server) handlePostHandover(w http.ResponseWriter, r *http.Request) {
	ueID := r.URL.Query().Get("ue_id")
	if ueID == "" {
		s.writeError(w, http.StatusBadRequest, "ue_id is required", nil)
		return
	}
	if _, ok := s.state.ConnectedTo(ueID); !ok {
		s.writeError(w, http.StatusNotFound, "unknown UE", nil)
		return
	}

	event, _, err := s.engine.Tick(r.Context(), ueID, s.clock.NowS(), s.tttSeconds, nil)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "handover evaluation failed", err)
		return
	}
	if event.Outcome != domain.OutcomeApplied {
		s.writeError(w, http.StatusBadRequest, "No handover triggered", nil)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	ueID := mux.Vars(r)["ue_id"]
	fv, err := s.state.FeatureVector(ueID, s.clock.NowS(), nil)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "unknown UE", err)
		return
	}
	writeJSON(w, http.StatusOK, fv)
}

type predictRequest struct {
	UEID        string                        `json:"ue_id"`
	Latitude    float64                       `json:"latitude"`
	Longitude   float64                       `json:"longitude"`
	Speed       float64                       `json:"speed"`
	ConnectedTo string                        `json:"connected_to"`
	RFMetrics   map[string]map[string]float64 `json:"rf_metrics"`
	ServiceType string                        `json:"service_type"`
}

func (s *Server) handlePostPredict(w http.ResponseWriter, r *http.Request) {
	if s.predictor == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no predictor configured", nil)
		return
	}
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	fv := domain.FeatureVector{UEID: req.UEID, Latitude: req.Latitude, Longitude: req.Longitude, Speed: req.Speed, ConnectedTo: req.ConnectedTo}
	for antennaID, metrics := range req.RFMetrics {
		fv.NeighborRSRPDBm = append(fv.NeighborRSRPDBm, domain.AntennaMetric{AntennaID: antennaID, ValueDB: metrics["rsrp"]})
		fv.NeighborSINRDB = append(fv.NeighborSINRDB, domain.AntennaMetric{AntennaID: antennaID, ValueDB: metrics["sinr"]})
		fv.NeighborRSRQDB = append(fv.NeighborRSRQDB, domain.AntennaMetric{AntennaID: antennaID, ValueDB: metrics["rsrq"]})
	}

	pred, err := s.predictor.Predict(r.Context(), fv)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "prediction failed", err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		UEID             string   `json:"ue_id"`
		PredictedAntenna string   `json:"predicted_antenna"`
		Confidence       float64  `json:"confidence"`
		FeaturesUsed     []string `json:"features_used"`
	}{UEID: req.UEID, PredictedAntenna: pred.TargetAntenna, Confidence: pred.Confidence, FeaturesUsed: []string{"rsrp", "sinr", "rsrq"}})
}

type qosFeedbackRequest struct {
	UEID           string             `json:"ue_id"`
	AntennaID      string             `json:"antenna_id"`
	ServiceType    string             `json:"service_type"`
	ServicePriority int               `json:"service_priority"`
	ObservedQoS    domain.ObservedQoS `json:"observed_qos"`
	Success        bool               `json:"success"`
	Confidence     float64            `json:"confidence"`
}

func (s *Server) handlePostQoSFeedback(w http.ResponseWriter, r *http.Request) {
	var req qosFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	s.engine.QoSFeedback(req.ServiceType, req.Success)
	adaptive := s.engine.AdaptiveRequiredConfidence(req.ServiceType, req.ServicePriority)
	writeJSON(w, http.StatusOK, map[string]any{"status": "accepted", "adaptive_required_confidence": adaptive})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string, err error) {
	correlationID := uuid.NewString()
	engErr := engineerr.New(engineerr.CodeValidation, "httpapi", message, correlationID, err, false)
	s.log.Warn("request failed", slog.String("correlation_id", correlationID), slog.String("message", message))
	writeJSON(w, status, map[string]string{"error": message, "correlation_id": correlationID, "detail": engErr.Error()})
}
