package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"settler/application"
	"settler/models"
	"settler/service"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
)

// HealthFunc reports whether the service's dependencies are reachable
type HealthFunc func(ctx context.Context) error

// SettlementObserver receives the outcome of manually settled events
type SettlementObserver interface {
	ObserveSettlement(settlement *models.EventSettlement, err error)
}

// Options configures the HTTP trigger
type Options struct {
	Port       string
	CronSecret string
	Scanner    application.Scanner
	Settlement service.SettlementService
	Observer   SettlementObserver
	Health     HealthFunc
}

// Server exposes the manual settlement trigger, health and metrics over HTTP
type Server struct {
	opts       Options
	httpServer *http.Server
	now        func() time.Time
}

// scanResponse is the body of the settlement run endpoint
type scanResponse struct {
	Success   bool               `json:"success"`
	RunID     string             `json:"runId"`
	Results   []models.ScanEntry `json:"results"`
	Timestamp time.Time          `json:"timestamp"`
}

// errorResponse is the body of a failed trigger request
type errorResponse struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// settleRequest is the body of the manual event settlement endpoint
type settleRequest struct {
	Result models.Side `json:"result"`
}

// NewServer creates a new server
func NewServer(opts Options) *Server {
	s := &Server{
		opts: opts,
		now:  time.Now,
	}
	s.httpServer = &http.Server{
		Addr:         ":" + opts.Port,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // a scan can settle many events
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler builds the router wrapped in CORS
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.Use(s.requireCronSecret)
	api.HandleFunc("/settlement/run", s.handleRunSettlement).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/events/{id:[0-9]+}/settle", s.handleSettleEvent).Methods(http.MethodPost)

	router.HandleFunc("/healthz", healthHandler(s.opts.Health)).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	return c.Handler(router)
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	log.WithField("addr", s.httpServer.Addr).Info("HTTP trigger listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) requireCronSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || s.opts.CronSecret == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.CronSecret)) != 1 {
			log.WithFields(log.Fields{
				"path":   r.URL.Path,
				"remote": r.RemoteAddr,
			}).Warn("Rejected unauthorized trigger request")
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRunSettlement(w http.ResponseWriter, r *http.Request) {
	report, err := s.opts.Scanner.Run(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, application.ErrScanInProgress) {
			status = http.StatusConflict
		}
		log.WithError(err).Error("Manual settlement run failed")
		writeJSON(w, status, errorResponse{
			Success:   false,
			Error:     err.Error(),
			Timestamp: s.now().UTC(),
		})
		return
	}

	writeJSON(w, http.StatusOK, scanResponse{
		Success:   true,
		RunID:     report.RunID,
		Results:   report.Results,
		Timestamp: report.Timestamp,
	})
}

func (s *Server) handleSettleEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid event id"})
		return
	}

	var req settleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !req.Result.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("unknown result %q", req.Result)})
		return
	}

	settlement, err := s.opts.Settlement.SettleEvent(r.Context(), eventID, req.Result)
	if s.opts.Observer != nil {
		s.opts.Observer.ObserveSettlement(settlement, err)
	}
	if err != nil {
		log.WithFields(log.Fields{
			"eventID": eventID,
			"result":  req.Result,
			"error":   err,
		}).Error("Manual event settlement failed")
		writeJSON(w, statusFor(err), errorResponse{
			Success:   false,
			Error:     err.Error(),
			Timestamp: s.now().UTC(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "settlement": settlement})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("Failed to write response")
	}
}
