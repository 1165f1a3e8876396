package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"iot-shield/api/internal/handlers"
	"iot-shield/internal/deception"
	"iot-shield/internal/discovery"
	"iot-shield/internal/intel"
	"iot-shield/internal/metrics"
	"iot-shield/internal/mitigation"
	"iot-shield/internal/pipeline"
	"iot-shield/internal/risk"
	"iot-shield/internal/store"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Server is the REST and WebSocket surface of the engine. It runs in-process
// with the pipeline so every endpoint reads live state.
type Server struct {
	srv    *http.Server
	logger *logrus.Logger
	port   string
}

// Deps wires the server's collaborators
type Deps struct {
	Store     *store.Store
	Processor *pipeline.Processor
	Mitigator *mitigation.Engine
	Deception *deception.Subsystem
	Discovery *discovery.Scanner
	Scorer    *risk.Scorer
	Explainer *intel.Explainer
	Mode      *mitigation.ModeSwitch
	Metrics   *metrics.Metrics
	Logger    *logrus.Logger
}

func NewServer(port string, deps Deps) *Server {
	h := handlers.NewHandlers(
		deps.Store,
		deps.Processor,
		deps.Mitigator,
		deps.Deception,
		deps.Discovery,
		deps.Scorer,
		deps.Explainer,
		deps.Mode,
		deps.Metrics,
		deps.Logger,
	)

	router := mux.NewRouter()
	router.Use(corsMiddleware)

	api := router.PathPrefix("/api/v1").Subrouter()

	// Devices endpoints
	api.HandleFunc("/stream/devices", h.StreamDevices).Methods("GET")
	api.HandleFunc("/devices", h.GetDevices).Methods("GET")
	api.HandleFunc("/devices/{id}", h.GetDevice).Methods("GET")
	api.HandleFunc("/devices/{id}/fingerprint", h.FingerprintDevice).Methods("POST")
	api.HandleFunc("/devices/{id}/audit", h.AuditDevice).Methods("POST")

	// Threats endpoints
	api.HandleFunc("/stream/threats", h.StreamThreats).Methods("GET")
	api.HandleFunc("/threats", h.GetThreats).Methods("GET")
	api.HandleFunc("/threats", h.PurgeThreats).Methods("DELETE")
	api.HandleFunc("/threats/{id}", h.GetThreat).Methods("GET")

	// Mitigation endpoints
	api.HandleFunc("/mitigations", h.GetMitigations).Methods("GET")
	api.HandleFunc("/mitigations/{id}/rollback", h.RollbackMitigation).Methods("POST")
	api.HandleFunc("/firewall/rules", h.GetFirewallRules).Methods("GET")
	api.HandleFunc("/firewall/rules/{id}", h.DeleteFirewallRule).Methods("DELETE")

	// Deception endpoints
	api.HandleFunc("/deception/decoys", h.GetDecoys).Methods("GET")
	api.HandleFunc("/deception/decoys", h.DeployDecoy).Methods("POST")
	api.HandleFunc("/deception/honeytokens", h.GetHoneytokens).Methods("GET")
	api.HandleFunc("/deception/honeytokens/{id}/trigger", h.TriggerHoneytoken).Methods("POST")

	// Mode, report, stats
	api.HandleFunc("/mode", h.GetMode).Methods("GET")
	api.HandleFunc("/mode", h.SetMode).Methods("PUT")
	api.HandleFunc("/report", h.GetReport).Methods("GET")
	api.HandleFunc("/stats", h.GetStats).Methods("GET")

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods("GET", "OPTIONS")

	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%s", port),
			Handler:           router,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 15 * time.Second,
		},
		logger: deps.Logger,
		port:   port,
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start serves until the context is cancelled
func (s *Server) Start(ctx context.Context) error {
	s.logger.Infof("API server starting on port %s", s.port)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("API server failed: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("Shutting down API server...")
	return s.srv.Shutdown(shutdownCtx)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowedOrigins := []string{
			"http://localhost:5000",
			"http://localhost:3000",
			"http://127.0.0.1:5000",
			"http://127.0.0.1:3000",
		}

		allowOrigin := "*"
		if origin != "" {
			for _, allowed := range allowedOrigins {
				if origin == allowed {
					allowOrigin = origin
					break
				}
			}
		}

		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if allowOrigin != "*" {
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
