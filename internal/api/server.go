// Package api provides the HTTP and WebSocket server operators and
// external signal sources use to drive the trading engine.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/atlas-desktop/scalper-engine/internal/broker"
	apiconfig "github.com/atlas-desktop/scalper-engine/internal/config"
	"github.com/atlas-desktop/scalper-engine/internal/copytrade"
	"github.com/atlas-desktop/scalper-engine/internal/decision"
	"github.com/atlas-desktop/scalper-engine/internal/journal"
	"github.com/atlas-desktop/scalper-engine/internal/monitor"
	"github.com/atlas-desktop/scalper-engine/internal/orchestrator"
	"github.com/atlas-desktop/scalper-engine/internal/portfolio"
	"github.com/atlas-desktop/scalper-engine/internal/scalper"
	"github.com/atlas-desktop/scalper-engine/internal/store"
	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

// WebSocketPath is where WS clients connect, matching the teacher's
// config-driven path convention.
const WebSocketPath = "/ws"

// Server is the HTTP/WebSocket API server wiring every engine component
// behind a single router.
type Server struct {
	logger *zap.Logger
	config apiconfig.ServerConfig

	router     *mux.Router
	httpServer *http.Server
	hub        *Hub

	store       *store.Store
	brokers     *broker.Registry
	planner     *scalper.Planner
	decisions   *decision.Pipeline
	orch        *orchestrator.Orchestrator
	portfolio   *portfolio.Recorder
	monitorSvc  *monitor.Monitor
	journalSvc  *journal.Journal
	copytrade   *copytrade.Allocator
	runtimeCfg  types.RuntimeConfig
}

// Deps bundles the constructed domain components the server dispatches to.
type Deps struct {
	Store      *store.Store
	Brokers    *broker.Registry
	Planner    *scalper.Planner
	Decisions  *decision.Pipeline
	Orch       *orchestrator.Orchestrator
	Portfolio  *portfolio.Recorder
	Monitor    *monitor.Monitor
	Journal    *journal.Journal
	Copytrade  *copytrade.Allocator
	RuntimeCfg types.RuntimeConfig
}

// NewServer builds an API server around the given component set.
func NewServer(logger *zap.Logger, cfg apiconfig.ServerConfig, deps Deps) *Server {
	s := &Server{
		logger:     logger,
		config:     cfg,
		router:     mux.NewRouter(),
		hub:        NewHub(logger),
		store:      deps.Store,
		brokers:    deps.Brokers,
		planner:    deps.Planner,
		decisions:  deps.Decisions,
		orch:       deps.Orch,
		portfolio:  deps.Portfolio,
		monitorSvc: deps.Monitor,
		journalSvc: deps.Journal,
		copytrade:  deps.Copytrade,
		runtimeCfg: deps.RuntimeCfg,
	}
	s.setupRoutes()
	return s
}

// Hub exposes the server's WebSocket hub so other components (the
// scheduler driving planner/monitor ticks) can push live updates.
func (s *Server) Hub() *Hub { return s.hub }

// Router exposes the underlying mux.Router, mainly for tests that want to
// drive the server through httptest.NewServer without a real listener.
func (s *Server) Router() *mux.Router { return s.router }

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/v1/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/api/v1/runtime-config", s.handleRuntimeConfig).Methods("GET")

	s.router.HandleFunc("/api/v1/bots", s.handleListBots).Methods("GET")
	s.router.HandleFunc("/api/v1/bots", s.handleCreateBot).Methods("POST")
	s.router.HandleFunc("/api/v1/bots/{id}", s.handleGetBot).Methods("GET")
	s.router.HandleFunc("/api/v1/bots/{id}/pause", s.handlePauseBot).Methods("POST")
	s.router.HandleFunc("/api/v1/bots/{id}/resume", s.handleResumeBot).Methods("POST")
	s.router.HandleFunc("/api/v1/bots/{id}/stop", s.handleStopBot).Methods("POST")

	s.router.HandleFunc("/api/v1/orders", s.handleListOrders).Methods("GET")
	s.router.HandleFunc("/api/v1/orders/{id}", s.handleGetOrder).Methods("GET")
	s.router.HandleFunc("/api/v1/orders/{id}/cancel", s.handleCancelOrder).Methods("POST")

	s.router.HandleFunc("/api/v1/positions", s.handleListPositions).Methods("GET")
	s.router.HandleFunc("/api/v1/positions/{accountId}/{symbol}", s.handleGetPosition).Methods("GET")
	s.router.HandleFunc("/api/v1/positions/{accountId}/{symbol}/close", s.handleClosePosition).Methods("POST")

	s.router.HandleFunc("/api/v1/signals", s.handleIngestSignal).Methods("POST")
	s.router.HandleFunc("/api/v1/journal/recent", s.handleRecentJournal).Methods("GET")

	s.router.HandleFunc(WebSocketPath, s.handleWebSocket)
}

// Start runs the HTTP server, blocking until it stops or errors.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	handler := cors.New(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(s.router)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go s.hub.Run()

	s.logger.Info("starting api server", zap.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := wsUpgrader
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(generateClientID(), s.hub, conn)
	s.hub.register <- client

	go client.WritePump()
	go client.ReadPump()
}
