// Package dashboard serves a small read-only HTTP/WebSocket view of an
// in-progress or completed exploration run: the latest report as JSON, and a
// WebSocket feed of progress events. Both come from the Hub, which serves
// whatever its callers pass to SetReport and Broadcast; the explorer does not
// call into the Hub itself. It is disabled by default and carries its own JWT
// auth and rate limiting, since it is meant to run alongside a long
// exploration rather than sit behind the same trust boundary as the rest of
// the module.
package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ruvnet/crdtcheck/internal/explorer"
	"github.com/ruvnet/crdtcheck/internal/middleware"
	"github.com/ruvnet/crdtcheck/pkg/metrics"
)

// ProgressEvent is one update pushed to connected WebSocket clients.
type ProgressEvent struct {
	StatesVisited int       `json:"states_visited"`
	Violations    int       `json:"violations"`
	Timestamp     time.Time `json:"timestamp"`
}

// Hub tracks connected WebSocket clients and the latest known report, and
// broadcasts progress events as they arrive.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan ProgressEvent
	latest  *explorer.Report
	logger  *zap.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*websocket.Conn]chan ProgressEvent),
		logger:  logger,
	}
}

// SetReport stores the most recently produced report, served by the
// read-only report endpoint.
func (h *Hub) SetReport(r *explorer.Report) {
	h.mu.Lock()
	h.latest = r
	h.mu.Unlock()
}

// Report returns the most recently stored report, or nil if none has been
// set yet.
func (h *Hub) Report() *explorer.Report {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// Broadcast pushes a progress event to every connected client.
func (h *Hub) Broadcast(ev ProgressEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.clients {
		select {
		case ch <- ev:
		default:
			// Slow client: drop the event rather than block the explorer.
		}
	}
}

func (h *Hub) register(conn *websocket.Conn) chan ProgressEvent {
	ch := make(chan ProgressEvent, 16)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	return ch
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.clients[conn]; ok {
		close(ch)
		delete(h.clients, conn)
	}
	h.mu.Unlock()
}

// Config controls how the dashboard's HTTP server is exposed.
type Config struct {
	Host              string
	Port              int
	JWTSecret         string
	RequestsPerMinute int
	Burst             int
}

// Server is the dashboard's HTTP/WebSocket server.
type Server struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
	srv      *http.Server
}

// NewServer builds a gin router exposing the dashboard's read-only routes.
// Every route is behind per-IP rate limiting; the /api/v1 routes are also
// behind JWT auth, while /health and /metrics are not.
func NewServer(cfg Config, hub *Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = 120
	}
	if cfg.Burst == 0 {
		cfg.Burst = 20
	}

	mtr := metrics.NewMetrics()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(instrument(mtr))
	router.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerMinute: cfg.RequestsPerMinute,
		Burst:             cfg.Burst,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})
	router.GET("/metrics", gin.WrapH(mtr.Handler()))

	s := &Server{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}

	authed := router.Group("/api/v1")
	authed.Use(middleware.Auth(cfg.JWTSecret))
	authed.GET("/report", s.handleReport)
	authed.GET("/ws", s.handleWebSocket)

	addr := cfg.Host
	if cfg.Port != 0 {
		addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// instrument records request counts and latency for every dashboard route.
func instrument(mtr *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		mtr.IncRequestsInFlight()
		defer mtr.DecRequestsInFlight()

		c.Next()

		mtr.RecordRequestDuration(time.Since(start))
		mtr.RecordRequest(c.FullPath(), fmt.Sprintf("%d", c.Writer.Status()))
	}
}

// ListenAndServe starts the HTTP server; it blocks until the server stops or
// errors.
func (s *Server) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

// Close shuts the server down.
func (s *Server) Close() error {
	return s.srv.Close()
}

func (s *Server) handleReport(c *gin.Context) {
	report := s.hub.Report()

	if report == nil {
		c.JSON(http.StatusOK, gin.H{"status": "running"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         "complete",
		"passed":         report.Passed(),
		"states_visited": report.StatesVisited,
		"discoveries":    report.Discoveries,
	})
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	connID := uuid.New()
	s.logger.Info("dashboard viewer connected", zap.String("connection_id", connID.String()))
	defer s.logger.Info("dashboard viewer disconnected", zap.String("connection_id", connID.String()))

	ch := s.hub.register(conn)
	defer s.hub.unregister(conn)

	for ev := range ch {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}
