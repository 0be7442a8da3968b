package web

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/aptomizer/core/internal/agent"
	"github.com/aptomizer/core/internal/logger"
	"github.com/aptomizer/core/internal/types"
)

var webLogger = logger.GetForComponent("web_server")

var ErrInvalidConfig = errors.New("invalid web server configuration")

// Server timeouts. Writes are long enough for a multi-turn chat.
const (
	ReadTimeout     = 15 * time.Second
	WriteTimeout    = 60 * time.Second
	IdleTimeout     = 60 * time.Second
	ShutdownTimeout = 10 * time.Second
	MaxBodyBytes    = 1 << 20
)

// UserStore is the persistence used by the handlers. state.Store satisfies it.
type UserStore interface {
	CreateUser(ctx context.Context, walletAddress string) (types.User, error)
	GetUserByWalletAddress(ctx context.Context, walletAddress string) (types.User, error)
	GetUserByID(ctx context.Context, userID string) (types.User, error)
	UpdateUserProfile(ctx context.Context, walletAddress string, update types.ProfileUpdate) (types.User, error)
	SaveRiskProfile(ctx context.Context, userID string, profile types.RiskProfile) (types.RiskProfile, error)
	UpdateRiskProfileByWallet(ctx context.Context, walletAddress string, profile types.RiskProfile) (types.User, error)
	SaveAIWallet(ctx context.Context, wallet types.AIWallet) (types.AIWallet, error)
	GetAIWalletByUserID(ctx context.Context, userID string) (types.AIWallet, error)
	HasAIWallet(ctx context.Context, walletAddress string) (bool, error)
	ListTransactions(ctx context.Context, userID string, limit int) ([]types.Transaction, error)
	Healthy() error
}

// PortfolioService builds snapshots and ranks opportunities. portfolio.Service satisfies it.
type PortfolioService interface {
	BuildSnapshot(ctx context.Context, aiWalletAddress string, profile *types.RiskProfile) (types.PortfolioSnapshot, error)
	OptimizeSnapshot(snapshot types.PortfolioSnapshot, profile *types.RiskProfile) []types.OptimizationOpportunity
	YieldOpportunities(ctx context.Context, query types.YieldQuery) (types.YieldResult, error)
}

// WalletGenerator creates AI wallets. wallet.Keystore satisfies it.
type WalletGenerator interface {
	NewAIWallet(userID string) (types.AIWallet, error)
}

// ChatEngine answers chat conversations. agent.Engine satisfies it.
type ChatEngine interface {
	Chat(ctx context.Context, session agent.Session, messages []agent.Message, emit agent.Emitter) error
}

// Config holds the dependencies of a WebServer. Chat may be nil, which
// disables the chat endpoints.
type Config struct {
	Port      int
	Users     UserStore
	Portfolio PortfolioService
	Wallets   WalletGenerator
	Chat      ChatEngine
}

// WebServer serves the JSON API.
type WebServer struct {
	router    *mux.Router
	port      string
	users     UserStore
	portfolio PortfolioService
	wallets   WalletGenerator
	chat      ChatEngine
	upgrader  websocket.Upgrader
	started   time.Time

	wsPongWait   time.Duration
	wsPingPeriod time.Duration
}

// NewWebServer creates a new web server instance
func NewWebServer(cfg Config) (*WebServer, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	port := cfg.Port
	if port == 0 {
		port = 3001
	}

	server := &WebServer{
		router:    mux.NewRouter(),
		port:      strconv.Itoa(port),
		users:     cfg.Users,
		portfolio: cfg.Portfolio,
		wallets:   cfg.Wallets,
		chat:      cfg.Chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The API is served with Access-Control-Allow-Origin: *, so any origin may connect.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		started:      time.Now(),
		wsPongWait:   wsPongWait,
		wsPingPeriod: wsPingPeriod,
	}

	server.setupRoutes()
	return server, nil
}

func validateConfig(cfg Config) error {
	if cfg.Users == nil {
		return fmt.Errorf("user store cannot be nil")
	}
	if cfg.Portfolio == nil {
		return fmt.Errorf("portfolio service cannot be nil")
	}
	if cfg.Wallets == nil {
		return fmt.Errorf("wallet generator cannot be nil")
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("port %d is out of range", cfg.Port)
	}
	return nil
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")

	user := api.PathPrefix("/user").Subrouter()
	user.HandleFunc("/portfolio", ws.handlePortfolio).Methods("POST")
	user.HandleFunc("/optimization", ws.handleOptimization).Methods("POST")
	user.HandleFunc("/yield-opportunities", ws.handleYieldOpportunities).Methods("POST")
	user.HandleFunc("/has-ai-wallet", ws.handleHasAIWallet).Methods("POST")
	user.HandleFunc("/create", ws.handleCreateUser).Methods("POST")
	user.HandleFunc("/generate-ai-wallet", ws.handleGenerateAIWallet).Methods("POST")
	user.HandleFunc("/save-risk-profile", ws.handleSaveRiskProfile).Methods("POST")
	user.HandleFunc("/update-risk-profile", ws.handleUpdateRiskProfile).Methods("POST")
	user.HandleFunc("/update-profile", ws.handleUpdateProfile).Methods("POST")
	user.HandleFunc("/transactions", ws.handleTransactions).Methods("POST")

	api.HandleFunc("/chat", ws.handleChat).Methods("POST")
	api.HandleFunc("/chat/ws", ws.handleChatWebSocket).Methods("GET")

	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Handler returns the root handler.
func (ws *WebServer) Handler() http.Handler {
	return ws.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (ws *WebServer) Start(ctx context.Context) error {
	webLogger.Info().Str("port", ws.port).Bool("chat_enabled", ws.chat != nil).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
		IdleTimeout:  IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		webLogger.Info().Msg("Shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	dbHealthy := true
	if err := ws.users.Healthy(); err != nil {
		webLogger.Warn().Err(err).Msg("Database health check failed")
		dbHealthy = false
	}

	overallStatus := "OK"
	statusCode := http.StatusOK
	if !dbHealthy {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":            runtime.Version(),
			"goroutines_count":   runtime.NumGoroutine(),
			"total_alloc_bytes":  memStats.TotalAlloc,
			"heap_objects_count": memStats.HeapObjects,
			"alloc_bytes":        memStats.Alloc,
			"sys_bytes":          memStats.Sys,
			"gc_cycles":          memStats.NumGC,
			"uptime_seconds":     int64(time.Since(ws.started).Seconds()),
		},
		"component": map[string]interface{}{
			"name":    "aptomizer-core",
			"version": "1.0.0",
		},
		"service_status": map[string]interface{}{
			"database_healthy": dbHealthy,
			"chat_enabled":     ws.chat != nil,
		},
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// decodeBody decodes a JSON request body into dst.
func decodeBody(r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, MaxBodyBytes)).Decode(dst)
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	ws.writeJSONResponse(w, statusCode, map[string]string{"error": message})
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code.
// It forwards Flush for server-sent events and Hijack for websockets.
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriterWrapper) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *responseWriterWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	w.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}
