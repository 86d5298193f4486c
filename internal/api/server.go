package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/energy-market-backend/internal/ethereum"
	"github.com/kjannette/energy-market-backend/internal/metrics"
	"github.com/kjannette/energy-market-backend/internal/models"
	"github.com/kjannette/energy-market-backend/internal/session"
	"github.com/kjannette/energy-market-backend/internal/wallet"
)

const maxQueryLimit = 1000

// Wallet is the part of the wallet connector the API drives.
type Wallet interface {
	Connect() (common.Address, error)
	Disconnect()
	State() wallet.State
	Pending() []wallet.ApprovalRequest
	Approve(id string) error
	Reject(id string) error
}

type StatusBoard interface {
	Current() models.TransactionStatus
	Dismiss(id string) bool
}

type VerificationHistory interface {
	GetRecent(ctx context.Context, account string, limit int) ([]models.Verification, error)
}

type Options struct {
	Port       int
	APIKey     string
	CORSOrigin string

	Sessions *session.Manager
	Wallet   Wallet
	Status   StatusBoard
	Stream   http.Handler
	Metrics  *metrics.Metrics

	// Optional; nil when Postgres or Redis are not configured.
	Pool      *pgxpool.Pool
	History   VerificationHistory
	CachePing func(ctx context.Context) error
}

type Server struct {
	sessions   *session.Manager
	wallet     Wallet
	status     StatusBoard
	metrics    *metrics.Metrics
	pool       *pgxpool.Pool
	history    VerificationHistory
	cachePing  func(ctx context.Context) error
	httpServer *http.Server
	apiKey     string
}

func NewServer(opts Options) *Server {
	s := &Server{
		sessions:  opts.Sessions,
		wallet:    opts.Wallet,
		status:    opts.Status,
		metrics:   opts.Metrics,
		pool:      opts.Pool,
		history:   opts.History,
		cachePing: opts.CachePing,
		apiKey:    opts.APIKey,
	}

	mux := http.NewServeMux()

	// Session & navigation
	mux.HandleFunc("GET /v1/session", s.handleSession)
	mux.HandleFunc("POST /v1/refresh", s.handleRefresh)
	mux.HandleFunc("PUT /v1/search", s.handleSetSearch)
	mux.HandleFunc("PUT /v1/tab", s.handleSetTab)
	mux.HandleFunc("GET /v1/contract/availability", s.handleAvailability)

	// Trades
	mux.HandleFunc("GET /v1/trades", s.handleTrades)
	mux.HandleFunc("GET /v1/trades/{id}", s.handleTradeDetail)
	mux.HandleFunc("POST /v1/trades/{id}/select", s.handleSelectTrade)
	mux.HandleFunc("POST /v1/trades/{id}/decrypt", s.handleDecrypt)
	mux.HandleFunc("POST /v1/trades/{id}/toggle", s.handleToggleDecrypt)
	mux.HandleFunc("POST /v1/detail/close", s.handleCloseDetail)
	mux.HandleFunc("GET /v1/stats", s.handleStats)
	mux.HandleFunc("GET /v1/faq", s.handleFAQ)
	mux.HandleFunc("GET /v1/history/verifications", s.handleVerificationHistory)

	// Create modal
	mux.HandleFunc("GET /v1/draft", s.handleGetDraft)
	mux.HandleFunc("PUT /v1/draft", s.handleUpdateDraft)
	mux.HandleFunc("DELETE /v1/draft", s.handleCloseDraft)
	mux.HandleFunc("POST /v1/draft/open", s.handleOpenDraft)
	mux.HandleFunc("POST /v1/draft/submit", s.handleSubmitDraft)

	// Wallet
	mux.HandleFunc("GET /v1/wallet", s.handleWallet)
	mux.HandleFunc("POST /v1/wallet/connect", s.handleWalletConnect)
	mux.HandleFunc("POST /v1/wallet/disconnect", s.handleWalletDisconnect)
	mux.HandleFunc("GET /v1/wallet/approvals", s.handleApprovals)
	mux.HandleFunc("POST /v1/wallet/approvals/{id}/approve", s.handleApprove)
	mux.HandleFunc("POST /v1/wallet/approvals/{id}/reject", s.handleReject)

	// Transaction status
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("DELETE /v1/status/{id}", s.handleDismissStatus)
	if opts.Stream != nil {
		mux.Handle("GET /v1/status/stream", opts.Stream)
	}

	// No auth required
	mux.HandleFunc("GET /health", s.handleHealth)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics.Handler())
	}

	handler := s.metricsMiddleware(s.authMiddleware(corsMiddleware(mux, opts.CORSOrigin)))

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", opts.Port),
		Handler:     handler,
		ReadTimeout: 10 * time.Second,
		// Create and decrypt block until the transaction is mined.
		WriteTimeout: 5 * time.Minute,
	}

	return s
}

// Handler exposes the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	fmt.Printf("[API] REST API server started on http://localhost%s\n", s.httpServer.Addr)
	fmt.Printf("[API] Health check: http://localhost%s/health\n", s.httpServer.Addr)
	if s.apiKey != "" {
		fmt.Println("[API] Authentication: enabled (Bearer token)")
	} else {
		fmt.Println("[API] Authentication: disabled (no API_KEY configured)")
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

func isPublicPath(path string) bool {
	return path == "/health" || path == "/metrics"
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || isPublicPath(r.URL.Path) || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		// browsers cannot set headers on a websocket handshake
		if auth == "" && r.URL.Path == "/v1/status/stream" {
			if tok := r.URL.Query().Get("access_token"); tok != "" {
				auth = "Bearer " + tok
			}
		}
		if auth == "" {
			writeError(w, http.StatusUnauthorized, "missing Authorization header")
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || token != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader reach the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(r.ResponseWriter).Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// metricsMiddleware counts requests by mux pattern, so ids never become
// label values.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveRequest(r.Method, route, rec.code)
	})
}

// --- request helpers ---

func parseLimit(r *http.Request, defaultLimit int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultLimit
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultLimit
	}
	if n > maxQueryLimit {
		return maxQueryLimit
	}
	return n
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// requireSession writes the not-connected error when no wallet is connected.
func (s *Server) requireSession(w http.ResponseWriter) (*session.Session, bool) {
	sess, err := s.sessions.Require()
	if err != nil {
		writeSessionError(w, err)
		return nil, false
	}
	return sess, true
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeSessionError maps session and chain errors onto status codes.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotConnected), errors.Is(err, session.ErrSessionClosed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrActionInFlight):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrInvalidDraft), errors.Is(err, session.ErrUnknownTab):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, new(*session.AmountError)):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrTradeNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrNotInitialized):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case ethereum.IsUserRejected(err):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}
