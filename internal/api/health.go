package api

import (
	"net/http"
	"time"

	"github.com/kjannette/energy-market-backend/internal/db"
)

type healthResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Services  healthServices `json:"services"`
}

type healthServices struct {
	Database string `json:"database"`
	Cache    string `json:"cache"`
	Wallet   string `json:"wallet"`
	Session  string `json:"session"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "disabled"
	if s.pool != nil {
		dbStatus = "connected"
		if _, err := db.ServerTime(r.Context(), s.pool); err != nil {
			dbStatus = "disconnected"
		}
	}

	cacheStatus := "memory"
	if s.cachePing != nil {
		cacheStatus = "connected"
		if err := s.cachePing(r.Context()); err != nil {
			cacheStatus = "disconnected"
		}
	}

	walletStatus := "disconnected"
	if s.wallet.State().IsConnected {
		walletStatus = "connected"
	}

	sessionStatus := "none"
	if sess := s.sessions.Current(); sess != nil {
		sessionStatus = "active"
		if !sess.Initialized() {
			sessionStatus = "initializing"
		}
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services: healthServices{
			Database: dbStatus,
			Cache:    cacheStatus,
			Wallet:   walletStatus,
			Session:  sessionStatus,
		},
	})
}
