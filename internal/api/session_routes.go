package api

import (
	"fmt"
	"net/http"

	"github.com/kjannette/energy-market-backend/internal/session"
	"github.com/kjannette/energy-market-backend/internal/views"
	"github.com/kjannette/energy-market-backend/internal/wallet"
)

type sessionResponse struct {
	Session views.SessionView `json:"session"`
	Wallet  wallet.State      `json:"wallet"`
}

// viewSession returns the live session for read-only views. Unlike
// requireSession it does not raise the connect prompt.
func (s *Server) viewSession(w http.ResponseWriter) (*session.Session, bool) {
	sess := s.sessions.Current()
	if sess == nil {
		writeError(w, http.StatusConflict, session.ErrNotConnected.Error())
		return nil, false
	}
	return sess, true
}

func (s *Server) sessionView(r *http.Request) sessionResponse {
	out := sessionResponse{Wallet: s.wallet.State()}
	if sess := s.sessions.Current(); sess != nil {
		st := sess.State(r.Context())
		out.Session = views.Session(&st)
	} else {
		out.Session = views.Session(nil)
	}
	return out
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessionView(r))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w)
	if !ok {
		return
	}
	if err := sess.LoadData(sess.Context()); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views.Trades(sess.State(r.Context())))
}

type searchRequest struct {
	Search string `json:"search"`
}

func (s *Server) handleSetSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, ok := s.requireSession(w)
	if !ok {
		return
	}
	sess.SetSearch(req.Search)
	writeJSON(w, http.StatusOK, views.Trades(sess.State(r.Context())))
}

type tabRequest struct {
	Tab session.Tab `json:"tab"`
}

func (s *Server) handleSetTab(w http.ResponseWriter, r *http.Request) {
	var req tabRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, ok := s.requireSession(w)
	if !ok {
		return
	}
	if err := sess.SetTab(req.Tab); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessionView(r))
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	ok, err := s.sessions.TestAvailability(r.Context())
	if err != nil {
		fmt.Printf("[API] Contract availability probe failed: %v\n", err)
		writeError(w, http.StatusBadGateway, "contract test failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": ok})
}
