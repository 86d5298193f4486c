package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kjannette/energy-market-backend/internal/session"
	"github.com/kjannette/energy-market-backend/internal/views"
)

type decryptResponse struct {
	// Value is the locally verified amount, nil when cleared or when the
	// contract's own value is shown.
	Value  *uint64          `json:"value"`
	Detail views.DetailView `json:"detail"`
}

// stateFor snapshots the session, applying ?search= for this request only.
func stateFor(r *http.Request, sess *session.Session) session.State {
	st := sess.State(r.Context())
	if q := r.URL.Query(); q.Has("search") {
		st.Search = q.Get("search")
	}
	return st
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.viewSession(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, views.Trades(stateFor(r, sess)))
}

func (s *Server) handleTradeDetail(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.viewSession(w)
	if !ok {
		return
	}
	s.writeDetail(w, r, sess, r.PathValue("id"))
}

func (s *Server) writeDetail(w http.ResponseWriter, r *http.Request, sess *session.Session, id string) {
	d, ok := views.Detail(sess.State(r.Context()), id)
	if !ok {
		writeError(w, http.StatusNotFound, session.ErrTradeNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleSelectTrade(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if err := sess.SelectTrade(id); err != nil {
		writeSessionError(w, err)
		return
	}
	s.writeDetail(w, r, sess, id)
}

func (s *Server) handleCloseDetail(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w)
	if !ok {
		return
	}
	sess.CloseDetail()
	writeJSON(w, http.StatusOK, s.sessionView(r))
}

func (s *Server) handleDecrypt(w http.ResponseWriter, r *http.Request) {
	s.runDecrypt(w, r, (*session.Session).DecryptData)
}

func (s *Server) handleToggleDecrypt(w http.ResponseWriter, r *http.Request) {
	s.runDecrypt(w, r, (*session.Session).ToggleDecrypt)
}

type decryptFunc func(*session.Session, context.Context, string) (*uint64, error)

// runDecrypt runs under the session context so leaving the page does not
// abort a verification already submitted on chain.
func (s *Server) runDecrypt(w http.ResponseWriter, r *http.Request, fn decryptFunc) {
	sess, ok := s.requireSession(w)
	if !ok {
		return
	}
	id := r.PathValue("id")
	v, err := fn(sess, sess.Context(), id)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	d, found := views.Detail(sess.State(r.Context()), id)
	if !found {
		writeError(w, http.StatusNotFound, session.ErrTradeNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, decryptResponse{Value: v, Detail: d})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.viewSession(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, views.Stats(stateFor(r, sess)))
}

func (s *Server) handleFAQ(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, views.FAQ())
}

func (s *Server) handleVerificationHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "verification history disabled")
		return
	}

	account := r.URL.Query().Get("account")
	if account == "" {
		if sess := s.sessions.Current(); sess != nil {
			account = sess.Account().Hex()
		}
	}

	rows, err := s.history.GetRecent(r.Context(), account, parseLimit(r, 100))
	if err != nil {
		fmt.Printf("Error fetching verification history: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch verification history")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
