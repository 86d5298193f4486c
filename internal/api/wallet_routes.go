package api

import (
	"errors"
	"net/http"

	"github.com/kjannette/energy-market-backend/internal/wallet"
)

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.wallet.State())
}

// handleWalletConnect connects the wallet; the session manager starts a
// new session from the connect event before this returns.
func (s *Server) handleWalletConnect(w http.ResponseWriter, r *http.Request) {
	if _, err := s.wallet.Connect(); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, wallet.ErrNoKey) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.sessionView(r))
}

func (s *Server) handleWalletDisconnect(w http.ResponseWriter, r *http.Request) {
	s.wallet.Disconnect()
	writeJSON(w, http.StatusOK, s.sessionView(r))
}

func (s *Server) handleApprovals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.wallet.Pending())
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.decideApproval(w, r, true)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	s.decideApproval(w, r, false)
}

func (s *Server) decideApproval(w http.ResponseWriter, r *http.Request, approve bool) {
	id := r.PathValue("id")
	var err error
	if approve {
		err = s.wallet.Approve(id)
	} else {
		err = s.wallet.Reject(id)
	}
	if errors.Is(err, wallet.ErrApprovalNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "approved": approve})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status.Current())
}

func (s *Server) handleDismissStatus(w http.ResponseWriter, r *http.Request) {
	if !s.status.Dismiss(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "status not current")
		return
	}
	writeJSON(w, http.StatusOK, s.status.Current())
}
