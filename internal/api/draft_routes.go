package api

import (
	"net/http"

	"github.com/kjannette/energy-market-backend/internal/models"
	"github.com/kjannette/energy-market-backend/internal/views"
)

type submitResponse struct {
	Trade *models.Trade         `json:"trade"`
	Modal views.CreateModalView `json:"modal"`
}

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.viewSession(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, views.CreateModal(sess.State(r.Context())))
}

func (s *Server) handleOpenDraft(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w)
	if !ok {
		return
	}
	sess.OpenCreate()
	writeJSON(w, http.StatusOK, views.CreateModal(sess.State(r.Context())))
}

func (s *Server) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	var d models.Draft
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, ok := s.requireSession(w)
	if !ok {
		return
	}
	sess.UpdateDraft(d)
	writeJSON(w, http.StatusOK, views.CreateModal(sess.State(r.Context())))
}

func (s *Server) handleCloseDraft(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w)
	if !ok {
		return
	}
	sess.CloseCreate()
	writeJSON(w, http.StatusOK, views.CreateModal(sess.State(r.Context())))
}

// handleSubmitDraft blocks until the create transaction is mined or fails.
func (s *Server) handleSubmitDraft(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w)
	if !ok {
		return
	}
	trade, err := sess.CreateTrade(sess.Context())
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, submitResponse{
		Trade: trade,
		Modal: views.CreateModal(sess.State(r.Context())),
	})
}
