package handlers

import (
	"context"
	"net/http"

	"github.com/Billy-Davies-2/esports-draft/internal/draft"
	"github.com/Billy-Davies-2/esports-draft/internal/service"
)

type teamRequest struct {
	TeamID string `json:"teamId"`
}

// CreateSession starts a draft for the caller in a round
func (h *APIHandlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	var req struct {
		RoundID string `json:"roundId"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.RoundID == "" {
		badRequest(w, "roundId is required")
		return
	}
	view, err := h.svc.CreateSession(r.Context(), user, req.RoundID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *APIHandlers) GetSession(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	view, err := h.svc.GetSession(r.Context(), user, r.PathValue("sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type teamOp func(ctx context.Context, userID, sessionID, teamID string) (*service.SessionView, error)

// teamHandler adapts a team-id roster operation. allowEmpty lets the id be
// blank, which clears the bench or the star.
func (h *APIHandlers) teamHandler(op teamOp, allowEmpty bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := userID(w, r)
		if !ok {
			return
		}
		var req teamRequest
		if !decode(w, r, &req) {
			return
		}
		if req.TeamID == "" && !allowEmpty {
			badRequest(w, "teamId is required")
			return
		}
		view, err := op(r.Context(), user, r.PathValue("sessionID"), req.TeamID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

type sheetOp func(ctx context.Context, userID, sessionID string) (*service.SessionView, error)

func (h *APIHandlers) sheetHandler(op sheetOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := userID(w, r)
		if !ok {
			return
		}
		view, err := op(r.Context(), user, r.PathValue("sessionID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// Candidates returns the filtered, sorted pool for one tab
func (h *APIHandlers) Candidates(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	var f draft.FilterState
	if r.ContentLength != 0 && !decode(w, r, &f) {
		return
	}
	list, err := h.svc.Candidates(r.Context(), user, r.PathValue("sessionID"), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// SetFilters accepts slider updates. The recomputed list is delivered on the
// event stream once the updates settle.
func (h *APIHandlers) SetFilters(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	var f draft.FilterState
	if !decode(w, r, &f) {
		return
	}
	if err := h.svc.SetAdvancedFilters(r.Context(), user, r.PathValue("sessionID"), f); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"ok": true})
}

// Submit finalizes the caller's roster
func (h *APIHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	var req struct {
		ConfirmNoStar bool `json:"confirmNoStar"`
	}
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	sub, err := h.svc.Submit(r.Context(), user, r.PathValue("sessionID"), req.ConfirmNoStar)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}
