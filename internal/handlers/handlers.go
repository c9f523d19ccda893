package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Billy-Davies-2/esports-draft/internal/dal"
	"github.com/Billy-Davies-2/esports-draft/internal/draft"
	"github.com/Billy-Davies-2/esports-draft/internal/logger"
	"github.com/Billy-Davies-2/esports-draft/internal/models"
	"github.com/Billy-Davies-2/esports-draft/internal/pubsub"
	"github.com/Billy-Davies-2/esports-draft/internal/service"
)

// UserHeader carries the caller identity set by the fronting gateway
const UserHeader = "X-User-ID"

// RoundSyncer reprices a single round on demand
type RoundSyncer interface {
	SyncRound(ctx context.Context, round models.Round) (int, error)
}

// APIHandlers contains all API handler methods
type APIHandlers struct {
	svc    *service.Service
	events pubsub.Broker
	syncer RoundSyncer
}

// NewAPIHandlers creates a new API handlers instance. syncer may be nil, in
// which case on-demand pricing sync is unavailable.
func NewAPIHandlers(svc *service.Service, events pubsub.Broker, syncer RoundSyncer) *APIHandlers {
	return &APIHandlers{
		svc:    svc,
		events: events,
		syncer: syncer,
	}
}

type errorResponse struct {
	Error     string       `json:"error"`
	Reason    draft.Reason `json:"reason,omitempty"`
	Shortfall int          `json:"shortfall,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps service and store errors to status codes. Rejections carry
// their reason and shortfall so clients can branch on them.
func writeError(w http.ResponseWriter, err error) {
	var rej *draft.Rejection
	switch {
	case errors.As(err, &rej):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: rej.Message, Reason: rej.Reason, Shortfall: rej.Shortfall})
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrTeamNotFound),
		errors.Is(err, dal.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrAlreadySubmitted),
		errors.Is(err, dal.ErrDuplicateSubmission):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, dal.ErrInvalidAmount),
		errors.Is(err, draft.ErrInvalidFilter):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		logger.Error("Request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logger.Warn("Failed to decode request", "path", r.URL.Path, "error", err)
		badRequest(w, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// userID returns the caller or writes 401
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(UserHeader)
	if id == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing " + UserHeader + " header"})
		return "", false
	}
	return id, true
}

// ListRounds returns every round
func (h *APIHandlers) ListRounds(w http.ResponseWriter, r *http.Request) {
	rounds, err := h.svc.ListRounds(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rounds)
}

func (h *APIHandlers) GetRound(w http.ResponseWriter, r *http.Request) {
	round, err := h.svc.GetRound(r.Context(), r.PathValue("roundID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

// AddRound creates a round; id, cap and restriction default when omitted
func (h *APIHandlers) AddRound(w http.ResponseWriter, r *http.Request) {
	var round models.Round
	if !decode(w, r, &round) {
		return
	}
	if round.Name == "" {
		badRequest(w, "round name is required")
		return
	}
	if !round.TeamTypeRestriction.Valid() {
		badRequest(w, "teamTypeRestriction must be one of: both, pro, amateur")
		return
	}
	created, err := h.svc.AddRound(r.Context(), &round)
	if err != nil {
		writeError(w, err)
		return
	}
	logger.Info("Round created", "round", created.ID)
	writeJSON(w, http.StatusCreated, created)
}

// ListTeams returns the candidate pool of a round
func (h *APIHandlers) ListTeams(w http.ResponseWriter, r *http.Request) {
	pool, err := h.svc.Pool(r.Context(), r.PathValue("roundID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pool)
}

// AddTeam adds or replaces a team in a round pool
func (h *APIHandlers) AddTeam(w http.ResponseWriter, r *http.Request) {
	var team models.Team
	if !decode(w, r, &team) {
		return
	}
	created, err := h.svc.AddTeam(r.Context(), r.PathValue("roundID"), &team)
	switch {
	case errors.Is(err, dal.ErrNotFound):
		writeError(w, err)
	case err != nil:
		// the store only rejects malformed teams here
		badRequest(w, err.Error())
	default:
		writeJSON(w, http.StatusCreated, created)
	}
}

// SyncPricing reprices a round immediately
func (h *APIHandlers) SyncPricing(w http.ResponseWriter, r *http.Request) {
	if h.syncer == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "pricing sync is not configured"})
		return
	}
	round, err := h.svc.GetRound(r.Context(), r.PathValue("roundID"))
	if err != nil {
		writeError(w, err)
		return
	}
	n, err := h.syncer.SyncRound(r.Context(), *round)
	if err != nil {
		logger.Error("Failed to sync round pricing", "round", round.ID, "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roundId": round.ID, "updated": n})
}

// GetSubmission returns the caller's recorded roster for a round
func (h *APIHandlers) GetSubmission(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	sub, err := h.svc.GetSubmission(r.Context(), user, r.PathValue("roundID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// GetCredits returns the caller's bonus credit balance
func (h *APIHandlers) GetCredits(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	bal, err := h.svc.BonusCredits(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"userId": user, "bonusCredits": bal})
}

// GrantCredits credits a user, used by reward and mission flows
func (h *APIHandlers) GrantCredits(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
		Amount int    `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		badRequest(w, "userId is required")
		return
	}
	bal, err := h.svc.GrantBonusCredits(r.Context(), req.UserID, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"userId": req.UserID, "bonusCredits": bal})
}
