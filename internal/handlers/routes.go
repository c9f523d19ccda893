package handlers

import (
	"net/http"

	"github.com/Billy-Davies-2/esports-draft/internal/metrics"
)

// Register mounts the API on mux. Every route is timed when m is not nil.
func (h *APIHandlers) Register(mux *http.ServeMux, m *metrics.Metrics) {
	handle := func(pattern string, fn http.HandlerFunc) {
		if m != nil {
			fn = m.Instrument(pattern, fn)
		}
		mux.HandleFunc(pattern, fn)
	}

	// Rounds and pools
	handle("GET /api/rounds", h.ListRounds)
	handle("POST /api/rounds", h.AddRound)
	handle("GET /api/rounds/{roundID}", h.GetRound)
	handle("GET /api/rounds/{roundID}/teams", h.ListTeams)
	handle("POST /api/rounds/{roundID}/teams", h.AddTeam)
	handle("POST /api/rounds/{roundID}/pricing/sync", h.SyncPricing)
	handle("GET /api/rounds/{roundID}/submission", h.GetSubmission)

	// Draft sessions
	handle("POST /api/sessions", h.CreateSession)
	handle("GET /api/sessions/{sessionID}", h.GetSession)
	handle("POST /api/sessions/{sessionID}/toggle", h.teamHandler(h.svc.Toggle, false))
	handle("POST /api/sessions/{sessionID}/remove", h.teamHandler(h.svc.Remove, false))
	handle("POST /api/sessions/{sessionID}/bench", h.teamHandler(h.svc.SetBench, true))
	handle("POST /api/sessions/{sessionID}/star", h.teamHandler(h.svc.SetStar, true))
	handle("POST /api/sessions/{sessionID}/sheet", h.sheetHandler(h.svc.OpenSheet))
	handle("POST /api/sessions/{sessionID}/sheet/toggle", h.teamHandler(h.svc.SheetToggle, false))
	handle("POST /api/sessions/{sessionID}/sheet/confirm", h.sheetHandler(h.svc.ConfirmSheet))
	handle("POST /api/sessions/{sessionID}/sheet/cancel", h.sheetHandler(h.svc.CancelSheet))
	handle("POST /api/sessions/{sessionID}/candidates", h.Candidates)
	handle("POST /api/sessions/{sessionID}/filters", h.SetFilters)
	handle("POST /api/sessions/{sessionID}/submit", h.Submit)

	// Bonus credits
	handle("GET /api/credits", h.GetCredits)
	handle("POST /api/credits/grant", h.GrantCredits)

	// Realtime events are long-lived, so they are not timed
	mux.HandleFunc("GET /api/events", h.EventsSSE)
}
