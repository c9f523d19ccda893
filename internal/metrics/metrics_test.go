package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestCounters(t *testing.T) {
	m := New()

	m.RosterMutation("toggle")
	m.RosterMutation("toggle")
	m.Rejection("over_budget")
	m.SessionCreated()
	m.Submission("accepted", 7)
	m.Submission("duplicate", 0)
	m.PricingSync("ok", 16)

	out := scrape(t, m)
	for _, want := range []string{
		`draft_roster_mutations_total{op="toggle"} 2`,
		`draft_rejections_total{reason="over_budget"} 1`,
		`draft_submissions_total{outcome="duplicate"} 1`,
		"draft_bonus_credits_spent_total 7",
		"draft_active_sessions 0",
		"draft_priced_teams_total 16",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.Submission("accepted", 3)

	h := m.Instrument("/api/test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/test", nil))

	body := scrape(t, m)
	for _, want := range []string{
		`draft_submissions_total{outcome="accepted"} 1`,
		"draft_bonus_credits_spent_total 3",
		`draft_http_request_duration_seconds_count{method="GET",route="/api/test"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
