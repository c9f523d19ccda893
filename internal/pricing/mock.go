package pricing

import (
	"context"
	"hash/fnv"
)

// MockSource produces stable pseudo-random statistics for local development.
// The same team and window always yield the same numbers.
type MockSource struct{}

// NewMockSource creates a mock statistics source
func NewMockSource() *MockSource {
	return &MockSource{}
}

func (m *MockSource) TeamStats(ctx context.Context, window Window, teamIDs []string) (map[string]TeamStats, error) {
	stats := make(map[string]TeamStats, len(teamIDs))
	for _, id := range teamIDs {
		h := fnv.New64a()
		h.Write([]byte(id))
		h.Write([]byte(window.From.UTC().Format("2006-01-02")))
		sum := h.Sum64()

		matches := int(sum % 25)
		s := TeamStats{TeamID: id, Matches: matches}
		if matches > 0 {
			s.Wins = int((sum >> 8) % uint64(matches+1))
			s.Abandoned = int((sum >> 16) % uint64(matches/4+1))
		}
		s.Missed = int((sum >> 24) % 4)
		stats[id] = s
	}
	return stats, nil
}

// Close is a no-op for the mock source
func (m *MockSource) Close() error {
	return nil
}
