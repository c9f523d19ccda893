package sessions

import (
	"context"
	"errors"

	"github.com/Billy-Davies-2/esports-draft/internal/draft"
)

// ErrNotFound is returned when no session exists for an id
var ErrNotFound = errors.New("session not found")

// Store persists draft sessions between requests. Implementations return
// independent copies, so a loaded session can be mutated freely and saved
// back.
type Store interface {
	Load(ctx context.Context, id string) (*draft.Session, error)
	Save(ctx context.Context, s *draft.Session) error
	Delete(ctx context.Context, id string) error
	// IDs lists stored sessions, optionally limited to one round
	IDs(ctx context.Context, roundID string) ([]string, error)
	Close() error
}
