package session

import (
	"context"

	"github.com/kapu/marrakech-go/internal/domain"
)

// Store is the optional persistence collaborator behind the registry.
// Implementations must treat the pair as one unit; the game state may be
// nil while the session is still waiting.
type Store interface {
	Save(ctx context.Context, s *domain.Session, g *domain.GameState) error
	Load(ctx context.Context, sessionID string) (*domain.Session, *domain.GameState, error)
	Delete(ctx context.Context, sessionID string) error
}

// NopStore keeps everything in memory only.
type NopStore struct{}

func (NopStore) Save(context.Context, *domain.Session, *domain.GameState) error { return nil }
func (NopStore) Load(context.Context, string) (*domain.Session, *domain.GameState, error) {
	return nil, nil, nil
}
func (NopStore) Delete(context.Context, string) error { return nil }
