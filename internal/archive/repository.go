package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/kapu/marrakech-go/internal/domain"
)

// Repository persists finished games to Postgres. It is an optional
// collaborator: a nil repository is a no-op.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveResult upserts a finished game so a retried archive call after a
// timeout cannot duplicate the row.
func (r *Repository) SaveResult(ctx context.Context, s *domain.Session, g *domain.GameState) error {
	if r == nil || r.db == nil || s == nil || g == nil {
		return nil
	}
	if g.Status != domain.GameFinished {
		return nil
	}

	playersRaw, _ := json.Marshal(s.Players)
	orderRaw, _ := json.Marshal(s.TurnOrder)
	duration := g.UpdatedAt.Sub(g.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO marrakech_games (
	    session_id, name, players, turn_order,
	    winner_id, move_count,
	    started_at, ended_at, duration_ms
	  ) VALUES (
	    $1,$2,$3,$4,$5,$6,$7,$8,$9
	  ) ON CONFLICT (session_id) DO UPDATE SET
	    name=EXCLUDED.name,
	    players=EXCLUDED.players,
	    turn_order=EXCLUDED.turn_order,
	    winner_id=EXCLUDED.winner_id,
	    move_count=EXCLUDED.move_count,
	    started_at=EXCLUDED.started_at,
	    ended_at=EXCLUDED.ended_at,
	    duration_ms=EXCLUDED.duration_ms`

	_, err := r.db.ExecContext(ctx, q,
		s.ID, s.Name, string(playersRaw), string(orderRaw),
		g.WinnerID, g.MoveNumber,
		g.CreatedAt, g.UpdatedAt, duration,
	)
	return err
}
