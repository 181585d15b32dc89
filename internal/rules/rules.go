package rules

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultFiles embed.FS

// WinRule selects the configured win predicate.
type WinRule string

const (
	// WinFullLoop ends the game when the shared piece has traveled at
	// least one full loop and stands on its origin cell.
	WinFullLoop WinRule = "full_loop"
	// WinMoveLimit ends the game after a fixed total number of moves;
	// the mover of the last move wins.
	WinMoveLimit WinRule = "move_limit"
)

// Rules holds the game tunables. Loaded once at startup from the embedded
// defaults plus an optional override file; immutable afterwards.
type Rules struct {
	BoardSize          int     `yaml:"board_size"`
	DieFaces           []int   `yaml:"die_faces"`
	MinPlayers         int     `yaml:"min_players"`
	MaxPlayers         int     `yaml:"max_players"`
	WinRule            WinRule `yaml:"win_rule"`
	MoveLimit          int     `yaml:"move_limit"`
	DisconnectGraceSec int     `yaml:"disconnect_grace_sec"`
}

// Grace returns the disconnect grace period as a duration.
func (r *Rules) Grace() time.Duration {
	return time.Duration(r.DisconnectGraceSec) * time.Second
}

// Load reads the embedded defaults and then applies overridePath if set.
func Load(overridePath string) (*Rules, error) {
	raw, err := fs.ReadFile(defaultFiles, "rules.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded rules: %w", err)
	}
	r := &Rules{}
	if err := yaml.Unmarshal(raw, r); err != nil {
		return nil, fmt.Errorf("parse embedded rules: %w", err)
	}
	if p := strings.TrimSpace(overridePath); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read rules override %s: %w", p, err)
		}
		if err := yaml.Unmarshal(b, r); err != nil {
			return nil, fmt.Errorf("parse rules override %s: %w", p, err)
		}
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Rules) validate() error {
	if r.BoardSize < 3 {
		return fmt.Errorf("board_size must be >= 3, got %d", r.BoardSize)
	}
	if len(r.DieFaces) == 0 {
		return fmt.Errorf("die_faces must not be empty")
	}
	for _, f := range r.DieFaces {
		if f < 1 {
			return fmt.Errorf("die face must be >= 1, got %d", f)
		}
	}
	if r.MinPlayers < 2 {
		return fmt.Errorf("min_players must be >= 2, got %d", r.MinPlayers)
	}
	if r.MaxPlayers < r.MinPlayers {
		return fmt.Errorf("max_players %d below min_players %d", r.MaxPlayers, r.MinPlayers)
	}
	switch r.WinRule {
	case WinFullLoop:
	case WinMoveLimit:
		if r.MoveLimit <= 0 {
			return fmt.Errorf("move_limit must be > 0 when win_rule is %s", WinMoveLimit)
		}
	default:
		return fmt.Errorf("unknown win_rule %q", r.WinRule)
	}
	if r.DisconnectGraceSec < 0 {
		return fmt.Errorf("disconnect_grace_sec must not be negative")
	}
	return nil
}
