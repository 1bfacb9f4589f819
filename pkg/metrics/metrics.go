// Package metrics provides the counter registry behind the 2048 game service.
// A Registry owns a private Prometheus registry; counters are registered once at
// startup and afterwards only ever incremented.
//
// This package also documents every metric the service exposes.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Counter names exposed by the game service.
const (
	// GameMovesTotal counts POST /move calls.
	GameMovesTotal = "game_moves_total"

	// GamesStartedTotal counts POST /start calls.
	GamesStartedTotal = "games_started_total"
)

// Help texts for the game counters.
const (
	GameMovesHelp    = "Total number of moves made in the 2048 game"
	GamesStartedHelp = "Total number of games started in the 2048 game"
)

// NewGameRegistry returns a Registry holding the two game counters, both at 0.
func NewGameRegistry() (*Registry, error) {
	r := NewRegistry()

	for _, c := range []struct{ name, help string }{
		{GameMovesTotal, GameMovesHelp},
		{GamesStartedTotal, GamesStartedHelp},
	} {
		if _, err := r.Register(c.name, c.help); err != nil {
			return nil, fmt.Errorf("register %s: %w", c.name, err)
		}
	}

	return r, nil
}

// RegisterRuntimeCollectors adds the Go runtime and process collectors to the
// exposition output. They never show up in Snapshot.
func (r *Registry) RegisterRuntimeCollectors() error {
	if err := r.reg.Register(collectors.NewGoCollector()); err != nil {
		return fmt.Errorf("register go collector: %w", err)
	}
	if err := r.reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return fmt.Errorf("register process collector: %w", err)
	}
	return nil
}

// Metrics Documentation
//
// Game Metrics (this package):
//   - game_moves_total (Counter): Moves reported by the browser via POST /move
//   - games_started_total (Counter): New games reported via POST /start
//
// Runtime Metrics (optional, GAME_RUNTIME_METRICS=true):
//   - go_* (Gauge/Summary): Go runtime statistics
//   - process_* (Gauge/Counter): Process CPU, memory and file descriptors
//
// Example Prometheus Queries:
//
//   # Moves per second
//   rate(game_moves_total[5m])
//
//   # Average moves per game
//   increase(game_moves_total[1h]) / increase(games_started_total[1h])
//
// Counters live in memory only and start at 0 after every restart. Use rate()
// or increase() rather than raw values.
