package slatesim

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/stitts-dev/nfl-roo-sim/internal/config"
	"github.com/stitts-dev/nfl-roo-sim/internal/matchup"
	"github.com/stitts-dev/nfl-roo-sim/internal/types"
	"github.com/stitts-dev/nfl-roo-sim/pkg/logger"
)

// Simulated game totals never fall below this
const minGameTotal = 10.0

// Renormalization denominator floor; hitting it is a logged edge case
const minRenormDenom = 1.0

// game is one matchup with precomputed baselines and strength multip inputs
type game struct {
	team1, team2         string
	idx1, idx2           int
	totalBase            float64
	spreadBase           float64 // team1 perspective, negative = team1 favored
	base1, base2         float64 // baseline implied points per team
	strength1, strength2 float64
	volatile             bool
}

// GameEnvironmentSample is one (trial, game) outcome: sampled team points
// and the scoring multipliers relative to each team's baseline
type GameEnvironmentSample struct {
	Team1, Team2     string
	TotalSim         float64
	SpreadSim        float64
	Points1, Points2 float64
	Mult1, Mult2     float64
	Volatile         bool
}

// TrialEnv holds one trial's environment, reused across trials: per-team
// scoring multipliers and sampled spreads indexed by team ID. Each worker
// owns its TrialEnv, so the floor-hit counter needs no synchronization.
type TrialEnv struct {
	Mult   []float64
	Spread []float64
	Games  []GameEnvironmentSample

	RenormFloorHits int
}

// EnvironmentSimulator samples correlated game environments: a noisy game
// total and spread per game, strength-adjusted and renormalized so the two
// teams' points always sum to the sampled total.
type EnvironmentSimulator struct {
	params    config.SimulationParams
	games     []game
	teamIndex map[string]int
	log       *logrus.Entry
}

// NewEnvironmentSimulator derives the game list from the week's matchup
// contexts. A game whose opponent has no context of its own is anchored on
// the side that does, with the opponent treated as league average.
func NewEnvironmentSimulator(params config.SimulationParams, contexts []types.TeamMatchupContext, adjuster *matchup.Adjuster) (*EnvironmentSimulator, error) {
	if len(contexts) == 0 {
		return nil, fmt.Errorf("no matchup contexts supplied")
	}

	ctxByTeam := make(map[string]types.TeamMatchupContext, len(contexts))
	teams := make([]string, 0, len(contexts))
	for _, c := range contexts {
		ctxByTeam[c.Team] = c
		teams = append(teams, c.Team)
	}
	sort.Strings(teams)

	teamIndex := make(map[string]int, len(teams))
	for i, t := range teams {
		teamIndex[t] = i
	}

	seen := make(map[string]bool)
	var games []game
	for _, t := range teams {
		c := ctxByTeam[t]
		t1, t2 := c.Team, c.Opponent
		if t2 < t1 {
			t1, t2 = t2, t1
		}
		key := t1 + "@" + t2
		if seen[key] {
			continue
		}
		seen[key] = true

		c1, ok1 := ctxByTeam[t1]
		if !ok1 {
			// only the higher-sorted side has a context; anchor on it
			t1, t2 = t2, t1
			c1 = ctxByTeam[t1]
		}

		g := game{
			team1:      t1,
			team2:      t2,
			idx1:       teamIndex[t1],
			idx2:       -1,
			spreadBase: c1.Spread,
			strength1:  adjuster.Strength(t1),
			strength2:  adjuster.Strength(t2),
		}
		if idx, ok := teamIndex[t2]; ok {
			g.idx2 = idx
		}

		g.totalBase = c1.GameTotal
		if g.totalBase <= 0 {
			if c2, ok := ctxByTeam[t2]; ok && c1.ImpliedTotal > 0 && c2.ImpliedTotal > 0 {
				g.totalBase = c1.ImpliedTotal + c2.ImpliedTotal
			} else {
				g.totalBase = 45.0
			}
		}

		g.base1 = c1.ImpliedTotal
		if g.base1 <= 0 {
			g.base1 = (g.totalBase - g.spreadBase) / 2
		}
		if c2, ok := ctxByTeam[t2]; ok && c2.ImpliedTotal > 0 {
			g.base2 = c2.ImpliedTotal
		} else {
			g.base2 = g.totalBase - g.base1
		}

		g.volatile = abs(g.spreadBase) >= params.FavoriteSpread
		games = append(games, g)
	}

	if len(games) == 0 {
		return nil, fmt.Errorf("no games derivable from matchup contexts")
	}

	s := &EnvironmentSimulator{
		params:    params,
		games:     games,
		teamIndex: teamIndex,
		log:       logger.WithComponent("environment_simulator"),
	}
	s.log.WithFields(logrus.Fields{
		"games": len(games),
		"teams": len(teamIndex),
	}).Info("Derived game environments")
	return s, nil
}

// NumTeams returns the size of the team ID space
func (s *EnvironmentSimulator) NumTeams() int { return len(s.teamIndex) }

// TeamIndex resolves a team name to its ID, -1 when unknown
func (s *EnvironmentSimulator) TeamIndex(team string) int {
	if idx, ok := s.teamIndex[team]; ok {
		return idx
	}
	return -1
}

// NewTrialEnv allocates a reusable trial environment buffer
func (s *EnvironmentSimulator) NewTrialEnv() *TrialEnv {
	return &TrialEnv{
		Mult:   make([]float64, len(s.teamIndex)),
		Spread: make([]float64, len(s.teamIndex)),
		Games:  make([]GameEnvironmentSample, len(s.games)),
	}
}

// SampleTrial fills env with one trial's game environments. The adjusted
// team points are renormalized so they sum to the sampled total even after
// strength multipliers; the denominator is floored rather than divided
// through near zero.
func (s *EnvironmentSimulator) SampleTrial(rng *rand.Rand, env *TrialEnv) {
	for i := range env.Mult {
		env.Mult[i] = 1.0
		env.Spread[i] = 0.0
	}

	for gi, g := range s.games {
		totalSim := distuv.Normal{Mu: g.totalBase, Sigma: s.params.TotalSD, Src: rng}.Rand()
		if totalSim < minGameTotal {
			totalSim = minGameTotal
		}
		spreadSim := distuv.Normal{Mu: g.spreadBase, Sigma: s.params.SpreadSD, Src: rng}.Rand()

		// Spread is from team1's perspective (negative = favored), so the
		// favorite takes the larger share of the sampled total.
		p1 := (totalSim - spreadSim) / 2
		p2 := totalSim - p1

		m1 := 1 + s.params.AlphaMatchup*g.strength1
		m2 := 1 + s.params.AlphaMatchup*g.strength2

		denom := p1*m1 + p2*m2
		if denom < minRenormDenom {
			env.RenormFloorHits++
			denom = minRenormDenom
		}
		renorm := totalSim / denom
		adj1 := p1 * m1 * renorm
		adj2 := p2 * m2 * renorm

		mult1 := adj1 / maxf(g.base1, 1.0)
		mult2 := adj2 / maxf(g.base2, 1.0)

		env.Games[gi] = GameEnvironmentSample{
			Team1:     g.team1,
			Team2:     g.team2,
			TotalSim:  totalSim,
			SpreadSim: spreadSim,
			Points1:   adj1,
			Points2:   adj2,
			Mult1:     mult1,
			Mult2:     mult2,
			Volatile:  g.volatile,
		}

		env.Mult[g.idx1] = mult1
		env.Spread[g.idx1] = spreadSim
		if g.idx2 >= 0 {
			env.Mult[g.idx2] = mult2
			env.Spread[g.idx2] = -spreadSim
		}
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
