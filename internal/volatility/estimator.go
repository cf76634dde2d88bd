package volatility

import (
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/stitts-dev/nfl-roo-sim/internal/config"
	"github.com/stitts-dev/nfl-roo-sim/internal/types"
	"github.com/stitts-dev/nfl-roo-sim/pkg/logger"
)

// Hardcoded per-position volatility defaults, used only when a position has
// no pooled history at all (e.g. an empty slate segment).
var positionDefaultStd = map[types.Position]float64{
	types.PositionQB:  5.5,
	types.PositionRB:  5.0,
	types.PositionWR:  5.0,
	types.PositionTE:  4.5,
	types.PositionDST: 3.0,
}

const unknownPositionStd = 5.0

type playerKey struct {
	Player   string
	Team     string
	Position types.Position
}

type positionAggregate struct {
	Mean  float64
	Std   float64
	Games int
}

// Estimator derives per-player volatility profiles from historical scores,
// blending in position-level estimates for sparse samples.
type Estimator struct {
	minGames  int
	lookback  int
	inflation float64
	log       *logrus.Entry
}

// NewEstimator creates a volatility estimator from simulation parameters
func NewEstimator(params config.SimulationParams) *Estimator {
	return &Estimator{
		minGames:  params.MinGamesForPlayer,
		lookback:  params.LookbackWeeks,
		inflation: params.LowSampleInflation,
		log:       logger.WithComponent("volatility_estimator"),
	}
}

// ProfileSet is the output of a volatility build: player profiles plus the
// position-level fallbacks needed when a slate player has no history
type ProfileSet struct {
	profiles        map[playerKey]types.PlayerVolatilityProfile
	posAggregates   map[types.Position]positionAggregate
	posEffectiveAvg map[types.Position]float64
}

// BuildProfiles computes one PlayerVolatilityProfile per (player, team,
// position) seen in the lookback window. Data sparsity never errors; the
// fallback chain resolves it and the profile's Games field records it.
func (e *Estimator) BuildProfiles(records []types.PlayerHistoryRecord) *ProfileSet {
	recent := e.trimToLookback(records)

	grouped := make(map[playerKey][]float64)
	pooled := make(map[types.Position][]float64)
	for _, r := range recent {
		k := playerKey{Player: r.Player, Team: r.Team, Position: r.Position}
		grouped[k] = append(grouped[k], r.Points)
		pooled[r.Position] = append(pooled[r.Position], r.Points)
	}

	posAggs := make(map[types.Position]positionAggregate, len(pooled))
	for pos, scores := range pooled {
		posAggs[pos] = positionAggregate{
			Mean:  mean(scores),
			Std:   sampleStd(scores),
			Games: len(scores),
		}
	}

	set := &ProfileSet{
		profiles:        make(map[playerKey]types.PlayerVolatilityProfile, len(grouped)),
		posAggregates:   posAggs,
		posEffectiveAvg: make(map[types.Position]float64),
	}

	effSums := make(map[types.Position]float64)
	effCounts := make(map[types.Position]int)

	for k, scores := range grouped {
		p := types.PlayerVolatilityProfile{
			Player:   k.Player,
			Team:     k.Team,
			Position: k.Position,
			Games:    len(scores),
			MeanPts:  mean(scores),
			MinPts:   minOf(scores),
			MaxPts:   maxOf(scores),
		}
		if len(scores) > 1 {
			p.StdPts = sampleStd(scores)
		}
		p.EffectiveStd = e.effectiveStd(len(scores), p.StdPts, k.Position, posAggs)
		p.CV = p.StdPts / (p.MeanPts + 0.01)

		set.profiles[k] = p
		effSums[k.Position] += p.EffectiveStd
		effCounts[k.Position]++
	}

	for pos, sum := range effSums {
		set.posEffectiveAvg[pos] = sum / float64(effCounts[pos])
	}

	e.log.WithFields(logrus.Fields{
		"players":   len(set.profiles),
		"positions": len(posAggs),
		"records":   len(recent),
	}).Info("Built volatility profiles")

	return set
}

// trimToLookback keeps only weeks inside the configured window, anchored to
// the most recent week present in the data
func (e *Estimator) trimToLookback(records []types.PlayerHistoryRecord) []types.PlayerHistoryRecord {
	maxWeek := 0
	for _, r := range records {
		if r.Week > maxWeek {
			maxWeek = r.Week
		}
	}
	cutoff := maxWeek - e.lookback
	recent := make([]types.PlayerHistoryRecord, 0, len(records))
	for _, r := range records {
		if r.Week > cutoff {
			recent = append(recent, r)
		}
	}
	return recent
}

// effectiveStd applies the fallback blending policy:
// full sample uses the player's own std, small samples blend linearly toward
// the position std, and near-empty samples take the inflated position std.
func (e *Estimator) effectiveStd(games int, ownStd float64, pos types.Position, posAggs map[types.Position]positionAggregate) float64 {
	posStd := e.positionStd(pos, posAggs)
	switch {
	case games >= e.minGames:
		if ownStd > 0 {
			return ownStd
		}
		// identical scores every game; fall back rather than emit zero variance
		return posStd
	case games >= 2:
		wPlayer := float64(games) / float64(e.minGames)
		return wPlayer*ownStd + (1-wPlayer)*posStd
	default:
		return posStd * e.inflation
	}
}

func (e *Estimator) positionStd(pos types.Position, posAggs map[types.Position]positionAggregate) float64 {
	if agg, ok := posAggs[pos]; ok && agg.Std > 0 {
		return agg.Std
	}
	if def, ok := positionDefaultStd[pos]; ok {
		return def
	}
	return unknownPositionStd
}

// Profiles returns all profiles in deterministic order
func (s *ProfileSet) Profiles() []types.PlayerVolatilityProfile {
	out := make([]types.PlayerVolatilityProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		if out[i].Player != out[j].Player {
			return out[i].Player < out[j].Player
		}
		return out[i].Team < out[j].Team
	})
	return out
}

// Lookup finds a player's profile by exact identity
func (s *ProfileSet) Lookup(player, team string, pos types.Position) (types.PlayerVolatilityProfile, bool) {
	p, ok := s.profiles[playerKey{Player: player, Team: team, Position: pos}]
	return p, ok
}

// LookupByTeamPosition returns the profile when exactly one player of the
// given position exists for the team. Resolves name-spelling mismatches
// between the history feed and the slate feed.
func (s *ProfileSet) LookupByTeamPosition(team string, pos types.Position) (types.PlayerVolatilityProfile, bool) {
	var found types.PlayerVolatilityProfile
	n := 0
	for k, p := range s.profiles {
		if k.Team == team && k.Position == pos {
			found = p
			n++
		}
	}
	if n == 1 {
		return found, true
	}
	return types.PlayerVolatilityProfile{}, false
}

// FallbackProfile synthesizes a zero-history profile for a slate player with
// no usable record: position-average effective std when the position has
// data, the hardcoded default otherwise. Never fails.
func (s *ProfileSet) FallbackProfile(player, team string, pos types.Position) types.PlayerVolatilityProfile {
	eff := unknownPositionStd
	if avg, ok := s.posEffectiveAvg[pos]; ok && avg > 0 {
		eff = avg
	} else if def, ok := positionDefaultStd[pos]; ok {
		eff = def
	}
	return types.PlayerVolatilityProfile{
		Player:       player,
		Team:         team,
		Position:     pos,
		Games:        0,
		EffectiveStd: eff,
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// sampleStd is the n-1 standard deviation, zero for degenerate samples
func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}

func minOf(xs []float64) float64 { return floats.Min(xs) }

func maxOf(xs []float64) float64 { return floats.Max(xs) }
