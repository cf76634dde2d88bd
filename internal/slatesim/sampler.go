package slatesim

import (
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/stitts-dev/nfl-roo-sim/internal/config"
	"github.com/stitts-dev/nfl-roo-sim/internal/roo"
	"github.com/stitts-dev/nfl-roo-sim/internal/types"
)

// Correlation nudge parameters. A QB boom is a draw above 1.5x the QB's
// median, a bust below 0.5x; pass catchers on the same team get a uniform
// bump or fade. RB and DST nudges key off the trial's team environment.
const (
	qbBoomRatio = 1.5
	qbBustRatio = 0.5

	rbHotMult  = 1.1
	rbColdMult = 0.9

	maxPassCatchers = 3
)

type uniformRange struct{ lo, hi float64 }

var (
	qbBoomNudge = uniformRange{1.1, 1.3}
	qbBustNudge = uniformRange{0.7, 0.9}
	rbHotNudge  = uniformRange{1.05, 1.15}
	rbColdNudge = uniformRange{0.85, 0.95}
	dstFavNudge = uniformRange{1.1, 1.2}
	dstDogNudge = uniformRange{0.8, 0.9}
)

func (u uniformRange) draw(rng *rand.Rand) float64 {
	return u.lo + (u.hi-u.lo)*rng.Float64()
}

// OutcomeSampler draws one trial's fantasy scores for every slate player.
// Base draws are independent lognormals scaled by the trial's game
// environment; the ordered correlation pass then ties stacks together.
//
// All cross-player structure is precomputed at construction so SampleTrial
// is pure array work plus RNG draws.
type OutcomeSampler struct {
	params config.SimulationParams

	mu      []float64
	sigma   []float64
	median  []float64
	teamIdx []int

	// correlation structure, all ordered by slate ID for determinism
	qbs          []int
	passCatchers map[int][]int
	leadRBs      []int
	dsts         []int
}

// NewOutcomeSampler precomputes per-player distribution parameters and the
// correlation structure from the assembled slate. The pass catchers tied to
// a QB are the top projected WR/TE on the QB's team; the lead RB is the top
// projected RB per team.
func NewOutcomeSampler(params config.SimulationParams, slate *roo.Slate, env *EnvironmentSimulator) *OutcomeSampler {
	n := slate.Len()
	s := &OutcomeSampler{
		params:       params,
		mu:           make([]float64, n),
		sigma:        make([]float64, n),
		median:       make([]float64, n),
		teamIdx:      make([]int, n),
		passCatchers: make(map[int][]int),
	}

	type teamGroup struct {
		qb       int
		catchers []int
		rbs      []int
	}
	byTeam := make(map[string]*teamGroup)

	for id, row := range slate.Rows {
		s.mu[id] = row.MuLog
		s.sigma[id] = row.SigmaLog
		s.median[id] = row.MedianProjection
		s.teamIdx[id] = env.TeamIndex(row.Team)

		g := byTeam[row.Team]
		if g == nil {
			g = &teamGroup{qb: -1}
			byTeam[row.Team] = g
		}
		switch row.Position {
		case types.PositionQB:
			// slate rows are salary-descending within position, so the
			// first QB seen is the presumed starter
			if g.qb < 0 {
				g.qb = id
			}
		case types.PositionWR, types.PositionTE:
			g.catchers = append(g.catchers, id)
		case types.PositionRB:
			g.rbs = append(g.rbs, id)
		case types.PositionDST:
			s.dsts = append(s.dsts, id)
		}
	}

	for _, g := range byTeam {
		if g.qb >= 0 && len(g.catchers) > 0 {
			catchers := g.catchers
			sort.Slice(catchers, func(i, j int) bool {
				if s.median[catchers[i]] != s.median[catchers[j]] {
					return s.median[catchers[i]] > s.median[catchers[j]]
				}
				return catchers[i] < catchers[j]
			})
			if len(catchers) > maxPassCatchers {
				catchers = catchers[:maxPassCatchers]
			}
			s.qbs = append(s.qbs, g.qb)
			s.passCatchers[g.qb] = catchers
		}
		if len(g.rbs) > 0 {
			lead := g.rbs[0]
			for _, id := range g.rbs[1:] {
				if s.median[id] > s.median[lead] {
					lead = id
				}
			}
			s.leadRBs = append(s.leadRBs, lead)
		}
	}
	sort.Ints(s.qbs)
	sort.Ints(s.leadRBs)
	sort.Ints(s.dsts)

	return s
}

// SampleTrial fills scores (indexed by slate ID) with one trial's outcomes.
// The correlation pass runs in a fixed order: QB stacks, then lead RBs,
// then defenses. Scores are clamped at zero after environment scaling.
func (s *OutcomeSampler) SampleTrial(rng *rand.Rand, env *TrialEnv, scores []float64) {
	for id := range scores {
		base := distuv.LogNormal{Mu: s.mu[id], Sigma: s.sigma[id], Src: rng}.Rand()
		if ti := s.teamIdx[id]; ti >= 0 {
			base *= env.Mult[ti]
		}
		if base < 0 {
			base = 0
		}
		scores[id] = base
	}

	if !s.params.UseCorrelations {
		return
	}

	for _, qb := range s.qbs {
		ratio := scores[qb] / (s.median[qb] + 1e-9)
		var nudge uniformRange
		switch {
		case ratio > qbBoomRatio:
			nudge = qbBoomNudge
		case ratio < qbBustRatio:
			nudge = qbBustNudge
		default:
			continue
		}
		for _, pc := range s.passCatchers[qb] {
			scores[pc] *= nudge.draw(rng)
		}
	}

	for _, rb := range s.leadRBs {
		ti := s.teamIdx[rb]
		if ti < 0 {
			continue
		}
		switch {
		case env.Mult[ti] > rbHotMult:
			scores[rb] *= rbHotNudge.draw(rng)
		case env.Mult[ti] < rbColdMult:
			scores[rb] *= rbColdNudge.draw(rng)
		}
	}

	for _, dst := range s.dsts {
		ti := s.teamIdx[dst]
		if ti < 0 {
			continue
		}
		spread := env.Spread[ti]
		switch {
		case spread <= -s.params.FavoriteSpread:
			scores[dst] *= dstFavNudge.draw(rng)
		case spread >= s.params.FavoriteSpread:
			scores[dst] *= dstDogNudge.draw(rng)
		}
	}
}
