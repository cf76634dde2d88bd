package matchup

import (
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/nfl-roo-sim/internal/config"
	"github.com/stitts-dev/nfl-roo-sim/internal/types"
	"github.com/stitts-dev/nfl-roo-sim/pkg/logger"
)

// EPA/play sits near a zero league mean, so ratios are unstable; the
// additive difference is scaled into a comparable factor range instead.
const epaDiffScale = 2.5

// PROE decay per week when weighting recent pass tendencies
const proeDecay = 0.85

// PROE contribution scale into the matchup score
const proeScale = 0.67

// Composite strength weights for the z-scored efficiency metrics
const (
	weightEPA       = 0.30
	weightYPP       = 0.20
	weightPPD       = 0.20
	weightExplosive = 0.15
	weightConv      = 0.15
)

type leagueAverages struct {
	OffEPA              float64
	OffExplosive        float64
	OffPPD              float64
	DefEPAAllowed       float64
	DefExplosiveAllowed float64
	DefPPDAllowed       float64
	ImpliedTotal        float64
}

type metricMoments struct {
	Mean float64
	Std  float64
}

// Adjuster converts team/opponent efficiency differentials into a bounded
// volatility multiplier, and exposes the z-scored matchup strength used by
// the game environment simulator.
type Adjuster struct {
	volMin       float64
	volMax       float64
	proeLookback int

	league   leagueAverages
	strength map[string]float64
	proe     map[string]float64
	log      *logrus.Entry
}

// NewAdjuster builds an adjuster for the week's matchup contexts. League
// averages and strength z-scores are computed once here; Multiplier and
// Strength are then pure lookups/math.
func NewAdjuster(params config.SimulationParams, contexts []types.TeamMatchupContext, proeRecords []types.PROERecord) *Adjuster {
	a := &Adjuster{
		volMin:       params.MatchupVolMin,
		volMax:       params.MatchupVolMax,
		proeLookback: params.LookbackWeeks,
		strength:     make(map[string]float64, len(contexts)),
		proe:         make(map[string]float64),
		log:          logger.WithComponent("matchup_adjuster"),
	}
	a.league = computeLeagueAverages(contexts)
	a.computeStrengths(contexts)
	a.computeWeightedPROE(proeRecords)

	a.log.WithFields(logrus.Fields{
		"teams":          len(contexts),
		"league_avg_itt": a.league.ImpliedTotal,
		"league_avg_epa": a.league.OffEPA,
	}).Info("Computed league averages and matchup strengths")

	return a
}

// Multiplier returns the volatility multiplier for one team context, always
// inside the configured [min, max] interval. The median projection is never
// touched by this factor; it widens or narrows the outcome distribution only.
func (a *Adjuster) Multiplier(ctx types.TeamMatchupContext) float64 {
	offFactor := a.groupFactor(
		ctx.Offense.EPAPlay, a.league.OffEPA,
		ctx.Offense.ExplosiveRate, a.league.OffExplosive,
		ctx.Offense.PointsPerDrive, a.league.OffPPD,
	)
	defFactor := a.groupFactor(
		ctx.OppDefense.EPAPlay, a.league.DefEPAAllowed,
		ctx.OppDefense.ExplosiveRate, a.league.DefExplosiveAllowed,
		ctx.OppDefense.PointsPerDrive, a.league.DefPPDAllowed,
	)

	ittFactor := 1.0
	if a.league.ImpliedTotal > 0 && !math.IsNaN(ctx.ImpliedTotal) {
		ittFactor = ctx.ImpliedTotal / a.league.ImpliedTotal
	}

	// Weighted combination keeps any single extreme input from dominating
	score := 1.0
	score += (offFactor - 1.0) * 0.20
	score += (defFactor - 1.0) * 0.20
	score += (ittFactor - 1.0) * 0.15
	score += a.proe[ctx.Team] * proeScale

	return clamp(score, a.volMin, a.volMax)
}

// groupFactor averages the EPA difference factor with the ratio factors for
// explosive rate and points per drive, excluding any metric whose league
// average is zero or undefined
func (a *Adjuster) groupFactor(epa, leagueEPA, explosive, leagueExplosive, ppd, leaguePPD float64) float64 {
	factors := make([]float64, 0, 3)
	if !math.IsNaN(epa) && !math.IsNaN(leagueEPA) {
		factors = append(factors, 1.0+(epa-leagueEPA)*epaDiffScale)
	}
	if leagueExplosive != 0 && !math.IsNaN(explosive) && !math.IsNaN(leagueExplosive) {
		factors = append(factors, explosive/leagueExplosive)
	}
	if leaguePPD != 0 && !math.IsNaN(ppd) && !math.IsNaN(leaguePPD) {
		factors = append(factors, ppd/leaguePPD)
	}
	if len(factors) == 0 {
		return 1.0
	}
	sum := 0.0
	for _, f := range factors {
		sum += f
	}
	return sum / float64(len(factors))
}

// Strength returns the team's composite z-scored efficiency, zero for
// unknown teams
func (a *Adjuster) Strength(team string) float64 {
	return a.strength[team]
}

func (a *Adjuster) computeStrengths(contexts []types.TeamMatchupContext) {
	if len(contexts) == 0 {
		return
	}
	epa := momentsOf(contexts, func(c types.TeamMatchupContext) float64 { return c.Offense.EPAPlay })
	ypp := momentsOf(contexts, func(c types.TeamMatchupContext) float64 { return c.Offense.YardsPerPlay })
	ppd := momentsOf(contexts, func(c types.TeamMatchupContext) float64 { return c.Offense.PointsPerDrive })
	expl := momentsOf(contexts, func(c types.TeamMatchupContext) float64 { return c.Offense.ExplosiveRate })
	conv := momentsOf(contexts, func(c types.TeamMatchupContext) float64 { return c.Offense.ConversionRate })

	for _, c := range contexts {
		a.strength[c.Team] = weightEPA*zScore(c.Offense.EPAPlay, epa) +
			weightYPP*zScore(c.Offense.YardsPerPlay, ypp) +
			weightPPD*zScore(c.Offense.PointsPerDrive, ppd) +
			weightExplosive*zScore(c.Offense.ExplosiveRate, expl) +
			weightConv*zScore(c.Offense.ConversionRate, conv)
	}
}

// computeWeightedPROE stores a recency-weighted pass-rate-over-expected per
// team: most recent week gets weight 1.0, decaying geometrically
func (a *Adjuster) computeWeightedPROE(records []types.PROERecord) {
	byTeam := make(map[string][]types.PROERecord)
	for _, r := range records {
		byTeam[r.Team] = append(byTeam[r.Team], r)
	}
	for team, recs := range byTeam {
		sort.Slice(recs, func(i, j int) bool { return recs[i].Week > recs[j].Week })
		if len(recs) > a.proeLookback {
			recs = recs[:a.proeLookback]
		}
		weighted, totalWeight := 0.0, 0.0
		w := 1.0
		for _, r := range recs {
			weighted += r.PROE * w
			totalWeight += w
			w *= proeDecay
		}
		if totalWeight > 0 {
			a.proe[team] = weighted / totalWeight
		}
	}
}

func computeLeagueAverages(contexts []types.TeamMatchupContext) leagueAverages {
	if len(contexts) == 0 {
		return leagueAverages{}
	}
	var la leagueAverages
	n := float64(len(contexts))
	for _, c := range contexts {
		la.OffEPA += c.Offense.EPAPlay
		la.OffExplosive += c.Offense.ExplosiveRate
		la.OffPPD += c.Offense.PointsPerDrive
		la.DefEPAAllowed += c.OppDefense.EPAPlay
		la.DefExplosiveAllowed += c.OppDefense.ExplosiveRate
		la.DefPPDAllowed += c.OppDefense.PointsPerDrive
		la.ImpliedTotal += c.ImpliedTotal
	}
	la.OffEPA /= n
	la.OffExplosive /= n
	la.OffPPD /= n
	la.DefEPAAllowed /= n
	la.DefExplosiveAllowed /= n
	la.DefPPDAllowed /= n
	la.ImpliedTotal /= n
	return la
}

func momentsOf(contexts []types.TeamMatchupContext, get func(types.TeamMatchupContext) float64) metricMoments {
	n := float64(len(contexts))
	sum := 0.0
	for _, c := range contexts {
		sum += get(c)
	}
	m := sum / n
	sumSq := 0.0
	for _, c := range contexts {
		d := get(c) - m
		sumSq += d * d
	}
	return metricMoments{Mean: m, Std: math.Sqrt(sumSq / n)}
}

func zScore(x float64, mm metricMoments) float64 {
	return (x - mm.Mean) / (mm.Std + 1e-6)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
