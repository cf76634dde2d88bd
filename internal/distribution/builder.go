package distribution

import (
	"math"

	"github.com/stitts-dev/nfl-roo-sim/internal/config"
)

// EPS floors the median before taking logs
const EPS = 0.1

// Builder maps a median projection and an adjusted standard deviation to
// lognormal parameters whose sampling median tracks the projection.
//
// The sigma mapping ln(1 + std/median) is a heuristic translation of
// relative volatility into log-space spread, not an exact variance match;
// the clamp bounds keep degenerate inputs from producing absurd tails.
type Builder struct {
	minStd   float64
	maxStd   float64
	minSigma float64
	maxSigma float64
}

// NewBuilder creates a distribution builder from simulation parameters
func NewBuilder(params config.SimulationParams) *Builder {
	return &Builder{
		minStd:   params.MinStd,
		maxStd:   params.MaxStd,
		minSigma: params.MinSigmaLog,
		maxSigma: params.MaxSigmaLog,
	}
}

// AdjustedStd scales the effective std by the matchup multiplier and clamps
// the result into the configured [min, max] volatility band
func (b *Builder) AdjustedStd(effectiveStd, matchupMultiplier float64) float64 {
	adj := effectiveStd * matchupMultiplier
	if adj < b.minStd {
		adj = b.minStd
	}
	if adj > b.maxStd {
		adj = b.maxStd
	}
	return adj
}

// Params returns (muLog, sigmaLog) for LogNormal sampling. A lognormal's
// median is exp(mu), so mu anchors the external median projection exactly.
func (b *Builder) Params(median, adjStd float64) (muLog, sigmaLog float64) {
	m := math.Max(median, EPS)

	muLog = math.Log(m)

	relStd := adjStd / (m + EPS)
	sigmaLog = math.Log(1 + relStd)
	if sigmaLog < b.minSigma {
		sigmaLog = b.minSigma
	}
	if sigmaLog > b.maxSigma {
		sigmaLog = b.maxSigma
	}
	return muLog, sigmaLog
}
