package roo

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/stitts-dev/nfl-roo-sim/internal/config"
	"github.com/stitts-dev/nfl-roo-sim/internal/types"
	"github.com/stitts-dev/nfl-roo-sim/pkg/logger"
)

// goldenGamma spaces derived seeds so per-player streams never collide
const goldenGamma = 0x9E3779B97F4A7C15

// Engine runs the range-of-outcomes Monte Carlo: independent lognormal
// draws per player, reduced to a percentile ladder.
//
// Each player's draws come from an independent stream derived from the run
// seed and the player's slate ID, so output is bit-identical for a given
// seed regardless of worker count or scheduling.
type Engine struct {
	params  config.SimulationParams
	workers int
	log     *logrus.Entry
}

// NewEngine validates parameters and creates an engine
func NewEngine(params config.SimulationParams) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulation parameters: %w", err)
	}
	workers := params.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Engine{
		params:  params,
		workers: workers,
		log:     logger.WithComponent("roo_engine"),
	}, nil
}

// DeriveSeed produces the independent stream seed for one player ID
func DeriveSeed(seed uint64, id int) uint64 {
	return seed + uint64(id+1)*goldenGamma
}

// Run draws Trials samples for every slate player and returns one
// ROOProjectionRow per player. The Median field is the external consensus
// projection passed through, not the sampled P50; Floor and Ceiling come
// from the configured percentiles. Cancellable between player columns.
func (e *Engine) Run(ctx context.Context, slate *Slate) ([]types.ROOProjectionRow, error) {
	n := e.params.Trials
	numPlayers := slate.Len()

	e.log.WithFields(logrus.Fields{
		"trials":  n,
		"players": numPlayers,
		"seed":    e.params.Seed,
		"workers": e.workers,
	}).Info("Starting ROO simulation")

	// Trials×players matrix, player-major so each column is contiguous.
	// Fully materialized: bounded by configured trials and slate size.
	buf := make([]float64, numPlayers*n)

	ids := make(chan int, numPlayers)
	errOnce := sync.Once{}
	var runErr error
	var wg sync.WaitGroup

	for w := 0; w < e.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range ids {
				if err := ctx.Err(); err != nil {
					errOnce.Do(func() { runErr = err })
					return
				}
				row := slate.Rows[id]
				ln := distuv.LogNormal{
					Mu:    row.MuLog,
					Sigma: row.SigmaLog,
					Src:   rand.NewSource(DeriveSeed(e.params.Seed, id)),
				}
				col := buf[id*n : (id+1)*n]
				for t := 0; t < n; t++ {
					col[t] = ln.Rand()
				}
				sort.Float64s(col)
			}
		}()
	}

	for id := 0; id < numPlayers; id++ {
		ids <- id
	}
	close(ids)
	wg.Wait()

	if runErr != nil {
		return nil, fmt.Errorf("simulation cancelled: %w", runErr)
	}

	rows := make([]types.ROOProjectionRow, numPlayers)
	for id := 0; id < numPlayers; id++ {
		col := buf[id*n : (id+1)*n]
		row, err := e.reduce(slate.Rows[id], col)
		if err != nil {
			return nil, err
		}
		rows[id] = row
	}

	e.log.WithField("players", numPlayers).Info("Completed ROO simulation")
	return rows, nil
}

// reduce extracts the percentile ladder from one player's sorted draws
func (e *Engine) reduce(proj types.PlayerProjectionRow, sorted []float64) (types.ROOProjectionRow, error) {
	out := types.ROOProjectionRow{
		PlayerProjectionRow: proj,
		Median:              proj.MedianProjection,
		Percentiles:         make([]types.PercentileValue, 0, len(e.params.Percentiles)),
	}
	for _, pct := range e.params.Percentiles {
		v := stat.Quantile(pct/100, stat.Empirical, sorted, nil)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return out, fmt.Errorf("non-finite P%.0f for player %q (mu=%.4f sigma=%.4f)",
				pct, proj.Player, proj.MuLog, proj.SigmaLog)
		}
		out.Percentiles = append(out.Percentiles, types.PercentileValue{Pct: pct, Value: v})
		if pct == e.params.FloorPercentile {
			out.Floor = v
		}
		if pct == e.params.CeilingPercentile {
			out.Ceiling = v
		}
	}
	out.VolatilityIndex = (out.Ceiling - out.Floor) / (proj.MedianProjection + 0.01)
	return out, nil
}
