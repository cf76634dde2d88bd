package slatesim

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"

	"github.com/stitts-dev/nfl-roo-sim/internal/config"
	"github.com/stitts-dev/nfl-roo-sim/internal/roo"
	"github.com/stitts-dev/nfl-roo-sim/internal/types"
	"github.com/stitts-dev/nfl-roo-sim/pkg/logger"
)

const (
	// trial batches sized for worker throughput without starving progress updates
	trialBatchSize = 64

	// the simulated field never shrinks below this many opponents
	minSimFieldSize = 150

	// spaces the derived batch seed streams, same role as in the ROO engine
	seedGamma = 0x9E3779B97F4A7C15
)

// Result is the full outcome of one slate simulation run
type Result struct {
	Summaries       []types.LineupSummary `json:"summaries"`
	Field           FieldStats            `json:"field"`
	SimFieldSize    int                   `json:"sim_field_size"`
	RenormFloorHits int                   `json:"renorm_floor_hits"`
}

// SlateSimulator runs full-slate contest trials: per trial it samples game
// environments, draws correlated player scores, ranks user lineups against
// an ownership-weighted field, and settles the contest payout curve.
//
// Trials are partitioned into fixed batches, each with an RNG stream derived
// from the run seed and the batch index, and every result lands in a
// preallocated slot keyed by trial number. Output is therefore bit-identical
// for a given seed regardless of worker count or scheduling.
type SlateSimulator struct {
	params  config.SimulationParams
	slate   *roo.Slate
	env     *EnvironmentSimulator
	sampler *OutcomeSampler
	field   *FieldGenerator
	workers int
	log     *logrus.Entry
}

// NewSlateSimulator wires the trial pipeline for one assembled slate
func NewSlateSimulator(params config.SimulationParams, slate *roo.Slate, env *EnvironmentSimulator) (*SlateSimulator, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulation parameters: %w", err)
	}
	fieldGen, err := NewFieldGenerator(params, slate)
	if err != nil {
		return nil, err
	}
	workers := params.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &SlateSimulator{
		params:  params,
		slate:   slate,
		env:     env,
		sampler: NewOutcomeSampler(params, slate, env),
		field:   fieldGen,
		workers: workers,
		log:     logger.WithComponent("slate_simulator"),
	}, nil
}

// batchSeed derives the RNG stream for one trial batch. Stream 0 is
// reserved for field generation.
func (s *SlateSimulator) batchSeed(stream int) uint64 {
	return s.params.Seed + uint64(stream+1)*seedGamma
}

// Run executes the full contest simulation. User lineups are validated and
// resolved to slate IDs up front; any unknown player or illegal roster fails
// the run before a single trial executes. Cancellable at batch boundaries.
func (s *SlateSimulator) Run(
	ctx context.Context,
	runID string,
	userLineups []types.Lineup,
	contest types.ContestConfig,
	progress chan<- types.ProgressUpdate,
) (*Result, error) {
	if err := contest.Validate(); err != nil {
		return nil, fmt.Errorf("invalid contest: %w", err)
	}
	if len(userLineups) == 0 {
		return nil, fmt.Errorf("no user lineups supplied")
	}

	userIDs, err := s.resolveLineups(userLineups)
	if err != nil {
		return nil, err
	}

	simFieldSize := int(float64(contest.FieldSize) * contest.FieldSamplePct / 100.0)
	if simFieldSize < minSimFieldSize {
		simFieldSize = minSimFieldSize
	}
	if simFieldSize > contest.FieldSize {
		simFieldSize = contest.FieldSize
	}

	fieldRNG := rand.New(rand.NewSource(s.batchSeed(0) ^ 0xC2B2AE3D27D4EB4F))
	fieldLineups, fieldStats := s.field.Generate(fieldRNG, simFieldSize)
	if len(fieldLineups) == 0 {
		return nil, fmt.Errorf("field generation produced no legal lineups")
	}

	n := s.params.Trials
	numUsers := len(userLineups)
	evaluator := NewContestEvaluator(contest, len(fieldLineups), numUsers)

	s.log.WithFields(logrus.Fields{
		"run_id":     runID,
		"trials":     n,
		"lineups":    numUsers,
		"sim_field":  len(fieldLineups),
		"real_field": contest.FieldSize,
		"workers":    s.workers,
	}).Info("Starting slate simulation")

	// results[i*n+t] is lineup i, trial t; slots are preallocated so worker
	// scheduling never reorders output
	results := make([]trialResult, numUsers*n)

	numBatches := (n + trialBatchSize - 1) / trialBatchSize
	batches := make(chan int, numBatches)
	var completed int64
	var renormHits int64
	var runErr error
	errOnce := sync.Once{}
	var wg sync.WaitGroup

	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			env := s.env.NewTrialEnv()
			scores := make([]float64, s.slate.Len())
			fieldScores := make([]float64, len(fieldLineups))
			userScores := make([]float64, numUsers)
			trialOut := make([]trialResult, numUsers)

			for batch := range batches {
				if err := ctx.Err(); err != nil {
					errOnce.Do(func() { runErr = err })
					return
				}
				rng := rand.New(rand.NewSource(s.batchSeed(batch + 1)))
				start := batch * trialBatchSize
				end := start + trialBatchSize
				if end > n {
					end = n
				}
				for t := start; t < end; t++ {
					s.env.SampleTrial(rng, env)
					s.sampler.SampleTrial(rng, env, scores)

					for i, lu := range fieldLineups {
						fieldScores[i] = lineupScore(lu, scores)
					}
					for i, lu := range userIDs {
						userScores[i] = lineupScore(lu, scores)
					}

					evaluator.evaluateTrial(fieldScores, userScores, trialOut)
					for i := range trialOut {
						results[i*n+t] = trialOut[i]
					}
				}

				done := atomic.AddInt64(&completed, int64(end-start))
				if progress != nil {
					select {
					case progress <- types.ProgressUpdate{
						RunID:     runID,
						Stage:     "simulating",
						Completed: int(done),
						Total:     n,
					}:
					default:
					}
				}
			}
			atomic.AddInt64(&renormHits, int64(env.RenormFloorHits))
		}()
	}

	for b := 0; b < numBatches; b++ {
		batches <- b
	}
	close(batches)
	wg.Wait()

	if runErr != nil {
		return nil, fmt.Errorf("simulation cancelled: %w", runErr)
	}

	summaries := make([]types.LineupSummary, numUsers)
	for i := 0; i < numUsers; i++ {
		summaries[i] = evaluator.Summarize(fmt.Sprintf("lineup_%d", i+1), results[i*n:(i+1)*n])
	}

	out := &Result{
		Summaries:       summaries,
		Field:           fieldStats,
		SimFieldSize:    len(fieldLineups),
		RenormFloorHits: int(renormHits),
	}

	if out.RenormFloorHits > 0 {
		s.log.WithFields(logrus.Fields{
			"run_id": runID,
			"hits":   out.RenormFloorHits,
		}).Warn("Renormalization denominator floored during run")
	}
	s.log.WithFields(logrus.Fields{
		"run_id":  runID,
		"trials":  n,
		"lineups": numUsers,
	}).Info("Completed slate simulation")
	return out, nil
}

// resolveLineups maps lineup player names to slate IDs and enforces roster
// legality: slot positions, FLEX eligibility, no duplicates, salary cap
func (s *SlateSimulator) resolveLineups(lineups []types.Lineup) ([]FieldLineup, error) {
	slotPos := [9]types.Position{
		types.PositionQB,
		types.PositionRB, types.PositionRB,
		types.PositionWR, types.PositionWR, types.PositionWR,
		types.PositionTE,
		"", // FLEX, checked separately
		types.PositionDST,
	}

	resolved := make([]FieldLineup, len(lineups))
	for li, lu := range lineups {
		names := lu.Players()
		used := make(map[int]bool, 9)
		salary := 0
		for slot, name := range names {
			id, ok := s.slate.IndexOf(name)
			if !ok {
				return nil, fmt.Errorf("lineup %d: player %q not on slate", li+1, name)
			}
			row := s.slate.Rows[id]
			if slot == 7 {
				if !row.Position.FlexEligible() {
					return nil, fmt.Errorf("lineup %d: %q (%s) is not FLEX eligible", li+1, name, row.Position)
				}
			} else if row.Position != slotPos[slot] {
				return nil, fmt.Errorf("lineup %d: %q is %s, slot %d needs %s", li+1, name, row.Position, slot+1, slotPos[slot])
			}
			if used[id] {
				return nil, fmt.Errorf("lineup %d: player %q appears twice", li+1, name)
			}
			used[id] = true
			salary += row.Salary
			resolved[li][slot] = int32(id)
		}
		if salary > s.params.SalaryCap {
			return nil, fmt.Errorf("lineup %d: salary %d exceeds cap %d", li+1, salary, s.params.SalaryCap)
		}
	}
	return resolved, nil
}

func lineupScore(lu FieldLineup, scores []float64) float64 {
	total := 0.0
	for _, id := range lu {
		total += scores[id]
	}
	return total
}
