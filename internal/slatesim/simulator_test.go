package slatesim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/nfl-roo-sim/internal/config"
	"github.com/stitts-dev/nfl-roo-sim/internal/types"
)

func newSimulator(t *testing.T, params config.SimulationParams) *SlateSimulator {
	t.Helper()
	slate, env := buildSimEnv(t, params)
	sim, err := NewSlateSimulator(params, slate, env)
	require.NoError(t, err)
	return sim
}

func TestSlateSimulatorRun_ProducesSaneSummaries(t *testing.T) {
	params := config.DefaultSimulationParams()
	params.Trials = 300

	sim := newSimulator(t, params)
	result, err := sim.Run(context.Background(), "run-1", []types.Lineup{validUserLineup()}, testContest(), nil)
	require.NoError(t, err)
	require.Len(t, result.Summaries, 1)

	s := result.Summaries[0]
	assert.Equal(t, params.Trials, s.Trials)
	assert.Positive(t, s.MeanScore)
	assert.GreaterOrEqual(t, s.CashProb, 0.0)
	assert.LessOrEqual(t, s.CashProb, 1.0)
	assert.GreaterOrEqual(t, s.Top10Prob, s.Top1Prob)
	assert.GreaterOrEqual(t, s.Top1Prob, s.Top01Prob)
	assert.LessOrEqual(t, s.MinProfit, s.MaxProfit)
	assert.InDelta(t, s.MeanProfit/testContest().EntryFee, s.ROI, 1e-9)

	// 15% of a 1000 entry contest
	assert.Equal(t, 150, result.SimFieldSize)
}

func TestSlateSimulatorRun_DeterministicAcrossWorkerCounts(t *testing.T) {
	params := config.DefaultSimulationParams()
	params.Trials = 300
	lineups := []types.Lineup{validUserLineup()}

	params.Workers = 1
	serial := newSimulator(t, params)
	a, err := serial.Run(context.Background(), "run-a", lineups, testContest(), nil)
	require.NoError(t, err)

	params.Workers = 8
	parallel := newSimulator(t, params)
	b, err := parallel.Run(context.Background(), "run-b", lineups, testContest(), nil)
	require.NoError(t, err)

	require.Equal(t, a.Summaries, b.Summaries,
		"same seed must produce identical summaries regardless of worker count")
	require.Equal(t, a.Field, b.Field)
}

func TestSlateSimulatorRun_ValidatesLineups(t *testing.T) {
	params := config.DefaultSimulationParams()
	params.Trials = 50
	sim := newSimulator(t, params)
	ctx := context.Background()

	unknown := validUserLineup()
	unknown.WR3 = "Nobody Special"
	_, err := sim.Run(ctx, "r", []types.Lineup{unknown}, testContest(), nil)
	assert.ErrorContains(t, err, "not on slate")

	wrongSlot := validUserLineup()
	wrongSlot.RB2 = "BUF WR1"
	_, err = sim.Run(ctx, "r", []types.Lineup{wrongSlot}, testContest(), nil)
	assert.ErrorContains(t, err, "slot")

	dup := validUserLineup()
	dup.WR2 = dup.WR1
	_, err = sim.Run(ctx, "r", []types.Lineup{dup}, testContest(), nil)
	assert.ErrorContains(t, err, "twice")

	qbInFlex := validUserLineup()
	qbInFlex.Flex = "BUF QB1"
	_, err = sim.Run(ctx, "r", []types.Lineup{qbInFlex}, testContest(), nil)
	assert.ErrorContains(t, err, "FLEX")
}

func TestSlateSimulatorRun_RejectsBadContest(t *testing.T) {
	params := config.DefaultSimulationParams()
	params.Trials = 50
	sim := newSimulator(t, params)

	contest := testContest()
	contest.FieldSize = 1
	_, err := sim.Run(context.Background(), "r", []types.Lineup{validUserLineup()}, contest, nil)
	assert.Error(t, err)

	_, err = sim.Run(context.Background(), "r", nil, testContest(), nil)
	assert.ErrorContains(t, err, "no user lineups")
}

func TestSlateSimulatorRun_Cancellable(t *testing.T) {
	params := config.DefaultSimulationParams()
	params.Trials = 5000
	sim := newSimulator(t, params)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sim.Run(ctx, "r", []types.Lineup{validUserLineup()}, testContest(), nil)
	assert.Error(t, err)
}

func TestSlateSimulatorRun_ReportsProgress(t *testing.T) {
	params := config.DefaultSimulationParams()
	params.Trials = 300
	sim := newSimulator(t, params)

	progress := make(chan types.ProgressUpdate, 1000)
	_, err := sim.Run(context.Background(), "run-p", []types.Lineup{validUserLineup()}, testContest(), progress)
	require.NoError(t, err)
	close(progress)

	got := 0
	for update := range progress {
		got++
		assert.Equal(t, "run-p", update.RunID)
		assert.LessOrEqual(t, update.Completed, params.Trials)
		assert.Equal(t, params.Trials, update.Total)
	}
	assert.Positive(t, got, "at least one progress update per run")
}
