package slatesim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/nfl-roo-sim/internal/types"
)

func TestEvaluateTrial_HighestScoreWinsOutright(t *testing.T) {
	contest := testContest()
	fieldScores := []float64{120, 115, 110, 105}
	userScores := []float64{150}

	e := NewContestEvaluator(contest, len(fieldScores), len(userScores))
	results := make([]trialResult, 1)
	e.evaluateTrial(fieldScores, userScores, results)

	assert.Equal(t, 1, results[0].rank, "strictly highest score is always rank 1")
	assert.InDelta(t, 1000-contest.EntryFee, results[0].profit, 1e-9)
}

func TestEvaluateTrial_FieldWinsTies(t *testing.T) {
	contest := testContest()
	fieldScores := []float64{150}
	userScores := []float64{150}

	e := NewContestEvaluator(contest, 1, 1)
	results := make([]trialResult, 1)
	e.evaluateTrial(fieldScores, userScores, results)

	assert.Greater(t, results[0].rank, 1, "field lineup beats a tied user lineup")
}

func TestEvaluateTrial_EarlierUserWinsTies(t *testing.T) {
	contest := testContest()
	userScores := []float64{140, 140}

	e := NewContestEvaluator(contest, 0, 2)
	results := make([]trialResult, 2)
	e.evaluateTrial(nil, userScores, results)

	assert.Less(t, results[0].rank, results[1].rank)
}

func TestEvaluateTrial_RanksScaleToRealField(t *testing.T) {
	contest := testContest() // FieldSize 1000
	fieldScores := make([]float64, 99)
	for i := range fieldScores {
		fieldScores[i] = 200 - float64(i) // 9 field lineups beat the user
	}
	userScores := []float64{191.5}

	e := NewContestEvaluator(contest, len(fieldScores), 1) // 100 simulated lineups
	results := make([]trialResult, 1)
	e.evaluateTrial(fieldScores, userScores, results)

	// sim rank 10 of 100 scales to rank 100 of 1000
	assert.Equal(t, 100, results[0].rank)
}

func TestSummarize_AggregatesProfitAndProbabilities(t *testing.T) {
	contest := types.ContestConfig{
		EntryFee:       10,
		FieldSize:      1000,
		FieldSamplePct: 15,
		Payouts:        []types.PayoutTier{{MinRank: 1, MaxRank: 1, Payout: 500}},
	}
	e := NewContestEvaluator(contest, 149, 1)

	// 1 win in 4 trials under a winner-take-all curve
	results := []trialResult{
		{score: 160, rank: 1, profit: 490},
		{score: 120, rank: 400, profit: -10},
		{score: 110, rank: 700, profit: -10},
		{score: 100, rank: 900, profit: -10},
	}
	s := e.Summarize("lineup_1", results)

	assert.Equal(t, 4, s.Trials)
	assert.InDelta(t, 122.5, s.MeanScore, 1e-9)
	assert.InDelta(t, (490-30)/4.0, s.MeanProfit, 1e-9)
	assert.InDelta(t, s.MeanProfit/10.0, s.ROI, 1e-9)
	assert.InDelta(t, 0.25, s.CashProb, 1e-9, "winner-take-all cash rate equals win rate")
	assert.InDelta(t, 0.25, s.Top1Prob, 1e-9)
	assert.InDelta(t, 0.25, s.Top01Prob, 1e-9)
	assert.InDelta(t, 0.25, s.Top10Prob, 1e-9)
	assert.InDelta(t, -10.0, s.MinProfit, 1e-9)
	assert.InDelta(t, 490.0, s.MaxProfit, 1e-9)
}

func TestSummarize_MinCashBelowEntryFeeDoesNotCash(t *testing.T) {
	contest := types.ContestConfig{
		EntryFee:       10,
		FieldSize:      1000,
		FieldSamplePct: 15,
		Payouts:        []types.PayoutTier{{MinRank: 1, MaxRank: 1, Payout: 5}},
	}
	e := NewContestEvaluator(contest, 149, 1)

	// winning pays less than the entry fee, so no trial is a cash
	results := []trialResult{
		{score: 160, rank: 1, profit: -5},
		{score: 100, rank: 900, profit: -10},
	}
	s := e.Summarize("lineup_1", results)

	assert.Zero(t, s.CashProb, "cashing requires positive profit, not just a payout")
	assert.InDelta(t, 0.5, s.Top1Prob, 1e-9)
	assert.InDelta(t, -7.5, s.MeanProfit, 1e-9)
}

func TestPayoutForRank_TierLookup(t *testing.T) {
	tiers := testContest().Payouts
	assert.InDelta(t, 1000.0, types.PayoutForRank(1, tiers), 1e-9)
	assert.InDelta(t, 100.0, types.PayoutForRank(5, tiers), 1e-9)
	assert.InDelta(t, 20.0, types.PayoutForRank(200, tiers), 1e-9)
	assert.Zero(t, types.PayoutForRank(201, tiers))
}

func TestContestConfigValidate(t *testing.T) {
	require.NoError(t, testContest().Validate())

	bad := testContest()
	bad.EntryFee = 0
	assert.Error(t, bad.Validate())

	bad = testContest()
	bad.FieldSamplePct = 101
	assert.Error(t, bad.Validate())

	bad = testContest()
	bad.Payouts = []types.PayoutTier{
		{MinRank: 1, MaxRank: 10, Payout: 100},
		{MinRank: 5, MaxRank: 20, Payout: 50},
	}
	assert.Error(t, bad.Validate(), "overlapping tiers must fail validation")
}
