package slatesim

import (
	"math"

	"github.com/stitts-dev/nfl-roo-sim/internal/types"
)

// ContestEvaluator ranks user lineups against the simulated field each trial
// and maps ranks through the real contest's payout curve.
//
// Ranks are scaled from the simulated field up to the real field size, so a
// 10% field sample finishing 5th of 150 scores like finishing 5th of 1500
// would. Ties are broken deterministically: field lineups beat user lineups
// on equal scores, and an earlier user lineup beats a later one.
type ContestEvaluator struct {
	contest   types.ContestConfig
	rankScale float64
}

// NewContestEvaluator creates an evaluator for one contest and a simulated
// field of simFieldSize opponents plus the user lineups
func NewContestEvaluator(contest types.ContestConfig, simFieldSize, numUserLineups int) *ContestEvaluator {
	totalSim := simFieldSize + numUserLineups
	return &ContestEvaluator{
		contest:   contest,
		rankScale: float64(contest.FieldSize) / float64(totalSim),
	}
}

// trialResult is one (lineup, trial) outcome
type trialResult struct {
	score  float64
	rank   int
	profit float64
}

// evaluateTrial fills results[i] for each user lineup given one trial's
// field scores and user scores. O(field x users) counting instead of a full
// sort; user lineup counts are small.
func (e *ContestEvaluator) evaluateTrial(fieldScores, userScores []float64, results []trialResult) {
	for i, us := range userScores {
		beaten := 0
		for _, fs := range fieldScores {
			if fs >= us {
				beaten++
			}
		}
		for j, other := range userScores {
			if other > us || (other == us && j < i) {
				beaten++
			}
		}
		simRank := beaten + 1

		realRank := int(math.Ceil(float64(simRank) * e.rankScale))
		if realRank < 1 {
			realRank = 1
		}
		if simRank == 1 {
			// a simulated winner is a real winner regardless of scaling
			realRank = 1
		}

		payout := types.PayoutForRank(realRank, e.contest.Payouts)
		results[i] = trialResult{
			score:  us,
			rank:   realRank,
			profit: payout - e.contest.EntryFee,
		}
	}
}

// Summarize aggregates one lineup's per-trial results into a LineupSummary.
// Cash probability is the fraction of trials with positive profit; a payout
// smaller than the entry fee does not cash. The top-N probabilities use the
// scaled real-field rank.
func (e *ContestEvaluator) Summarize(lineupID string, results []trialResult) types.LineupSummary {
	n := len(results)
	s := types.LineupSummary{
		LineupID:  lineupID,
		Trials:    n,
		MinProfit: math.Inf(1),
		MaxProfit: math.Inf(-1),
	}
	if n == 0 {
		s.MinProfit, s.MaxProfit = 0, 0
		return s
	}

	top10Rank := maxRankForPct(e.contest.FieldSize, 10.0)
	top1Rank := maxRankForPct(e.contest.FieldSize, 1.0)
	top01Rank := maxRankForPct(e.contest.FieldSize, 0.1)

	var sumScore, sumProfit float64
	var cash, top10, top1, top01 int
	for _, r := range results {
		sumScore += r.score
		sumProfit += r.profit
		if r.profit > 0 {
			cash++
		}
		if r.rank <= top10Rank {
			top10++
		}
		if r.rank <= top1Rank {
			top1++
		}
		if r.rank <= top01Rank {
			top01++
		}
		if r.profit < s.MinProfit {
			s.MinProfit = r.profit
		}
		if r.profit > s.MaxProfit {
			s.MaxProfit = r.profit
		}
	}

	fn := float64(n)
	s.MeanScore = sumScore / fn
	s.MeanProfit = sumProfit / fn
	s.ROI = s.MeanProfit / e.contest.EntryFee
	s.CashProb = float64(cash) / fn
	s.Top10Prob = float64(top10) / fn
	s.Top1Prob = float64(top1) / fn
	s.Top01Prob = float64(top01) / fn
	return s
}

// maxRankForPct returns the worst rank still inside the top pct% of the
// real field, at least 1 so tiny contests still track winners
func maxRankForPct(fieldSize int, pct float64) int {
	r := int(float64(fieldSize) * pct / 100.0)
	if r < 1 {
		r = 1
	}
	return r
}
