package slatesim

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/nfl-roo-sim/internal/config"
	"github.com/stitts-dev/nfl-roo-sim/internal/matchup"
	"github.com/stitts-dev/nfl-roo-sim/internal/roo"
	"github.com/stitts-dev/nfl-roo-sim/internal/types"
	"github.com/stitts-dev/nfl-roo-sim/internal/volatility"
)

// two games: ATL a big favorite over BUF, CHI a slight favorite over DEN
func simContexts() []types.TeamMatchupContext {
	metrics := types.EfficiencyMetrics{
		EPAPlay:        0.0,
		YardsPerPlay:   5.5,
		PointsPerDrive: 2.0,
		ExplosiveRate:  0.08,
		ConversionRate: 0.40,
	}
	return []types.TeamMatchupContext{
		{Team: "ATL", Opponent: "BUF", GameTotal: 48, ImpliedTotal: 28, Spread: -8, Offense: metrics, OppDefense: metrics},
		{Team: "BUF", Opponent: "ATL", GameTotal: 48, ImpliedTotal: 20, Spread: 8, Offense: metrics, OppDefense: metrics},
		{Team: "CHI", Opponent: "DEN", GameTotal: 42, ImpliedTotal: 22, Spread: -2, Offense: metrics, OppDefense: metrics},
		{Team: "DEN", Opponent: "CHI", GameTotal: 42, ImpliedTotal: 20, Spread: 2, Offense: metrics, OppDefense: metrics},
	}
}

var simPositions = []struct {
	pos    types.Position
	count  int
	salary int
	median float64
}{
	{types.PositionQB, 1, 6800, 19},
	{types.PositionRB, 2, 5600, 13},
	{types.PositionWR, 3, 5200, 11},
	{types.PositionTE, 1, 3900, 8},
	{types.PositionDST, 1, 2900, 6},
}

func simEntries() []types.SlateEntry {
	teams := []string{"ATL", "BUF", "CHI", "DEN"}
	var entries []types.SlateEntry
	for ti, team := range teams {
		for _, def := range simPositions {
			for i := 1; i <= def.count; i++ {
				entries = append(entries, types.SlateEntry{
					Player:           fmt.Sprintf("%s %s%d", team, def.pos, i),
					Team:             team,
					Position:         def.pos,
					Salary:           def.salary - 100*i - 50*ti,
					MedianProjection: def.median - 0.5*float64(i),
					Ownership:        5 + float64((ti+i)%4)*5,
				})
			}
		}
	}
	return entries
}

func simHistory() []types.PlayerHistoryRecord {
	var records []types.PlayerHistoryRecord
	for _, e := range simEntries() {
		for w := 1; w <= 5; w++ {
			// scores oscillate around the projection for nonzero variance
			pts := e.MedianProjection + float64((w%3))*2 - 2
			if pts < 0 {
				pts = 0
			}
			records = append(records, types.PlayerHistoryRecord{
				Player: e.Player, Team: e.Team, Position: e.Position, Week: w, Points: pts,
			})
		}
	}
	return records
}

func buildSimSlate(t *testing.T, params config.SimulationParams) (*roo.Slate, *matchup.Adjuster) {
	t.Helper()
	contexts := simContexts()
	profiles := volatility.NewEstimator(params).BuildProfiles(simHistory())
	adjuster := matchup.NewAdjuster(params, contexts, nil)
	slate, err := roo.NewSlateBuilder(params).Build(simEntries(), profiles, adjuster, contexts)
	require.NoError(t, err)
	return slate, adjuster
}

func buildSimEnv(t *testing.T, params config.SimulationParams) (*roo.Slate, *EnvironmentSimulator) {
	t.Helper()
	slate, adjuster := buildSimSlate(t, params)
	env, err := NewEnvironmentSimulator(params, simContexts(), adjuster)
	require.NoError(t, err)
	return slate, env
}

func validUserLineup() types.Lineup {
	return types.Lineup{
		QB:   "ATL QB1",
		RB1:  "ATL RB1",
		RB2:  "BUF RB1",
		WR1:  "ATL WR1",
		WR2:  "BUF WR1",
		WR3:  "CHI WR1",
		TE:   "ATL TE1",
		Flex: "DEN RB1",
		DST:  "CHI DST1",
	}
}

func testContest() types.ContestConfig {
	return types.ContestConfig{
		EntryFee:       10,
		FieldSize:      1000,
		FieldSamplePct: 15,
		Payouts: []types.PayoutTier{
			{MinRank: 1, MaxRank: 1, Payout: 1000},
			{MinRank: 2, MaxRank: 10, Payout: 100},
			{MinRank: 11, MaxRank: 200, Payout: 20},
		},
	}
}
