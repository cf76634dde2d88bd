package volatility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/nfl-roo-sim/internal/config"
	"github.com/stitts-dev/nfl-roo-sim/internal/types"
)

func wrHistory() []types.PlayerHistoryRecord {
	// pooled WR scores: 10,20,10,20,10,20,15 -> sample std exactly 5.0
	return []types.PlayerHistoryRecord{
		{Player: "Deep Threat", Team: "ATL", Position: types.PositionWR, Week: 1, Points: 10},
		{Player: "Deep Threat", Team: "ATL", Position: types.PositionWR, Week: 2, Points: 20},
		{Player: "Deep Threat", Team: "ATL", Position: types.PositionWR, Week: 3, Points: 10},
		{Player: "Deep Threat", Team: "ATL", Position: types.PositionWR, Week: 4, Points: 20},
		{Player: "Mid Sample", Team: "BUF", Position: types.PositionWR, Week: 3, Points: 10},
		{Player: "Mid Sample", Team: "BUF", Position: types.PositionWR, Week: 4, Points: 20},
		{Player: "Thin Sample", Team: "CHI", Position: types.PositionWR, Week: 4, Points: 15},
	}
}

func TestBuildProfiles_FullSampleUsesOwnStd(t *testing.T) {
	params := config.DefaultSimulationParams()
	set := NewEstimator(params).BuildProfiles(wrHistory())

	p, ok := set.Lookup("Deep Threat", "ATL", types.PositionWR)
	require.True(t, ok)
	assert.Equal(t, 4, p.Games)
	assert.InDelta(t, 15.0, p.MeanPts, 1e-9)
	// sample std of 10,20,10,20
	assert.InDelta(t, 5.7735, p.StdPts, 1e-3)
	assert.Equal(t, p.StdPts, p.EffectiveStd, "full sample should use the player's own std")
}

func TestBuildProfiles_SparseSampleBlendsTowardPosition(t *testing.T) {
	params := config.DefaultSimulationParams()
	set := NewEstimator(params).BuildProfiles(wrHistory())

	// 2 of 4 required games: half own std (7.0711), half position std (5.0)
	mid, ok := set.Lookup("Mid Sample", "BUF", types.PositionWR)
	require.True(t, ok)
	assert.InDelta(t, 0.5*7.0711+0.5*5.0, mid.EffectiveStd, 1e-3)

	// single game: inflated position std, own std undefined
	thin, ok := set.Lookup("Thin Sample", "CHI", types.PositionWR)
	require.True(t, ok)
	assert.Zero(t, thin.StdPts)
	assert.InDelta(t, 5.0*params.LowSampleInflation, thin.EffectiveStd, 1e-9)
}

func TestBuildProfiles_FallbackNeverShrinksBelowBlend(t *testing.T) {
	// fewer games must never produce a smaller effective std than the same
	// player would get with more games of identical volatility, when the
	// position pool is more volatile than the player
	params := config.DefaultSimulationParams()
	set := NewEstimator(params).BuildProfiles(wrHistory())

	deep, _ := set.Lookup("Deep Threat", "ATL", types.PositionWR)
	mid, _ := set.Lookup("Mid Sample", "BUF", types.PositionWR)
	thin, _ := set.Lookup("Thin Sample", "CHI", types.PositionWR)

	assert.Greater(t, thin.EffectiveStd, 5.0, "inflation should push above the position std")
	assert.Greater(t, mid.EffectiveStd, 5.0, "blend with a more volatile own sample stays above position std")
	assert.Positive(t, deep.EffectiveStd)
}

func TestBuildProfiles_LookbackTrimsOldWeeks(t *testing.T) {
	params := config.DefaultSimulationParams()
	params.LookbackWeeks = 2

	records := []types.PlayerHistoryRecord{
		{Player: "Vet", Team: "DEN", Position: types.PositionRB, Week: 1, Points: 30},
		{Player: "Vet", Team: "DEN", Position: types.PositionRB, Week: 9, Points: 10},
		{Player: "Vet", Team: "DEN", Position: types.PositionRB, Week: 10, Points: 12},
	}
	set := NewEstimator(params).BuildProfiles(records)

	p, ok := set.Lookup("Vet", "DEN", types.PositionRB)
	require.True(t, ok)
	assert.Equal(t, 2, p.Games, "week 1 is outside the 2-week window anchored at week 10")
	assert.InDelta(t, 11.0, p.MeanPts, 1e-9)
}

func TestBuildProfiles_ZeroVarianceFallsBack(t *testing.T) {
	params := config.DefaultSimulationParams()
	records := make([]types.PlayerHistoryRecord, 0, 8)
	for w := 1; w <= 4; w++ {
		records = append(records, types.PlayerHistoryRecord{
			Player: "Metronome", Team: "ATL", Position: types.PositionTE, Week: w, Points: 9.5,
		})
	}
	set := NewEstimator(params).BuildProfiles(records)

	p, ok := set.Lookup("Metronome", "ATL", types.PositionTE)
	require.True(t, ok)
	assert.Zero(t, p.StdPts)
	assert.Positive(t, p.EffectiveStd, "identical scores must not produce zero effective std")
}

func TestLookupByTeamPosition_UniqueMatchOnly(t *testing.T) {
	params := config.DefaultSimulationParams()
	set := NewEstimator(params).BuildProfiles(wrHistory())

	p, ok := set.LookupByTeamPosition("ATL", types.PositionWR)
	require.True(t, ok)
	assert.Equal(t, "Deep Threat", p.Player)

	records := append(wrHistory(), types.PlayerHistoryRecord{
		Player: "Second WR", Team: "ATL", Position: types.PositionWR, Week: 4, Points: 8,
	})
	set = NewEstimator(params).BuildProfiles(records)
	_, ok = set.LookupByTeamPosition("ATL", types.PositionWR)
	assert.False(t, ok, "ambiguous team+position must not resolve")
}

func TestFallbackProfile(t *testing.T) {
	params := config.DefaultSimulationParams()
	set := NewEstimator(params).BuildProfiles(wrHistory())

	p := set.FallbackProfile("Rookie", "DEN", types.PositionWR)
	assert.Equal(t, 0, p.Games)
	assert.Positive(t, p.EffectiveStd)

	// position with no history at all takes the hardcoded default
	dst := set.FallbackProfile("Some Defense", "DEN", types.PositionDST)
	assert.InDelta(t, 3.0, dst.EffectiveStd, 1e-9)
}
