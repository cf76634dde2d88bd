package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlexEligible(t *testing.T) {
	assert.True(t, PositionRB.FlexEligible())
	assert.True(t, PositionWR.FlexEligible())
	assert.True(t, PositionTE.FlexEligible())
	assert.False(t, PositionQB.FlexEligible())
	assert.False(t, PositionDST.FlexEligible())
}

func TestLineupPlayers_SlotOrder(t *testing.T) {
	l := Lineup{
		QB: "a", RB1: "b", RB2: "c", WR1: "d", WR2: "e", WR3: "f",
		TE: "g", Flex: "h", DST: "i",
	}
	assert.Equal(t, [9]string{"a", "b", "c", "d", "e", "f", "g", "h", "i"}, l.Players())
}

func TestContestConfigValidate_TierOrderingIsIndependentOfInput(t *testing.T) {
	// tiers supplied out of order but non-overlapping are fine
	c := ContestConfig{
		EntryFee:       5,
		FieldSize:      100,
		FieldSamplePct: 100,
		Payouts: []PayoutTier{
			{MinRank: 11, MaxRank: 20, Payout: 10},
			{MinRank: 1, MaxRank: 10, Payout: 50},
		},
	}
	assert.NoError(t, c.Validate())

	c.Payouts = append(c.Payouts, PayoutTier{MinRank: 15, MaxRank: 30, Payout: 5})
	assert.Error(t, c.Validate())
}

func TestContestConfigValidate_RankBounds(t *testing.T) {
	c := ContestConfig{
		EntryFee:       5,
		FieldSize:      100,
		FieldSamplePct: 50,
		Payouts:        []PayoutTier{{MinRank: 0, MaxRank: 5, Payout: 10}},
	}
	assert.Error(t, c.Validate(), "ranks start at 1")

	c.Payouts = []PayoutTier{{MinRank: 5, MaxRank: 2, Payout: 10}}
	assert.Error(t, c.Validate(), "inverted tier must fail")

	c.Payouts = []PayoutTier{{MinRank: 1, MaxRank: 5, Payout: -1}}
	assert.Error(t, c.Validate(), "negative payout must fail")
}
