package types

import (
	"fmt"
	"sort"
)

// Position represents a DraftKings NFL roster position
type Position string

const (
	PositionQB  Position = "QB"
	PositionRB  Position = "RB"
	PositionWR  Position = "WR"
	PositionTE  Position = "TE"
	PositionDST Position = "DST"
)

// FlexEligible reports whether a position can fill the FLEX slot
func (p Position) FlexEligible() bool {
	return p == PositionRB || p == PositionWR || p == PositionTE
}

// PlayerHistoryRecord is one realized (player, week) fantasy score
type PlayerHistoryRecord struct {
	Player   string   `json:"player"`
	Team     string   `json:"team"`
	Position Position `json:"position"`
	Week     int      `json:"week"`
	Points   float64  `json:"points"`
}

// PlayerVolatilityProfile holds historical scoring variability for one player.
// EffectiveStd is the post-fallback estimate and is always positive.
type PlayerVolatilityProfile struct {
	Player       string   `json:"player"`
	Team         string   `json:"team"`
	Position     Position `json:"position"`
	Games        int      `json:"hist_games"`
	MeanPts      float64  `json:"hist_mean_fpts"`
	StdPts       float64  `json:"hist_std_fpts"`
	EffectiveStd float64  `json:"effective_std_fpts"`
	CV           float64  `json:"hist_cv"`
	MinPts       float64  `json:"hist_min_fpts"`
	MaxPts       float64  `json:"hist_max_fpts"`
}

// EfficiencyMetrics are per-team offensive production rates, or for a
// defense, the same rates allowed to opponents
type EfficiencyMetrics struct {
	EPAPlay        float64 `json:"epa_play"`
	YardsPerPlay   float64 `json:"yards_per_play"`
	PointsPerDrive float64 `json:"points_per_drive"`
	ExplosiveRate  float64 `json:"explosive_rate"`
	ConversionRate float64 `json:"conversion_rate"`
}

// TeamMatchupContext describes a team's game environment for the current week.
// Spread is from the team's perspective (negative = favorite).
type TeamMatchupContext struct {
	Team         string            `json:"team"`
	Opponent     string            `json:"opponent"`
	GameTotal    float64           `json:"game_total"`
	ImpliedTotal float64           `json:"implied_total"`
	Spread       float64           `json:"spread"`
	Offense      EfficiencyMetrics `json:"offense"`
	OppDefense   EfficiencyMetrics `json:"opp_defense_allowed"`
}

// PROERecord is one team-week pass rate over expected observation
type PROERecord struct {
	Team string  `json:"team"`
	Week int     `json:"week"`
	PROE float64 `json:"proe"`
}

// SlateEntry is the current-week input for one player: salary, the external
// consensus median projection, and projected ownership percentage
type SlateEntry struct {
	Player           string   `json:"player"`
	Team             string   `json:"team"`
	Position         Position `json:"position"`
	Salary           int      `json:"salary"`
	MedianProjection float64  `json:"median_projection"`
	Ownership        float64  `json:"ownership"`
}

// PlayerProjectionRow is the per-player record consumed by the simulation
// engines. Constructed once per run, read-only afterwards.
type PlayerProjectionRow struct {
	Player           string   `json:"player"`
	Team             string   `json:"team"`
	Position         Position `json:"position"`
	Salary           int      `json:"salary"`
	Opponent         string   `json:"opponent"`
	ImpliedTotal     float64  `json:"implied_total"`
	Spread           float64  `json:"spread"`
	MedianProjection float64  `json:"median_projection"`
	Ownership        float64  `json:"ownership"`

	HistGames         int     `json:"hist_games"`
	HistMean          float64 `json:"hist_mean_fpts"`
	HistStd           float64 `json:"hist_std_fpts"`
	EffectiveStd      float64 `json:"effective_std_fpts"`
	MatchupMultiplier float64 `json:"matchup_vol_multiplier"`
	AdjStd            float64 `json:"adj_std"`
	MuLog             float64 `json:"mu_log"`
	SigmaLog          float64 `json:"sigma_log"`
}

// PercentileValue is one rung of the simulated percentile ladder
type PercentileValue struct {
	Pct   float64 `json:"pct"`
	Value float64 `json:"value"`
}

// ROOProjectionRow is the engine's deliverable: projection inputs plus the
// simulated percentile ladder and derived floor/ceiling
type ROOProjectionRow struct {
	PlayerProjectionRow
	Floor           float64           `json:"floor_proj"`
	Median          float64           `json:"median_proj"`
	Ceiling         float64           `json:"ceiling_proj"`
	VolatilityIndex float64           `json:"volatility_index"`
	Percentiles     []PercentileValue `json:"percentiles"`
}

// Lineup is a user-supplied DraftKings classic roster (9 slots)
type Lineup struct {
	QB   string `json:"qb"`
	RB1  string `json:"rb1"`
	RB2  string `json:"rb2"`
	WR1  string `json:"wr1"`
	WR2  string `json:"wr2"`
	WR3  string `json:"wr3"`
	TE   string `json:"te"`
	Flex string `json:"flex"`
	DST  string `json:"dst"`
}

// Players returns the lineup's nine player names in slot order
func (l Lineup) Players() [9]string {
	return [9]string{l.QB, l.RB1, l.RB2, l.WR1, l.WR2, l.WR3, l.TE, l.Flex, l.DST}
}

// LineupSummary aggregates one user lineup's results across all trials
type LineupSummary struct {
	LineupID   string  `json:"lineup_id"`
	Trials     int     `json:"trials"`
	MeanScore  float64 `json:"mean_score"`
	MeanProfit float64 `json:"mean_profit"`
	ROI        float64 `json:"roi"`
	CashProb   float64 `json:"cash_prob"`
	Top10Prob  float64 `json:"top10_prob"`
	Top1Prob   float64 `json:"top1_prob"`
	Top01Prob  float64 `json:"top01_prob"`
	MinProfit  float64 `json:"min_profit"`
	MaxProfit  float64 `json:"max_profit"`
}

// PayoutTier pays every rank in [MinRank, MaxRank] the same amount
type PayoutTier struct {
	MinRank int     `json:"min_rank"`
	MaxRank int     `json:"max_rank"`
	Payout  float64 `json:"payout"`
}

// ContestConfig describes the real contest the simulated field stands in for
type ContestConfig struct {
	EntryFee       float64      `json:"entry_fee"`
	FieldSize      int          `json:"field_size"`
	FieldSamplePct float64      `json:"field_sample_pct"`
	Payouts        []PayoutTier `json:"payouts"`
}

// Validate fails fast on malformed contest configuration
func (c ContestConfig) Validate() error {
	if c.EntryFee <= 0 {
		return fmt.Errorf("contest entry fee must be positive, got %.2f", c.EntryFee)
	}
	if c.FieldSize < 2 {
		return fmt.Errorf("contest field size must be at least 2, got %d", c.FieldSize)
	}
	if c.FieldSamplePct <= 0 || c.FieldSamplePct > 100 {
		return fmt.Errorf("field sample percentage must be in (0, 100], got %.2f", c.FieldSamplePct)
	}
	if len(c.Payouts) == 0 {
		return fmt.Errorf("contest payout structure is empty")
	}
	tiers := make([]PayoutTier, len(c.Payouts))
	copy(tiers, c.Payouts)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MinRank < tiers[j].MinRank })
	prevMax := 0
	for _, t := range tiers {
		if t.MinRank < 1 || t.MaxRank < t.MinRank {
			return fmt.Errorf("invalid payout tier ranks [%d, %d]", t.MinRank, t.MaxRank)
		}
		if t.MinRank <= prevMax {
			return fmt.Errorf("overlapping payout tiers at rank %d", t.MinRank)
		}
		if t.Payout < 0 {
			return fmt.Errorf("negative payout %.2f for ranks [%d, %d]", t.Payout, t.MinRank, t.MaxRank)
		}
		prevMax = t.MaxRank
	}
	return nil
}

// PayoutForRank looks up the payout for a finishing rank, zero outside the curve
func PayoutForRank(rank int, tiers []PayoutTier) float64 {
	for _, t := range tiers {
		if rank >= t.MinRank && rank <= t.MaxRank {
			return t.Payout
		}
	}
	return 0
}

// ProgressUpdate is pushed to subscribers while a long run executes
type ProgressUpdate struct {
	RunID     string `json:"run_id"`
	Stage     string `json:"stage"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

// ErrorResponse is the API error envelope
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}
