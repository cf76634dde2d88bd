package roo

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/nfl-roo-sim/internal/config"
	"github.com/stitts-dev/nfl-roo-sim/internal/distribution"
	"github.com/stitts-dev/nfl-roo-sim/internal/matchup"
	"github.com/stitts-dev/nfl-roo-sim/internal/types"
	"github.com/stitts-dev/nfl-roo-sim/internal/volatility"
	"github.com/stitts-dev/nfl-roo-sim/pkg/logger"
)

var positionOrder = map[types.Position]int{
	types.PositionQB:  1,
	types.PositionRB:  2,
	types.PositionWR:  3,
	types.PositionTE:  4,
	types.PositionDST: 5,
}

// Slate is the assembled current-week player pool with a dense integer ID
// space. Player IDs are row indices; the trial loops do array indexing with
// them instead of name-keyed lookups.
type Slate struct {
	Rows     []types.PlayerProjectionRow
	idByName map[string]int
}

// Len returns the number of players on the slate
func (s *Slate) Len() int { return len(s.Rows) }

// IndexOf resolves a player name to its slate ID
func (s *Slate) IndexOf(name string) (int, bool) {
	id, ok := s.idByName[name]
	return id, ok
}

// SlateBuilder joins slate entries, volatility profiles, and matchup
// contexts into PlayerProjectionRows. The join is total: every retained
// entry resolves to a complete row via the documented fallback chain.
type SlateBuilder struct {
	params config.SimulationParams
	dist   *distribution.Builder
	log    *logrus.Entry
}

// NewSlateBuilder creates a slate builder from simulation parameters
func NewSlateBuilder(params config.SimulationParams) *SlateBuilder {
	return &SlateBuilder{
		params: params,
		dist:   distribution.NewBuilder(params),
		log:    logger.WithComponent("slate_builder"),
	}
}

// Build assembles the slate. Players with a non-positive median projection
// are excluded up front, never assigned a floor distribution, so every
// retained row has valid lognormal parameters.
func (b *SlateBuilder) Build(
	entries []types.SlateEntry,
	profiles *volatility.ProfileSet,
	adjuster *matchup.Adjuster,
	contexts []types.TeamMatchupContext,
) (*Slate, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("slate is empty")
	}

	ctxByTeam := make(map[string]types.TeamMatchupContext, len(contexts))
	for _, c := range contexts {
		ctxByTeam[c.Team] = c
	}

	rows := make([]types.PlayerProjectionRow, 0, len(entries))
	excluded, missingProfile, missingContext := 0, 0, 0

	for _, e := range entries {
		if e.MedianProjection <= 0 {
			excluded++
			continue
		}
		pos := e.Position
		if pos == "D" {
			// DraftKings exports defenses as "D"
			pos = types.PositionDST
		}

		profile, ok := profiles.Lookup(e.Player, e.Team, pos)
		if !ok {
			profile, ok = profiles.LookupByTeamPosition(e.Team, pos)
		}
		if !ok {
			profile = profiles.FallbackProfile(e.Player, e.Team, pos)
			missingProfile++
		}

		row := types.PlayerProjectionRow{
			Player:           e.Player,
			Team:             e.Team,
			Position:         pos,
			Salary:           e.Salary,
			MedianProjection: e.MedianProjection,
			Ownership:        e.Ownership,
			HistGames:        profile.Games,
			HistMean:         profile.MeanPts,
			HistStd:          profile.StdPts,
			EffectiveStd:     profile.EffectiveStd,
		}

		row.MatchupMultiplier = 1.0
		if ctx, ok := ctxByTeam[e.Team]; ok {
			row.Opponent = ctx.Opponent
			row.ImpliedTotal = ctx.ImpliedTotal
			row.Spread = ctx.Spread
			row.MatchupMultiplier = adjuster.Multiplier(ctx)
		} else {
			missingContext++
		}

		row.AdjStd = b.dist.AdjustedStd(row.EffectiveStd, row.MatchupMultiplier)
		row.MuLog, row.SigmaLog = b.dist.Params(row.MedianProjection, row.AdjStd)

		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("no players with positive projections on slate (%d excluded)", excluded)
	}

	sort.Slice(rows, func(i, j int) bool {
		pi, pj := positionOrder[rows[i].Position], positionOrder[rows[j].Position]
		if pi != pj {
			return pi < pj
		}
		if rows[i].Salary != rows[j].Salary {
			return rows[i].Salary > rows[j].Salary
		}
		return rows[i].Player < rows[j].Player
	})

	idByName := make(map[string]int, len(rows))
	for i, r := range rows {
		if _, dup := idByName[r.Player]; dup {
			return nil, fmt.Errorf("duplicate player name on slate: %q", r.Player)
		}
		idByName[r.Player] = i
	}

	b.log.WithFields(logrus.Fields{
		"players":         len(rows),
		"excluded":        excluded,
		"missing_profile": missingProfile,
		"missing_context": missingContext,
	}).Info("Assembled slate")

	return &Slate{Rows: rows, idByName: idByName}, nil
}
