package slatesim

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"

	"github.com/stitts-dev/nfl-roo-sim/internal/config"
	"github.com/stitts-dev/nfl-roo-sim/internal/roo"
	"github.com/stitts-dev/nfl-roo-sim/internal/types"
	"github.com/stitts-dev/nfl-roo-sim/pkg/logger"
)

// Attempts allowed per requested field lineup before giving up
const attemptsPerLineup = 5

// FieldLineup is one opponent roster as slate IDs, slot order
// QB RB RB WR WR WR TE FLEX DST
type FieldLineup [9]int32

// FieldStats reports how field generation went
type FieldStats struct {
	Requested int `json:"requested"`
	Generated int `json:"generated"`
	Attempts  int `json:"attempts"`
}

// FieldGenerator builds ownership-weighted opponent lineups. Players are
// drawn per position slot with probability proportional to projected
// ownership; a lineup is kept only if it fits the salary cap with no
// duplicate players.
type FieldGenerator struct {
	salaryCap int
	salaries  []int

	qbPool   weightedPool
	rbPool   weightedPool
	wrPool   weightedPool
	tePool   weightedPool
	dstPool  weightedPool
	flexPool weightedPool

	log *logrus.Entry
}

// weightedPool supports O(log n) ownership-proportional sampling via a
// cumulative weight array
type weightedPool struct {
	ids    []int32
	cumWts []float64
	total  float64
}

func buildPool(rows []types.PlayerProjectionRow, keep func(types.Position) bool) weightedPool {
	var p weightedPool
	for id, row := range rows {
		if !keep(row.Position) || row.Ownership <= 0 {
			continue
		}
		p.total += row.Ownership
		p.ids = append(p.ids, int32(id))
		p.cumWts = append(p.cumWts, p.total)
	}
	return p
}

func (p *weightedPool) empty() bool { return len(p.ids) == 0 }

func (p *weightedPool) sample(rng *rand.Rand) int32 {
	x := rng.Float64() * p.total
	lo, hi := 0, len(p.cumWts)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if p.cumWts[mid] < x {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return p.ids[lo]
}

// NewFieldGenerator prepares ownership pools from the slate. Every roster
// slot must have at least one owned candidate or no legal lineup exists.
func NewFieldGenerator(params config.SimulationParams, slate *roo.Slate) (*FieldGenerator, error) {
	g := &FieldGenerator{
		salaryCap: params.SalaryCap,
		salaries:  make([]int, slate.Len()),
		log:       logger.WithComponent("field_generator"),
	}
	for id, row := range slate.Rows {
		g.salaries[id] = row.Salary
	}

	is := func(want types.Position) func(types.Position) bool {
		return func(p types.Position) bool { return p == want }
	}
	g.qbPool = buildPool(slate.Rows, is(types.PositionQB))
	g.rbPool = buildPool(slate.Rows, is(types.PositionRB))
	g.wrPool = buildPool(slate.Rows, is(types.PositionWR))
	g.tePool = buildPool(slate.Rows, is(types.PositionTE))
	g.dstPool = buildPool(slate.Rows, is(types.PositionDST))
	g.flexPool = buildPool(slate.Rows, types.Position.FlexEligible)

	for _, check := range []struct {
		name string
		pool *weightedPool
	}{
		{"QB", &g.qbPool}, {"RB", &g.rbPool}, {"WR", &g.wrPool},
		{"TE", &g.tePool}, {"DST", &g.dstPool},
	} {
		if check.pool.empty() {
			return nil, fmt.Errorf("no owned %s candidates on slate, cannot generate field", check.name)
		}
	}
	if len(g.rbPool.ids) < 2 {
		return nil, fmt.Errorf("need at least 2 owned RBs to generate field, have %d", len(g.rbPool.ids))
	}
	if len(g.wrPool.ids) < 3 {
		return nil, fmt.Errorf("need at least 3 owned WRs to generate field, have %d", len(g.wrPool.ids))
	}

	return g, nil
}

// Generate draws up to count field lineups within a bounded attempt budget.
// On thin slates the achieved field can come up short; the shortfall is
// logged and reflected in FieldStats rather than treated as an error.
func (g *FieldGenerator) Generate(rng *rand.Rand, count int) ([]FieldLineup, FieldStats) {
	lineups := make([]FieldLineup, 0, count)
	stats := FieldStats{Requested: count}
	maxAttempts := count * attemptsPerLineup

	for len(lineups) < count && stats.Attempts < maxAttempts {
		stats.Attempts++
		lu, ok := g.tryLineup(rng)
		if ok {
			lineups = append(lineups, lu)
		}
	}
	stats.Generated = len(lineups)

	if stats.Generated < stats.Requested {
		g.log.WithFields(logrus.Fields{
			"requested": stats.Requested,
			"generated": stats.Generated,
			"attempts":  stats.Attempts,
		}).Warn("Field generation fell short of requested size")
	}
	return lineups, stats
}

func (g *FieldGenerator) tryLineup(rng *rand.Rand) (FieldLineup, bool) {
	var lu FieldLineup
	used := make(map[int32]bool, 9)

	draw := func(slot int, pool *weightedPool) bool {
		// a few redraws tolerate duplicate hits inside one position pool
		for attempt := 0; attempt < 10; attempt++ {
			id := pool.sample(rng)
			if !used[id] {
				used[id] = true
				lu[slot] = id
				return true
			}
		}
		return false
	}

	if !draw(0, &g.qbPool) ||
		!draw(1, &g.rbPool) || !draw(2, &g.rbPool) ||
		!draw(3, &g.wrPool) || !draw(4, &g.wrPool) || !draw(5, &g.wrPool) ||
		!draw(6, &g.tePool) ||
		!draw(7, &g.flexPool) ||
		!draw(8, &g.dstPool) {
		return lu, false
	}

	salary := 0
	for _, id := range lu {
		salary += g.salaries[id]
	}
	if salary > g.salaryCap {
		return lu, false
	}
	return lu, true
}
