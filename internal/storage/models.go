package storage

import (
	"time"

	"gorm.io/datatypes"
)

// Run kinds persisted in simulation_runs
const (
	RunKindROO     = "roo"
	RunKindContest = "contest"
)

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// SimulationRun is one projection or contest simulation execution
type SimulationRun struct {
	ID        string         `gorm:"primaryKey;size:64" json:"id"`
	Kind      string         `gorm:"size:16;index" json:"kind"`
	Status    string         `gorm:"size:16;index" json:"status"`
	Week      int            `json:"week"`
	Trials    int            `json:"trials"`
	Seed      uint64         `json:"seed"`
	Params    datatypes.JSON `json:"params"`
	Error     string         `gorm:"size:1024" json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ROOProjectionRecord is one player's persisted range-of-outcomes row
type ROOProjectionRecord struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	RunID    string `gorm:"size:64;index" json:"run_id"`
	Player   string `gorm:"size:128;index" json:"player"`
	Team     string `gorm:"size:8" json:"team"`
	Position string `gorm:"size:8" json:"position"`
	Salary   int    `json:"salary"`

	MedianProjection float64 `json:"median_projection"`
	Floor            float64 `json:"floor_proj"`
	Ceiling          float64 `json:"ceiling_proj"`
	VolatilityIndex  float64 `json:"volatility_index"`

	// full row including the percentile ladder
	Detail datatypes.JSON `json:"detail"`

	CreatedAt time.Time `json:"created_at"`
}

// LineupResultRecord is one user lineup's persisted contest summary
type LineupResultRecord struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	RunID    string `gorm:"size:64;index" json:"run_id"`
	LineupID string `gorm:"size:64" json:"lineup_id"`

	MeanScore  float64 `json:"mean_score"`
	MeanProfit float64 `json:"mean_profit"`
	ROI        float64 `json:"roi"`
	CashProb   float64 `json:"cash_prob"`
	Top10Prob  float64 `json:"top10_prob"`
	Top1Prob   float64 `json:"top1_prob"`

	Detail datatypes.JSON `json:"detail"`

	CreatedAt time.Time `json:"created_at"`
}
