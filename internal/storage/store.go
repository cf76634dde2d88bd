package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/stitts-dev/nfl-roo-sim/internal/config"
	"github.com/stitts-dev/nfl-roo-sim/internal/types"
	"github.com/stitts-dev/nfl-roo-sim/pkg/logger"
)

// RunStore persists simulation runs and their results. A nil RunStore is a
// valid no-op: the service runs memory-only when no database is configured.
type RunStore struct {
	db  *DB
	log *logrus.Entry
}

// NewRunStore wraps a database handle; returns nil for a nil handle so
// callers can pass the store around without nil checks at every site
func NewRunStore(db *DB) *RunStore {
	if db == nil {
		return nil
	}
	return &RunStore{
		db:  db,
		log: logger.WithComponent("run_store"),
	}
}

// CreateRun inserts a run in running state
func (s *RunStore) CreateRun(ctx context.Context, runID, kind string, week int, params config.SimulationParams) error {
	if s == nil {
		return nil
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal run params: %w", err)
	}
	run := SimulationRun{
		ID:     runID,
		Kind:   kind,
		Status: RunStatusRunning,
		Week:   week,
		Trials: params.Trials,
		Seed:   params.Seed,
		Params: datatypes.JSON(paramsJSON),
	}
	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		return fmt.Errorf("failed to create run %s: %w", runID, err)
	}
	return nil
}

// CompleteRun marks a run completed
func (s *RunStore) CompleteRun(ctx context.Context, runID string) error {
	if s == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&SimulationRun{}).
		Where("id = ?", runID).
		Updates(map[string]interface{}{"status": RunStatusCompleted, "updated_at": time.Now().UTC()}).Error
}

// FailRun marks a run failed with the error message
func (s *RunStore) FailRun(ctx context.Context, runID string, runErr error) error {
	if s == nil {
		return nil
	}
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	return s.db.WithContext(ctx).
		Model(&SimulationRun{}).
		Where("id = ?", runID).
		Updates(map[string]interface{}{"status": RunStatusFailed, "error": msg, "updated_at": time.Now().UTC()}).Error
}

// SaveROOProjections persists the full projection table for a run
func (s *RunStore) SaveROOProjections(ctx context.Context, runID string, rows []types.ROOProjectionRow) error {
	if s == nil {
		return nil
	}
	records := make([]ROOProjectionRecord, 0, len(rows))
	for _, row := range rows {
		detail, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to marshal projection for %q: %w", row.Player, err)
		}
		records = append(records, ROOProjectionRecord{
			RunID:            runID,
			Player:           row.Player,
			Team:             row.Team,
			Position:         string(row.Position),
			Salary:           row.Salary,
			MedianProjection: row.MedianProjection,
			Floor:            row.Floor,
			Ceiling:          row.Ceiling,
			VolatilityIndex:  row.VolatilityIndex,
			Detail:           datatypes.JSON(detail),
		})
	}
	if err := s.db.WithContext(ctx).CreateInBatches(records, 200).Error; err != nil {
		return fmt.Errorf("failed to save projections for run %s: %w", runID, err)
	}
	s.log.WithFields(logrus.Fields{"run_id": runID, "rows": len(records)}).Info("Persisted ROO projections")
	return nil
}

// SaveLineupResults persists the contest summaries for a run
func (s *RunStore) SaveLineupResults(ctx context.Context, runID string, summaries []types.LineupSummary) error {
	if s == nil {
		return nil
	}
	records := make([]LineupResultRecord, 0, len(summaries))
	for _, sum := range summaries {
		detail, err := json.Marshal(sum)
		if err != nil {
			return fmt.Errorf("failed to marshal summary for %q: %w", sum.LineupID, err)
		}
		records = append(records, LineupResultRecord{
			RunID:      runID,
			LineupID:   sum.LineupID,
			MeanScore:  sum.MeanScore,
			MeanProfit: sum.MeanProfit,
			ROI:        sum.ROI,
			CashProb:   sum.CashProb,
			Top10Prob:  sum.Top10Prob,
			Top1Prob:   sum.Top1Prob,
			Detail:     datatypes.JSON(detail),
		})
	}
	if err := s.db.WithContext(ctx).CreateInBatches(records, 200).Error; err != nil {
		return fmt.Errorf("failed to save lineup results for run %s: %w", runID, err)
	}
	s.log.WithFields(logrus.Fields{"run_id": runID, "lineups": len(records)}).Info("Persisted lineup results")
	return nil
}

// GetRun fetches a run header by ID
func (s *RunStore) GetRun(ctx context.Context, runID string) (*SimulationRun, error) {
	if s == nil {
		return nil, fmt.Errorf("run persistence is not configured")
	}
	var run SimulationRun
	if err := s.db.WithContext(ctx).First(&run, "id = ?", runID).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// GetROOProjections fetches the persisted projection table for a run
func (s *RunStore) GetROOProjections(ctx context.Context, runID string) ([]ROOProjectionRecord, error) {
	if s == nil {
		return nil, fmt.Errorf("run persistence is not configured")
	}
	var records []ROOProjectionRecord
	err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("position, salary desc, player").
		Find(&records).Error
	return records, err
}

// ListRuns returns the most recent runs, newest first
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]SimulationRun, error) {
	if s == nil {
		return nil, fmt.Errorf("run persistence is not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	var runs []SimulationRun
	err := s.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&runs).Error
	return runs, err
}
