package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/nfl-roo-sim/internal/cache"
	"github.com/stitts-dev/nfl-roo-sim/internal/config"
	"github.com/stitts-dev/nfl-roo-sim/internal/matchup"
	"github.com/stitts-dev/nfl-roo-sim/internal/roo"
	"github.com/stitts-dev/nfl-roo-sim/internal/storage"
	"github.com/stitts-dev/nfl-roo-sim/internal/types"
	"github.com/stitts-dev/nfl-roo-sim/internal/volatility"
	"github.com/stitts-dev/nfl-roo-sim/internal/websocket"
)

// ROOHandler serves range-of-outcomes projection runs
type ROOHandler struct {
	cfg    *config.Config
	store  *storage.RunStore
	cache  *cache.ProjectionsCache
	wsHub  *websocket.Hub
	logger *logrus.Logger
}

// NewROOHandler creates the projections handler
func NewROOHandler(
	cfg *config.Config,
	store *storage.RunStore,
	projCache *cache.ProjectionsCache,
	wsHub *websocket.Hub,
	logger *logrus.Logger,
) *ROOHandler {
	return &ROOHandler{
		cfg:    cfg,
		store:  store,
		cache:  projCache,
		wsHub:  wsHub,
		logger: logger,
	}
}

// ROORequest carries everything a projection run needs: player history for
// volatility, matchup contexts, pass tendencies, and the current slate
type ROORequest struct {
	Week     int                         `json:"week"`
	History  []types.PlayerHistoryRecord `json:"history" binding:"required"`
	Contexts []types.TeamMatchupContext  `json:"contexts" binding:"required"`
	PROE     []types.PROERecord          `json:"proe,omitempty"`
	Slate    []types.SlateEntry          `json:"slate" binding:"required"`
	Params   *config.SimulationParams    `json:"params,omitempty"`
}

// ROOResponse is the projection run deliverable
type ROOResponse struct {
	RunID         string                   `json:"run_id"`
	Week          int                      `json:"week"`
	Trials        int                      `json:"trials"`
	Seed          uint64                   `json:"seed"`
	Players       int                      `json:"players"`
	ExecutionTime string                   `json:"execution_time"`
	Projections   []types.ROOProjectionRow `json:"projections"`
}

// RunProjections handles POST /api/v1/roo
func (h *ROOHandler) RunProjections(c *gin.Context) {
	var req ROORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "Invalid request format",
			Code:    "INVALID_REQUEST",
			Details: map[string]string{"validation_error": err.Error()},
		})
		return
	}

	params := h.cfg.Sim
	if req.Params != nil {
		params = *req.Params
	}
	if err := params.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "Invalid simulation parameters",
			Code:    "INVALID_PARAMS",
			Details: map[string]string{"validation_error": err.Error()},
		})
		return
	}

	runID := uuid.New().String()
	ctx := c.Request.Context()

	if err := h.store.CreateRun(ctx, runID, storage.RunKindROO, req.Week, params); err != nil {
		h.logger.WithError(err).Warn("Failed to persist run header, continuing")
	}

	start := time.Now()
	rows, err := h.runPipeline(c, params, req)
	if err != nil {
		h.store.FailRun(ctx, runID, err)
		c.JSON(http.StatusUnprocessableEntity, types.ErrorResponse{
			Error:   "Projection run failed",
			Code:    "ROO_ERROR",
			Details: map[string]string{"error": err.Error()},
		})
		return
	}
	elapsed := time.Since(start)

	if err := h.store.SaveROOProjections(ctx, runID, rows); err != nil {
		h.logger.WithError(err).Warn("Failed to persist projections")
	}
	if err := h.store.CompleteRun(ctx, runID); err != nil {
		h.logger.WithError(err).Warn("Failed to mark run completed")
	}
	h.cache.SetROOProjections(ctx, runID, rows)

	h.wsHub.BroadcastToRun(runID, types.ProgressUpdate{
		RunID:     runID,
		Stage:     "completed",
		Completed: params.Trials,
		Total:     params.Trials,
	})

	h.logger.WithFields(logrus.Fields{
		"run_id":   runID,
		"players":  len(rows),
		"duration": elapsed,
	}).Info("Projection run completed")

	c.JSON(http.StatusOK, ROOResponse{
		RunID:         runID,
		Week:          req.Week,
		Trials:        params.Trials,
		Seed:          params.Seed,
		Players:       len(rows),
		ExecutionTime: elapsed.String(),
		Projections:   rows,
	})
}

func (h *ROOHandler) runPipeline(c *gin.Context, params config.SimulationParams, req ROORequest) ([]types.ROOProjectionRow, error) {
	profiles := volatility.NewEstimator(params).BuildProfiles(req.History)
	adjuster := matchup.NewAdjuster(params, req.Contexts, req.PROE)

	slate, err := roo.NewSlateBuilder(params).Build(req.Slate, profiles, adjuster, req.Contexts)
	if err != nil {
		return nil, err
	}
	engine, err := roo.NewEngine(params)
	if err != nil {
		return nil, err
	}
	return engine.Run(c.Request.Context(), slate)
}

// GetProjections handles GET /api/v1/roo/:id, serving from cache when warm
func (h *ROOHandler) GetProjections(c *gin.Context) {
	runID := c.Param("id")
	ctx := c.Request.Context()

	if rows, ok := h.cache.GetROOProjections(ctx, runID); ok {
		c.JSON(http.StatusOK, gin.H{"run_id": runID, "projections": rows, "source": "cache"})
		return
	}

	records, err := h.store.GetROOProjections(ctx, runID)
	if err != nil || len(records) == 0 {
		c.JSON(http.StatusNotFound, types.ErrorResponse{
			Error: "Run not found",
			Code:  "RUN_NOT_FOUND",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "projections": records, "source": "database"})
}

// ListRuns handles GET /api/v1/runs
func (h *ROOHandler) ListRuns(c *gin.Context) {
	runs, err := h.store.ListRuns(c.Request.Context(), 50)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{
			Error:   "Run history unavailable",
			Code:    "STORE_UNAVAILABLE",
			Details: map[string]string{"error": err.Error()},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
