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
	"github.com/stitts-dev/nfl-roo-sim/internal/slatesim"
	"github.com/stitts-dev/nfl-roo-sim/internal/storage"
	"github.com/stitts-dev/nfl-roo-sim/internal/types"
	"github.com/stitts-dev/nfl-roo-sim/internal/volatility"
	"github.com/stitts-dev/nfl-roo-sim/internal/websocket"
)

// SimulationHandler serves full-slate contest simulation runs
type SimulationHandler struct {
	cfg    *config.Config
	store  *storage.RunStore
	cache  *cache.ProjectionsCache
	wsHub  *websocket.Hub
	logger *logrus.Logger
}

// NewSimulationHandler creates the contest simulation handler
func NewSimulationHandler(
	cfg *config.Config,
	store *storage.RunStore,
	projCache *cache.ProjectionsCache,
	wsHub *websocket.Hub,
	logger *logrus.Logger,
) *SimulationHandler {
	return &SimulationHandler{
		cfg:    cfg,
		store:  store,
		cache:  projCache,
		wsHub:  wsHub,
		logger: logger,
	}
}

// SimulationRequest carries the slate inputs plus the user lineups and the
// contest they are entered in
type SimulationRequest struct {
	Week     int                         `json:"week"`
	History  []types.PlayerHistoryRecord `json:"history" binding:"required"`
	Contexts []types.TeamMatchupContext  `json:"contexts" binding:"required"`
	PROE     []types.PROERecord          `json:"proe,omitempty"`
	Slate    []types.SlateEntry          `json:"slate" binding:"required"`
	Lineups  []types.Lineup              `json:"lineups" binding:"required"`
	Contest  types.ContestConfig         `json:"contest" binding:"required"`
	Params   *config.SimulationParams    `json:"params,omitempty"`
}

// SimulationResponse is the contest simulation deliverable
type SimulationResponse struct {
	RunID         string                `json:"run_id"`
	Week          int                   `json:"week"`
	Trials        int                   `json:"trials"`
	Seed          uint64                `json:"seed"`
	SimFieldSize  int                   `json:"sim_field_size"`
	Field         slatesim.FieldStats   `json:"field"`
	ExecutionTime string                `json:"execution_time"`
	Summaries     []types.LineupSummary `json:"summaries"`
}

// RunSimulation handles POST /api/v1/simulate
func (h *SimulationHandler) RunSimulation(c *gin.Context) {
	var req SimulationRequest
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
	if err := req.Contest.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "Invalid contest configuration",
			Code:    "INVALID_CONTEST",
			Details: map[string]string{"validation_error": err.Error()},
		})
		return
	}

	runID := uuid.New().String()
	ctx := c.Request.Context()

	if err := h.store.CreateRun(ctx, runID, storage.RunKindContest, req.Week, params); err != nil {
		h.logger.WithError(err).Warn("Failed to persist run header, continuing")
	}

	// progress fan-out to WebSocket subscribers for this run
	progressChan := make(chan types.ProgressUpdate, 100)
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		for update := range progressChan {
			h.wsHub.BroadcastToRun(runID, update)
		}
	}()

	start := time.Now()
	result, err := h.runContest(c, runID, params, req, progressChan)
	close(progressChan)
	<-progressDone
	if err != nil {
		h.store.FailRun(ctx, runID, err)
		c.JSON(http.StatusUnprocessableEntity, types.ErrorResponse{
			Error:   "Contest simulation failed",
			Code:    "SIMULATION_ERROR",
			Details: map[string]string{"error": err.Error()},
		})
		return
	}
	elapsed := time.Since(start)

	if err := h.store.SaveLineupResults(ctx, runID, result.Summaries); err != nil {
		h.logger.WithError(err).Warn("Failed to persist lineup results")
	}
	if err := h.store.CompleteRun(ctx, runID); err != nil {
		h.logger.WithError(err).Warn("Failed to mark run completed")
	}
	h.cache.SetLineupSummaries(ctx, runID, result.Summaries)

	h.wsHub.BroadcastToRun(runID, types.ProgressUpdate{
		RunID:     runID,
		Stage:     "completed",
		Completed: params.Trials,
		Total:     params.Trials,
	})

	h.logger.WithFields(logrus.Fields{
		"run_id":   runID,
		"lineups":  len(result.Summaries),
		"duration": elapsed,
	}).Info("Contest simulation completed")

	c.JSON(http.StatusOK, SimulationResponse{
		RunID:         runID,
		Week:          req.Week,
		Trials:        params.Trials,
		Seed:          params.Seed,
		SimFieldSize:  result.SimFieldSize,
		Field:         result.Field,
		ExecutionTime: elapsed.String(),
		Summaries:     result.Summaries,
	})
}

func (h *SimulationHandler) runContest(
	c *gin.Context,
	runID string,
	params config.SimulationParams,
	req SimulationRequest,
	progress chan<- types.ProgressUpdate,
) (*slatesim.Result, error) {
	profiles := volatility.NewEstimator(params).BuildProfiles(req.History)
	adjuster := matchup.NewAdjuster(params, req.Contexts, req.PROE)

	slate, err := roo.NewSlateBuilder(params).Build(req.Slate, profiles, adjuster, req.Contexts)
	if err != nil {
		return nil, err
	}
	envSim, err := slatesim.NewEnvironmentSimulator(params, req.Contexts, adjuster)
	if err != nil {
		return nil, err
	}
	sim, err := slatesim.NewSlateSimulator(params, slate, envSim)
	if err != nil {
		return nil, err
	}
	return sim.Run(c.Request.Context(), runID, req.Lineups, req.Contest, progress)
}

// GetResults handles GET /api/v1/simulate/:id/results
func (h *SimulationHandler) GetResults(c *gin.Context) {
	runID := c.Param("id")
	ctx := c.Request.Context()

	if summaries, ok := h.cache.GetLineupSummaries(ctx, runID); ok {
		c.JSON(http.StatusOK, gin.H{"run_id": runID, "summaries": summaries, "source": "cache"})
		return
	}

	run, err := h.store.GetRun(ctx, runID)
	if err != nil {
		c.JSON(http.StatusNotFound, types.ErrorResponse{
			Error: "Run not found",
			Code:  "RUN_NOT_FOUND",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "run": run, "source": "database"})
}
