package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/szurutag/internal/history"
	"github.com/xxxsen/szurutag/internal/model"
	"github.com/xxxsen/szurutag/internal/pkg/response"
)

const recentRunLimit = 20

// StatsHandler exposes process-lifetime tagging counters and, when a history
// store is configured, the most recent runs.
type StatsHandler struct {
	stats   *model.AtomicStats
	history *history.Store
}

func NewStatsHandler(stats *model.AtomicStats, hist *history.Store) *StatsHandler {
	return &StatsHandler{stats: stats, history: hist}
}

func (h *StatsHandler) Get(c *gin.Context) {
	out := gin.H{"totals": h.stats.Snapshot()}
	if h.history != nil {
		runs, err := h.history.RecentRuns(c.Request.Context(), recentRunLimit)
		if err != nil {
			handleError(c, err)
			return
		}
		out["recent_runs"] = runs
	}
	response.Success(c, out)
}
