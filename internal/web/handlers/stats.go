package handlers

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/kozaktomas/xiangxin/internal/database"
	"github.com/kozaktomas/xiangxin/internal/logger"
)

const statsCacheTTL = 30 * time.Second

// statsCache holds cached stats with expiry
type statsCache struct {
	mu        sync.RWMutex
	data      *database.RunStats
	expiresAt time.Time
}

func (c *statsCache) get() (*database.RunStats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.data == nil || time.Now().After(c.expiresAt) {
		return nil, false
	}
	return c.data, true
}

func (c *statsCache) set(data *database.RunStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = data
	c.expiresAt = time.Now().Add(statsCacheTTL)
}

func (c *statsCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
}

// StatsHandler serves the analysis run log
type StatsHandler struct {
	runs  database.RunReader
	cache statsCache
}

// NewStatsHandler creates a new stats handler. runs may be nil when no
// database is configured.
func NewStatsHandler(runs database.RunReader) *StatsHandler {
	return &StatsHandler{runs: runs}
}

// InvalidateCache clears the cached stats so the next request fetches fresh data
func (h *StatsHandler) InvalidateCache() {
	h.cache.invalidate()
}

// Get returns aggregated run statistics.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		respondError(w, http.StatusServiceUnavailable, "run log is not configured")
		return
	}

	if cached, ok := h.cache.get(); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	stats, err := h.runs.Stats(r.Context())
	if err != nil {
		logger.WithError(err).Error("failed to load run stats")
		respondError(w, http.StatusInternalServerError, "failed to load run stats")
		return
	}

	h.cache.set(stats)
	respondJSON(w, http.StatusOK, stats)
}

// Recent returns the latest runs, newest first.
func (h *StatsHandler) Recent(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		respondError(w, http.StatusServiceUnavailable, "run log is not configured")
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 500 {
			respondError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	runs, err := h.runs.Recent(r.Context(), limit)
	if err != nil {
		logger.WithError(err).Error("failed to load recent runs")
		respondError(w, http.StatusInternalServerError, "failed to load recent runs")
		return
	}
	if runs == nil {
		runs = []database.AnalysisRun{}
	}

	respondJSON(w, http.StatusOK, runs)
}
