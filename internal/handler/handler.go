package handler

import (
	"log/slog"
	"time"

	"github.com/bluele/gcache"

	"transitscan/internal/config"
	"transitscan/internal/csa"
	"transitscan/internal/journey"
	"transitscan/internal/realtime"
	"transitscan/internal/timetable"
)

const (
	resultCacheSize = 512
	resultCacheTTL  = 2 * time.Minute
	defaultWindow   = 2 * time.Hour
	// nearestStopMeters bounds the search when a place is given as coordinates.
	nearestStopMeters = 1000
)

// Handler holds shared dependencies for all HTTP handlers.
type Handler struct {
	tt      *timetable.DB
	profile *csa.Profile[journey.TransferMetric]
	rt      *realtime.Store
	cfg     *config.Config
	logger  *slog.Logger
	results gcache.Cache // planner responses keyed by request and snapshot
	now     func() time.Time
}

// New creates a Handler. rt may be nil when no realtime feed is configured.
func New(tt *timetable.DB, profile *csa.Profile[journey.TransferMetric], rt *realtime.Store, cfg *config.Config, logger *slog.Logger) *Handler {
	return &Handler{
		tt:      tt,
		profile: profile,
		rt:      rt,
		cfg:     cfg,
		logger:  logger,
		results: gcache.New(resultCacheSize).LRU().Expiration(resultCacheTTL).Build(),
		now:     time.Now,
	}
}
