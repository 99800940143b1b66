package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"transitscan/internal/timetable"
)

// Fetcher polls a GTFS-RT TripUpdates feed and applies it to a timetable.
type Fetcher struct {
	url      string
	interval time.Duration
	tt       *timetable.DB
	store    *Store
	client   *http.Client
	logger   *slog.Logger

	// OnPublish, if set, is called with every snapshot the fetcher publishes.
	OnPublish func(ctx context.Context, s *timetable.Snapshot)
}

// NewFetcher creates a GTFS-RT feed fetcher.
func NewFetcher(url string, interval time.Duration, tt *timetable.DB, store *Store, logger *slog.Logger) *Fetcher {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Fetcher{
		url:      url,
		interval: interval,
		tt:       tt,
		store:    store,
		client:   &http.Client{Timeout: 15 * time.Second},
		logger:   logger,
	}
}

// Start begins polling the feed. Blocks until context is cancelled.
func (f *Fetcher) Start(ctx context.Context) {
	// Fetch immediately on start
	f.poll(ctx)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.poll(ctx)
		case <-ctx.Done():
			f.logger.Info("GTFS-RT fetcher stopped")
			return
		}
	}
}

func (f *Fetcher) poll(ctx context.Context) {
	feed, err := f.fetch(ctx)
	if err != nil {
		f.logger.Warn("fetch trip updates failed", "error", err)
		f.store.SetError(err)
		return
	}
	if _, err := f.Apply(ctx, feed); err != nil {
		f.logger.Warn("apply trip updates failed", "error", err)
		f.store.SetError(err)
	}
}

func (f *Fetcher) fetch(ctx context.Context) (*gtfs.FeedMessage, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, fmt.Errorf("parse protobuf: %w", err)
	}
	return feed, nil
}

// Apply writes the delays of feed into the timetable and publishes a new
// snapshot. A feed that matches no trip publishes nothing.
func (f *Fetcher) Apply(ctx context.Context, feed *gtfs.FeedMessage) (UpdateResult, error) {
	w, err := f.tt.Writer()
	if errors.Is(err, timetable.ErrWriterActive) {
		// Someone else is writing; the next poll catches up.
		f.logger.Debug("timetable busy, skipping trip updates")
		return UpdateResult{}, nil
	}
	if err != nil {
		return UpdateResult{}, err
	}

	res, err := ApplyTripUpdates(feed, w)
	if err != nil {
		w.Abort()
		return res, err
	}

	ts := time.Unix(int64(feed.GetHeader().GetTimestamp()), 0).UTC()
	f.store.SetApplied(ts, res)
	if res.Trips == 0 {
		w.Abort()
		return res, nil
	}

	s := w.Close()
	f.logger.Info("GTFS-RT trip updates applied",
		"trips", res.Trips,
		"connections", res.Connections,
		"unknown", res.Unknown,
		"skipped", res.Skipped,
	)
	if f.OnPublish != nil {
		f.OnPublish(ctx, s)
	}
	return res, nil
}
