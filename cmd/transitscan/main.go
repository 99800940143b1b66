package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"transitscan/internal/config"
	"transitscan/internal/handler"
	"transitscan/internal/realtime"
	"transitscan/internal/server"
	"transitscan/internal/storage"
	"transitscan/internal/timetable"
)

func main() {
	cfg := config.Load()

	// CLI flags
	checkOnly := flag.Bool("check-profile", false, "Validate the routing profile, then exit")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite timetable database")
	flag.StringVar(&cfg.ProfilePath, "profile", cfg.ProfilePath, "YAML routing profile")
	flag.StringVar(&cfg.RealtimeURL, "realtime-url", cfg.RealtimeURL, "GTFS-RT TripUpdates feed")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	profileCfg, err := config.LoadProfile(cfg.ProfilePath)
	if err != nil {
		logger.Error("failed to load routing profile", "error", err)
		os.Exit(1)
	}
	if *checkOnly {
		logger.Info("routing profile ok", "path", cfg.ProfilePath)
		return
	}
	profile := profileCfg.Build()

	// Graceful shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(cfg.DBPath, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	tt := timetable.New(uint32(cfg.DatabaseID), logger)

	var rtStore *realtime.Store
	if cfg.RealtimeURL != "" {
		rtStore = realtime.NewStore()
	}

	h := handler.New(tt, profile, rtStore, cfg, logger)
	srv := server.New(cfg, tt, h, logger)

	// Load the stored timetable in the background; the server answers 503
	// until it is there.
	go func() {
		if _, err := db.Load(ctx, tt); err != nil {
			logger.Error("failed to load timetable", "error", err)
			return
		}
		srv.SetReady()

		if rtStore == nil {
			return
		}
		fetcher := realtime.NewFetcher(cfg.RealtimeURL, cfg.RealtimePoll, tt, rtStore, logger)
		fetcher.OnPublish = func(ctx context.Context, s *timetable.Snapshot) {
			if err := db.SaveSnapshot(ctx, s); err != nil {
				logger.Error("failed to persist timetable", "error", err)
				return
			}
			ts := rtStore.Status().FeedTimestamp.Unix()
			if err := db.SetMetadata(ctx, "realtime_timestamp", strconv.FormatInt(ts, 10)); err != nil {
				logger.Warn("failed to record feed timestamp", "error", err)
			}
		}
		fetcher.Start(ctx)
	}()

	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
