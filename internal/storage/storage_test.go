package storage

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transitscan/internal/timetable"
	"transitscan/internal/transit"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), discard)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedTimetable(t *testing.T) *timetable.Snapshot {
	t.Helper()
	tt := timetable.New(1, discard)
	w, err := tt.Writer()
	require.NoError(t, err)

	a := w.AddOrUpdateStop("korenmarkt", "Korenmarkt", 51.0546, 3.7217)
	b := w.AddOrUpdateStop("belfort", "Belfort", 51.0537, 3.7249)
	c := w.AddOrUpdateStop("sint-pieters", "Gent-Sint-Pieters", 51.0359, 3.7108)
	tram := w.AddOrUpdateTrip("tram-1", "Tram 1")
	bus := w.AddOrUpdateTrip("bus-3", "Bus 3")

	for _, conn := range []transit.Connection{
		{GlobalID: "tram-1/1", DepartureStop: a, ArrivalStop: b, DepartureTime: 1543939200, TravelTime: 120, Trip: tram},
		{GlobalID: "tram-1/2", DepartureStop: b, ArrivalStop: c, DepartureTime: 1543939320, TravelTime: 300, Trip: tram},
		{GlobalID: "bus-3/1", DepartureStop: c, ArrivalStop: a, DepartureTime: 1543939000, TravelTime: 600, Trip: bus, Mode: transit.ModeNoAlighting},
	} {
		_, err := w.AddOrUpdateConnection(conn)
		require.NoError(t, err)
	}
	late, ok := w.ConnectionByGlobalID("tram-1/2")
	require.True(t, ok)
	require.NoError(t, w.UpdateDelays(late.ID, 60, 90))
	return w.Close()
}

func TestOpen_Migrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path, discard)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Migrations must be safe to run again.
	db, err = Open(path, discard)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestOpen_Pragmas(t *testing.T) {
	db := openTestDB(t)

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var sync, fks int
	require.NoError(t, db.QueryRow("PRAGMA synchronous").Scan(&sync))
	assert.Equal(t, 1, sync, "NORMAL")
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fks))
	assert.Equal(t, 1, fks)

	assert.Equal(t, 1, db.Stats().MaxOpenConnections)
}

func TestMetadata(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	v, err := db.GetMetadata(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, db.SetMetadata(ctx, "realtime_timestamp", "1543939200"))
	require.NoError(t, db.SetMetadata(ctx, "realtime_timestamp", "1543939260"))
	v, err = db.GetMetadata(ctx, "realtime_timestamp")
	require.NoError(t, err)
	assert.Equal(t, "1543939260", v)
}

func TestSaveAndLoad(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	saved := seedTimetable(t)

	require.NoError(t, db.SaveSnapshot(ctx, saved))
	savedAt, err := db.GetMetadata(ctx, "saved_at")
	require.NoError(t, err)
	assert.NotEmpty(t, savedAt)

	loaded, err := db.Load(ctx, timetable.New(1, discard))
	require.NoError(t, err)

	assert.Equal(t, saved.Stops(), loaded.Stops())
	assert.Equal(t, saved.Trips(), loaded.Trips())
	assert.Equal(t, saved.Connections(), loaded.Connections())

	c, ok := loaded.ConnectionByGlobalID("tram-1/2")
	require.True(t, ok)
	assert.Equal(t, uint64(1543939380), c.DepartureTime)
	assert.Equal(t, uint16(60), c.DepartureDelay)
	assert.Equal(t, uint16(90), c.ArrivalDelay)
	assert.Equal(t, uint64(1543939320+300+90), c.ArrivalTime())

	c, ok = loaded.ConnectionByGlobalID("bus-3/1")
	require.True(t, ok)
	assert.False(t, c.CanGetOff())
}

func TestSaveSnapshot_Replaces(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveSnapshot(ctx, seedTimetable(t)))

	tt := timetable.New(1, discard)
	w, err := tt.Writer()
	require.NoError(t, err)
	w.AddOrUpdateStop("dampoort", "Gent-Dampoort", 51.0560, 3.7400)
	require.NoError(t, db.SaveSnapshot(ctx, w.Close()))

	loaded, err := db.Load(ctx, timetable.New(1, discard))
	require.NoError(t, err)
	require.Len(t, loaded.Stops(), 1)
	assert.Equal(t, "dampoort", loaded.Stops()[0].GlobalID)
	assert.Empty(t, loaded.Connections())
}

func TestLoad_WriterBusy(t *testing.T) {
	db := openTestDB(t)
	tt := timetable.New(1, discard)
	w, err := tt.Writer()
	require.NoError(t, err)
	defer w.Abort()

	_, err = db.Load(context.Background(), tt)
	assert.ErrorIs(t, err, timetable.ErrWriterActive)
}
