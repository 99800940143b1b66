package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transitscan/internal/config"
	"transitscan/internal/csa"
	"transitscan/internal/handler"
	"transitscan/internal/timetable"
	"transitscan/internal/transit"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func loadedTimetable(t *testing.T) *timetable.DB {
	t.Helper()
	tt := timetable.New(1, discard)
	w, err := tt.Writer()
	require.NoError(t, err)
	a := w.AddOrUpdateStop("korenmarkt", "Korenmarkt", 51.0546, 3.7217)
	b := w.AddOrUpdateStop("sint-pieters", "Gent-Sint-Pieters", 51.0359, 3.7108)
	trip := w.AddOrUpdateTrip("bus-2", "Bus 2")
	_, err = w.AddOrUpdateConnection(transit.Connection{
		GlobalID: "bus-2/1", DepartureStop: a, ArrivalStop: b,
		DepartureTime: 1543939500, TravelTime: 600, Trip: trip,
	})
	require.NoError(t, err)
	w.Close()
	return tt
}

func newTestServer(t *testing.T, tt *timetable.DB) *Server {
	t.Helper()
	cfg := &config.Config{}
	h := handler.New(tt, csa.DefaultProfile(), nil, cfg, discard)
	return New(cfg, tt, h, discard)
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestWaitForData_Loading(t *testing.T) {
	s := newTestServer(t, timetable.New(1, discard))

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/plan", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "Loading the timetable")

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "health checks pass while loading")

	s.SetReady()
	s.SetReady()
	rec = serve(s, httptest.NewRequest(http.MethodGet, "/plan", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNew_ReadyWithData(t *testing.T) {
	s := newTestServer(t, loadedTimetable(t))

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/stops?near=51.0546,3.7217&radius=100", nil))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "korenmarkt")
}

func TestRoutes(t *testing.T) {
	s := newTestServer(t, loadedTimetable(t))

	tests := []struct {
		method string
		target string
		status int
	}{
		{http.MethodGet, "/", http.StatusFound},
		{http.MethodGet, "/plan", http.StatusOK},
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/api/journeys/earliest?from=korenmarkt&to=sint-pieters&depart=1543939200", http.StatusOK},
		{http.MethodGet, "/api/journeys/latest?from=korenmarkt&to=sint-pieters&arrive=1543941000", http.StatusOK},
		{http.MethodGet, "/api/journeys/profiles?from=korenmarkt&to=sint-pieters&depart=1543939200", http.StatusOK},
		{http.MethodGet, "/api/isochrone?from=korenmarkt&depart=1543939200", http.StatusOK},
		{http.MethodGet, "/api/journeys/earliest?from=nowhere&to=sint-pieters", http.StatusNotFound},
		{http.MethodGet, "/missing", http.StatusNotFound},
		{http.MethodPost, "/api/journeys/earliest", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			rec := serve(s, httptest.NewRequest(tt.method, tt.target, nil))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestRootRedirect(t *testing.T) {
	s := newTestServer(t, loadedTimetable(t))

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "/plan", rec.Header().Get("Location"))
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, loadedTimetable(t))

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t, loadedTimetable(t))

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	_, err := uuid.Parse(rec.Header().Get(requestIDHeader))
	assert.NoError(t, err)

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, incoming)
	rec = serve(s, req)
	assert.Equal(t, incoming, rec.Header().Get(requestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "not-a-uuid")
	rec = serve(s, req)
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get(requestIDHeader))
}

func TestStatusWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec, status: 200}
	sw.WriteHeader(http.StatusTeapot)
	assert.Equal(t, http.StatusTeapot, sw.status)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
