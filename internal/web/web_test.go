package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rruletext/internal/config"
)

const feed = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//rruletext//web test//EN
BEGIN:VEVENT
UID:club@example.com
DTSTAMP:20110801T000000Z
DTSTART:20110815T000000Z
SUMMARY:Book club
RRULE:FREQ=MONTHLY;BYDAY=3FR;COUNT=10
END:VEVENT
BEGIN:VEVENT
UID:broken@example.com
DTSTAMP:20110801T000000Z
DTSTART:20110801T000000Z
SUMMARY:Broken
RRULE:FREQ=YEARLY;COUNT=2;UNTIL=20150101T000000Z
END:VEVENT
END:VCALENDAR
`

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.CacheDir = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}
	return NewServer(cfg)
}

func get(t *testing.T, h http.Handler, path string, query url.Values) *httptest.ResponseRecorder {
	t.Helper()
	target := path
	if query != nil {
		target += "?" + query.Encode()
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestDescribe(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name  string
		query url.Values
		want  string
	}{
		{
			name: "third friday",
			query: url.Values{
				"rrule": {"FREQ=MONTHLY;BYDAY=3FR;COUNT=10"},
				"start": {"2011-08-15T00:00:00Z"},
			},
			want: "each third Friday of the month starting at 12:00 AM August 19, 2011 ten times",
		},
		{
			name: "embedded dtstart and formats",
			query: url.Values{
				"rrule":       {"DTSTART:20110815T000000Z\nRRULE:FREQ=WEEKLY;BYDAY=MO;COUNT=10"},
				"date_format": {"%m/%d/%Y"},
				"time_format": {"%H:%M"},
			},
			want: "each Monday of the week starting at 00:00 08/15/2011 ten times",
		},
		{
			name: "timezone label",
			query: url.Values{
				"rrule": {"RRULE:FREQ=MONTHLY;BYDAY=3FR;COUNT=10"},
				"start": {"2011-08-15T04:00:00Z"},
				"tz":    {"America/New_York"},
			},
			want: "each third Friday of the month starting at 12:00 AM August 19, 2011 ten times in the America/New_York time zone",
		},
		{
			name: "far until",
			query: url.Values{
				"rrule": {"FREQ=SECONDLY;UNTIL=21000101T000000Z"},
				"start": {"2011-08-15T00:00:00Z"},
			},
			want: "each second starting at 12:00 AM August 15, 2011 until 12:00 AM January 01, 2100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s.Handler(), "/api/describe", tt.query)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var resp describeResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp.Description)
			assert.Equal(t, "each", resp.Slots.Interval)
		})
	}
}

func TestDescribe_BadRequests(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.OpenEnded = false })

	tests := []struct {
		name    string
		query   url.Values
		wantErr string
	}{
		{"missing rrule", url.Values{}, "rrule is required"},
		{"bad start", url.Values{"rrule": {"FREQ=DAILY;COUNT=2"}, "start": {"yesterday"}}, "RFC 3339"},
		{"bad tz", url.Values{"rrule": {"FREQ=DAILY;COUNT=2"}, "tz": {"Mars/Olympus"}}, "unknown timezone"},
		{"no start", url.Values{"rrule": {"FREQ=DAILY;COUNT=2"}}, "has no start"},
		{"both terminations", url.Values{
			"rrule": {"FREQ=YEARLY;COUNT=2;UNTIL=20150101T000000Z"},
			"start": {"2011-08-01T00:00:00Z"},
		}, "exactly one of count or until"},
		{"open ended from config", url.Values{
			"rrule": {"FREQ=WEEKLY"},
			"start": {"2011-08-01T00:00:00Z"},
		}, "neither count nor until"},
		{"malformed open_ended", url.Values{
			"rrule":      {"FREQ=WEEKLY"},
			"start":      {"2011-08-01T00:00:00Z"},
			"open_ended": {"maybe"},
		}, "open_ended must be true or false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s.Handler(), "/api/describe", tt.query)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Contains(t, resp["error"], tt.wantErr)
		})
	}
}

func TestDescribe_OpenEndedOverride(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.OpenEnded = false })

	rec := get(t, s.Handler(), "/api/describe", url.Values{
		"rrule":      {"FREQ=WEEKLY;BYDAY=MO"},
		"start":      {"2011-08-15T00:00:00Z"},
		"open_ended": {"true"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp describeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "each Monday of the week starting at 12:00 AM August 15, 2011", resp.Description)
	assert.Empty(t, resp.Slots.Terminal)
}

func TestDescribe_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/describe", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.ics")
	require.NoError(t, os.WriteFile(path, []byte(strings.ReplaceAll(feed, "\n", "\r\n")), 0o600))

	s := newTestServer(t, func(c *config.Config) {
		c.ICS = []config.ICSConfig{
			{ID: "local", URL: path},
			{Name: "missing", URL: filepath.Join(t.TempDir(), "nope.ics")},
			{Name: "blank"},
		}
	})

	rec := get(t, s.Handler(), "/api/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp eventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 2)
	assert.Equal(t, 1, resp.Failed)
	require.Len(t, resp.FetchErrors, 1)
	assert.True(t, strings.HasPrefix(resp.FetchErrors[0], "missing: "), resp.FetchErrors[0])

	assert.Equal(t, "broken@example.com", resp.Events[0].UID)
	assert.NotEmpty(t, resp.Events[0].Error)
	assert.Equal(t, "club@example.com", resp.Events[1].UID)
	assert.Equal(t, "local", resp.Events[1].SourceID)
	assert.Equal(t, "each third Friday of the month starting at 12:00 AM August 19, 2011 ten times", resp.Events[1].Description)
}

func TestEvents_ServedFromCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.ics")
	require.NoError(t, os.WriteFile(path, []byte(strings.ReplaceAll(feed, "\n", "\r\n")), 0o600))

	s := newTestServer(t, func(c *config.Config) {
		c.ICS = []config.ICSConfig{{ID: "local", URL: path}}
	})

	first := s.refresh(context.Background())
	require.NoError(t, os.Remove(path))

	rec := get(t, s.Handler(), "/api/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp eventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Events, 2)
	assert.True(t, first.resp.UpdatedAt.Equal(resp.UpdatedAt))
}

func TestEvents_NoSources(t *testing.T) {
	s := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/api/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp eventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Events)
	assert.Empty(t, resp.Events)
}

func TestBasicAuth(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	})
	h := s.Handler()

	rec := get(t, h, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, h, "/api/events", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Handler()

	rec := get(t, h, "/health", nil)
	_, err := uuid.Parse(rec.Header().Get(requestIDHeader))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestSecureCompare(t *testing.T) {
	assert.True(t, secureCompare("same", "same"))
	assert.False(t, secureCompare("same", "diff"))
	assert.False(t, secureCompare("short", "longer"))
}

func TestStartServer_BadCron(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RefreshCron = "not a schedule"
	err := StartServer(context.Background(), cfg)
	require.Error(t, err)
}
