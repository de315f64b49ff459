package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"rruletext/internal/config"
	"rruletext/internal/describe"
	"rruletext/internal/ics"
	appLog "rruletext/internal/log"
	"rruletext/internal/model"
	"rruletext/internal/recurrence"
)

// Server provides the HTTP API: /health, /api/describe and /api/events.
type Server struct {
	cfg      *config.Config
	mux      *http.ServeMux
	renderer *describe.Renderer
	fetcher  *ics.Fetcher

	// Described feed events, refreshed on the cron schedule and on the
	// first /api/events request.
	eventsMu    sync.RWMutex
	eventsCache *eventsCache

	// refreshMu serializes feed refreshes.
	refreshMu sync.Mutex
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config) *Server {
	s := &Server{
		cfg:      cfg,
		mux:      http.NewServeMux(),
		renderer: describe.NewRenderer(nil),
		fetcher:  ics.NewFetcher(cfg.CacheDir, 0),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		h = s.basicAuthMiddleware(h)
	}
	return requestIDMiddleware(h)
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="rruletext", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

const requestIDHeader = "X-Request-ID"

// requestIDMiddleware tags every request with an ID, reusing the caller's
// X-Request-ID when present, and logs the request once it completes.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		started := time.Now()
		next.ServeHTTP(w, r)
		appLog.Debug("http request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"elapsed", time.Since(started).String(),
		)
	})
}

// StartServer serves the API on cfg.Listen and refreshes feeds on
// cfg.RefreshCron until ctx is canceled, then shuts down gracefully.
func StartServer(ctx context.Context, cfg *config.Config) error {
	s := NewServer(cfg)

	sched := cron.New()
	if _, err := sched.AddFunc(cfg.RefreshCron, func() { s.Refresh(ctx) }); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	// Warm the cache so the first /api/events call is served immediately.
	go s.Refresh(ctx)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen, "refresh", cfg.RefreshCron)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/describe", s.handleDescribe)
	s.mux.HandleFunc("/api/events", s.handleEvents)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// describeResponse is the JSON response shape for /api/describe.
type describeResponse struct {
	Description string               `json:"description"`
	Slots       describe.Description `json:"slots"`
}

// handleDescribe renders a single rule.
//
// GET /api/describe?rrule=FREQ=MONTHLY;BYDAY=3FR;COUNT=10&start=2011-08-15T00:00:00Z
//   - rrule:       required; bare value, RRULE: line or DTSTART+RRULE block
//   - start:       RFC 3339 start, required unless the rule carries DTSTART
//   - tz:          IANA zone; the start is shown in it and the zone is named
//   - date_format: strftime layout (default from config)
//   - time_format: strftime layout (default from config)
//   - open_ended:  true/false (default from config)
func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	rule := q.Get("rrule")
	if rule == "" {
		writeError(w, http.StatusBadRequest, "rrule is required")
		return
	}

	tz := q.Get("tz")
	loc := resolveLocationOrUTC(s.cfg.Timezone)
	if tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unknown timezone: "+tz)
			return
		}
		loc = l
	}

	var start time.Time
	if v := q.Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start must be RFC 3339")
			return
		}
		start = t.In(loc)
	}

	spec, err := recurrence.Parse(rule, start, loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if tz != "" {
		spec = spec.WithTimezone(tz)
	}

	opts := s.cfg.DescribeOptions()
	if v := q.Get("date_format"); v != "" {
		opts.DateFormat = v
	}
	if v := q.Get("time_format"); v != "" {
		opts.TimeFormat = v
	}
	if opts.OpenEnded, err = parseBoolDefault(q.Get("open_ended"), opts.OpenEnded); err != nil {
		writeError(w, http.StatusBadRequest, "open_ended must be true or false")
		return
	}

	d, err := s.renderer.Describe(spec, opts)
	if err != nil {
		appLog.Debug("api describe rejected", "rrule", rule, "error", err.Error(),
			"request_id", w.Header().Get(requestIDHeader))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, describeResponse{Description: d.String(), Slots: d})
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Events      []model.DescribedEvent `json:"events"`
	Failed      int                    `json:"failed"`
	FetchErrors []string               `json:"fetch_errors,omitempty"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// eventsCache holds the last described feed snapshot.
type eventsCache struct {
	resp eventsResponse
}

// handleEvents returns the recurring events of the configured ICS sources
// with their descriptions. Entries that could not be described carry an
// error instead.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.eventsMu.RLock()
	ec := s.eventsCache
	s.eventsMu.RUnlock()

	if ec == nil {
		ec = s.refresh(r.Context())
	}
	writeJSON(w, http.StatusOK, ec.resp)
}

// Refresh fetches, parses and describes every configured feed and replaces
// the cached /api/events snapshot.
func (s *Server) Refresh(ctx context.Context) {
	s.refresh(ctx)
}

func (s *Server) refresh(ctx context.Context) *eventsCache {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	resp := eventsResponse{Events: []model.DescribedEvent{}}

	sources := make([]ics.Source, 0, len(s.cfg.ICS))
	for _, csrc := range s.cfg.ICS {
		if csrc.URL == "" {
			continue
		}
		sources = append(sources, ics.Source{ID: csrc.SourceID(), URL: csrc.URL})
	}

	if len(sources) > 0 {
		fetchResults, fetchErr := s.fetcher.FetchAll(ctx, sources)
		if fetchErr != nil {
			resp.FetchErrors = strings.Split(fetchErr.Error(), "\n")
		}

		parsedEvents := make([]ics.ParsedEvent, 0)
		for _, res := range fetchResults {
			events, err := ics.ParseICS(res.Source, res.Body)
			if err != nil {
				appLog.Error("refresh: parse failed for source", err, "id", res.Source.ID)
				resp.FetchErrors = append(resp.FetchErrors, res.Source.ID+": "+err.Error())
				continue
			}
			parsedEvents = append(parsedEvents, events...)
		}

		result := ics.DescribeEvents(parsedEvents, ics.DescribeConfig{
			Renderer: s.renderer,
			Options:  s.cfg.DescribeOptions(),
		})
		resp.Events = result.Events
		resp.Failed = result.Failed
	}

	resp.UpdatedAt = time.Now()
	ec := &eventsCache{resp: resp}

	s.eventsMu.Lock()
	s.eventsCache = ec
	s.eventsMu.Unlock()

	appLog.Info("feeds refreshed",
		"sources", len(sources),
		"events", len(resp.Events),
		"failed", resp.Failed,
		"fetch_errors", len(resp.FetchErrors),
	)
	return ec
}

// parseBoolDefault returns def for an empty value and rejects anything
// strconv.ParseBool does not accept.
func parseBoolDefault(s string, def bool) (bool, error) {
	if s == "" {
		return def, nil
	}
	return strconv.ParseBool(s)
}

func resolveLocationOrUTC(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to UTC", err, "name", name)
		return time.UTC
	}
	return loc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
