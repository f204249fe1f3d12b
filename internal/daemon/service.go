// Package daemon provides the long-running local HTTP API: simulations on
// request, stored run history, an event feed and scheduled refreshes of the
// market assumptions.
package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/nestegg/internal/assumptions"
	"github.com/theirongolddev/nestegg/internal/model"
	"github.com/theirongolddev/nestegg/internal/montecarlo"
	"github.com/theirongolddev/nestegg/internal/pipeline"
	"github.com/theirongolddev/nestegg/internal/store"
)

// Event types published on /v1/events and /v1/stream.
const (
	EventRunCompleted = "run_completed"
	EventRunFailed    = "run_failed"
	EventRefreshed    = "assumptions_refreshed"
	EventRefreshError = "assumptions_refresh_failed"
)

const (
	defaultAddr          = "127.0.0.1:8787"
	defaultEventsBuffer  = 200
	defaultMaxBodyBytes  = 64 << 10
	defaultMaxConcurrent = 2
	defaultHistoryLimit  = 50
	maxHistoryLimit      = 1000
)

// History reads stored runs. *store.Store satisfies it.
type History interface {
	ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error)
	GetRun(ctx context.Context, id string) (model.RunRecord, error)
}

// Config controls the daemon runtime behavior.
type Config struct {
	Addr          string
	MaxConcurrent int
	EventsBuffer  int
	MaxBodyBytes  int64
	// RefreshCron is a six-field cron spec; empty disables scheduled refreshes.
	RefreshCron string
	// Defaults fills any field a simulate request leaves out.
	Defaults pipeline.Request
	Logger   *logrus.Logger
}

// Event is emitted when a run finishes or the assumptions change.
type Event struct {
	ID        int64             `json:"id"`
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	RunID     string            `json:"run_id,omitempty"`
	Profile   string            `json:"profile,omitempty"`
	Trials    int               `json:"trials,omitempty"`
	Summary   *model.RunSummary `json:"summary,omitempty"`
	Origin    string            `json:"origin,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt         time.Time `json:"started_at"`
	Runs              int64     `json:"runs"`
	FailedRuns        int64     `json:"failed_runs"`
	InFlight          int       `json:"in_flight"`
	MaxConcurrent     int       `json:"max_concurrent"`
	LastRunAt         time.Time `json:"last_run_at"`
	LastRefreshAt     time.Time `json:"last_refresh_at"`
	AssumptionsOrigin string    `json:"assumptions_origin,omitempty"`
	RefreshCron       string    `json:"refresh_cron,omitempty"`
	HistoryEnabled    bool      `json:"history_enabled"`
	LastError         string    `json:"last_error,omitempty"`
	EventCount        int       `json:"event_count"`
	SubscriberCount   int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg      Config
	log      *logrus.Logger
	runner   *pipeline.Runner
	history  History // nil when history is off
	provider *assumptions.Provider
	sem      chan struct{}

	mu            sync.RWMutex
	startedAt     time.Time
	runs          int64
	failedRuns    int64
	lastRunAt     time.Time
	lastRefreshAt time.Time
	origin        assumptions.Origin
	lastError     string
	nextEventID   int64
	events        []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a daemon service. history and provider may be nil.
func New(cfg Config, runner *pipeline.Runner, history History, provider *assumptions.Provider) *Service {
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = defaultEventsBuffer
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Service{
		cfg:       cfg,
		log:       logger,
		runner:    runner,
		history:   history,
		provider:  provider,
		sem:       make(chan struct{}, cfg.MaxConcurrent),
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Handler returns the HTTP routes.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("POST /v1/simulate", s.handleSimulate)
	mux.HandleFunc("GET /v1/runs", s.handleRuns)
	mux.HandleFunc("GET /v1/runs/{id}", s.handleRun)
	mux.HandleFunc("GET /v1/events", s.handleEvents)
	mux.HandleFunc("GET /v1/stream", s.handleStream)
	return mux
}

// Run serves the API and the refresh schedule until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if s.provider != nil {
		// Seed the assumptions so status is useful immediately.
		s.refreshAssumptions(ctx, false)

		if s.cfg.RefreshCron != "" {
			c := cron.New(cron.WithSeconds())
			if _, err := c.AddFunc(s.cfg.RefreshCron, func() { s.refreshAssumptions(ctx, true) }); err != nil {
				return fmt.Errorf("register refresh schedule %q: %w", s.cfg.RefreshCron, err)
			}
			c.Start()
			defer c.Stop()
			s.log.WithField("schedule", s.cfg.RefreshCron).Info("assumptions refresh scheduled")
		}
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.log.WithField("addr", s.cfg.Addr).Info("daemon listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("daemon http server: %w", err)
	}
}

// refreshAssumptions loads (or, when force is set, refetches) the
// assumptions and publishes the outcome.
func (s *Service) refreshAssumptions(ctx context.Context, force bool) {
	load := s.provider.Load
	if force {
		load = s.provider.Refresh
	}
	set, err := load(ctx)
	now := time.Now()

	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.mu.Unlock()
		s.log.WithError(err).Warn("assumptions refresh failed")
		s.publishEvent(Event{Type: EventRefreshError, Timestamp: now, Error: err.Error()})
		return
	}

	s.mu.Lock()
	s.lastRefreshAt = now
	s.origin = set.Origin
	s.mu.Unlock()

	entry := s.log.WithFields(logrus.Fields{"origin": set.Origin, "profiles": len(set.Profiles)})
	ev := Event{Type: EventRefreshed, Timestamp: now, Origin: string(set.Origin)}
	if set.Warning != nil {
		entry = entry.WithField("warning", set.Warning.Error())
		ev.Error = set.Warning.Error()
	}
	entry.Info("assumptions loaded")
	s.publishEvent(ev)
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.nextEventID++
	ev.ID = s.nextEventID
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:         s.startedAt,
		Runs:              s.runs,
		FailedRuns:        s.failedRuns,
		InFlight:          len(s.sem),
		MaxConcurrent:     s.cfg.MaxConcurrent,
		LastRunAt:         s.lastRunAt,
		LastRefreshAt:     s.lastRefreshAt,
		AssumptionsOrigin: string(s.origin),
		RefreshCron:       s.cfg.RefreshCron,
		HistoryEnabled:    s.history != nil,
		LastError:         s.lastError,
		EventCount:        len(s.events),
		SubscriberCount:   len(s.subs),
	}
}

// ─── Handlers ───────────────────────────────────────────────────

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
			writeError(w, http.StatusUnsupportedMediaType, "content type must be application/json")
			return
		}
	}

	var body SimulateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	req, err := body.apply(s.cfg.Defaults)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	default:
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, "too many simulations in flight")
		return
	}

	out, err := s.runner.Run(r.Context(), req)
	now := time.Now()
	if err != nil {
		s.mu.Lock()
		s.failedRuns++
		s.lastError = err.Error()
		s.mu.Unlock()
		s.log.WithError(err).WithField("trials", req.Trials).Warn("simulation failed")
		s.publishEvent(Event{Type: EventRunFailed, Timestamp: now, Profile: req.Profile, Trials: req.Trials, Error: err.Error()})
		writeError(w, statusForRunError(err), err.Error())
		return
	}

	s.mu.Lock()
	s.runs++
	s.lastRunAt = now
	s.mu.Unlock()

	fields := logrus.Fields{
		"run_id":   out.Record.ID,
		"profile":  out.Profile.Name,
		"trials":   out.Params.Trials,
		"duration": time.Duration(out.Record.DurationMs) * time.Millisecond,
	}
	for _, warn := range out.Warnings {
		s.log.WithFields(fields).WithError(warn).Warn("simulation warning")
	}
	s.log.WithFields(fields).Info("simulation complete")

	summary := out.Record.Summary
	ev := Event{
		Type:      EventRunCompleted,
		Timestamp: now,
		Profile:   out.Profile.Name,
		Trials:    out.Params.Trials,
		Summary:   &summary,
	}
	if out.Stored {
		ev.RunID = out.Record.ID
	}
	s.publishEvent(ev)

	writeJSON(w, http.StatusOK, out.View())
}

func statusForRunError(err error) int {
	switch {
	case errors.Is(err, montecarlo.ErrInvalidParams), errors.Is(err, assumptions.ErrUnknownProfile):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Service) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "run history is disabled")
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	runs, err := s.history.ListRuns(r.Context(), limit)
	if err != nil {
		s.log.WithError(err).Error("listing runs")
		writeError(w, http.StatusInternalServerError, "listing runs failed")
		return
	}
	if runs == nil {
		runs = []model.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Service) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "run history is disabled")
		return
	}
	id := r.PathValue("id")
	run, err := s.history.GetRun(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("run %q not found", id))
		return
	case err != nil:
		s.log.WithError(err).WithField("run_id", id).Error("loading run")
		writeError(w, http.StatusInternalServerError, "loading run failed")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Announce the subscription so clients know the stream is live.
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "id: %d\n", ev.ID)
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

// writeJSON encodes v before committing the status so an encoding failure
// still reaches the client as a 500.
func writeJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"encoding response failed"}`+"\n")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
