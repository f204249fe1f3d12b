package assumptions

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/theirongolddev/nestegg/internal/config"
)

const remoteDoc = `{"riskProfiles": {"balanced": {"mean": 0.07, "vol": 0.11}, "adventurous": {"mean": 0.1, "vol": 0.2}}, "inflation": 0.03}`

func TestParseDocument(t *testing.T) {
	yamlDoc := "riskProfiles:\n  growth:\n    mean: 0.09\n    vol: 0.15\nfee: 0.004\n"
	tests := []struct {
		name    string
		body    string
		format  Format
		wantErr bool
	}{
		{"json auto", remoteDoc, FormatAuto, false},
		{"json explicit", remoteDoc, FormatJSON, false},
		{"yaml auto", yamlDoc, FormatAuto, false},
		{"yaml explicit", yamlDoc, FormatYAML, false},
		{"malformed json", `{"riskProfiles":`, FormatJSON, true},
		{"empty document", `{}`, FormatAuto, true},
		{"negative vol", `{"riskProfiles": {"x": {"mean": 0.05, "vol": -0.1}}}`, FormatAuto, true},
		{"negative fee", `{"fee": -0.01}`, FormatAuto, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDocument([]byte(tt.body), tt.format)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDocument succeeded, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDocument: %v", err)
			}
			if len(doc.RiskProfiles) == 0 {
				t.Error("no profiles decoded")
			}
		})
	}

	if _, err := ParseDocument([]byte(`{"fee": -1}`), FormatAuto); !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("err = %v, want ErrInvalidDocument", err)
	}
}

func TestFormatForPath(t *testing.T) {
	tests := map[string]Format{
		"a.json":     FormatJSON,
		"a.YAML":     FormatYAML,
		"dir/b.yml":  FormatYAML,
		"noext":      FormatAuto,
		"weird.toml": FormatAuto,
	}
	for path, want := range tests {
		if got := FormatForPath(path); got != want {
			t.Errorf("FormatForPath(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestClientFetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"not found", http.StatusNotFound, "", ErrNotFound},
		{"rate limited", http.StatusTooManyRequests, "", ErrRateLimited},
		{"too large", http.StatusOK, strings.Repeat("x", maxBodySize+1), ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.Client()).Fetch(context.Background(), srv.URL)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	if _, err := NewClient(nil).Fetch(context.Background(), srv.URL); err == nil {
		t.Error("expected error for 502")
	}
}

type fakeServer struct {
	srv  *httptest.Server
	hits atomic.Int32
	fail atomic.Bool
	body string
}

func newFakeServer(t *testing.T, body string) *fakeServer {
	t.Helper()
	f := &fakeServer{body: body}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		f.hits.Add(1)
		if f.fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(f.body))
	}))
	t.Cleanup(f.srv.Close)
	return f
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func TestProviderRemoteCaching(t *testing.T) {
	ctx := context.Background()
	fs := newFakeServer(t, remoteDoc)
	clk := &clock{now: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)}
	cache := NewMemoryCache()
	p := New(Options{URL: fs.srv.URL, TTL: 168 * time.Hour, Cache: cache, Now: clk.Now})

	s, err := p.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Origin != OriginRemote || fs.hits.Load() != 1 {
		t.Fatalf("first load origin=%s hits=%d, want remote/1", s.Origin, fs.hits.Load())
	}
	if s.Profiles["balanced"].Mean != 0.07 {
		t.Errorf("balanced mean = %v, want 0.07 from document", s.Profiles["balanced"].Mean)
	}
	if s.Profiles["cautious"].Mean != 0.045 {
		t.Errorf("cautious lost its built-in values: %+v", s.Profiles["cautious"])
	}
	if _, ok := s.Profiles["adventurous"]; !ok {
		t.Error("document-only profile missing")
	}
	if s.Inflation == nil || *s.Inflation != 0.03 || s.Fee != nil {
		t.Errorf("inflation=%v fee=%v, want 0.03/nil", s.Inflation, s.Fee)
	}

	clk.now = clk.now.Add(24 * time.Hour)
	s, _ = p.Load(ctx)
	if s.Origin != OriginCache || fs.hits.Load() != 1 {
		t.Errorf("fresh cache origin=%s hits=%d, want cache/1", s.Origin, fs.hits.Load())
	}

	s, _ = p.Refresh(ctx)
	if s.Origin != OriginRemote || fs.hits.Load() != 2 {
		t.Errorf("refresh origin=%s hits=%d, want remote/2", s.Origin, fs.hits.Load())
	}

	clk.now = clk.now.Add(200 * time.Hour)
	fs.fail.Store(true)
	s, err = p.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Origin != OriginStaleCache || s.Warning == nil {
		t.Errorf("expired+failing origin=%s warning=%v, want stale-cache with warning", s.Origin, s.Warning)
	}
	if s.Profiles["balanced"].Mean != 0.07 {
		t.Error("stale copy should still supply document values")
	}
}

func TestProviderFallsBackToBuiltins(t *testing.T) {
	fs := newFakeServer(t, remoteDoc)
	fs.fail.Store(true)
	p := New(Options{URL: fs.srv.URL, Cache: NewMemoryCache()})

	s, err := p.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Origin != OriginBuiltin || s.Warning == nil {
		t.Errorf("origin=%s warning=%v, want builtin with warning", s.Origin, s.Warning)
	}
	if s.Profiles["balanced"] != config.DefaultProfiles["balanced"] {
		t.Errorf("balanced = %+v, want built-in", s.Profiles["balanced"])
	}
}

func TestProviderFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assumptions.yaml")
	body := "riskProfiles:\n  growth:\n    mean: 0.09\n    vol: 0.15\nfee: 0.004\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	vol := 30.0
	p := New(Options{File: path, Overrides: map[string]config.ProfileOverride{"growth": {VolPercent: &vol}}})
	s, err := p.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	g := s.Profiles["growth"]
	if s.Origin != OriginFile || g.Mean != 0.09 || g.Vol != 0.30 {
		t.Errorf("origin=%s growth=%+v, want file mean 0.09 with override vol 0.30", s.Origin, g)
	}
	if s.Fee == nil || *s.Fee != 0.004 {
		t.Errorf("fee = %v, want 0.004", s.Fee)
	}

	missing := New(Options{File: filepath.Join(t.TempDir(), "nope.json")})
	if _, err := missing.Load(context.Background()); err == nil {
		t.Error("expected error for missing assumptions file")
	}
}

func TestResolve(t *testing.T) {
	s, err := New(Options{}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Origin != OriginBuiltin {
		t.Errorf("origin = %s, want builtin", s.Origin)
	}

	p, err := s.Resolve("")
	if err != nil || p.Name != "balanced" {
		t.Errorf("Resolve(\"\") = %+v, %v; want balanced", p, err)
	}
	p, err = s.Resolve("Aggressive")
	if err != nil || p.Name != "growth" {
		t.Errorf("Resolve(Aggressive) = %+v, %v; want growth", p, err)
	}
	if _, err := s.Resolve("yolo"); !errors.Is(err, ErrUnknownProfile) {
		t.Errorf("Resolve(yolo) err = %v, want ErrUnknownProfile", err)
	}
}

func TestRealReturn(t *testing.T) {
	got := RealReturn(0.06, 0.025, 0.006)
	if math.Abs(got-0.029) > 1e-12 {
		t.Errorf("RealReturn = %v, want 0.029", got)
	}
}
