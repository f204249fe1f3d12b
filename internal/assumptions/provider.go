package assumptions

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/theirongolddev/nestegg/internal/config"
)

// ErrUnknownProfile is returned by Resolve for a name with no table entry.
var ErrUnknownProfile = errors.New("assumptions: unknown risk profile")

// Origin records where a Set came from.
type Origin string

const (
	OriginBuiltin    Origin = "builtin"
	OriginFile       Origin = "file"
	OriginRemote     Origin = "remote"
	OriginCache      Origin = "cache"
	OriginStaleCache Origin = "stale-cache"
)

// Set is the effective assumptions for one run.
type Set struct {
	Profiles  map[string]config.RiskProfile
	Inflation *float64 // nil when the source did not publish one
	Fee       *float64
	Origin    Origin
	FetchedAt time.Time
	// Warning is set when a fetch failed and an older or built-in table
	// was used instead.
	Warning error
}

// Resolve looks up a profile by name. An empty name selects the default
// profile; any other unknown name is an error.
func (s *Set) Resolve(name string) (config.RiskProfile, error) {
	if name == "" {
		name = config.DefaultProfileName
	}
	key := config.NormalizeProfileName(name)
	p, ok := s.Profiles[key]
	if !ok {
		return config.RiskProfile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return p, nil
}

// RealReturn subtracts inflation and fees from a nominal annual return.
func RealReturn(mean, inflation, fee float64) float64 {
	return mean - inflation - fee
}

// Options configures a Provider.
type Options struct {
	URL       string
	File      string
	TTL       time.Duration
	Cache     Cache   // nil disables caching
	Client    *Client // nil uses a default client
	Overrides map[string]config.ProfileOverride
	Now       func() time.Time
}

// Provider loads assumption Sets.
type Provider struct {
	opts Options
}

// New creates a Provider, applying defaults for unset options.
func New(opts Options) *Provider {
	if opts.TTL <= 0 {
		opts.TTL = config.DefaultCacheTTL
	}
	if opts.Client == nil {
		opts.Client = NewClient(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Provider{opts: opts}
}

// FromConfig builds a Provider from the config file settings.
func FromConfig(cfg config.Config, cache Cache) *Provider {
	return New(Options{
		URL:       cfg.Assumptions.URL,
		File:      cfg.Assumptions.File,
		TTL:       cfg.Assumptions.TTL(),
		Cache:     cache,
		Overrides: cfg.Profiles,
	})
}

// Load returns the effective Set. A configured file must parse; a remote
// document is served from cache while younger than the TTL, fetched
// otherwise, and replaced by a stale cached copy or the built-ins when the
// fetch fails.
func (p *Provider) Load(ctx context.Context) (*Set, error) {
	return p.load(ctx, false)
}

// Refresh fetches the remote document regardless of cache age.
func (p *Provider) Refresh(ctx context.Context) (*Set, error) {
	return p.load(ctx, true)
}

func (p *Provider) load(ctx context.Context, force bool) (*Set, error) {
	switch {
	case p.opts.File != "":
		doc, err := p.readFile()
		if err != nil {
			return nil, err
		}
		return p.build(doc, OriginFile, time.Time{}), nil
	case p.opts.URL != "":
		return p.loadRemote(ctx, force), nil
	}
	return p.build(nil, OriginBuiltin, time.Time{}), nil
}

func (p *Provider) readFile() (*Document, error) {
	body, err := os.ReadFile(p.opts.File)
	if err != nil {
		return nil, fmt.Errorf("reading assumptions: %w", err)
	}
	return ParseDocument(body, FormatForPath(p.opts.File))
}

func (p *Provider) loadRemote(ctx context.Context, force bool) *Set {
	url := p.opts.URL
	now := p.opts.Now()

	var cached *Document
	var cachedAt time.Time
	if p.opts.Cache != nil {
		if body, at, ok, err := p.opts.Cache.GetDocument(ctx, url); err == nil && ok {
			if doc, err := ParseDocument(body, FormatAuto); err == nil {
				cached, cachedAt = doc, at
			}
		}
	}
	if cached != nil && !force && now.Sub(cachedAt) < p.opts.TTL {
		return p.build(cached, OriginCache, cachedAt)
	}

	doc, body, err := p.fetch(ctx, url)
	if err == nil {
		if p.opts.Cache != nil {
			if perr := p.opts.Cache.PutDocument(ctx, url, body, now); perr != nil {
				s := p.build(doc, OriginRemote, now)
				s.Warning = fmt.Errorf("caching assumptions: %w", perr)
				return s
			}
		}
		return p.build(doc, OriginRemote, now)
	}

	if cached != nil {
		s := p.build(cached, OriginStaleCache, cachedAt)
		s.Warning = err
		return s
	}
	s := p.build(nil, OriginBuiltin, time.Time{})
	s.Warning = err
	return s
}

func (p *Provider) fetch(ctx context.Context, url string) (*Document, []byte, error) {
	body, err := p.opts.Client.Fetch(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	doc, err := ParseDocument(body, FormatAuto)
	if err != nil {
		return nil, nil, err
	}
	return doc, body, nil
}

// build layers built-ins, the document and config overrides, in that order.
func (p *Provider) build(doc *Document, origin Origin, fetchedAt time.Time) *Set {
	base := make(map[string]config.RiskProfile, len(config.DefaultProfiles))
	for name, prof := range config.DefaultProfiles {
		base[name] = prof
	}

	s := &Set{Origin: origin, FetchedAt: fetchedAt}
	if doc != nil {
		for raw, e := range doc.RiskProfiles {
			name := config.NormalizeProfileName(raw)
			base[name] = config.RiskProfile{Name: name, Mean: e.Mean, Vol: e.Vol}
		}
		s.Inflation = doc.Inflation
		s.Fee = doc.Fee
	}
	s.Profiles = config.MergeProfiles(base, p.opts.Overrides)
	return s
}
