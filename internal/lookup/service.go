package lookup

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/agrotrace/agrotrace/internal/upstream"
)

// Source is the subset of the upstream client the lookup layer needs.
type Source interface {
	Vergers(ctx context.Context) ([]upstream.Option, error)
	GrpVars(ctx context.Context) ([]upstream.Option, error)
	Varietes(ctx context.Context) ([]upstream.Option, error)
	Destinations(ctx context.Context) ([]upstream.Option, error)
	TypeEcarts(ctx context.Context) ([]upstream.Option, error)
	CampagneDates(ctx context.Context) (upstream.CampagneDates, error)
}

// Snapshot is the immutable view of the reference collections. Options are
// shared by reference; nothing mutates them after load.
type Snapshot struct {
	Vergers      []upstream.Option      `json:"vergers"`
	GrpVars      []upstream.Option      `json:"grpVars"`
	Varietes     []upstream.Option      `json:"varietes"`
	Destinations []upstream.Option      `json:"destinations"`
	TypeEcarts   []upstream.Option      `json:"typeEcarts"`
	Campagne     upstream.CampagneDates `json:"campagne"`

	vergerNames    map[int64]string
	grpVarNames    map[int64]string
	typeEcartNames map[string]string
	varieteGroups  map[int64]int64
}

// VergerName resolves an orchard id to its label, falling back to the id.
func (s *Snapshot) VergerName(id int64) string {
	if s != nil {
		if name, ok := s.vergerNames[id]; ok {
			return name
		}
	}
	return strconv.FormatInt(id, 10)
}

// GrpVarName resolves a variety-group id to its label, falling back to the id.
func (s *Snapshot) GrpVarName(id int64) string {
	if s != nil {
		if name, ok := s.grpVarNames[id]; ok {
			return name
		}
	}
	return strconv.FormatInt(id, 10)
}

// TypeEcartName resolves a discrepancy-type code, falling back to the code.
func (s *Snapshot) TypeEcartName(code string) string {
	if s != nil {
		if name, ok := s.typeEcartNames[code]; ok {
			return name
		}
	}
	return code
}

// VarieteGroup returns the variety-group id a variety belongs to.
func (s *Snapshot) VarieteGroup(varieteID int64) (int64, bool) {
	if s == nil {
		return 0, false
	}
	group, ok := s.varieteGroups[varieteID]
	return group, ok
}

// Service loads and holds the reference collections. Loading happens once
// per process (singleflight deduplicated); a Refresh bumps the shared cache
// version and reloads.
type Service struct {
	source Source
	cache  *Cache
	group  singleflight.Group

	mu   sync.RWMutex
	snap *Snapshot
}

// NewService wires a Source with the redis cache helper.
func NewService(source Source, cache *Cache) *Service {
	return &Service{source: source, cache: cache}
}

// Snapshot returns the loaded collections, or false when the initial load
// has not completed yet.
func (s *Service) Snapshot() (*Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, s.snap != nil
}

// Load returns the reference snapshot, performing the initial fetch when
// needed. Concurrent callers share one in-flight load.
func (s *Service) Load(ctx context.Context) (*Snapshot, error) {
	if snap, ok := s.Snapshot(); ok {
		return snap, nil
	}
	result, err, _ := s.group.Do("load", func() (interface{}, error) {
		return s.load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Snapshot), nil
}

// Refresh discards the cached collections and reloads them.
func (s *Service) Refresh(ctx context.Context) (*Snapshot, error) {
	if err := s.cache.Bump(ctx); err != nil {
		return nil, fmt.Errorf("lookup: bump cache: %w", err)
	}
	s.mu.Lock()
	s.snap = nil
	s.mu.Unlock()
	return s.Load(ctx)
}

func (s *Service) load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.fetchOptions(ctx, "vergers", s.source.Vergers, &snap.Vergers) })
	g.Go(func() error { return s.fetchOptions(ctx, "grpvars", s.source.GrpVars, &snap.GrpVars) })
	g.Go(func() error { return s.fetchOptions(ctx, "varietes", s.source.Varietes, &snap.Varietes) })
	g.Go(func() error { return s.fetchOptions(ctx, "destinations", s.source.Destinations, &snap.Destinations) })
	g.Go(func() error { return s.fetchOptions(ctx, "typeecarts", s.source.TypeEcarts, &snap.TypeEcarts) })
	g.Go(func() error {
		key, err := s.cache.BuildKey(ctx, "lookup", "campagne")
		if err != nil {
			return err
		}
		return s.cache.FetchJSON(ctx, key, &snap.Campagne, func(ctx context.Context) (interface{}, error) {
			return s.source.CampagneDates(ctx)
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap.index()

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	return snap, nil
}

func (s *Service) fetchOptions(ctx context.Context, name string, fetch func(context.Context) ([]upstream.Option, error), dest *[]upstream.Option) error {
	key, err := s.cache.BuildKey(ctx, "lookup", name)
	if err != nil {
		return err
	}
	return s.cache.FetchJSON(ctx, key, dest, func(ctx context.Context) (interface{}, error) {
		return fetch(ctx)
	})
}

func (s *Snapshot) index() {
	s.vergerNames = make(map[int64]string, len(s.Vergers))
	for _, opt := range s.Vergers {
		s.vergerNames[opt.Value] = opt.Label
	}
	s.grpVarNames = make(map[int64]string, len(s.GrpVars))
	for _, opt := range s.GrpVars {
		s.grpVarNames[opt.Value] = opt.Label
	}
	s.typeEcartNames = make(map[string]string, len(s.TypeEcarts))
	for _, opt := range s.TypeEcarts {
		code := opt.Code
		if code == "" {
			code = strconv.FormatInt(opt.Value, 10)
		}
		s.typeEcartNames[code] = opt.Label
	}
	s.varieteGroups = make(map[int64]int64, len(s.Varietes))
	for _, opt := range s.Varietes {
		s.varieteGroups[opt.Value] = opt.GroupID
	}
}
