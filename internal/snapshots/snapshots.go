package snapshots

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/topaplus/commandcenter/config"
	"github.com/topaplus/commandcenter/internal/dataset"
	"github.com/topaplus/commandcenter/internal/sources"
)

// Snapshot is one immutable normalized dataset. Readers share it freely; a
// refresh installs a new snapshot instead of mutating the current one.
type Snapshot struct {
	ID        string
	Source    string
	Records   []dataset.Record
	Undated   int
	LoadedAt  time.Time
	ExpiresAt time.Time
	// Restored is set when the raw table came from the shared store rather
	// than from the source itself.
	Restored bool
}

// Expired reports whether the snapshot has reached its TTL.
func (s *Snapshot) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// LoadGate coordinates capacity for concurrent source fetches (backed by runtime.Controller).
type LoadGate interface {
	AcquireLoad(ctx context.Context) error
	ReleaseLoad()
}

// RawStore shares fetched raw tables across processes. Implementations must
// return ok=false, not an error, on a miss.
type RawStore interface {
	Load(ctx context.Context, source string) (dataset.Table, bool, error)
	Save(ctx context.Context, source string, t dataset.Table, ttl time.Duration) error
	Delete(ctx context.Context, source string) error
}

// ErrSourceNotFound indicates an unknown source id.
var ErrSourceNotFound = errors.New("snapshots: source not found")

// Manager caches one snapshot per source with a fixed TTL. Concurrent misses
// for the same source share a single fetch.
type Manager struct {
	mu           sync.RWMutex
	sources      map[string]sources.Source
	snaps        map[string]*Snapshot
	ttl          time.Duration
	cleanupEvery time.Duration
	fetchTimeout time.Duration
	clock        func() time.Time
	gate         LoadGate
	store        RawStore
	log          zerolog.Logger
	group        singleflight.Group
	stopCh       chan struct{}
	stopOnce     sync.Once
	cleanupWG    sync.WaitGroup
}

// NewManager constructs a snapshot cache. Pass ttl or cleanupEvery <= 0 to use
// defaults from config. Gate can be nil for tests; clock defaults to time.Now.
func NewManager(ttl, cleanupEvery time.Duration, gate LoadGate, clock func() time.Time) *Manager {
	if ttl <= 0 {
		ttl = config.DefaultSnapshotTTL
	}
	if cleanupEvery <= 0 {
		cleanupEvery = config.DefaultSnapshotCleanupPeriod
	}
	if clock == nil {
		clock = time.Now
	}
	return &Manager{
		sources:      make(map[string]sources.Source),
		snaps:        make(map[string]*Snapshot),
		ttl:          ttl,
		cleanupEvery: cleanupEvery,
		fetchTimeout: config.DefaultFetchTimeout,
		clock:        clock,
		gate:         gate,
		log:          zerolog.Nop(),
		stopCh:       make(chan struct{}),
	}
}

// UseStore attaches a shared raw-table store.
func (m *Manager) UseStore(s RawStore) { m.store = s }

// UseLogger sets the logger for load and eviction events.
func (m *Manager) UseLogger(l zerolog.Logger) { m.log = l.With().Str("component", "snapshots").Logger() }

// SetFetchTimeout bounds each source fetch.
func (m *Manager) SetFetchTimeout(d time.Duration) {
	if d > 0 {
		m.fetchTimeout = d
	}
}

// TTL returns the configured snapshot lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Register adds a source. Registering an id twice replaces the source and
// drops its cached snapshot.
func (m *Manager) Register(src sources.Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[src.ID()] = src
	delete(m.snaps, src.ID())
}

// Source returns a registered source.
func (m *Manager) Source(id string) (sources.Source, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sources[id]
	return s, ok
}

// Get returns the live snapshot of a source, loading it on a miss.
func (m *Manager) Get(ctx context.Context, id string) (*Snapshot, error) {
	if snap, ok := m.Peek(id); ok {
		return snap, nil
	}
	if _, ok := m.Source(id); !ok {
		return nil, fmt.Errorf("%w: %q", ErrSourceNotFound, id)
	}
	ch := m.group.DoChan(id, func() (any, error) {
		// Another caller may have installed it while we queued.
		if snap, ok := m.Peek(id); ok {
			return snap, nil
		}
		return m.load(context.WithoutCancel(ctx), id, true)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

// Peek returns the cached snapshot when present and not expired. It never loads.
func (m *Manager) Peek(id string) (*Snapshot, bool) {
	m.mu.RLock()
	snap, ok := m.snaps[id]
	m.mu.RUnlock()
	if !ok || snap.Expired(m.clock()) {
		return nil, false
	}
	return snap, true
}

// Refresh loads straight from the source and replaces the cached snapshot
// and the shared raw copy only when the load succeeds; on failure the
// previous snapshot keeps serving until its TTL. Refresh and Get share one
// in-flight load per source.
func (m *Manager) Refresh(ctx context.Context, id string) (*Snapshot, error) {
	if _, ok := m.Source(id); !ok {
		return nil, fmt.Errorf("%w: %q", ErrSourceNotFound, id)
	}
	v, err, _ := m.group.Do(id, func() (any, error) {
		return m.load(context.WithoutCancel(ctx), id, false)
	})
	if err != nil {
		m.log.Warn().Err(err).Str("source", id).Msg("refresh failed, keeping current snapshot")
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Invalidate drops the cached snapshot of a source.
func (m *Manager) Invalidate(ctx context.Context, id string) {
	m.mu.Lock()
	delete(m.snaps, id)
	m.mu.Unlock()
	if m.store != nil {
		if err := m.store.Delete(ctx, id); err != nil {
			m.log.Warn().Err(err).Str("source", id).Msg("shared snapshot delete failed")
		}
	}
}

func (m *Manager) load(ctx context.Context, id string, useStore bool) (*Snapshot, error) {
	src, ok := m.Source(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSourceNotFound, id)
	}
	if m.gate != nil {
		if err := m.gate.AcquireLoad(ctx); err != nil {
			return nil, err
		}
		defer m.gate.ReleaseLoad()
	}

	started := m.clock()
	var (
		table    dataset.Table
		restored bool
	)
	if useStore && m.store != nil {
		t, hit, err := m.store.Load(ctx, id)
		if err != nil {
			m.log.Warn().Err(err).Str("source", id).Msg("shared snapshot read failed")
		}
		table, restored = t, hit && err == nil
	}
	if !restored {
		fctx, cancel := context.WithTimeout(ctx, m.fetchTimeout)
		t, err := src.Fetch(fctx)
		cancel()
		if err != nil {
			m.log.Error().Err(err).Str("source", id).Msg("source fetch failed")
			return nil, err
		}
		table = t
	}

	records, err := dataset.Normalize(table, src.Schema())
	if err != nil {
		m.log.Error().Err(err).Str("source", id).Msg("source does not match schema")
		return nil, err
	}

	if !restored && m.store != nil {
		if err := m.store.Save(ctx, id, table, m.ttl); err != nil {
			m.log.Warn().Err(err).Str("source", id).Msg("shared snapshot write failed")
		}
	}

	now := m.clock()
	snap := &Snapshot{
		ID:        uuid.NewString(),
		Source:    id,
		Records:   records,
		Undated:   dataset.Undated(records),
		LoadedAt:  now,
		ExpiresAt: now.Add(m.ttl),
		Restored:  restored,
	}
	m.mu.Lock()
	m.snaps[id] = snap
	m.mu.Unlock()

	m.log.Info().
		Str("source", id).
		Str("snapshot", snap.ID).
		Int("records", len(records)).
		Int("undated", snap.Undated).
		Bool("restored", restored).
		Dur("took", now.Sub(started)).
		Msg("snapshot loaded")
	return snap, nil
}

// Start launches periodic eviction of expired snapshots.
func (m *Manager) Start() {
	m.cleanupWG.Add(1)
	ticker := time.NewTicker(m.cleanupEvery)
	go func() {
		defer m.cleanupWG.Done()
		defer ticker.Stop()
		for {
			select {
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.EvictExpired()
			}
		}
	}()
}

// Close stops background cleanup and drops every snapshot.
func (m *Manager) Close(ctx context.Context) error {
	m.stopOnce.Do(func() { close(m.stopCh) })
	done := make(chan struct{})
	go func() { m.cleanupWG.Wait(); close(done) }()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	m.mu.Lock()
	m.snaps = make(map[string]*Snapshot)
	m.mu.Unlock()
	return nil
}

// EvictExpired drops snapshots past their TTL and returns how many it dropped.
func (m *Manager) EvictExpired() int {
	now := m.clock()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.snaps {
		if s.Expired(now) {
			delete(m.snaps, id)
			n++
		}
	}
	if n > 0 {
		m.log.Debug().Int("evicted", n).Msg("expired snapshots evicted")
	}
	return n
}

// Count returns the number of cached snapshots.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.snaps)
}

// SourceInfo describes a registered source and its cache state.
type SourceInfo struct {
	ID        string     `json:"id"`
	Kind      string     `json:"kind"`
	Loaded    bool       `json:"loaded"`
	Snapshot  string     `json:"snapshot,omitempty"`
	Records   int        `json:"records,omitempty"`
	Undated   int        `json:"undated,omitempty"`
	LoadedAt  *time.Time `json:"loaded_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Sources lists the registered sources sorted by id.
func (m *Manager) Sources() []SourceInfo {
	now := m.clock()
	m.mu.RLock()
	out := make([]SourceInfo, 0, len(m.sources))
	for id, src := range m.sources {
		info := SourceInfo{ID: id, Kind: src.Kind()}
		if s, ok := m.snaps[id]; ok && !s.Expired(now) {
			loaded, expires := s.LoadedAt, s.ExpiresAt
			info.Loaded = true
			info.Snapshot = s.ID
			info.Records = len(s.Records)
			info.Undated = s.Undated
			info.LoadedAt, info.ExpiresAt = &loaded, &expires
		}
		out = append(out, info)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IDs lists the registered source ids, sorted.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	out := make([]string, 0, len(m.sources))
	for id := range m.sources {
		out = append(out, id)
	}
	m.mu.RUnlock()
	sort.Strings(out)
	return out
}
