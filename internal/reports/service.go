package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/topaplus/commandcenter/internal/insights"
	"github.com/topaplus/commandcenter/internal/snapshots"
)

// Snapshots is the slice of the snapshot cache the service needs.
type Snapshots interface {
	Get(ctx context.Context, id string) (*snapshots.Snapshot, error)
	Refresh(ctx context.Context, id string) (*snapshots.Snapshot, error)
	Sources() []snapshots.SourceInfo
}

// Service resolves a snapshot, scopes it and runs one pipeline call. Both the
// MCP tools and the HTTP API go through it.
type Service struct {
	snaps       Snapshots
	catalog     Catalog
	runner      insights.Runner
	clock       func() time.Time
	pageSize    int
	maxPageSize int
	log         zerolog.Logger
}

// NewService wires the service. A nil catalog means the built-in reports only.
func NewService(snaps Snapshots, catalog Catalog, runner insights.Runner, log zerolog.Logger) *Service {
	if catalog == nil {
		catalog, _ = NewCatalog(nil)
	}
	return &Service{
		snaps:       snaps,
		catalog:     catalog,
		runner:      runner,
		clock:       time.Now,
		pageSize:    50,
		maxPageSize: 500,
		log:         log.With().Str("component", "reports").Logger(),
	}
}

// SetClock replaces the time source used for relative windows.
func (s *Service) SetClock(clock func() time.Time) {
	if clock != nil {
		s.clock = clock
	}
}

// SetPageSizes sets the default and maximum stage listing page sizes.
func (s *Service) SetPageSizes(def, maxSize int) {
	if def > 0 {
		s.pageSize = def
	}
	if maxSize > 0 {
		s.maxPageSize = maxSize
	}
}

// Meta identifies the snapshot a result was computed from.
type Meta struct {
	Source   string    `json:"source"`
	Snapshot string    `json:"snapshot"`
	LoadedAt time.Time `json:"loaded_at"`
	Undated  int       `json:"undated_records"`
}

func meta(snap *snapshots.Snapshot) Meta {
	return Meta{Source: snap.Source, Snapshot: snap.ID, LoadedAt: snap.LoadedAt, Undated: snap.Undated}
}

// Result is a computed report plus its provenance.
type Result struct {
	Meta
	insights.Report
}

// Sources lists configured sources and their cache state.
func (s *Service) Sources() []snapshots.SourceInfo {
	return s.snaps.Sources()
}

// Reports lists the runnable report definitions.
func (s *Service) Reports() []insights.ReportConfig {
	return s.catalog.List()
}

// OptionsResult holds the selectable filter values of a source.
type OptionsResult struct {
	Meta
	insights.FilterOptions
}

// Options returns the distinct agents, companies and squads of a source.
func (s *Service) Options(ctx context.Context, source string) (OptionsResult, error) {
	snap, err := s.snaps.Get(ctx, source)
	if err != nil {
		return OptionsResult{}, err
	}
	return OptionsResult{Meta: meta(snap), FilterOptions: insights.Options(snap.Records)}, nil
}

// RunReport runs a catalog report by name.
func (s *Service) RunReport(ctx context.Context, name string, q Query) (Result, error) {
	cfg, ok := s.catalog[strings.TrimSpace(name)]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrReportNotFound, name)
	}
	if q.TopN > 0 {
		cfg.TopN = q.TopN
	}
	if q.AgentScope != "" {
		scope, err := insights.ParseAgentScope(q.AgentScope)
		if err != nil {
			return Result{}, err
		}
		cfg.AgentScope = scope
	}
	if q.GeneratedExcludesPaid {
		cfg.GeneratedExcludesPaid = true
	}
	return s.run(ctx, cfg, q)
}

// Sections runs an ad-hoc report made of the given sections. Agent sections
// make the agent mandatory.
func (s *Service) Sections(ctx context.Context, q Query, sections ...insights.Section) (Result, error) {
	scope, err := insights.ParseAgentScope(q.AgentScope)
	if err != nil {
		return Result{}, err
	}
	cfg := insights.ReportConfig{
		Name:                  "adhoc",
		Sections:              sections,
		AgentScope:            scope,
		GeneratedExcludesPaid: q.GeneratedExcludesPaid,
		TopN:                  q.TopN,
	}
	for _, sec := range sections {
		if sec == insights.SectionBenchmark || sec == insights.SectionEvolution {
			cfg.RequireAgent = true
		}
	}
	return s.run(ctx, cfg, q)
}

func (s *Service) run(ctx context.Context, cfg insights.ReportConfig, q Query) (Result, error) {
	req, err := q.request(s.clock().UTC())
	if err != nil {
		return Result{}, err
	}
	snap, err := s.snaps.Get(ctx, q.Source)
	if err != nil {
		return Result{}, err
	}
	rep, err := s.runner.Run(cfg, snap.Records, req)
	if err != nil {
		return Result{}, err
	}
	s.log.Debug().
		Str("source", snap.Source).
		Str("snapshot", snap.ID).
		Str("report", cfg.Name).
		Int("records", rep.Records).
		Msg("report computed")
	return Result{Meta: meta(snap), Report: rep}, nil
}

// Refresh reloads a source from its origin.
func (s *Service) Refresh(ctx context.Context, source string) (Meta, error) {
	snap, err := s.snaps.Refresh(ctx, source)
	if err != nil {
		return Meta{}, err
	}
	s.log.Info().Str("source", source).Str("snapshot", snap.ID).Msg("source refreshed")
	return meta(snap), nil
}
