package insights

import (
	"fmt"
	"strings"
	"time"

	"github.com/topaplus/commandcenter/internal/dataset"
)

// Section names a block of a declarative report.
type Section string

const (
	SectionFunnel        Section = "funnel"
	SectionHierarchy     Section = "hierarchy"
	SectionRanking       Section = "ranking"
	SectionDaily         Section = "daily"
	SectionRejections    Section = "rejections"
	SectionRadar         Section = "radar"
	SectionBenchmark     Section = "benchmark"
	SectionEvolution     Section = "evolution"
	SectionOpportunity   Section = "opportunity"
	SectionConcentration Section = "concentration"
)

var knownSections = map[Section]bool{
	SectionFunnel: true, SectionHierarchy: true, SectionRanking: true,
	SectionDaily: true, SectionRejections: true, SectionRadar: true,
	SectionBenchmark: true, SectionEvolution: true, SectionOpportunity: true,
	SectionConcentration: true,
}

// agentSections only make sense for a single agent.
var agentSections = map[Section]bool{SectionBenchmark: true, SectionEvolution: true}

// ParseSection accepts a section name, case-insensitively.
func ParseSection(s string) (Section, error) {
	sec := Section(strings.ToLower(strings.TrimSpace(s)))
	if !knownSections[sec] {
		return "", fmt.Errorf("%w: unknown section %q", ErrInvalidInput, s)
	}
	return sec, nil
}

// ReportConfig declares which sections a report computes and how.
type ReportConfig struct {
	Name                  string     `json:"name"`
	Title                 string     `json:"title"`
	Sections              []Section  `json:"sections"`
	DateMode              DateMode   `json:"date_mode"`
	AgentScope            AgentScope `json:"agent_scope"`
	GeneratedExcludesPaid bool       `json:"generated_excludes_paid"`
	TopN                  int        `json:"top_n"`
	RequireAgent          bool       `json:"require_agent"`
	Window                Window     `json:"window"`
}

// Validate checks names and fills defaults.
func (c *ReportConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: report name is required", ErrInvalidInput)
	}
	if len(c.Sections) == 0 {
		return fmt.Errorf("%w: report %q has no sections", ErrInvalidInput, c.Name)
	}
	c.Sections = append([]Section(nil), c.Sections...)
	for i, s := range c.Sections {
		sec, err := ParseSection(string(s))
		if err != nil {
			return fmt.Errorf("report %q: %w", c.Name, err)
		}
		c.Sections[i] = sec
	}
	mode, err := ParseDateMode(string(c.DateMode))
	if err != nil {
		return fmt.Errorf("report %q: %w", c.Name, err)
	}
	c.DateMode = mode
	scope, err := ParseAgentScope(string(c.AgentScope))
	if err != nil {
		return fmt.Errorf("report %q: %w", c.Name, err)
	}
	c.AgentScope = scope
	w, err := ParseWindow(string(c.Window))
	if err != nil {
		return fmt.Errorf("report %q: %w", c.Name, err)
	}
	c.Window = w
	if c.TopN <= 0 {
		c.TopN = 10
	}
	if c.Title == "" {
		c.Title = c.Name
	}
	return nil
}

// Has reports whether the config includes a section.
func (c ReportConfig) Has(s Section) bool {
	for _, x := range c.Sections {
		if x == s {
			return true
		}
	}
	return false
}

// BuiltinReports reproduces the two dashboards: the team command center and
// the individual agent performance view.
func BuiltinReports() []ReportConfig {
	return []ReportConfig{
		{
			Name:       "command_center",
			Title:      "Command Center",
			Sections:   []Section{SectionFunnel, SectionHierarchy, SectionRanking, SectionDaily, SectionRejections, SectionRadar, SectionConcentration},
			DateMode:   DateModeStandard,
			AgentScope: ScopePaidActive,
			TopN:       10,
			Window:     WindowAll,
		},
		{
			Name:         "agent_performance",
			Title:        "Agent Performance",
			Sections:     []Section{SectionFunnel, SectionBenchmark, SectionEvolution, SectionRejections, SectionOpportunity},
			DateMode:     DateModeStandard,
			AgentScope:   ScopePaidActive,
			TopN:         10,
			RequireAgent: true,
			Window:       WindowAll,
		},
	}
}

// ReportRequest is the caller side of a report run.
type ReportRequest struct {
	Filter Filter
	// Window overrides the configured daily window when set.
	Window      Window
	CustomStart *time.Time
	Now         time.Time
	// Details includes rejected drill-down rows.
	Details bool
}

// Report holds the computed sections; absent sections stay nil.
type Report struct {
	Name          string                `json:"name"`
	Title         string                `json:"title"`
	Filter        ReportFilter          `json:"filter"`
	Records       int                   `json:"records"`
	Funnel        *FunnelSummary        `json:"funnel,omitempty"`
	Hierarchy     *HierarchySummary     `json:"hierarchy,omitempty"`
	Ranking       []AgentTotal          `json:"ranking,omitempty"`
	Daily         []DailyPoint          `json:"daily,omitempty"`
	Rejections    *RejectionSummary     `json:"rejections,omitempty"`
	Radar         []ReasonCount         `json:"radar,omitempty"`
	Benchmark     *BenchmarkResult      `json:"benchmark,omitempty"`
	Evolution     []DailyPoint          `json:"evolution,omitempty"`
	Opportunity   []EmployerOpportunity `json:"opportunity,omitempty"`
	Concentration *ConcentrationSummary `json:"concentration,omitempty"`
	NoData        bool                  `json:"no_data"`
}

// ReportFilter echoes the applied scope.
type ReportFilter struct {
	Start   string   `json:"start,omitempty"`
	End     string   `json:"end,omitempty"`
	Agent   string   `json:"agent,omitempty"`
	Company string   `json:"company,omitempty"`
	Squad   string   `json:"squad,omitempty"`
	Mode    DateMode `json:"mode"`
	Window  Window   `json:"window,omitempty"`
}

// Runner computes reports with a fixed reason taxonomy.
type Runner struct {
	Reasons   ReasonNormalizer
	Watchlist []string
}

// Run computes every section of cfg over records. The request filter's date
// mode is replaced by the report's own unless the request sets one.
func (rn Runner) Run(cfg ReportConfig, records []dataset.Record, req ReportRequest) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}
	f := req.Filter
	if f.Mode == "" {
		f.Mode = cfg.DateMode
	}
	if cfg.RequireAgent && f.Agent == "" {
		return Report{}, fmt.Errorf("%w: report %q", ErrAgentRequired, cfg.Name)
	}
	window := cfg.Window
	if req.Window != "" {
		window = req.Window
	}
	now := req.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	scoped := f.Apply(records)
	st := Partition(scoped, ClassifyOptions{GeneratedExcludesPaid: cfg.GeneratedExcludesPaid})
	// The team view and benchmark share one population: the scope minus the agent.
	team := f.WithoutAgent().Apply(records)

	out := Report{
		Name:    cfg.Name,
		Title:   cfg.Title,
		Records: len(scoped),
		NoData:  len(scoped) == 0,
		Filter: ReportFilter{
			Start: dateKey(f.Start), End: dateKey(f.End),
			Agent: f.Agent, Company: f.Company, Squad: f.Squad,
			Mode: f.Mode, Window: window,
		},
	}

	var rejections *RejectionSummary
	rejected := func() *RejectionSummary {
		if rejections == nil {
			s := SummarizeRejections(scoped, rn.Reasons, rn.Watchlist, req.Details)
			rejections = &s
		}
		return rejections
	}

	for _, sec := range cfg.Sections {
		if agentSections[sec] && f.Agent == "" {
			continue
		}
		switch sec {
		case SectionFunnel:
			s := Summarize(st)
			out.Funnel = &s
		case SectionHierarchy:
			h := Hierarchy(st, cfg.AgentScope)
			out.Hierarchy = &h
		case SectionRanking:
			out.Ranking = RankAgents(st.Paid, cfg.TopN)
		case SectionDaily:
			series, err := rn.daily(records, f, window, req.CustomStart, now, true)
			if err != nil {
				return Report{}, err
			}
			out.Daily = series
		case SectionRejections:
			out.Rejections = rejected()
		case SectionRadar:
			out.Radar = rejected().Radar
		case SectionBenchmark:
			b := Benchmark(team, f.Agent, cfg.AgentScope)
			out.Benchmark = &b
		case SectionEvolution:
			series, err := rn.daily(records, f, window, req.CustomStart, now, false)
			if err != nil {
				return Report{}, err
			}
			out.Evolution = series
		case SectionOpportunity:
			avg := MeanTicket(Partition(team, ClassifyOptions{}).Paid)
			if f.Agent != "" {
				avg = MeanTicket(st.Paid)
			}
			out.Opportunity = EmployerOpportunities(scoped, avg, cfg.TopN)
		case SectionConcentration:
			c := Concentration(st.Paid, cfg.TopN)
			out.Concentration = &c
		}
	}
	return out, nil
}

// daily builds a series over the paid records (or all records when paidOnly
// is false). The custom window drops the caller's date bounds.
func (rn Runner) daily(records []dataset.Record, f Filter, w Window, start *time.Time, now time.Time, paidOnly bool) ([]DailyPoint, error) {
	scope := f
	if w == WindowCustom {
		scope = f.WithoutDates()
	}
	recs := scope.Apply(records)
	if paidOnly {
		recs = Partition(recs, ClassifyOptions{}).Paid
	}
	return DailySeries(recs, DailyQuery{Mode: f.Mode, Window: w, Start: start, Now: now})
}
