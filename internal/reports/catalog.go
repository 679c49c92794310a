package reports

import (
	"fmt"
	"sort"

	"github.com/topaplus/commandcenter/config"
	"github.com/topaplus/commandcenter/internal/insights"
)

// Catalog holds the runnable report definitions by name.
type Catalog map[string]insights.ReportConfig

// NewCatalog starts from the built-in dashboards and layers the configured
// reports on top; a configured report with a built-in name replaces it.
func NewCatalog(specs []config.ReportSpec) (Catalog, error) {
	c := Catalog{}
	for _, r := range insights.BuiltinReports() {
		c[r.Name] = r
	}
	for _, s := range specs {
		rc := insights.ReportConfig{
			Name:                  s.Name,
			Title:                 s.Title,
			DateMode:              insights.DateMode(s.DateMode),
			AgentScope:            insights.AgentScope(s.AgentScope),
			GeneratedExcludesPaid: s.GeneratedExcludesPaid,
			TopN:                  s.TopN,
			RequireAgent:          s.RequireAgent,
			Window:                insights.Window(s.Window),
		}
		for _, sec := range s.Sections {
			rc.Sections = append(rc.Sections, insights.Section(sec))
		}
		if err := rc.Validate(); err != nil {
			return nil, fmt.Errorf("reports: %w", err)
		}
		c[rc.Name] = rc
	}
	return c, nil
}

// List returns the definitions sorted by name.
func (c Catalog) List() []insights.ReportConfig {
	out := make([]insights.ReportConfig, 0, len(c))
	for _, r := range c {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// NewRunner builds the report runner from the configured reason taxonomy.
func NewRunner(rules []config.ReasonRule, radar []string) insights.Runner {
	var rs []insights.ReasonRule
	for _, r := range rules {
		rs = append(rs, insights.ReasonRule{Contains: r.Contains, Category: r.Category})
	}
	if len(radar) == 0 {
		radar = insights.DefaultRadar()
	}
	return insights.Runner{Reasons: insights.NewReasonNormalizer(rs), Watchlist: radar}
}
