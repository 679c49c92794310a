package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/topaplus/commandcenter/internal/insights"
	"github.com/topaplus/commandcenter/internal/reports"
	"github.com/topaplus/commandcenter/pkg/mcperr"
	"github.com/topaplus/commandcenter/pkg/validation"
)

// Tool names.
const (
	ToolListSources         = "list_sources"
	ToolFilterOptions       = "filter_options"
	ToolFunnelSummary       = "funnel_summary"
	ToolHierarchy           = "hierarchy_performance"
	ToolAgentBenchmark      = "agent_benchmark"
	ToolRejectionReasons    = "rejection_reasons"
	ToolStageRecords        = "stage_records"
	ToolDailySeries         = "daily_series"
	ToolEmployerOpportunity = "employer_opportunity"
	ToolRunReport           = "run_report"
	ToolRefreshSource       = "refresh_source"
)

// SourcesOutput lists sources, the runnable reports and the tools a client
// may call.
type SourcesOutput struct {
	Sources any                     `json:"sources"`
	Reports []insights.ReportConfig `json:"reports"`
	Tools   []ToolSummary           `json:"tools"`
}

// Toolset serves the registered tools in-process.
type Toolset struct {
	svc    *reports.Service
	filter *AdminToolFilter
	reg    *Registry
}

// Call invokes a tool in-process with the given arguments.
func (ts *Toolset) Call(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	_, h, ok := ts.reg.Get(name)
	if !ok {
		return nil, fmt.Errorf("registry: unknown tool %q", name)
	}
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return h(ctx, req)
}

// typed validates the input, runs fn and renders either a structured result
// with a text summary or a catalog error.
func typed[T any](fn func(ctx context.Context, in T) (any, string, error)) server.ToolHandlerFunc {
	return mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in T) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		out, summary, err := fn(ctx, in)
		if err != nil {
			return toolError(err), nil
		}
		res := mcp.NewToolResultStructured(out, summary)
		res.Content = []mcp.Content{mcp.NewTextContent(summary)}
		return res, nil
	})
}

func toolError(err error) *mcp.CallToolResult {
	return mcperr.New(reports.ErrorCode(err), err.Error())
}

// RegisterTools adds every analytical tool (and refresh_source, hidden by
// filter unless admin tools are enabled) to the server.
func RegisterTools(s *server.MCPServer, reg *Registry, svc *reports.Service, filter *AdminToolFilter) *Toolset {
	if filter == nil {
		filter = NewAdminToolFilter(false)
	}
	if reg == nil {
		reg = New()
	}
	ts := &Toolset{svc: svc, filter: filter, reg: reg}
	add := func(tool mcp.Tool, h server.ToolHandlerFunc) {
		if s != nil {
			s.AddTool(tool, h)
		}
		reg.Register(tool, h)
	}

	add(mcp.NewTool(
		ToolListSources,
		mcp.WithDescription("List configured data sources with their cache state (snapshot id, record count, undated records, expiry) the reports that run_report accepts and the tools available to this client. Start here to pick a source id."),
		mcp.WithInputSchema[ListSourcesInput](),
	), typed(func(ctx context.Context, in ListSourcesInput) (any, string, error) {
		srcs := svc.Sources()
		names := make([]string, 0, len(srcs))
		for _, s := range srcs {
			names = append(names, s.ID)
		}
		out := SourcesOutput{Sources: srcs, Reports: svc.Reports(), Tools: reg.Visible(filter)}
		return out, fmt.Sprintf("sources=%d [%s] reports=%d tools=%d",
			len(srcs), strings.Join(names, ", "), len(out.Reports), len(out.Tools)), nil
	}))

	add(mcp.NewTool(
		ToolFilterOptions,
		mcp.WithDescription("Return the agents, companies and squads present in a source plus its creation date bounds. Use the values as filters in the other tools. Loads the source when it is not cached."),
		mcp.WithInputSchema[SourceInput](),
	), typed(func(ctx context.Context, in SourceInput) (any, string, error) {
		out, err := svc.Options(ctx, in.Source)
		if err != nil {
			return nil, "", err
		}
		return out, fmt.Sprintf("agents=%d companies=%d squads=%d dates=[%s..%s] undated=%d",
			len(out.Agents), len(out.Companies), len(out.Squads), out.MinDate, out.MaxDate, out.FilterOptions.Undated), nil
	}))

	add(mcp.NewTool(
		ToolFunnelSummary,
		mcp.WithDescription("Compute the proposal funnel of the filtered population: count and ticket sum of simulated, eligible, excluded, analyzed, approved, generated, paid and rejected records, the mean paid ticket, final conversion (paid/simulated), utilization (approved/eligible) and the step conversions with the weakest step as bottleneck. Amounts are BRL. Records without a basis date never match a filter."),
		mcp.WithInputSchema[ScopeInput](),
	), typed(func(ctx context.Context, in ScopeInput) (any, string, error) {
		res, err := svc.Sections(ctx, in.query(), insights.SectionFunnel)
		if err != nil {
			return nil, "", err
		}
		paid := res.Funnel.Stage(insights.StagePaid)
		bottleneck := "none"
		if res.Funnel.Bottleneck != "" {
			bottleneck = string(res.Funnel.Bottleneck)
		}
		return res, fmt.Sprintf("records=%d paid=%d %s mean=%s conversion=%s utilization=%s bottleneck=%s",
			res.Records, paid.Count, paid.SumBRL, res.Funnel.PaidMeanBRL, res.Funnel.FinalConversionPct, res.Funnel.UtilizationPct, bottleneck), nil
	}))

	add(mcp.NewTool(
		ToolHierarchy,
		mcp.WithDescription("Team performance: paid volume and count divided by the number of active agents (agents with a disbursed contract, or every agent in scope with agent_scope=all_filtered), plus the top agents by paid volume and how concentrated that volume is (Top-N share and HHI band)."),
		mcp.WithInputSchema[RankingInput](),
	), typed(func(ctx context.Context, in RankingInput) (any, string, error) {
		q := in.query()
		q.TopN = in.TopN
		res, err := svc.Sections(ctx, q, insights.SectionHierarchy, insights.SectionRanking, insights.SectionConcentration)
		if err != nil {
			return nil, "", err
		}
		h, c := res.Hierarchy, res.Concentration
		band := c.Band
		if c.NoData {
			band = "none"
		}
		return res, fmt.Sprintf("active_agents=%d paid=%s avg_per_agent=%s avg_paid_per_agent=%s ranked=%d hhi=%.3f %s",
			h.ActiveAgents, h.PaidVolumeBRL, h.AvgVolumeBRL, h.AvgPaidText, len(res.Ranking), c.HHI, band), nil
	}))

	add(mcp.NewTool(
		ToolAgentBenchmark,
		mcp.WithDescription("Compare one agent with the team average and the top performer of the same scope (paid volume, paid count, mean ticket, conversion) and return the agent's daily evolution. agent is required."),
		mcp.WithInputSchema[WindowInput](),
	), typed(func(ctx context.Context, in WindowInput) (any, string, error) {
		q := in.query()
		q.Window, q.CustomStart = in.Window, in.CustomStart
		res, err := svc.Sections(ctx, q, insights.SectionBenchmark, insights.SectionEvolution)
		if err != nil {
			return nil, "", err
		}
		b := res.Benchmark
		if b.NoData {
			return res, fmt.Sprintf("agent=%s no data in scope", b.Agent), nil
		}
		return res, fmt.Sprintf("agent=%s paid=%s vs_average=%s vs_top=%s conversion_vs_average=%s",
			b.Agent, b.Individual.PaidVolumeBRL, b.VsAverage.PaidVolumeBRL, b.VsTop.PaidVolumeBRL, b.VsAverage.ConversionPP), nil
	}))

	add(mcp.NewTool(
		ToolRejectionReasons,
		mcp.WithDescription("Group rejected proposals by normalized reason category, project them on the critical-reason radar and list clients rejected for employment tenure (a follow-up opportunity). Set details=true for every rejected row."),
		mcp.WithInputSchema[RejectionInput](),
	), typed(func(ctx context.Context, in RejectionInput) (any, string, error) {
		q := in.query()
		q.Details = in.Details
		res, err := svc.Sections(ctx, q, insights.SectionRejections)
		if err != nil {
			return nil, "", err
		}
		r := res.Rejections
		top := "none"
		if len(r.Counts) > 0 {
			top = fmt.Sprintf("%s (%d)", r.Counts[0].Category, r.Counts[0].Count)
		}
		return res, fmt.Sprintf("rejected=%d categories=%d top=%s tenure_clients=%d", r.Total, len(r.Counts), top, len(r.TenureClients)), nil
	}))

	add(mcp.NewTool(
		ToolStageRecords,
		mcp.WithDescription("Page through the records of one funnel stage in the filtered population. Pass next_cursor back as cursor to continue; cursors expire when the source is refreshed (CURSOR_INVALID: restart from the first page)."),
		mcp.WithInputSchema[StageRecordsInput](),
	), typed(func(ctx context.Context, in StageRecordsInput) (any, string, error) {
		page, err := svc.StageRecords(ctx, reports.StageQuery{
			Query: reports.Query{
				Source: in.Source, Start: in.Start, End: in.End,
				Agent: in.Agent, Company: in.Company, Squad: in.Squad, Mode: in.Mode,
				GeneratedExcludesPaid: in.GeneratedExcludesPaid,
			},
			Stage:    in.Stage,
			Cursor:   in.Cursor,
			PageSize: in.PageSize,
		})
		if err != nil {
			return nil, "", err
		}
		return page, fmt.Sprintf("stage=%s total=%d offset=%d returned=%d more=%v",
			page.Stage, page.Total, page.Offset, len(page.Rows), page.NextCursor != ""), nil
	}))

	add(mcp.NewTool(
		ToolDailySeries,
		mcp.WithDescription("Paid ticket volume per calendar day of the filtered population. window narrows the series: all, last_7, last_15, last_30 or custom (30 days from custom_start, ignoring start/end)."),
		mcp.WithInputSchema[WindowInput](),
	), typed(func(ctx context.Context, in WindowInput) (any, string, error) {
		q := in.query()
		q.Window, q.CustomStart = in.Window, in.CustomStart
		res, err := svc.Sections(ctx, q, insights.SectionDaily)
		if err != nil {
			return nil, "", err
		}
		span := "no data"
		if n := len(res.Daily); n > 0 {
			span = res.Daily[0].Date + ".." + res.Daily[n-1].Date
		}
		return res, fmt.Sprintf("days=%d %s", len(res.Daily), span), nil
	}))

	add(mcp.NewTool(
		ToolEmployerOpportunity,
		mcp.WithDescription("Rank employers by untapped potential: headcount times the average paid ticket of the scope, minus the volume already paid with that employer, never below zero."),
		mcp.WithInputSchema[RankingInput](),
	), typed(func(ctx context.Context, in RankingInput) (any, string, error) {
		q := in.query()
		q.TopN = in.TopN
		res, err := svc.Sections(ctx, q, insights.SectionOpportunity)
		if err != nil {
			return nil, "", err
		}
		top := "none"
		if len(res.Opportunity) > 0 {
			top = res.Opportunity[0].Employer + " " + res.Opportunity[0].PotentialBRL
		}
		return res, fmt.Sprintf("employers=%d top=%s", len(res.Opportunity), top), nil
	}))

	add(mcp.NewTool(
		ToolRunReport,
		mcp.WithDescription("Run a declarative report (command_center, agent_performance or one defined in the config file) and return all of its sections in one call. agent_performance requires agent."),
		mcp.WithInputSchema[RunReportInput](),
	), typed(func(ctx context.Context, in RunReportInput) (any, string, error) {
		q := in.query()
		q.Window, q.CustomStart, q.TopN, q.Details = in.Window, in.CustomStart, in.TopN, in.Details
		res, err := svc.RunReport(ctx, in.Report, q)
		if err != nil {
			return nil, "", err
		}
		return res, fmt.Sprintf("report=%s records=%d snapshot=%s no_data=%v", res.Name, res.Records, res.Snapshot, res.NoData), nil
	}))

	refresh := typed(func(ctx context.Context, in SourceInput) (any, string, error) {
		m, err := svc.Refresh(ctx, in.Source)
		if err != nil {
			return nil, "", err
		}
		return m, fmt.Sprintf("source=%s snapshot=%s", m.Source, m.Snapshot), nil
	})
	add(mcp.NewTool(
		ToolRefreshSource,
		mcp.WithDescription("Discard the cached snapshot of a source and reload it from its origin. Outstanding stage_records cursors become invalid."),
		mcp.WithInputSchema[SourceInput](),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if !filter.Allowed(ToolRefreshSource) {
			return mcperr.New(mcperr.PermissionDenied, "refresh_source is disabled; set "+EnvEnableAdmin+"=true"), nil
		}
		return refresh(ctx, req)
	})

	return ts
}
