package registry

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/topaplus/commandcenter/internal/dataset"
	"github.com/topaplus/commandcenter/internal/insights"
	"github.com/topaplus/commandcenter/internal/reports"
	"github.com/topaplus/commandcenter/internal/snapshots"
	"github.com/topaplus/commandcenter/pkg/pagination"
)

type memSnaps struct {
	records []dataset.Record
	version int
}

func (m *memSnaps) snap() *snapshots.Snapshot {
	return &snapshots.Snapshot{ID: fmt.Sprintf("v%d", m.version), Source: "topa", Records: m.records}
}

func (m *memSnaps) Get(ctx context.Context, id string) (*snapshots.Snapshot, error) {
	if id != "topa" {
		return nil, fmt.Errorf("%w: %q", snapshots.ErrSourceNotFound, id)
	}
	return m.snap(), nil
}

func (m *memSnaps) Refresh(ctx context.Context, id string) (*snapshots.Snapshot, error) {
	if _, err := m.Get(ctx, id); err != nil {
		return nil, err
	}
	m.version++
	return m.snap(), nil
}

func (m *memSnaps) Sources() []snapshots.SourceInfo {
	return []snapshots.SourceInfo{{ID: "topa", Kind: "csv"}}
}

func record(agent, analysis, contract string, ticket int64, day int, reason string) dataset.Record {
	created := time.Date(2024, 3, day, 9, 0, 0, 0, time.UTC)
	return dataset.NormalizeRecord(dataset.Record{
		CreatedAt:         &created,
		AgentID:           agent,
		AnalysisStatus:    analysis,
		ContractStatus:    contract,
		RejectionReason:   reason,
		Ticket:            decimal.NewFromInt(ticket),
		EmployerDocument:  "12.345.678/0001-90",
		EmployerHeadcount: 10,
	})
}

func newToolset(t *testing.T, admin bool) (*Toolset, *Registry) {
	t.Helper()
	snaps := &memSnaps{records: []dataset.Record{
		record("ana", insights.StatusApproved, insights.StatusDisbursed, 300, 1, ""),
		record("ana", insights.StatusApproved, insights.StatusDisbursed, 100, 2, ""),
		record("bia", insights.StatusApproved, insights.StatusDisbursed, 200, 2, ""),
		record("bia", insights.StatusRejected, "", 0, 3, "Tempo de Emprego inferior"),
		record("caio", "CREATED", "", 0, 4, ""),
	}}
	svc := reports.NewService(snaps, nil, reports.NewRunner(nil, nil), zerolog.Nop())
	reg := New()
	return RegisterTools(nil, reg, svc, NewAdminToolFilter(admin)), reg
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func call(t *testing.T, ts *Toolset, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := ts.Call(context.Background(), name, args)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func TestRegisterTools_AllListed(t *testing.T) {
	_, reg := newToolset(t, false)
	tools := reg.Tools()
	names := make([]string, 0, len(tools))
	for _, tl := range tools {
		names = append(names, tl.Name)
	}
	require.Equal(t, []string{
		ToolAgentBenchmark, ToolDailySeries, ToolEmployerOpportunity, ToolFilterOptions,
		ToolFunnelSummary, ToolHierarchy, ToolListSources, ToolRefreshSource,
		ToolRejectionReasons, ToolRunReport, ToolStageRecords,
	}, names)

	visible := NewAdminToolFilter(false).FilterTools(context.Background(), tools)
	require.Len(t, visible, len(tools)-1)
	require.Len(t, NewAdminToolFilter(true).FilterTools(context.Background(), tools), len(tools))
}

func TestFunnelSummary(t *testing.T) {
	ts, _ := newToolset(t, false)
	res := call(t, ts, ToolFunnelSummary, map[string]any{"source": "topa"})
	require.False(t, res.IsError, text(t, res))
	require.Contains(t, text(t, res), "paid=3 R$ 600,00")
	require.Contains(t, text(t, res), "conversion=60.00%")
	require.Contains(t, text(t, res), "bottleneck=analyzed")

	out, ok := res.StructuredContent.(reports.Result)
	require.True(t, ok)
	require.Equal(t, "v0", out.Snapshot)
}

func TestValidationErrors(t *testing.T) {
	ts, _ := newToolset(t, false)

	res := call(t, ts, ToolFunnelSummary, map[string]any{})
	require.True(t, res.IsError)
	require.True(t, strings.HasPrefix(text(t, res), "VALIDATION: source is required"))

	res = call(t, ts, ToolFunnelSummary, map[string]any{"source": "topa", "start": "01/03/2024"})
	require.True(t, res.IsError)
	require.Contains(t, text(t, res), "YYYY-MM-DD")

	res = call(t, ts, ToolDailySeries, map[string]any{"source": "topa", "window": "last_90"})
	require.True(t, res.IsError)

	res = call(t, ts, ToolFunnelSummary, map[string]any{"source": "nope"})
	require.True(t, strings.HasPrefix(text(t, res), "SOURCE_NOT_FOUND:"))
}

func TestAgentBenchmark_RequiresAgent(t *testing.T) {
	ts, _ := newToolset(t, false)
	res := call(t, ts, ToolAgentBenchmark, map[string]any{"source": "topa"})
	require.True(t, res.IsError)
	require.True(t, strings.HasPrefix(text(t, res), "AGENT_REQUIRED:"))

	res = call(t, ts, ToolAgentBenchmark, map[string]any{"source": "topa", "agent": "ana"})
	require.False(t, res.IsError, text(t, res))
	require.Contains(t, text(t, res), "paid=R$ 400,00 vs_average=R$ 100,00 vs_top=R$ 0,00")
}

func TestRejectionReasons(t *testing.T) {
	ts, _ := newToolset(t, false)
	res := call(t, ts, ToolRejectionReasons, map[string]any{"source": "topa"})
	require.False(t, res.IsError, text(t, res))
	require.Equal(t, "rejected=1 categories=1 top="+insights.CategoryTenure+" (1) tenure_clients=1", text(t, res))
}

func TestStageRecords_Paging(t *testing.T) {
	ts, _ := newToolset(t, true)
	res := call(t, ts, ToolStageRecords, map[string]any{"source": "topa", "stage": "paid", "page_size": 2})
	require.False(t, res.IsError, text(t, res))
	page := res.StructuredContent.(reports.StagePage)
	require.Equal(t, 3, page.Total)
	require.NotEmpty(t, page.NextCursor)

	res = call(t, ts, ToolStageRecords, map[string]any{"cursor": page.NextCursor})
	require.False(t, res.IsError, text(t, res))
	require.Contains(t, text(t, res), "offset=2 returned=1 more=false")

	res = call(t, ts, ToolRefreshSource, map[string]any{"source": "topa"})
	require.False(t, res.IsError, text(t, res))

	res = call(t, ts, ToolStageRecords, map[string]any{"cursor": page.NextCursor})
	require.True(t, res.IsError)
	require.True(t, strings.HasPrefix(text(t, res), "CURSOR_INVALID:"))

	res = call(t, ts, ToolStageRecords, map[string]any{"source": "topa"})
	require.True(t, res.IsError)
	require.Contains(t, text(t, res), "stage is required (or supply cursor)")
}

func TestStageRecords_MalformedCursor(t *testing.T) {
	ts, _ := newToolset(t, false)
	tok, err := pagination.EncodeCursor(pagination.Cursor{Src: "topa", Sid: "v0", St: "paid", Ps: 10})
	require.NoError(t, err)
	res := call(t, ts, ToolStageRecords, map[string]any{"cursor": tok[:len(tok)-3] + "!!!"})
	require.True(t, res.IsError)
	require.True(t, strings.HasPrefix(text(t, res), "CURSOR_INVALID:"))
}

func TestRunReport(t *testing.T) {
	ts, _ := newToolset(t, false)
	res := call(t, ts, ToolRunReport, map[string]any{"source": "topa", "report": "command_center"})
	require.False(t, res.IsError, text(t, res))
	require.Contains(t, text(t, res), "report=command_center records=5")

	res = call(t, ts, ToolRunReport, map[string]any{"source": "topa", "report": "weekly"})
	require.True(t, strings.HasPrefix(text(t, res), "REPORT_NOT_FOUND:"))
}

func TestEmployerOpportunityAndDaily(t *testing.T) {
	ts, _ := newToolset(t, false)
	res := call(t, ts, ToolEmployerOpportunity, map[string]any{"source": "topa"})
	require.False(t, res.IsError, text(t, res))
	// 10 × mean 200 − 600 realized
	require.Equal(t, "employers=1 top=12.345.678/0001-90 R$ 1.400,00", text(t, res))

	res = call(t, ts, ToolDailySeries, map[string]any{"source": "topa"})
	require.False(t, res.IsError, text(t, res))
	require.Equal(t, "days=2 2024-03-01..2024-03-02", text(t, res))
}

func TestRefreshSource_DisabledWithoutAdmin(t *testing.T) {
	ts, _ := newToolset(t, false)
	res := call(t, ts, ToolRefreshSource, map[string]any{"source": "topa"})
	require.True(t, res.IsError)
	require.True(t, strings.HasPrefix(text(t, res), "PERMISSION_DENIED:"))
}

func TestListSourcesAndOptions(t *testing.T) {
	ts, _ := newToolset(t, false)
	res := call(t, ts, ToolListSources, map[string]any{})
	require.False(t, res.IsError, text(t, res))
	require.Equal(t, "sources=1 [topa] reports=2 tools=10", text(t, res))
	out := res.StructuredContent.(SourcesOutput)
	for _, tl := range out.Tools {
		require.NotEqual(t, ToolRefreshSource, tl.Name)
		require.NotEmpty(t, tl.Description)
	}

	res = call(t, ts, ToolFilterOptions, map[string]any{"source": "topa"})
	require.False(t, res.IsError, text(t, res))
	require.Contains(t, text(t, res), "agents=3")
}

func TestHierarchyTool_ReportsConcentration(t *testing.T) {
	ts, _ := newToolset(t, false)
	res := call(t, ts, ToolHierarchy, map[string]any{"source": "topa", "top_n": 1})
	require.False(t, res.IsError, text(t, res))
	require.Contains(t, text(t, res), "active_agents=2 paid=R$ 600,00")
	require.Contains(t, text(t, res), "ranked=1 hhi=0.556 highly_concentrated")

	out, ok := res.StructuredContent.(reports.Result)
	require.True(t, ok)
	require.Len(t, out.Concentration.Agents, 1)
	require.Equal(t, "ana", out.Concentration.Agents[0].Agent)
}

func TestListSources_ToolsFollowAdminSetting(t *testing.T) {
	ts, reg := newToolset(t, true)
	res := call(t, ts, ToolListSources, map[string]any{})
	require.False(t, res.IsError, text(t, res))
	require.Contains(t, text(t, res), "tools=11")
	out := res.StructuredContent.(SourcesOutput)
	require.Len(t, out.Tools, len(reg.Tools()))
	var admin []string
	for _, tl := range out.Tools {
		if tl.Admin {
			admin = append(admin, tl.Name)
		}
	}
	require.Equal(t, []string{ToolRefreshSource}, admin)

	tool, _, ok := reg.Get(ToolRefreshSource)
	require.True(t, ok)
	require.Equal(t, ToolRefreshSource, tool.Name)

	_, err := ts.Call(context.Background(), "drop_tables", nil)
	require.ErrorContains(t, err, "unknown tool")
}
