package reports

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/topaplus/commandcenter/config"
	"github.com/topaplus/commandcenter/internal/dataset"
	"github.com/topaplus/commandcenter/internal/insights"
	"github.com/topaplus/commandcenter/internal/runtime"
	"github.com/topaplus/commandcenter/internal/snapshots"
	"github.com/topaplus/commandcenter/internal/sources"
	"github.com/topaplus/commandcenter/pkg/mcperr"
	"github.com/topaplus/commandcenter/pkg/pagination"
)

type fakeSnaps struct {
	records []dataset.Record
	version int
	err     error
}

func (f *fakeSnaps) snap() *snapshots.Snapshot {
	return &snapshots.Snapshot{
		ID:       fmt.Sprintf("snap-%d", f.version),
		Source:   "topa",
		Records:  f.records,
		LoadedAt: time.Date(2024, 3, 31, 8, 0, 0, 0, time.UTC),
	}
}

func (f *fakeSnaps) Get(ctx context.Context, id string) (*snapshots.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	if id != "topa" {
		return nil, fmt.Errorf("%w: %q", snapshots.ErrSourceNotFound, id)
	}
	return f.snap(), nil
}

func (f *fakeSnaps) Refresh(ctx context.Context, id string) (*snapshots.Snapshot, error) {
	if _, err := f.Get(ctx, id); err != nil {
		return nil, err
	}
	f.version++
	return f.snap(), nil
}

func (f *fakeSnaps) Sources() []snapshots.SourceInfo {
	return []snapshots.SourceInfo{{ID: "topa", Kind: "csv"}}
}

func at(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 9, 0, 0, 0, time.UTC)
	return &t
}

func rec(agent, analysis, contract string, ticket int64, created, paidAt *time.Time) dataset.Record {
	return dataset.NormalizeRecord(dataset.Record{
		CreatedAt:      created,
		PaidAt:         paidAt,
		AgentID:        agent,
		CompanyID:      "acme",
		AnalysisStatus: analysis,
		ContractStatus: contract,
		Ticket:         decimal.NewFromInt(ticket),
	})
}

func fixture() []dataset.Record {
	rs := []dataset.Record{
		rec("A", insights.StatusApproved, insights.StatusDisbursed, 200, at(2024, 3, 1), at(2024, 3, 2)),
		rec("A", insights.StatusApproved, insights.StatusDisbursed, 100, at(2024, 3, 3), at(2024, 3, 4)),
		rec("B", insights.StatusApproved, insights.StatusDisbursed, 100, at(2024, 3, 5), at(2024, 3, 6)),
		rec("B", insights.StatusRejected, "", 0, at(2024, 3, 6), nil),
		rec("C", "CREATED", "", 0, at(2024, 3, 7), nil),
		rec("C", insights.StatusApproved, insights.StatusDisbursed, 100, nil, nil),
	}
	for i := range rs {
		rs[i].Row = i + 2
	}
	return rs
}

func newService(t *testing.T) (*Service, *fakeSnaps) {
	t.Helper()
	snaps := &fakeSnaps{records: fixture()}
	svc := NewService(snaps, nil, NewRunner(nil, nil), zerolog.Nop())
	svc.SetClock(func() time.Time { return time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC) })
	return svc, snaps
}

func TestQueryFilter(t *testing.T) {
	f, err := Query{Start: "2024-03-01", End: "2024-03-31", Agent: " A ", Mode: "hybrid"}.Filter()
	require.NoError(t, err)
	require.Equal(t, "A", f.Agent)
	require.Equal(t, insights.DateModeHybrid, f.Mode)
	require.Equal(t, 2024, f.Start.Year())

	_, err = Query{Start: "01/03/2024"}.Filter()
	require.ErrorIs(t, err, insights.ErrInvalidInput)

	_, err = Query{Start: "2024-04-01", End: "2024-03-01"}.Filter()
	require.ErrorIs(t, err, insights.ErrInvalidInput)

	_, err = Query{Mode: "weekly"}.Filter()
	require.ErrorIs(t, err, insights.ErrInvalidInput)
}

func TestRunReport_CommandCenter(t *testing.T) {
	svc, _ := newService(t)
	res, err := svc.RunReport(context.Background(), "command_center", Query{Source: "topa"})
	require.NoError(t, err)
	require.Equal(t, "snap-0", res.Snapshot)
	require.Equal(t, 5, res.Records, "the undated record never matches")
	require.Equal(t, "R$ 400,00", res.Funnel.Stage(insights.StagePaid).SumBRL)
	require.Equal(t, 2, res.Hierarchy.ActiveAgents)
	require.Len(t, res.Daily, 3)
}

func TestRunReport_Errors(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.RunReport(ctx, "nope", Query{Source: "topa"})
	require.ErrorIs(t, err, ErrReportNotFound)
	require.Equal(t, mcperr.ReportNotFound, ErrorCode(err))

	_, err = svc.RunReport(ctx, "agent_performance", Query{Source: "topa"})
	require.Equal(t, mcperr.AgentRequired, ErrorCode(err))

	_, err = svc.RunReport(ctx, "command_center", Query{Source: "other"})
	require.Equal(t, mcperr.SourceNotFound, ErrorCode(err))

	_, err = svc.RunReport(ctx, "command_center", Query{Source: "topa", AgentScope: "everyone"})
	require.Equal(t, mcperr.Validation, ErrorCode(err))
}

func TestSections_Benchmark(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Sections(ctx, Query{Source: "topa"}, insights.SectionBenchmark)
	require.ErrorIs(t, err, insights.ErrAgentRequired)

	res, err := svc.Sections(ctx, Query{Source: "topa", Agent: "A"}, insights.SectionBenchmark, insights.SectionEvolution)
	require.NoError(t, err)
	require.NotNil(t, res.Benchmark)
	require.Equal(t, "R$ 300,00", res.Benchmark.Individual.PaidVolumeBRL)
	require.Equal(t, "R$ 200,00", res.Benchmark.Average.PaidVolumeBRL)
	require.Equal(t, "R$ 100,00", res.Benchmark.VsAverage.PaidVolumeBRL)
	require.Len(t, res.Evolution, 2)
	require.Nil(t, res.Funnel)
}

func TestSections_ConfiguredGeneratedReading(t *testing.T) {
	svc, _ := newService(t)
	res, err := svc.Sections(context.Background(), Query{Source: "topa", GeneratedExcludesPaid: true}, insights.SectionFunnel)
	require.NoError(t, err)
	require.Equal(t, 0, res.Funnel.Stage(insights.StageGenerated).Count)
	require.Equal(t, 3, res.Funnel.Stage(insights.StagePaid).Count)
}

func TestOptionsAndSources(t *testing.T) {
	svc, _ := newService(t)
	opts, err := svc.Options(context.Background(), "topa")
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "C"}, opts.Agents)
	require.Equal(t, 1, opts.FilterOptions.Undated)
	require.Equal(t, "2024-03-01", opts.MinDate)
	require.Len(t, svc.Sources(), 1)
	require.Len(t, svc.Reports(), 2)
}

func TestStageRecords_Paging(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	page, err := svc.StageRecords(ctx, StageQuery{Query: Query{Source: "topa"}, Stage: "paid", PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, 3, page.Total)
	require.Len(t, page.Rows, 2)
	require.Equal(t, 2, page.Rows[0].Row)
	require.NotEmpty(t, page.NextCursor)

	next, err := svc.StageRecords(ctx, StageQuery{Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Equal(t, 2, next.Offset)
	require.Len(t, next.Rows, 1)
	require.Equal(t, "B", next.Rows[0].Agent)
	require.Empty(t, next.NextCursor)
}

func TestStageRecords_CursorStaleAfterRefresh(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	page, err := svc.StageRecords(ctx, StageQuery{Query: Query{Source: "topa"}, Stage: "paid", PageSize: 1})
	require.NoError(t, err)

	m, err := svc.Refresh(ctx, "topa")
	require.NoError(t, err)
	require.Equal(t, "snap-1", m.Snapshot)

	_, err = svc.StageRecords(ctx, StageQuery{Cursor: page.NextCursor})
	require.ErrorIs(t, err, ErrCursorInvalid)
	require.Equal(t, mcperr.CursorInvalid, ErrorCode(err))

	_, err = svc.StageRecords(ctx, StageQuery{Cursor: "garbage"})
	require.ErrorIs(t, err, ErrCursorInvalid)
}

func TestStageRecords_CursorKeepsGeneratedReading(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	page, err := svc.StageRecords(ctx, StageQuery{Query: Query{Source: "topa"}, Stage: "generated", PageSize: 1})
	require.NoError(t, err)
	require.Equal(t, 3, page.Total)
	require.NotEmpty(t, page.NextCursor)

	_, err = svc.StageRecords(ctx, StageQuery{Query: Query{GeneratedExcludesPaid: true}, Cursor: page.NextCursor})
	require.ErrorIs(t, err, ErrCursorInvalid)
	require.Equal(t, mcperr.CursorInvalid, ErrorCode(err))

	next, err := svc.StageRecords(ctx, StageQuery{Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Equal(t, 3, next.Total)
	require.Equal(t, 1, next.Offset)

	// A cursor issued under the exclusive reading resumes under it.
	paid, err := svc.StageRecords(ctx, StageQuery{Query: Query{Source: "topa", GeneratedExcludesPaid: true}, Stage: "paid", PageSize: 1})
	require.NoError(t, err)
	require.NotEmpty(t, paid.NextCursor)
	cur, err := pagination.DecodeCursor(paid.NextCursor)
	require.NoError(t, err)
	require.True(t, cur.Gx)

	resumed, err := svc.StageRecords(ctx, StageQuery{Cursor: paid.NextCursor})
	require.NoError(t, err)
	require.Equal(t, 1, resumed.Offset)

	cur.Gx = false
	forged, err := pagination.EncodeCursor(*cur)
	require.NoError(t, err)
	_, err = svc.StageRecords(ctx, StageQuery{Cursor: forged})
	require.ErrorIs(t, err, ErrCursorInvalid)
}

func TestStageRecords_UnknownStage(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.StageRecords(context.Background(), StageQuery{Query: Query{Source: "topa"}, Stage: "funded"})
	require.Equal(t, mcperr.Validation, ErrorCode(err))
}

func TestNewCatalog_OverridesBuiltin(t *testing.T) {
	c, err := NewCatalog([]config.ReportSpec{
		{Name: "command_center", Sections: []string{"funnel"}, DateMode: "hybrid"},
		{Name: "weekly", Sections: []string{"daily"}, Window: "last_7"},
	})
	require.NoError(t, err)
	require.Len(t, c, 3)
	require.Equal(t, []insights.Section{insights.SectionFunnel}, c["command_center"].Sections)
	require.Equal(t, insights.DateModeHybrid, c["command_center"].DateMode)
	require.Equal(t, insights.WindowLast7, c["weekly"].Window)

	_, err = NewCatalog([]config.ReportSpec{{Name: "bad", Sections: []string{"pie"}}})
	require.ErrorIs(t, err, insights.ErrInvalidInput)
}

func TestNewRunner_ConfiguredRules(t *testing.T) {
	rn := NewRunner([]config.ReasonRule{{Contains: "bureau", Category: "Credit bureau"}}, []string{"Credit bureau"})
	require.Equal(t, "Credit bureau", rn.Reasons.Normalize("negative bureau score"))
	require.Equal(t, []string{"Credit bureau"}, rn.Watchlist)
}

func TestErrorCode(t *testing.T) {
	cases := []struct {
		err  error
		want mcperr.Code
	}{
		{fmt.Errorf("wrap: %w", dataset.ErrSchemaMismatch), mcperr.SchemaMismatch},
		{&sources.FetchError{Source: "topa", Err: errors.New("dial tcp")}, mcperr.FetchFailed},
		{fmt.Errorf("%w: saturated", runtime.ErrBusy), mcperr.BusyResource},
		{context.DeadlineExceeded, mcperr.Timeout},
		{errors.New("unexpected"), mcperr.AnalysisFailed},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ErrorCode(tc.err), tc.err.Error())
	}
	require.Equal(t, mcperr.Code(""), ErrorCode(nil))
}
