package insights

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/topaplus/commandcenter/internal/dataset"
)

func TestFilter_UndatedRecordsNeverMatch(t *testing.T) {
	rs := records(rec{agent: "a"}, rec{agent: "a"})
	rs[1].CreatedAt = nil

	for _, f := range []Filter{
		{},
		{Start: day(2024, 3, 1)},
		{Start: day(2000, 1, 1), End: day(2100, 1, 1)},
		{Agent: "a"},
	} {
		out := f.Apply(rs)
		require.Len(t, out, 1)
		require.Equal(t, rs[0].Row, out[0].Row)
	}
}

func TestFilter_CalendarDateBoundsAreInclusive(t *testing.T) {
	late := time.Date(2024, 3, 31, 23, 59, 0, 0, time.UTC)
	rs := records(
		rec{created: day(2024, 3, 1)},
		rec{created: &late},
		rec{created: day(2024, 4, 1)},
		rec{created: day(2024, 2, 29)},
	)
	start := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	out := Filter{Start: &start, End: &end}.Apply(rs)
	require.Len(t, out, 2)
}

func TestFilter_Conjunction(t *testing.T) {
	rs := records(
		rec{agent: "a", company: "x", squad: "s1"},
		rec{agent: "a", company: "y", squad: "s1"},
		rec{agent: "b", company: "x", squad: "s1"},
		rec{agent: "a", company: "x", squad: "s2"},
	)
	out := Filter{Agent: "a", Company: "x", Squad: "s1"}.Apply(rs)
	require.Len(t, out, 1)
	require.Len(t, Filter{Company: "x"}.Apply(rs), 3)
	require.Len(t, Filter{Agent: "a", Company: "x"}.WithoutAgent().Apply(rs), 3)
}

func TestFilter_HybridModeUsesPaymentDateForPaid(t *testing.T) {
	rs := records(
		// created before the window, paid inside it
		rec{analysis: StatusApproved, contract: StatusDisbursed, created: day(2024, 2, 20), paid: day(2024, 3, 5)},
		// created inside, paid after
		rec{analysis: StatusApproved, contract: StatusDisbursed, created: day(2024, 3, 5), paid: day(2024, 4, 2)},
		// paid without a payment date
		rec{analysis: StatusApproved, contract: StatusDisbursed, created: day(2024, 3, 5)},
		// not paid: scoped by creation
		rec{analysis: StatusRejected, created: day(2024, 3, 6), paid: day(2024, 1, 1)},
	)
	f := Filter{Start: day(2024, 3, 1), End: day(2024, 3, 31)}

	std := f.Apply(rs)
	require.Len(t, std, 3)

	f.Mode = DateModeHybrid
	hyb := f.Apply(rs)
	require.Len(t, hyb, 2)
	require.Equal(t, rs[0].Row, hyb[0].Row)
	require.Equal(t, rs[3].Row, hyb[1].Row)
}

func TestParseDateMode(t *testing.T) {
	for in, want := range map[string]DateMode{
		"":                       DateModeStandard,
		"standard":               DateModeStandard,
		"hybrid":                 DateModeHybrid,
		"Hybrid-By-Payment-Date": DateModeHybrid,
	} {
		got, err := ParseDateMode(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := ParseDateMode("paid")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestFilter_HashTracksScope(t *testing.T) {
	a := Filter{Agent: "a", Start: day(2024, 1, 1)}
	b := Filter{Agent: "a", Start: day(2024, 1, 1), Mode: DateModeStandard}
	require.Equal(t, a.Hash(), b.Hash())
	require.NotEqual(t, a.Hash(), Filter{Agent: "b", Start: day(2024, 1, 1)}.Hash())
	require.NotEqual(t, a.Hash(), Filter{Agent: "a"}.Hash())
	require.Len(t, a.Hash(), 16)
}

func TestOptions(t *testing.T) {
	rs := records(
		rec{agent: "b", company: "x", squad: "s", created: day(2024, 3, 9)},
		rec{agent: "a", company: "x", created: day(2024, 1, 2)},
		rec{agent: "a", company: "y", created: day(2024, 5, 30)},
	)
	rs = append(rs, dataset.Record{AgentID: "c"})

	o := Options(rs)
	require.Equal(t, []string{"a", "b", "c"}, o.Agents)
	require.Equal(t, []string{"x", "y"}, o.Companies)
	require.Equal(t, []string{"s"}, o.Squads)
	require.Equal(t, "2024-01-02", o.MinDate)
	require.Equal(t, "2024-05-30", o.MaxDate)
	require.Equal(t, 4, o.Records)
	require.Equal(t, 1, o.Undated)
}
