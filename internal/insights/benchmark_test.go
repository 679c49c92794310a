package insights

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBenchmark_AgainstActiveAgentAverage(t *testing.T) {
	rs := records(
		paid("A", 50), paid("A", 150),
		paid("B", 100), paid("C", 100), paid("D", 100),
	)
	b := Benchmark(rs, "A", ScopePaidActive)

	require.Equal(t, 4, b.ActiveAgents)
	require.True(t, b.Average.PaidVolume.Equal(dec(125)), b.Average.PaidVolume.String())
	require.True(t, b.Individual.PaidVolume.Equal(dec(200)))
	require.True(t, b.VsAverage.PaidVolume.Equal(dec(75)))
	require.Equal(t, "R$ 75,00", b.VsAverage.PaidVolumeBRL)
	require.InDelta(t, 0.75, b.VsAverage.PaidCount, 1e-9)

	require.Equal(t, "A", b.Top.Agent)
	require.True(t, b.VsTop.PaidVolume.IsZero())
	require.False(t, b.NoData)
}

func TestBenchmark_BelowTopAndAverage(t *testing.T) {
	rs := records(
		paid("A", 100),
		rec{agent: "A", analysis: StatusRejected},
		paid("B", 300),
		paid("C", 200),
	)
	b := Benchmark(rs, "A", ScopePaidActive)

	require.Equal(t, "B", b.Top.Agent)
	require.True(t, b.VsTop.PaidVolume.Equal(dec(-200)))
	require.Equal(t, "R$ -200,00", b.VsTop.PaidVolumeBRL)
	require.InDelta(t, 0.5, b.Individual.Conversion, 1e-9)
	require.InDelta(t, 0.75, b.Average.Conversion, 1e-9)
	require.Equal(t, "-25.00 pp", b.VsAverage.ConversionPP)
}

func TestBenchmark_UnknownAgentIsNoData(t *testing.T) {
	b := Benchmark(records(paid("B", 10)), "Z", "")
	require.True(t, b.NoData)
	require.Equal(t, ScopePaidActive, b.Scope)
	require.True(t, b.Individual.PaidVolume.IsZero())

	empty := Benchmark(nil, "Z", ScopePaidActive)
	require.Zero(t, empty.ActiveAgents)
	require.True(t, empty.Average.PaidVolume.IsZero())
	require.Empty(t, empty.Top.Agent)
}
