package insights

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/topaplus/commandcenter/internal/dataset"
	"github.com/topaplus/commandcenter/pkg/brl"
)

// BenchmarkPoint is one reference point of a comparison.
type BenchmarkPoint struct {
	Label string `json:"label"`
	Agent string `json:"agent,omitempty"`
	Metrics
	PaidVolumeBRL string `json:"paid_volume_brl"`
	PaidCountText string `json:"paid_count_text"`
	MeanTicketBRL string `json:"mean_ticket_brl"`
	ConversionPct string `json:"conversion_pct"`
}

// Delta is the difference between two reference points.
type Delta struct {
	PaidVolume    decimal.Decimal `json:"paid_volume"`
	PaidVolumeBRL string          `json:"paid_volume_brl"`
	PaidCount     float64         `json:"paid_count"`
	PaidCountText string          `json:"paid_count_text"`
	MeanTicket    decimal.Decimal `json:"mean_ticket"`
	MeanTicketBRL string          `json:"mean_ticket_brl"`
	Conversion    float64         `json:"conversion"`
	ConversionPP  string          `json:"conversion_pp"`
}

// BenchmarkResult compares an agent with the team average and the top performer.
type BenchmarkResult struct {
	Agent        string         `json:"agent"`
	Scope        AgentScope     `json:"scope"`
	ActiveAgents int            `json:"active_agents"`
	Individual   BenchmarkPoint `json:"individual"`
	Average      BenchmarkPoint `json:"average"`
	Top          BenchmarkPoint `json:"top"`
	VsAverage    Delta          `json:"vs_average"`
	VsTop        Delta          `json:"vs_top"`
	NoData       bool           `json:"no_data"`
}

// Benchmark compares agent against the population it belongs to. The
// population must already be scoped without the agent predicate so that the
// individual, the average and the top performer share one scope.
func Benchmark(population []dataset.Record, agent string, scope AgentScope) BenchmarkResult {
	if scope == "" {
		scope = ScopePaidActive
	}
	st := Partition(population, ClassifyOptions{})
	active := ActiveAgents(st, scope)

	var mine []dataset.Record
	for _, r := range population {
		if r.AgentID == agent {
			mine = append(mine, r)
		}
	}
	individual := point("individual", agent, MetricsOf(mine))

	team := MetricsOf(population)
	average := point("average", "", Metrics{
		PaidVolume: perAgent(team.PaidVolume, active),
		PaidCount:  perAgentCount(team.PaidCount, active),
		MeanTicket: team.MeanTicket,
		Conversion: team.Conversion,
	})

	top := point("top", "", Metrics{PaidVolume: decimal.Zero, MeanTicket: decimal.Zero})
	if ranked := RankAgents(st.Paid, 1); len(ranked) > 0 {
		var best []dataset.Record
		for _, r := range population {
			if r.AgentID == ranked[0].Agent {
				best = append(best, r)
			}
		}
		top = point("top", ranked[0].Agent, MetricsOf(best))
	}

	return BenchmarkResult{
		Agent:        agent,
		Scope:        scope,
		ActiveAgents: active,
		Individual:   individual,
		Average:      average,
		Top:          top,
		VsAverage:    delta(individual.Metrics, average.Metrics),
		VsTop:        delta(individual.Metrics, top.Metrics),
		NoData:       len(mine) == 0,
	}
}

func perAgentCount(count float64, agents int) float64 {
	if agents <= 0 {
		return 0
	}
	return count / float64(agents)
}

func point(label, agent string, m Metrics) BenchmarkPoint {
	return BenchmarkPoint{
		Label:         label,
		Agent:         agent,
		Metrics:       m,
		PaidVolumeBRL: brl.Format(m.PaidVolume),
		PaidCountText: fmt.Sprintf("%.1f", m.PaidCount),
		MeanTicketBRL: brl.Format(m.MeanTicket),
		ConversionPct: Percent(m.Conversion, 2),
	}
}

func delta(a, b Metrics) Delta {
	d := Delta{
		PaidVolume: a.PaidVolume.Sub(b.PaidVolume),
		PaidCount:  a.PaidCount - b.PaidCount,
		MeanTicket: a.MeanTicket.Sub(b.MeanTicket),
		Conversion: a.Conversion - b.Conversion,
	}
	d.PaidVolumeBRL = brl.Format(d.PaidVolume)
	d.PaidCountText = fmt.Sprintf("%+.1f", d.PaidCount)
	d.MeanTicketBRL = brl.Format(d.MeanTicket)
	d.ConversionPP = fmt.Sprintf("%+.2f pp", d.Conversion*100)
	return d
}
