package insights

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/topaplus/commandcenter/internal/dataset"
	"github.com/topaplus/commandcenter/pkg/brl"
)

// AgentScope selects which subset defines the active agents that team totals
// are divided by.
type AgentScope string

const (
	// ScopePaidActive counts agents with at least one disbursed contract.
	ScopePaidActive AgentScope = "paid_active"
	// ScopeAllFiltered counts every agent present in the filtered population.
	ScopeAllFiltered AgentScope = "all_filtered"
)

// ParseAgentScope accepts a scope name; empty means paid_active.
func ParseAgentScope(s string) (AgentScope, error) {
	switch AgentScope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopePaidActive:
		return ScopePaidActive, nil
	case ScopeAllFiltered:
		return ScopeAllFiltered, nil
	}
	return "", fmt.Errorf("%w: unknown agent scope %q", ErrInvalidInput, s)
}

// ActiveAgents counts distinct non-empty agents in the subset chosen by scope.
func ActiveAgents(st Stages, scope AgentScope) int {
	recs := st.Paid
	if scope == ScopeAllFiltered {
		recs = st.Simulated
	}
	seen := map[string]struct{}{}
	for _, r := range recs {
		if r.AgentID != "" {
			seen[r.AgentID] = struct{}{}
		}
	}
	return len(seen)
}

// AgentTotal is one row of the agent ranking.
type AgentTotal struct {
	Rank      int             `json:"rank"`
	Agent     string          `json:"agent"`
	Volume    decimal.Decimal `json:"volume"`
	VolumeBRL string          `json:"volume_brl"`
	Count     int             `json:"count"`
}

// RankAgents groups records by agent and orders them by ticket sum,
// descending. Ties keep first-encountered order. topN <= 0 keeps all.
func RankAgents(records []dataset.Record, topN int) []AgentTotal {
	index := map[string]int{}
	var rows []AgentTotal
	for _, r := range records {
		if r.AgentID == "" {
			continue
		}
		i, ok := index[r.AgentID]
		if !ok {
			i = len(rows)
			index[r.AgentID] = i
			rows = append(rows, AgentTotal{Agent: r.AgentID, Volume: decimal.Zero})
		}
		rows[i].Volume = rows[i].Volume.Add(r.Ticket)
		rows[i].Count++
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Volume.GreaterThan(rows[j].Volume) })
	if topN > 0 && len(rows) > topN {
		rows = rows[:topN]
	}
	for i := range rows {
		rows[i].Rank = i + 1
		rows[i].VolumeBRL = brl.Format(rows[i].Volume)
	}
	return rows
}

// HierarchySummary reports team totals scaled by the active agent count.
type HierarchySummary struct {
	Scope             AgentScope      `json:"scope"`
	ActiveAgents      int             `json:"active_agents"`
	PaidVolume        decimal.Decimal `json:"paid_volume"`
	PaidVolumeBRL     string          `json:"paid_volume_brl"`
	PaidCount         int             `json:"paid_count"`
	AvgVolumePerAgent decimal.Decimal `json:"avg_volume_per_agent"`
	AvgVolumeBRL      string          `json:"avg_volume_brl"`
	AvgPaidPerAgent   float64         `json:"avg_paid_per_agent"`
	AvgPaidText       string          `json:"avg_paid_text"`
	PaidMean          decimal.Decimal `json:"paid_mean"`
	PaidMeanBRL       string          `json:"paid_mean_brl"`
	NoData            bool            `json:"no_data"`
}

// Hierarchy divides the paid totals by the number of active agents, never by
// the number of rows.
func Hierarchy(st Stages, scope AgentScope) HierarchySummary {
	if scope == "" {
		scope = ScopePaidActive
	}
	active := ActiveAgents(st, scope)
	volume := SumTickets(st.Paid)
	out := HierarchySummary{
		Scope:             scope,
		ActiveAgents:      active,
		PaidVolume:        volume,
		PaidCount:         len(st.Paid),
		AvgVolumePerAgent: perAgent(volume, active),
		AvgPaidPerAgent:   Ratio(len(st.Paid), active),
		PaidMean:          MeanTicket(st.Paid),
		NoData:            len(st.Paid) == 0,
	}
	out.PaidVolumeBRL = brl.Format(out.PaidVolume)
	out.AvgVolumeBRL = brl.Format(out.AvgVolumePerAgent)
	out.AvgPaidText = fmt.Sprintf("%.1f", out.AvgPaidPerAgent)
	out.PaidMeanBRL = brl.Format(out.PaidMean)
	return out
}

func perAgent(total decimal.Decimal, agents int) decimal.Decimal {
	if agents <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(agents)))
}

// Metrics is the comparable performance of a population or an agent.
type Metrics struct {
	PaidVolume decimal.Decimal `json:"paid_volume"`
	PaidCount  float64         `json:"paid_count"`
	MeanTicket decimal.Decimal `json:"mean_ticket"`
	Conversion float64         `json:"conversion"`
}

// MetricsOf computes paid volume, paid count, mean paid ticket and the share
// of records that were disbursed.
func MetricsOf(records []dataset.Record) Metrics {
	var paid []dataset.Record
	for _, r := range records {
		if IsPaid(r) {
			paid = append(paid, r)
		}
	}
	return Metrics{
		PaidVolume: SumTickets(paid),
		PaidCount:  float64(len(paid)),
		MeanTicket: MeanTicket(paid),
		Conversion: Ratio(len(paid), len(records)),
	}
}
