package insights

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/topaplus/commandcenter/internal/dataset"
	"github.com/topaplus/commandcenter/pkg/brl"
)

// Concentration bands over the Herfindahl-Hirschman index of shares.
const (
	BandUnconcentrated = "unconcentrated"
	BandModerate       = "moderately_concentrated"
	BandHigh           = "highly_concentrated"
)

// AgentShare is one agent's part of the paid volume.
type AgentShare struct {
	Agent     string          `json:"agent"`
	Volume    decimal.Decimal `json:"volume"`
	VolumeBRL string          `json:"volume_brl"`
	Share     float64         `json:"share"`
}

// ConcentrationSummary tells whether paid volume depends on a few agents.
type ConcentrationSummary struct {
	TopN       int          `json:"top_n"`
	Agents     []AgentShare `json:"agents"`
	TopShare   float64      `json:"top_share"`
	OtherShare float64      `json:"other_share"`
	HHI        float64      `json:"hhi"`
	Band       string       `json:"band"`
	NoData     bool         `json:"no_data"`
}

// Concentration computes the Top-N share of paid volume by agent and the HHI
// over every agent. Paid records without an agent are left out.
func Concentration(paid []dataset.Record, topN int) ConcentrationSummary {
	if topN <= 0 {
		topN = 5
	}
	out := ConcentrationSummary{TopN: topN}
	acc := map[string]decimal.Decimal{}
	var order []string
	for _, r := range paid {
		if r.AgentID == "" {
			continue
		}
		if _, seen := acc[r.AgentID]; !seen {
			order = append(order, r.AgentID)
		}
		acc[r.AgentID] = acc[r.AgentID].Add(r.Ticket)
	}
	total := decimal.Zero
	for _, v := range acc {
		total = total.Add(v)
	}
	if !total.IsPositive() {
		out.NoData = true
		out.Agents = []AgentShare{}
		return out
	}

	shares := make([]AgentShare, 0, len(order))
	for _, agent := range order {
		v := acc[agent]
		share, _ := v.Div(total).Float64()
		shares = append(shares, AgentShare{Agent: agent, Volume: v, VolumeBRL: brl.Format(v), Share: share})
	}
	// Ties keep first-encountered order, as in RankAgents.
	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].Volume.GreaterThan(shares[j].Volume)
	})

	var hhi, top float64
	for i, s := range shares {
		hhi += s.Share * s.Share
		if i < topN {
			top += s.Share
		}
	}
	keep := topN
	if keep > len(shares) {
		keep = len(shares)
	}
	for _, s := range shares[:keep] {
		s.Share = round3(s.Share)
		out.Agents = append(out.Agents, s)
	}
	out.TopShare = round3(top)
	out.OtherShare = round3(1 - top)
	out.HHI = round3(hhi)
	switch {
	case hhi < 0.15:
		out.Band = BandUnconcentrated
	case hhi < 0.25:
		out.Band = BandModerate
	default:
		out.Band = BandHigh
	}
	return out
}
