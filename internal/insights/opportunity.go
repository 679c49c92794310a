package insights

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/topaplus/commandcenter/internal/dataset"
	"github.com/topaplus/commandcenter/pkg/brl"
)

// EmployerOpportunity is the volume still to be captured at one employer.
type EmployerOpportunity struct {
	Employer     string          `json:"employer"`
	Headcount    int             `json:"headcount"`
	Proposals    int             `json:"proposals"`
	Realized     decimal.Decimal `json:"realized"`
	RealizedBRL  string          `json:"realized_brl"`
	Potential    decimal.Decimal `json:"potential"`
	PotentialBRL string          `json:"potential_brl"`
}

// EmployerOpportunities computes headcount x avgTicket - realized paid volume
// per employer, clamped at zero, largest first. Records are keyed by employer
// document, or by company when the document is missing.
func EmployerOpportunities(records []dataset.Record, avgTicket decimal.Decimal, topN int) []EmployerOpportunity {
	index := map[string]int{}
	var rows []EmployerOpportunity
	for _, r := range records {
		key := r.EmployerDocument
		if key == "" {
			key = r.CompanyID
		}
		if key == "" {
			continue
		}
		i, ok := index[key]
		if !ok {
			i = len(rows)
			index[key] = i
			rows = append(rows, EmployerOpportunity{Employer: key, Realized: decimal.Zero})
		}
		row := &rows[i]
		row.Proposals++
		if r.EmployerHeadcount > row.Headcount {
			row.Headcount = r.EmployerHeadcount
		}
		if IsPaid(r) {
			row.Realized = row.Realized.Add(r.Ticket)
		}
	}
	for i := range rows {
		p := decimal.NewFromInt(int64(rows[i].Headcount)).Mul(avgTicket).Sub(rows[i].Realized)
		rows[i].Potential = clampZero(p)
		rows[i].RealizedBRL = brl.Format(rows[i].Realized)
		rows[i].PotentialBRL = brl.Format(rows[i].Potential)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Potential.GreaterThan(rows[j].Potential) })
	if topN > 0 && len(rows) > topN {
		rows = rows[:topN]
	}
	return rows
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
