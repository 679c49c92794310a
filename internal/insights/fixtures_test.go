package insights

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/topaplus/commandcenter/internal/dataset"
)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 10, 30, 0, 0, time.UTC)
	return &t
}

type rec struct {
	agent, company, squad string
	analysis, contract    string
	ticket                int64
	created, paid         *time.Time
	reason, employer      string
	headcount             int
}

func (r rec) build(row int) dataset.Record {
	created := r.created
	if created == nil {
		created = day(2024, 3, 10)
	}
	return dataset.NormalizeRecord(dataset.Record{
		Row:               row,
		CreatedAt:         created,
		PaidAt:            r.paid,
		AgentID:           r.agent,
		CompanyID:         r.company,
		SquadID:           r.squad,
		AnalysisStatus:    r.analysis,
		ContractStatus:    r.contract,
		RejectionReason:   r.reason,
		Ticket:            decimal.NewFromInt(r.ticket),
		EmployerDocument:  r.employer,
		EmployerHeadcount: r.headcount,
	})
}

func records(rs ...rec) []dataset.Record {
	out := make([]dataset.Record, 0, len(rs))
	for i, r := range rs {
		out = append(out, r.build(i+2))
	}
	return out
}

func paid(agent string, ticket int64) rec {
	return rec{agent: agent, analysis: StatusApproved, contract: StatusDisbursed, ticket: ticket}
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }
