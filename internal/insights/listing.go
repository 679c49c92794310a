package insights

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/topaplus/commandcenter/internal/dataset"
	"github.com/topaplus/commandcenter/pkg/brl"
)

// RecordRow is the display form of one record in a stage listing.
type RecordRow struct {
	Row            int             `json:"row"`
	CreatedAt      string          `json:"created_at"`
	PaidAt         string          `json:"paid_at,omitempty"`
	Agent          string          `json:"agent"`
	Company        string          `json:"company,omitempty"`
	Squad          string          `json:"squad,omitempty"`
	ClientID       string          `json:"client_id,omitempty"`
	AnalysisStatus string          `json:"analysis_status"`
	ContractStatus string          `json:"contract_status"`
	Reason         string          `json:"reason,omitempty"`
	Category       string          `json:"category,omitempty"`
	Ticket         decimal.Decimal `json:"ticket"`
	TicketBRL      string          `json:"ticket_brl"`
}

// FormatRecords renders records for listing. Rejected rows carry their
// normalized reason category.
func FormatRecords(records []dataset.Record, n ReasonNormalizer) []RecordRow {
	out := make([]RecordRow, 0, len(records))
	for _, r := range records {
		row := RecordRow{
			Row:            r.Row,
			CreatedAt:      displayDate(r.CreatedAt),
			PaidAt:         displayDate(r.PaidAt),
			Agent:          r.AgentID,
			Company:        r.CompanyID,
			Squad:          r.SquadID,
			ClientID:       r.ClientID,
			AnalysisStatus: r.AnalysisStatus,
			ContractStatus: r.ContractStatus,
			Ticket:         r.Ticket,
			TicketBRL:      brl.Format(r.Ticket),
		}
		if Classify(r).Rejected {
			row.Reason = r.RejectionReason
			row.Category = n.Normalize(r.RejectionReason)
		}
		out = append(out, row)
	}
	return out
}

func displayDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("02/01/2006")
}
