package dataset

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Table is a raw dataset as delivered by a source: a header row plus data rows.
// Native marks machine-formatted cells (XLSX raw values, SQL scans); otherwise
// cells are pt-BR display strings.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
	Native  bool       `json:"native"`
}

// ErrEmptyTable is returned when a source delivers no header row.
var ErrEmptyTable = errors.New("dataset: table has no header row")

// Record is one normalized proposal row.
type Record struct {
	Row                 int
	CreatedAt           *time.Time
	PaidAt              *time.Time
	ClientID            string
	AgentID             string
	CompanyID           string
	SquadID             string
	AnalysisStatus      string
	ContractStatus      string
	ContractDescription string
	RejectionReason     string
	Ticket              decimal.Decimal
	EmployerDocument    string
	EmployerHeadcount   int
}

// Normalize resolves the schema against the table headers and converts every
// row into a Record. Column resolution failures abort; bad cells degrade to
// zero, EMPTY or a nil date. Rows with no content at all are skipped.
func Normalize(t Table, s Schema) ([]Record, error) {
	if len(t.Headers) == 0 {
		return nil, ErrEmptyTable
	}
	m, err := s.Resolve(t.Headers)
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(t.Rows))
	for i, row := range t.Rows {
		if blank(row) {
			continue
		}
		out = append(out, normalizeRow(row, m, t.Native, i+2))
	}
	return out, nil
}

func normalizeRow(row []string, m Mapping, native bool, line int) Record {
	cell := func(f Field) string {
		i := m.Index(f)
		if i < 0 || i >= len(row) {
			return ""
		}
		return row[i]
	}
	r := Record{
		Row:                 line,
		CreatedAt:           datePtr(cell(FieldCreatedAt), native),
		PaidAt:              datePtr(cell(FieldPaidAt), native),
		ClientID:            cell(FieldClientID),
		AgentID:             cell(FieldAgentID),
		CompanyID:           cell(FieldCompanyID),
		SquadID:             cell(FieldSquadID),
		AnalysisStatus:      cell(FieldAnalysisStatus),
		ContractStatus:      cell(FieldContractStatus),
		ContractDescription: cell(FieldContractDescription),
		RejectionReason:     cell(FieldRejectionReason),
		Ticket:              ParseAmount(cell(FieldTicketAmount), native),
		EmployerDocument:    cell(FieldEmployerDocument),
		EmployerHeadcount:   ParseCount(cell(FieldEmployerHeadcount), native),
	}
	return NormalizeRecord(r)
}

// NormalizeRecord canonicalizes an already-typed record. It is idempotent.
func NormalizeRecord(r Record) Record {
	r.ClientID = strings.TrimSpace(r.ClientID)
	r.AgentID = strings.TrimSpace(r.AgentID)
	r.CompanyID = strings.TrimSpace(r.CompanyID)
	r.SquadID = strings.TrimSpace(r.SquadID)
	r.AnalysisStatus = NormalizeStatus(r.AnalysisStatus)
	r.ContractStatus = NormalizeStatus(r.ContractStatus)
	r.ContractDescription = strings.TrimSpace(r.ContractDescription)
	r.RejectionReason = strings.TrimSpace(r.RejectionReason)
	r.EmployerDocument = strings.TrimSpace(r.EmployerDocument)
	r.Ticket = clamp(r.Ticket)
	if r.EmployerHeadcount < 0 {
		r.EmployerHeadcount = 0
	}
	return r
}

// Undated counts records without a creation date.
func Undated(records []Record) int {
	n := 0
	for _, r := range records {
		if r.CreatedAt == nil {
			n++
		}
	}
	return n
}

func datePtr(s string, native bool) *time.Time {
	t, ok := ParseDate(s, native)
	if !ok {
		return nil
	}
	return &t
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
