package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// Field is a logical column of a proposal export.
type Field string

const (
	FieldCreatedAt           Field = "created_at"
	FieldPaidAt              Field = "paid_at"
	FieldClientID            Field = "client_id"
	FieldAgentID             Field = "agent_id"
	FieldCompanyID           Field = "company_id"
	FieldSquadID             Field = "squad_id"
	FieldAnalysisStatus      Field = "analysis_status"
	FieldContractStatus      Field = "contract_status"
	FieldContractDescription Field = "contract_status_description"
	FieldRejectionReason     Field = "rejection_reason"
	FieldTicketAmount        Field = "ticket_amount"
	FieldEmployerDocument    Field = "employer_document"
	FieldEmployerHeadcount   Field = "employer_employee_count"
)

// Fields lists every logical field in resolution order.
var Fields = []Field{
	FieldCreatedAt,
	FieldPaidAt,
	FieldClientID,
	FieldAgentID,
	FieldCompanyID,
	FieldSquadID,
	FieldAnalysisStatus,
	FieldContractStatus,
	FieldContractDescription,
	FieldRejectionReason,
	FieldTicketAmount,
	FieldEmployerDocument,
	FieldEmployerHeadcount,
}

// ParseField accepts the snake_case name of a logical field.
func ParseField(s string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Fields {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("dataset: unknown field %q", s)
}

// NoPosition marks a column without positional fallback.
const NoPosition = -1

// Column describes how a logical field is found in a source table.
type Column struct {
	// Names are header aliases, compared after trimming, BOM stripping and lower-casing.
	Names []string
	// Position is the 0-based fallback index used when no alias matches.
	Position int
	Required bool
}

// Schema maps logical fields to their column descriptions.
type Schema map[Field]Column

// DefaultSchema follows the layout of the "Dados2" proposal export:
// C=created_at, E=client, P=agent, Q=company, R=squad, Z=analysis status,
// AA=contract status, AB=contract description, AC=reason, AD=ticket, AK=headcount.
func DefaultSchema() Schema {
	return Schema{
		FieldCreatedAt:           {Names: []string{"Data", "Data Criação", "Data de Criação", "Data Simulação", "created_at"}, Position: 2, Required: true},
		FieldPaidAt:              {Names: []string{"Data Pagamento", "Data de Pagamento", "Data Desembolso", "paid_at"}, Position: NoPosition},
		FieldClientID:            {Names: []string{"CPF", "CPF Cliente", "Cliente", "client_id"}, Position: 4},
		FieldAgentID:             {Names: []string{"Digitado por", "Digitador", "agent_id"}, Position: 15, Required: true},
		FieldCompanyID:           {Names: []string{"Empresa", "company_id"}, Position: 16},
		FieldSquadID:             {Names: []string{"Squad", "Equipe", "squad_id"}, Position: 17},
		FieldAnalysisStatus:      {Names: []string{"Status Análise", "Status Analise", "Status da Análise", "analysis_status"}, Position: 25, Required: true},
		FieldContractStatus:      {Names: []string{"Status Proposta", "Status da Proposta", "contract_status"}, Position: 26, Required: true},
		FieldContractDescription: {Names: []string{"Descrição Status Proposta", "Descricao Status Proposta", "contract_status_description"}, Position: 27},
		FieldRejectionReason:     {Names: []string{"Motivo da Decisão", "Motivo da Decisao", "Motivo", "rejection_reason"}, Position: 28},
		FieldTicketAmount:        {Names: []string{"Ticket", "Valor", "Valor Ticket", "ticket_amount"}, Position: 29, Required: true},
		FieldEmployerDocument:    {Names: []string{"CNPJ", "CNPJ Empregador", "Documento Empregador", "employer_document"}, Position: NoPosition},
		FieldEmployerHeadcount:   {Names: []string{"Qtd Funcionários", "Qtd Funcionarios", "Funcionários", "employer_employee_count"}, Position: 36},
	}
}

// Clone returns an independent copy of the schema.
func (s Schema) Clone() Schema {
	out := make(Schema, len(s))
	for f, c := range s {
		c.Names = append([]string(nil), c.Names...)
		out[f] = c
	}
	return out
}

// NamesOnly returns a copy with positional fallbacks disabled. Query results
// carry meaningful column names, so positions would only mis-assign data.
func (s Schema) NamesOnly() Schema {
	out := s.Clone()
	for f, c := range out {
		c.Position = NoPosition
		out[f] = c
	}
	return out
}

// Override replaces the aliases and/or the fallback position of one field.
func (s Schema) Override(f Field, names []string, position *int) {
	c := s[f]
	if len(names) > 0 {
		c.Names = append([]string(nil), names...)
	}
	if position != nil {
		c.Position = *position
	}
	s[f] = c
}

// Mapping is a resolved field -> column index table; absent fields map to -1.
type Mapping map[Field]int

// Index returns the column index for f, or -1.
func (m Mapping) Index(f Field) int {
	if i, ok := m[f]; ok {
		return i
	}
	return NoPosition
}

// ErrSchemaMismatch is matched by every column resolution failure.
var ErrSchemaMismatch = errors.New("dataset: schema mismatch")

// MissingColumnError names a required field that could not be located.
type MissingColumnError struct {
	Field    Field
	Names    []string
	Position int
	Width    int
}

func (e *MissingColumnError) Error() string {
	pos := "no positional fallback"
	if e.Position != NoPosition {
		pos = fmt.Sprintf("position %d", e.Position)
	}
	return fmt.Sprintf("dataset: missing expected column %q (tried names %q, %s; table has %d columns)", e.Field, e.Names, pos, e.Width)
}

// Is lets errors.Is(err, ErrSchemaMismatch) match.
func (e *MissingColumnError) Is(target error) bool {
	return target == ErrSchemaMismatch
}

// Resolve maps each field to a column: aliases first for every field, then
// declared positions for the remainder. A position already claimed by another
// field counts as unresolved.
func (s Schema) Resolve(headers []string) (Mapping, error) {
	byName := make(map[string]int, len(headers))
	for i, h := range headers {
		key := normalizeHeader(h)
		if key == "" {
			continue
		}
		if _, dup := byName[key]; !dup {
			byName[key] = i
		}
	}

	m := make(Mapping, len(s))
	claimed := make(map[int]Field, len(s))

	for _, f := range s.fields() {
		for _, name := range s[f].Names {
			i, ok := byName[normalizeHeader(name)]
			if !ok {
				continue
			}
			if owner, taken := claimed[i]; taken {
				return nil, fmt.Errorf("%w: column %q matches both %s and %s", ErrSchemaMismatch, headers[i], owner, f)
			}
			m[f] = i
			claimed[i] = f
			break
		}
	}

	for _, f := range s.fields() {
		if _, ok := m[f]; ok {
			continue
		}
		c := s[f]
		if c.Position >= 0 && c.Position < len(headers) {
			if _, taken := claimed[c.Position]; !taken {
				m[f] = c.Position
				claimed[c.Position] = f
				continue
			}
		}
		if c.Required {
			return nil, &MissingColumnError{Field: f, Names: c.Names, Position: c.Position, Width: len(headers)}
		}
		m[f] = NoPosition
	}
	return m, nil
}

// fields returns the schema's fields in canonical order.
func (s Schema) fields() []Field {
	out := make([]Field, 0, len(s))
	for _, f := range Fields {
		if _, ok := s[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}
