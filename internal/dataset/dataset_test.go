package dataset

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func namedTable(rows ...[]string) Table {
	return Table{
		Headers: []string{"Data", "Digitado por", "Empresa", "Squad", "Status Análise", "Status Proposta", "Motivo da Decisão", "Ticket", "Data Pagamento"},
		Rows:    rows,
	}
}

func TestResolve_ByName(t *testing.T) {
	m, err := DefaultSchema().Resolve([]string{"\ufeffData ", "digitado  POR", "Status Analise", "Status Proposta", "Ticket"})
	require.NoError(t, err)
	require.Equal(t, 0, m.Index(FieldCreatedAt))
	require.Equal(t, 1, m.Index(FieldAgentID))
	require.Equal(t, 2, m.Index(FieldAnalysisStatus))
	require.Equal(t, 3, m.Index(FieldContractStatus))
	require.Equal(t, 4, m.Index(FieldTicketAmount))
	require.Equal(t, NoPosition, m.Index(FieldSquadID))
}

func TestResolve_PositionalFallback(t *testing.T) {
	headers := make([]string, 37)
	for i := range headers {
		headers[i] = "col" + string(rune('A'+i%26))
	}
	m, err := DefaultSchema().Resolve(headers)
	require.NoError(t, err)
	require.Equal(t, 2, m.Index(FieldCreatedAt))
	require.Equal(t, 15, m.Index(FieldAgentID))
	require.Equal(t, 25, m.Index(FieldAnalysisStatus))
	require.Equal(t, 26, m.Index(FieldContractStatus))
	require.Equal(t, 29, m.Index(FieldTicketAmount))
	require.Equal(t, 36, m.Index(FieldEmployerHeadcount))
	require.Equal(t, NoPosition, m.Index(FieldPaidAt))
}

func TestResolve_MissingRequiredColumn(t *testing.T) {
	_, err := DefaultSchema().Resolve([]string{"Data", "Digitado por", "Status Proposta", "Ticket"})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrSchemaMismatch))

	var missing *MissingColumnError
	require.True(t, errors.As(err, &missing))
	require.Equal(t, FieldAnalysisStatus, missing.Field)
	require.Contains(t, err.Error(), "analysis_status")
}

func TestResolve_PositionAlreadyClaimed(t *testing.T) {
	s := Schema{
		FieldCreatedAt: {Names: []string{"Data"}, Position: 1, Required: true},
		FieldAgentID:   {Names: []string{"Agente"}, Position: 0, Required: true},
	}
	// Position 0 belongs to "Data" by name, so the agent cannot fall back to it.
	_, err := s.Resolve([]string{"Data", "Outro"})
	require.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestNamesOnlyDisablesPositions(t *testing.T) {
	headers := make([]string, 37)
	_, err := DefaultSchema().NamesOnly().Resolve(headers)
	require.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in     string
		native bool
		want   string
		ok     bool
	}{
		{"05/01/2024", false, "2024-01-05", true},
		{"5/1/2024 13:45", false, "2024-01-05", true},
		{"05/01/2024 23:59:59", false, "2024-01-05", true},
		{"2024-01-05", false, "2024-01-05", true},
		{"2024-01-05T22:30:00-03:00", false, "2024-01-05", true},
		{"2024-01-05 10:00:00.123", false, "2024-01-05", true},
		{"45296", true, "2024-01-05", true},
		{"45296", false, "", false},
		{"31/02/2024", false, "", false},
		{"not a date", false, "", false},
		{"", false, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParseDate(tc.in, tc.native)
			require.Equal(t, tc.ok, ok)
			if ok {
				require.Equal(t, tc.want, got.Format("2006-01-02"))
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in     string
		native bool
		want   string
	}{
		{"1.234,56", false, "1234.56"},
		{"R$ 1.234.567,89", false, "1234567.89"},
		{"150,5", false, "150.5"},
		{"100", false, "100"},
		{"abc", false, "0"},
		{"", false, "0"},
		{"-50,00", false, "0"},
		{"1234.56", true, "1234.56"},
		{"1.234,56", true, "1234.56"},
		{"-3", true, "0"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got := ParseAmount(tc.in, tc.native)
			require.True(t, decimal.RequireFromString(tc.want).Equal(got), "got %s", got)
		})
	}
}

func TestNormalizeStatus(t *testing.T) {
	require.Equal(t, "APPROVED", NormalizeStatus("  approved "))
	require.Equal(t, StatusEmpty, NormalizeStatus(""))
	require.Equal(t, StatusEmpty, NormalizeStatus("nan"))
	require.Equal(t, StatusEmpty, NormalizeStatus("VAZIO"))
	require.Equal(t, StatusEmpty, NormalizeStatus(StatusEmpty))
}

func TestNormalize_Rows(t *testing.T) {
	tbl := namedTable(
		[]string{"05/01/2024", " ana ", "Acme", "S1", "approved", "disbursed", "", "1.500,00", "07/01/2024"},
		[]string{"bad-date", "bruno", "", "", "", "", "", "x", ""},
		[]string{"", "", "", "", "", "", "", "", ""},
		[]string{"06/01/2024", "carla"},
	)
	recs, err := Normalize(tbl, DefaultSchema())
	require.NoError(t, err)
	require.Len(t, recs, 3)

	first := recs[0]
	require.Equal(t, 2, first.Row)
	require.Equal(t, "ana", first.AgentID)
	require.Equal(t, "APPROVED", first.AnalysisStatus)
	require.Equal(t, "DISBURSED", first.ContractStatus)
	require.True(t, decimal.NewFromInt(1500).Equal(first.Ticket))
	require.NotNil(t, first.PaidAt)
	require.Equal(t, time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC), *first.PaidAt)

	second := recs[1]
	require.Nil(t, second.CreatedAt)
	require.Equal(t, StatusEmpty, second.AnalysisStatus)
	require.True(t, second.Ticket.IsZero())

	short := recs[2]
	require.Equal(t, 5, short.Row)
	require.Equal(t, StatusEmpty, short.ContractStatus)
	require.Equal(t, 1, Undated(recs))
}

func TestNormalize_SchemaErrorIsLoud(t *testing.T) {
	_, err := Normalize(Table{Headers: []string{"foo", "bar"}, Rows: [][]string{{"1", "2"}}}, DefaultSchema())
	require.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = Normalize(Table{}, DefaultSchema())
	require.ErrorIs(t, err, ErrEmptyTable)
}

func TestNormalizeRecord_Idempotent(t *testing.T) {
	tbl := namedTable(
		[]string{"05/01/2024", " ana ", " Acme ", "S1", " rejected", "", "Tempo de Emprego ", "R$ 2.000,10", ""},
	)
	recs, err := Normalize(tbl, DefaultSchema())
	require.NoError(t, err)
	once := recs[0]
	twice := NormalizeRecord(once)
	require.Equal(t, once, twice)
	require.False(t, twice.Ticket.IsNegative())
}
