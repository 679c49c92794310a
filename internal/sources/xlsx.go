package sources

import (
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/topaplus/commandcenter/internal/dataset"
	"github.com/topaplus/commandcenter/internal/security"
)

// XLSXSource reads one worksheet of an Excel workbook. Cells are read raw, so
// dates arrive as serial numbers and amounts as machine numbers.
type XLSXSource struct {
	id     string
	path   string
	sheet  string
	schema dataset.Schema
	guard  *security.Guard
}

// NewXLSXSource builds a workbook source; an empty sheet means the first one.
func NewXLSXSource(id, path, sheet string, schema dataset.Schema, guard *security.Guard) *XLSXSource {
	return &XLSXSource{id: id, path: path, sheet: sheet, schema: schema, guard: guard}
}

func (s *XLSXSource) ID() string             { return s.id }
func (s *XLSXSource) Kind() string           { return "xlsx" }
func (s *XLSXSource) Schema() dataset.Schema { return s.schema }

// Fetch opens the workbook and reads the whole sheet.
func (s *XLSXSource) Fetch(ctx context.Context) (dataset.Table, error) {
	if s.guard == nil {
		return dataset.Table{}, fetchErr(s.id, security.ErrNotAllowed)
	}
	p, err := s.guard.Resolve(s.path)
	if err != nil {
		return dataset.Table{}, fetchErr(s.id, err)
	}
	if err := ctx.Err(); err != nil {
		return dataset.Table{}, fetchErr(s.id, err)
	}
	f, err := excelize.OpenFile(p)
	if err != nil {
		return dataset.Table{}, fetchErr(s.id, err)
	}
	defer func() { _ = f.Close() }()

	t, err := ReadSheet(f, s.sheet)
	if err != nil {
		return dataset.Table{}, fetchErr(s.id, err)
	}
	return t, nil
}

// ReadSheet converts a worksheet into a native table.
func ReadSheet(f *excelize.File, sheet string) (dataset.Table, error) {
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return dataset.Table{}, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return dataset.Table{}, fmt.Errorf("sheet %q not found", sheet)
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return dataset.Table{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return dataset.Table{}, fmt.Errorf("sheet %q is empty", sheet)
	}
	return dataset.Table{Headers: rows[0], Rows: rows[1:], Native: true}, nil
}
