// Package sources delivers raw proposal tables from CSV exports, Excel
// workbooks and SQL databases. A source either returns a complete table or
// fails; partial tables are never returned.
package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/topaplus/commandcenter/config"
	"github.com/topaplus/commandcenter/internal/dataset"
	"github.com/topaplus/commandcenter/internal/security"
)

// Source produces the raw table of one configured dataset.
type Source interface {
	ID() string
	Kind() string
	Schema() dataset.Schema
	Fetch(ctx context.Context) (dataset.Table, error)
}

// ErrFetch matches every transport-level failure.
var ErrFetch = errors.New("sources: fetch failed")

// FetchError records which source failed and why.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("sources: fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrFetch) hold for any FetchError.
func (e *FetchError) Is(target error) bool { return target == ErrFetch }

func fetchErr(id string, err error) error {
	return &FetchError{Source: id, Err: err}
}

// Deps are the shared collaborators sources are built with.
type Deps struct {
	Guard  *security.Guard
	Client *http.Client
}

// FromConfig builds the source described by c.
func FromConfig(c config.SourceConfig, d Deps) (Source, error) {
	schema, err := SchemaFor(c)
	if err != nil {
		return nil, err
	}
	switch c.Kind {
	case config.SourceCSV:
		u := c.URL
		if u == "" && c.SheetID != "" {
			u = GoogleSheetCSVURL(c.SheetID, c.Tab)
		}
		return &CSVSource{id: c.ID, path: c.Path, url: u, schema: schema, guard: d.Guard, client: d.Client}, nil
	case config.SourceXLSX:
		return &XLSXSource{id: c.ID, path: c.Path, sheet: c.Sheet, schema: schema, guard: d.Guard}, nil
	case config.SourceSQL:
		return &SQLSource{id: c.ID, driver: c.Driver, dsn: c.DSN, query: c.Query, schema: schema.NamesOnly()}, nil
	}
	return nil, fmt.Errorf("sources: %s: unknown kind %q", c.ID, c.Kind)
}

// SchemaFor applies the column overrides of c to the default schema.
func SchemaFor(c config.SourceConfig) (dataset.Schema, error) {
	s := dataset.DefaultSchema()
	for name, o := range c.Columns {
		f, err := dataset.ParseField(name)
		if err != nil {
			return nil, fmt.Errorf("sources: %s: %w", c.ID, err)
		}
		s.Override(f, o.Names, o.Position)
	}
	return s, nil
}

// GoogleSheetCSVURL is the CSV export endpoint of one tab of a shared sheet.
func GoogleSheetCSVURL(sheetID, tab string) string {
	if tab == "" {
		tab = config.DefaultSheetTab
	}
	return "https://docs.google.com/spreadsheets/d/" + sheetID + "/gviz/tq?tqx=out:csv&sheet=" + url.QueryEscape(tab)
}
