package sources

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/topaplus/commandcenter/internal/dataset"
	"github.com/topaplus/commandcenter/internal/security"
)

// maxCSVBytes bounds a single download.
const maxCSVBytes = 64 << 20

// ErrTooLarge is returned when an export exceeds the size bound. A cut export
// would still parse, so it fails instead of being truncated.
var ErrTooLarge = errors.New("sources: export too large")

// CSVSource reads a CSV export from a local file or an HTTP(S) URL. Cells
// are pt-BR display strings.
type CSVSource struct {
	id     string
	path   string
	url    string
	schema dataset.Schema
	guard  *security.Guard
	client *http.Client
	limit  int64
}

// NewCSVSource builds a CSV source directly; FromConfig is the usual entry.
func NewCSVSource(id, path, url string, schema dataset.Schema, guard *security.Guard, client *http.Client) *CSVSource {
	return &CSVSource{id: id, path: path, url: url, schema: schema, guard: guard, client: client}
}

func (s *CSVSource) ID() string             { return s.id }
func (s *CSVSource) Kind() string           { return "csv" }
func (s *CSVSource) Schema() dataset.Schema { return s.schema }

// Fetch downloads or opens the export and parses it in full.
func (s *CSVSource) Fetch(ctx context.Context) (dataset.Table, error) {
	var (
		r   io.ReadCloser
		err error
	)
	if s.url != "" {
		r, err = s.download(ctx)
	} else {
		r, err = s.open()
	}
	if err != nil {
		return dataset.Table{}, fetchErr(s.id, err)
	}
	defer r.Close()

	limit := s.limit
	if limit <= 0 {
		limit = maxCSVBytes
	}
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return dataset.Table{}, fetchErr(s.id, err)
	}
	if int64(len(body)) > limit {
		return dataset.Table{}, fetchErr(s.id, fmt.Errorf("%w: export exceeds %d bytes", ErrTooLarge, limit))
	}
	t, err := ParseCSV(bytes.NewReader(body))
	if err != nil {
		return dataset.Table{}, fetchErr(s.id, err)
	}
	return t, nil
}

func (s *CSVSource) open() (io.ReadCloser, error) {
	if s.guard == nil {
		return nil, security.ErrNotAllowed
	}
	p, err := s.guard.Resolve(s.path)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

func (s *CSVSource) download(ctx context.Context) (io.ReadCloser, error) {
	client := s.client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/csv")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return resp.Body, nil
}

// ParseCSV reads a header row plus data rows. Ragged rows are kept as is;
// malformed quoting fails the whole table.
func ParseCSV(r io.Reader) (dataset.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return dataset.Table{}, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) == 0 {
		return dataset.Table{}, errors.New("parse csv: no header row")
	}
	return dataset.Table{Headers: rows[0], Rows: rows[1:]}, nil
}
