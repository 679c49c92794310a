package sources

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	// Registered drivers: "postgres", "pgx" and "sqlite".
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/topaplus/commandcenter/internal/dataset"
)

// SQLSource runs a query and treats its result set as the raw table. Column
// names resolve by alias only; result-set order carries no meaning.
type SQLSource struct {
	id     string
	driver string
	dsn    string
	query  string
	schema dataset.Schema

	mu sync.Mutex
	db *sqlx.DB
}

// NewSQLSource wraps an already open database.
func NewSQLSource(id string, db *sqlx.DB, query string, schema dataset.Schema) *SQLSource {
	return &SQLSource{id: id, driver: db.DriverName(), query: query, schema: schema.NamesOnly(), db: db}
}

func (s *SQLSource) ID() string             { return s.id }
func (s *SQLSource) Kind() string           { return "sql" }
func (s *SQLSource) Schema() dataset.Schema { return s.schema }

// Fetch runs the query and scans every row.
func (s *SQLSource) Fetch(ctx context.Context) (dataset.Table, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return dataset.Table{}, fetchErr(s.id, err)
	}
	t, err := QueryTable(ctx, db, s.query)
	if err != nil {
		return dataset.Table{}, fetchErr(s.id, err)
	}
	return t, nil
}

// Close releases the pool opened by Fetch.
func (s *SQLSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLSource) conn(ctx context.Context) (*sqlx.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}
	db, err := OpenDB(ctx, s.driver, s.dsn)
	if err != nil {
		return nil, err
	}
	s.db = db
	return db, nil
}

// OpenDB connects and pings. driver is postgres (lib/pq), pgx (pgx/v5) or
// sqlite (modernc, pure Go).
func OpenDB(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	name := strings.ToLower(strings.TrimSpace(driver))
	switch name {
	case "postgres", "postgresql":
		name = "postgres"
	case "pgx":
	case "sqlite", "sqlite3":
		name = "sqlite"
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	db, err := sqlx.ConnectContext(ctx, name, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: connect: %w", name, err)
	}
	if name == "sqlite" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)
	}
	return db, nil
}

// QueryTable runs query and converts every value to its native string form.
func QueryTable(ctx context.Context, db *sqlx.DB, query string) (dataset.Table, error) {
	rows, err := db.QueryxContext(ctx, query)
	if err != nil {
		return dataset.Table{}, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return dataset.Table{}, fmt.Errorf("columns: %w", err)
	}
	t := dataset.Table{Headers: cols, Native: true}
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return dataset.Table{}, fmt.Errorf("scan: %w", err)
		}
		row := make([]string, len(vals))
		for i, v := range vals {
			row[i] = nativeString(v)
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return dataset.Table{}, fmt.Errorf("rows: %w", err)
	}
	return t, nil
}

func nativeString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
