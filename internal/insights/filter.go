package insights

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/topaplus/commandcenter/internal/dataset"
)

// DateMode selects which date a record is scoped by.
type DateMode string

const (
	// DateModeStandard scopes every record by its creation date.
	DateModeStandard DateMode = "standard"
	// DateModeHybrid scopes disbursed records by payment date and all others by
	// creation date. A disbursed record without payment date is out of scope.
	DateModeHybrid DateMode = "hybrid-by-payment-date"
)

// ParseDateMode accepts a mode name; empty means standard.
func ParseDateMode(s string) (DateMode, error) {
	switch DateMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", DateModeStandard:
		return DateModeStandard, nil
	case DateModeHybrid, "hybrid":
		return DateModeHybrid, nil
	}
	return "", fmt.Errorf("%w: unknown date mode %q", ErrInvalidInput, s)
}

// Filter is the explicit scope of one report call. Zero-valued fields do not
// constrain. Date bounds are inclusive calendar dates.
type Filter struct {
	Start   *time.Time
	End     *time.Time
	Agent   string
	Company string
	Squad   string
	Mode    DateMode
}

// Apply returns the records matching every predicate of f. Records without a
// basis date never match, even with both bounds unset.
func (f Filter) Apply(records []dataset.Record) []dataset.Record {
	out := make([]dataset.Record, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Match evaluates f against a single record.
func (f Filter) Match(r dataset.Record) bool {
	d := BasisDate(r, f.Mode)
	if d == nil {
		return false
	}
	day := civil(*d)
	if f.Start != nil && day.Before(civil(*f.Start)) {
		return false
	}
	if f.End != nil && day.After(civil(*f.End)) {
		return false
	}
	if f.Agent != "" && r.AgentID != f.Agent {
		return false
	}
	if f.Company != "" && r.CompanyID != f.Company {
		return false
	}
	if f.Squad != "" && r.SquadID != f.Squad {
		return false
	}
	return true
}

// WithoutAgent returns the same scope with the agent predicate cleared.
func (f Filter) WithoutAgent() Filter {
	f.Agent = ""
	return f
}

// WithoutDates returns the same scope with the date bounds cleared.
func (f Filter) WithoutDates() Filter {
	f.Start, f.End = nil, nil
	return f
}

// Hash is a short fingerprint of the scope, used to bind paging cursors.
func (f Filter) Hash() string {
	mode := f.Mode
	if mode == "" {
		mode = DateModeStandard
	}
	key := strings.Join([]string{dateKey(f.Start), dateKey(f.End), f.Agent, f.Company, f.Squad, string(mode)}, "\x1f")
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

// BasisDate returns the date a record is scoped by under mode.
func BasisDate(r dataset.Record, mode DateMode) *time.Time {
	if mode == DateModeHybrid && IsPaid(r) {
		return r.PaidAt
	}
	return r.CreatedAt
}

func civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dateKey(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// FilterOptions lists the values a caller can choose from.
type FilterOptions struct {
	Agents    []string `json:"agents"`
	Companies []string `json:"companies"`
	Squads    []string `json:"squads"`
	MinDate   string   `json:"min_date,omitempty"`
	MaxDate   string   `json:"max_date,omitempty"`
	Records   int      `json:"records"`
	Undated   int      `json:"undated"`
}

// Options collects distinct sorted dimension values and the creation date
// bounds of the dated records.
func Options(records []dataset.Record) FilterOptions {
	agents, companies, squads := map[string]struct{}{}, map[string]struct{}{}, map[string]struct{}{}
	var lo, hi *time.Time
	out := FilterOptions{Records: len(records)}
	for _, r := range records {
		if r.CreatedAt == nil {
			out.Undated++
		} else {
			if lo == nil || r.CreatedAt.Before(*lo) {
				lo = r.CreatedAt
			}
			if hi == nil || r.CreatedAt.After(*hi) {
				hi = r.CreatedAt
			}
		}
		add(agents, r.AgentID)
		add(companies, r.CompanyID)
		add(squads, r.SquadID)
	}
	out.Agents = sorted(agents)
	out.Companies = sorted(companies)
	out.Squads = sorted(squads)
	out.MinDate = dateKey(lo)
	out.MaxDate = dateKey(hi)
	return out
}

func add(m map[string]struct{}, v string) {
	if v != "" {
		m[v] = struct{}{}
	}
}

func sorted(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
