package reports

import (
	"fmt"
	"strings"
	"time"

	"github.com/topaplus/commandcenter/internal/insights"
)

// Query is the surface-neutral form of a report call. Dates are YYYY-MM-DD.
type Query struct {
	Source                string
	Start                 string
	End                   string
	Agent                 string
	Company               string
	Squad                 string
	Mode                  string
	AgentScope            string
	GeneratedExcludesPaid bool
	Window                string
	CustomStart           string
	TopN                  int
	Details               bool
}

// Filter parses the scope of q. Start after End is rejected.
func (q Query) Filter() (insights.Filter, error) {
	f := insights.Filter{
		Agent:   strings.TrimSpace(q.Agent),
		Company: strings.TrimSpace(q.Company),
		Squad:   strings.TrimSpace(q.Squad),
	}
	var err error
	if f.Start, err = parseDate("start", q.Start); err != nil {
		return f, err
	}
	if f.End, err = parseDate("end", q.End); err != nil {
		return f, err
	}
	if f.Start != nil && f.End != nil && f.Start.After(*f.End) {
		return f, fmt.Errorf("%w: start %s is after end %s", insights.ErrInvalidInput, q.Start, q.End)
	}
	// An empty mode defers to the report's configured mode.
	if strings.TrimSpace(q.Mode) != "" {
		if f.Mode, err = insights.ParseDateMode(q.Mode); err != nil {
			return f, err
		}
	}
	return f, nil
}

func (q Query) request(now time.Time) (insights.ReportRequest, error) {
	f, err := q.Filter()
	if err != nil {
		return insights.ReportRequest{}, err
	}
	req := insights.ReportRequest{Filter: f, Now: now, Details: q.Details}
	if strings.TrimSpace(q.Window) != "" {
		if req.Window, err = insights.ParseWindow(q.Window); err != nil {
			return req, err
		}
	}
	if req.CustomStart, err = parseDate("custom_start", q.CustomStart); err != nil {
		return req, err
	}
	return req, nil
}

func parseDate(field, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be YYYY-MM-DD, got %q", insights.ErrInvalidInput, field, s)
	}
	return &t, nil
}
