package insights

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/topaplus/commandcenter/internal/dataset"
	"github.com/topaplus/commandcenter/pkg/brl"
)

// Window narrows a daily series.
type Window string

const (
	WindowAll    Window = "all"
	WindowLast7  Window = "last_7"
	WindowLast15 Window = "last_15"
	WindowLast30 Window = "last_30"
	// WindowCustom covers [start, start+30 days] and ignores the date bounds
	// of the caller's filter.
	WindowCustom Window = "custom"
)

// CustomWindowDays is the span of a custom comparison window.
const CustomWindowDays = 30

// ParseWindow accepts a window name; empty means all.
func ParseWindow(s string) (Window, error) {
	switch w := Window(strings.ToLower(strings.TrimSpace(s))); w {
	case "":
		return WindowAll, nil
	case WindowAll, WindowLast7, WindowLast15, WindowLast30, WindowCustom:
		return w, nil
	}
	return "", fmt.Errorf("%w: unknown window %q", ErrInvalidInput, s)
}

func (w Window) days() int {
	switch w {
	case WindowLast7:
		return 7
	case WindowLast15:
		return 15
	case WindowLast30:
		return 30
	}
	return 0
}

// DailyPoint is the ticket total of one calendar day.
type DailyPoint struct {
	Date      string          `json:"date"`
	Day       string          `json:"day"`
	Volume    decimal.Decimal `json:"volume"`
	VolumeBRL string          `json:"volume_brl"`
	Count     int             `json:"count"`
}

// DailyQuery parameterizes DailySeries.
type DailyQuery struct {
	Mode   DateMode
	Window Window
	// Start anchors the custom window.
	Start *time.Time
	// Now anchors the relative windows.
	Now time.Time
}

// DailySeries sums tickets per calendar day of the records' basis date,
// restricted to the window, ordered by day.
func DailySeries(records []dataset.Record, q DailyQuery) ([]DailyPoint, error) {
	var from, to *time.Time
	switch q.Window {
	case "", WindowAll:
	case WindowLast7, WindowLast15, WindowLast30:
		f := civil(q.Now).AddDate(0, 0, -q.Window.days())
		from = &f
	case WindowCustom:
		if q.Start == nil {
			return nil, fmt.Errorf("%w: custom window needs a start date", ErrInvalidInput)
		}
		f := civil(*q.Start)
		t := f.AddDate(0, 0, CustomWindowDays)
		from, to = &f, &t
	default:
		return nil, fmt.Errorf("%w: unknown window %q", ErrInvalidInput, q.Window)
	}

	byDay := map[time.Time]*DailyPoint{}
	for _, r := range records {
		d := BasisDate(r, q.Mode)
		if d == nil {
			continue
		}
		day := civil(*d)
		if from != nil && day.Before(*from) {
			continue
		}
		if to != nil && day.After(*to) {
			continue
		}
		p, ok := byDay[day]
		if !ok {
			p = &DailyPoint{Date: day.Format("2006-01-02"), Day: strconv.Itoa(day.Day()), Volume: decimal.Zero}
			byDay[day] = p
		}
		p.Volume = p.Volume.Add(r.Ticket)
		p.Count++
	}

	days := make([]time.Time, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	out := make([]DailyPoint, 0, len(days))
	for _, d := range days {
		p := byDay[d]
		p.VolumeBRL = brl.Format(p.Volume)
		out = append(out, *p)
	}
	return out, nil
}
