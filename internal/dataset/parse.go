package dataset

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// StatusEmpty is the sentinel for missing status codes.
const StatusEmpty = "EMPTY"

// Day-first layouts come before ISO ones; the two families never overlap.
var dateLayouts = []string{
	"02/01/2006",
	"02/01/2006 15:04",
	"02/01/2006 15:04:05",
	"2/1/2006",
	"2/1/2006 15:04",
	"2/1/2006 15:04:05",
	"02-01-2006",
	"02-01-2006 15:04:05",
	"02.01.2006",
	"2006-01-02",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// Serial dates outside this window are treated as plain numbers.
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465 // 9999-12-31
)

// ParseDate parses a date cell with the day-first convention. When native is
// set, Excel serial numbers are accepted too. Time of day is kept as written;
// the zone is UTC so calendar dates never shift.
func ParseDate(s string, native bool) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return wall(t), true
		}
	}
	// gviz exports sometimes append a zone name or fractional seconds.
	if head, _, ok := strings.Cut(s, "."); ok && len(head) >= len("2006-01-02 15:04:05") {
		return ParseDate(head, native)
	}
	if native {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f >= minExcelSerial && f <= maxExcelSerial {
			if t, err := excelize.ExcelDateToTime(f, false); err == nil {
				return wall(t), true
			}
		}
	}
	return time.Time{}, false
}

// wall drops any zone offset while keeping the written wall clock.
func wall(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// ParseAmount parses a currency cell. Locale cells ("R$ 1.234,56") have every
// "." removed before "," becomes the decimal point. Native cells are parsed
// as machine numbers first. Anything unparseable or negative yields zero.
func ParseAmount(s string, native bool) decimal.Decimal {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.Zero
	}

	if native {
		if d, err := decimal.NewFromString(s); err == nil {
			return clamp(d)
		}
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return clamp(d)
}

func clamp(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ParseCount parses a non-negative integer cell such as an employee headcount.
func ParseCount(s string, native bool) int {
	d := ParseAmount(s, native)
	return int(d.IntPart())
}

// NormalizeStatus trims and upper-cases a status code; missing or null-like
// values collapse to StatusEmpty.
func NormalizeStatus(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch s {
	case "", "NAN", "NONE", "NULL", "<NA>", "VAZIO":
		return StatusEmpty
	}
	return s
}
