// Package timefmt handles the timestamp strings stored in archive, rank and
// watermark files. A Format is an explicit tag (date style plus precision)
// resolved once from a sample and then reused for every row of a file.
//
// Accepted shapes:
//
//	YYYY-MM-DD | MM/DD/YYYY
//	  optionally followed by a separator (' ' or ':') and HH, HH:MM or HH:MM:SS
//
// The ':' separator between the date and the hour is accepted for files
// written by older tooling; new files always use Canonical.
package timefmt

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/errors"
)

// DateStyle selects how the calendar part of a timestamp is written.
type DateStyle int

const (
	DateISO DateStyle = iota
	DateUS
)

// Precision is how much of the clock follows the date.
type Precision int

const (
	DateOnly Precision = iota
	DateHour
	DateHourMinute
	DateHourMinuteSecond
)

func (p Precision) String() string {
	switch p {
	case DateOnly:
		return "date"
	case DateHour:
		return "date-hour"
	case DateHourMinute:
		return "date-hour-minute"
	case DateHourMinuteSecond:
		return "date-hour-minute-second"
	default:
		return "unknown"
	}
}

// Format is a resolved timestamp layout.
type Format struct {
	Style     DateStyle
	Precision Precision
	Sep       byte
}

// Canonical is the layout every writer in this module emits.
var Canonical = Format{Style: DateISO, Precision: DateHourMinuteSecond, Sep: ' '}

// Layout returns the time package layout string for f.
func (f Format) Layout() string {
	var b strings.Builder
	switch f.Style {
	case DateUS:
		b.WriteString("1/2/2006")
	default:
		b.WriteString("2006-01-02")
	}
	if f.Precision == DateOnly {
		return b.String()
	}
	sep := f.Sep
	if sep == 0 {
		sep = ' '
	}
	b.WriteByte(sep)
	b.WriteString("15")
	if f.Precision >= DateHourMinute {
		b.WriteString(":04")
	}
	if f.Precision >= DateHourMinuteSecond {
		b.WriteString(":05")
	}
	return b.String()
}

// Parse reads s as a UTC timestamp in layout f.
func (f Format) Parse(s string) (time.Time, error) {
	t, err := time.ParseInLocation(f.Layout(), strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, apperrors.Parsef("timestamp %q (%s): %v", s, f.Precision, err)
	}
	return t, nil
}

// Format renders t in UTC using layout f.
func (f Format) Format(t time.Time) string {
	return t.UTC().Format(f.Layout())
}

// Detect resolves the Format of a sample timestamp string.
func Detect(s string) (Format, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Format{}, apperrors.Parsef("empty timestamp")
	}
	f := Format{Style: DateISO, Sep: ' '}

	datePart, clock, hasClock := splitDateClock(s)
	switch {
	case strings.Count(datePart, "-") == 2:
		f.Style = DateISO
	case strings.Count(datePart, "/") == 2:
		f.Style = DateUS
	default:
		return Format{}, apperrors.Parsef("timestamp %q: unrecognised date %q", s, datePart)
	}
	if !hasClock {
		f.Precision = DateOnly
		return f, nil
	}
	f.Sep = s[len(datePart)]
	switch strings.Count(clock, ":") {
	case 0:
		f.Precision = DateHour
	case 1:
		f.Precision = DateHourMinute
	case 2:
		f.Precision = DateHourMinuteSecond
	default:
		return Format{}, apperrors.Parsef("timestamp %q: too many clock fields", s)
	}
	return f, nil
}

// Parse detects the layout of s and parses it.
func Parse(s string) (time.Time, error) {
	f, err := Detect(s)
	if err != nil {
		return time.Time{}, err
	}
	return f.Parse(s)
}

// String renders t with Canonical.
func String(t time.Time) string {
	return Canonical.Format(t)
}

func splitDateClock(s string) (date, clock string, ok bool) {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i], s[i+1:], true
	}
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[:i], s[i+1:], true
	}
	return s, "", false
}

// Resolver parses a stream of timestamps, detecting the layout from the
// first value and reusing it. A value that does not match the resolved layout
// is re-detected once so files with mixed history still load.
type Resolver struct {
	format   Format
	resolved bool
}

func (r *Resolver) Parse(s string) (time.Time, error) {
	if r.resolved {
		if t, err := r.format.Parse(s); err == nil {
			return t, nil
		}
	}
	f, err := Detect(s)
	if err != nil {
		return time.Time{}, err
	}
	t, err := f.Parse(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("resolving layout: %w", err)
	}
	r.format, r.resolved = f, true
	return t, nil
}

// Format returns the currently resolved layout and whether one was resolved.
func (r *Resolver) Format() (Format, bool) {
	return r.format, r.resolved
}
