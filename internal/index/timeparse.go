package index

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/paveg/blockframe/internal/dtype"
	"github.com/paveg/blockframe/internal/errors"
)

// Resolution is the granularity a timestamp string was written at
type Resolution int

const (
	ResYear Resolution = iota
	ResQuarter
	ResMonth
	ResDay
	ResHour
	ResMinute
	ResSecond
	ResNanosecond
)

var resolutionNames = [...]string{"year", "quarter", "month", "day", "hour", "minute", "second", "nanosecond"}

// String returns the string representation of the resolution
func (r Resolution) String() string {
	if int(r) < len(resolutionNames) {
		return resolutionNames[r]
	}
	return fmt.Sprintf("resolution(%d)", int(r))
}

// ParsedTime is a timestamp string widened to the closed interval it names
type ParsedTime struct {
	Start      dtype.Time
	End        dtype.Time
	Resolution Resolution
}

var (
	yearPattern      = regexp.MustCompile(`^(\d{4})$`)
	quarterPattern   = regexp.MustCompile(`(?i)^(\d{4})[-\s]?Q([1-4])$`)
	quarterPrefix    = regexp.MustCompile(`(?i)^Q([1-4])[-\s]?(\d{4})$`)
	monthPattern     = regexp.MustCompile(`^(\d{4})[-/](\d{1,2})$`)
	timestampPattern = regexp.MustCompile(
		`^(\d{4})[-/](\d{1,2})[-/](\d{1,2})(?:[T ](\d{1,2})(?::(\d{2})(?::(\d{2})(\.\d{1,9})?)?)?)?$`)

	monthLayouts = []string{"Jan 2006", "January 2006", "Jan-2006", "2006-Jan", "Jan2006"}
)

// ParseTimeString parses a possibly partial timestamp ("2000", "2000Q2",
// "2000-03", "Mar 2000", "2000-03-04", "2000-03-04 05:06") and returns the
// interval from the first to the last nanosecond it covers.
func ParseTimeString(s string) (ParsedTime, error) {
	s = strings.TrimSpace(s)

	if m := yearPattern.FindStringSubmatch(s); m != nil {
		return widen(date(atoi(m[1]), 1, 1), ResYear), nil
	}
	if m := quarterPattern.FindStringSubmatch(s); m != nil {
		return widen(date(atoi(m[1]), 3*atoi(m[2])-2, 1), ResQuarter), nil
	}
	if m := quarterPrefix.FindStringSubmatch(s); m != nil {
		return widen(date(atoi(m[2]), 3*atoi(m[1])-2, 1), ResQuarter), nil
	}
	if m := monthPattern.FindStringSubmatch(s); m != nil {
		month := atoi(m[2])
		if month < 1 || month > 12 {
			return ParsedTime{}, invalidTime(s)
		}
		return widen(date(atoi(m[1]), month, 1), ResMonth), nil
	}
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return widen(t, ResMonth), nil
		}
	}
	if m := timestampPattern.FindStringSubmatch(s); m != nil {
		return parseTimestampMatch(s, m)
	}

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return ParsedTime{}, invalidTime(s)
	}
	switch {
	case !strings.Contains(s, ":") && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0:
		return widen(t, ResDay), nil
	case t.Nanosecond() == 0:
		return widen(t, ResSecond), nil
	default:
		return widen(t, ResNanosecond), nil
	}
}

func parseTimestampMatch(s string, m []string) (ParsedTime, error) {
	year, month, day := atoi(m[1]), atoi(m[2]), atoi(m[3])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return ParsedTime{}, invalidTime(s)
	}

	res := ResDay
	var hour, minute, second, nanos int
	if m[4] != "" {
		hour, res = atoi(m[4]), ResHour
	}
	if m[5] != "" {
		minute, res = atoi(m[5]), ResMinute
	}
	if m[6] != "" {
		second, res = atoi(m[6]), ResSecond
	}
	if m[7] != "" {
		frac := m[7][1:]
		frac += strings.Repeat("0", 9-len(frac))
		nanos, res = atoi(frac), ResNanosecond
	}
	if hour > 23 || minute > 59 || second > 59 {
		return ParsedTime{}, invalidTime(s)
	}

	t := time.Date(year, time.Month(month), day, hour, minute, second, nanos, time.UTC)
	if t.Day() != day {
		return ParsedTime{}, invalidTime(s)
	}
	return widen(t, res), nil
}

func widen(t time.Time, res Resolution) ParsedTime {
	var next time.Time
	switch res {
	case ResYear:
		next = t.AddDate(1, 0, 0)
	case ResQuarter:
		next = t.AddDate(0, 3, 0)
	case ResMonth:
		next = t.AddDate(0, 1, 0)
	case ResDay:
		next = t.AddDate(0, 0, 1)
	case ResHour:
		next = t.Add(time.Hour)
	case ResMinute:
		next = t.Add(time.Minute)
	case ResSecond:
		next = t.Add(time.Second)
	default:
		next = t.Add(time.Nanosecond)
	}
	return ParsedTime{Start: dtype.FromTime(t), End: dtype.FromTime(next) - 1, Resolution: res}
}

func date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func invalidTime(s string) error {
	return errors.NewInvalidInputError("ParseTimeString", fmt.Sprintf("cannot parse %q as a timestamp", s))
}
