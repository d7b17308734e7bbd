// Package timeutil holds the time arithmetic shared by the engines. All
// user-facing times are expressed in Korea Standard Time (+09:00).
package timeutil

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	ISOLayout  = "2006-01-02T15:04:05-07:00"
)

// KST is a fixed +09:00 zone; Korea has no DST so no tzdata lookup is needed.
var KST = time.FixedZone("KST", 9*60*60)

// Clock returns the current time. Components take one so tests can pin it.
type Clock func() time.Time

func SystemClock() time.Time { return time.Now().In(KST) }

// Today is the KST calendar date for the clock's current instant.
func Today(clock Clock) string {
	if clock == nil {
		clock = SystemClock
	}
	return clock().In(KST).Format(DateLayout)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), KST)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

func FormatDate(t time.Time) string { return t.In(KST).Format(DateLayout) }

func FormatISO(t time.Time) string { return t.In(KST).Format(ISOLayout) }

// FormatClock renders HH:MM in KST.
func FormatClock(t time.Time) string { return t.In(KST).Format("15:04") }

// AddDays shifts a YYYY-MM-DD date string by n calendar days.
func AddDays(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(DateLayout), nil
}

// DateRange lists every date from..to inclusive. It returns nil when to < from.
func DateRange(from, to string) ([]string, error) {
	f, err := ParseDate(from)
	if err != nil {
		return nil, err
	}
	t, err := ParseDate(to)
	if err != nil {
		return nil, err
	}
	var out []string
	for d := f; !d.After(t); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(DateLayout))
	}
	return out, nil
}

var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseDateTime accepts RFC3339, a naive datetime (interpreted as KST), or a
// bare HH:MM clock time placed on onDate.
func ParseDateTime(s, onDate string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	for _, layout := range dateTimeLayouts {
		if layout == time.RFC3339 {
			if t, err := time.Parse(layout, s); err == nil {
				return t.In(KST), nil
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, s, KST); err == nil {
			return t, nil
		}
	}
	clock, err := time.Parse("15:04", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", s)
	}
	day, err := ParseDate(onDate)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute), nil
}

// Hours converts fractional hours into a Duration, rounded to the second.
func Hours(h float64) time.Duration {
	return time.Duration(math.Round(h*3600)) * time.Second
}

func Minutes(m int) time.Duration { return time.Duration(m) * time.Minute }

func HoursBetween(from, to time.Time) float64 { return to.Sub(from).Hours() }

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func IsWeekend(t time.Time) bool {
	wd := t.In(KST).Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Round1 rounds to one decimal place.
func Round1(x float64) float64 { return math.Round(x*10) / 10 }

func Round2(x float64) float64 { return math.Round(x*100) / 100 }

// HourPhrase renders an hour as "9 AM" / "1 PM".
func HourPhrase(t time.Time) string {
	h := t.In(KST).Hour()
	switch {
	case h == 0:
		return "12 AM"
	case h < 12:
		return fmt.Sprintf("%d AM", h)
	case h == 12:
		return "12 PM"
	default:
		return fmt.Sprintf("%d PM", h-12)
	}
}
