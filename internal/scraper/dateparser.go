package scraper

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Recognized date shapes, tried in order. A four-digit first group means
// year-first, otherwise month-first.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`),  // 2024-01-15
	regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`),  // 01/15/2024 or 1/15/2024
	regexp.MustCompile(`(\d{1,2})-(\d{1,2})-(\d{4})`),  // 01-15-2024
	regexp.MustCompile(`(\d{4})/(\d{1,2})/(\d{1,2})`),  // 2024/01/15
}

// DateParser turns loosely formatted date strings into calendar dates.
// An unrecognized string is a normal outcome, reported as an error value;
// callers treat it as "unparseable", not as a failure.
type DateParser struct{}

func NewDateParser() *DateParser {
	return &DateParser{}
}

// Parse searches the string for the first recognized date shape and
// returns it as a UTC midnight time. The date must exist on the calendar;
// 2024-02-30 is unparseable.
func (dp *DateParser) Parse(dateStr string) (time.Time, error) {
	if dateStr == "" {
		return time.Time{}, fmt.Errorf("empty date string")
	}

	for _, pattern := range datePatterns {
		matches := pattern.FindStringSubmatch(dateStr)
		if matches == nil {
			continue
		}

		var year, month, day int
		var err error
		if len(matches[1]) == 4 {
			year, month, day, err = atoiTriple(matches[1], matches[2], matches[3])
		} else {
			month, day, year, err = atoiTriple(matches[1], matches[2], matches[3])
		}
		if err != nil {
			return time.Time{}, err
		}

		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		// time.Date normalizes out-of-range components; reject them.
		if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
			return time.Time{}, fmt.Errorf("invalid calendar date: %s", dateStr)
		}
		return t, nil
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}

// FormatDate renders a parsed date the way summaries bucket it.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func atoiTriple(a, b, c string) (int, int, int, error) {
	x, err := strconv.Atoi(a)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to parse %q as int: %w", a, err)
	}
	y, err := strconv.Atoi(b)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to parse %q as int: %w", b, err)
	}
	z, err := strconv.Atoi(c)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to parse %q as int: %w", c, err)
	}
	return x, y, z, nil
}
