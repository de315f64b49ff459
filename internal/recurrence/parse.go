package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// Parse reads an RFC 5545 recurrence rule. The input may be a bare value
// ("FREQ=MONTHLY;BYDAY=3FR;COUNT=10"), carry an "RRULE:" prefix, or be a
// multi-line block that also holds a DTSTART line. start is used when the
// rule carries no start of its own; loc applies to floating date-times and
// defaults to UTC.
func Parse(rule string, start time.Time, loc *time.Location) (Specification, error) {
	if loc == nil {
		loc = time.UTC
	}

	var rrulePart string
	var dtstart time.Time
	for _, line := range strings.FieldsFunc(rule, func(r rune) bool { return r == '\n' || r == '\r' }) {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		switch {
		case line == "":
		case strings.HasPrefix(upper, "DTSTART"):
			t, err := parseDTStart(line, loc)
			if err != nil {
				return Specification{}, err
			}
			dtstart = t
		case strings.HasPrefix(upper, "RRULE:"):
			rrulePart = line[len("RRULE:"):]
		default:
			rrulePart = line
		}
	}
	if rrulePart == "" {
		return Specification{}, errors.New("recurrence rule is empty")
	}

	opt, err := rrule.StrToROptionInLocation(rrulePart, loc)
	if err != nil {
		return Specification{}, fmt.Errorf("parse rrule %q: %w", rrulePart, err)
	}
	if opt.Dtstart.IsZero() {
		opt.Dtstart = dtstart
	}
	if opt.Dtstart.IsZero() {
		opt.Dtstart = start
	}
	if opt.Dtstart.IsZero() {
		return Specification{}, fmt.Errorf("recurrence rule %q has no start", rrulePart)
	}
	return FromOption(*opt), nil
}

// parseDTStart handles "DTSTART:20110815T000000Z" and
// "DTSTART;TZID=America/New_York:20110815T090000".
func parseDTStart(line string, loc *time.Location) (time.Time, error) {
	head, value, ok := strings.Cut(line, ":")
	if !ok {
		return time.Time{}, fmt.Errorf("malformed DTSTART %q", line)
	}
	for _, param := range strings.Split(head, ";")[1:] {
		key, val, _ := strings.Cut(param, "=")
		if strings.EqualFold(key, "TZID") {
			tz, err := time.LoadLocation(val)
			if err != nil {
				return time.Time{}, fmt.Errorf("DTSTART TZID %q: %w", val, err)
			}
			loc = tz
		}
	}
	return parseICalTime(value, loc)
}

// parseICalTime accepts the UTC, floating date-time and date forms.
func parseICalTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
