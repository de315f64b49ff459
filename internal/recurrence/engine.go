package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/mo"
	"github.com/teambition/rrule-go"
)

// ErrEmptySchedule is returned when a specification yields no occurrence.
var ErrEmptySchedule = errors.New("recurrence yields no occurrences")

// Engine materializes the boundaries of a schedule. Implementations only
// ever walk a bounded prefix or the stretch before a bound.
type Engine interface {
	// First returns the earliest occurrence, which may lie after Start when
	// by-fields push the first instance forward.
	First(spec Specification) (time.Time, error)
	// LastBefore returns the latest occurrence at or before bound, or None
	// when the bound precedes every occurrence.
	LastBefore(spec Specification, bound time.Time) (mo.Option[time.Time], error)
}

// RRuleEngine implements Engine with rrule-go.
type RRuleEngine struct{}

// NewRRuleEngine creates the default engine.
func NewRRuleEngine() *RRuleEngine {
	return &RRuleEngine{}
}

func (e *RRuleEngine) rule(spec Specification) (*rrule.RRule, error) {
	r, err := rrule.NewRRule(spec.Option())
	if err != nil {
		return nil, fmt.Errorf("build rrule for %s schedule: %w", spec.Frequency, err)
	}
	return r, nil
}

func (e *RRuleEngine) First(spec Specification) (time.Time, error) {
	r, err := e.rule(spec)
	if err != nil {
		return time.Time{}, err
	}
	next := r.Iterator()
	first, ok := next()
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s starting %s", ErrEmptySchedule, spec.Frequency, spec.Start.Format(time.RFC3339))
	}
	return first, nil
}

// LastBefore searches backwards from bound. rrule-go always iterates from
// DTSTART, so each pass runs a copy of the rule re-anchored at the start of
// an interval-aligned period a few intervals before bound, doubling the
// distance until an occurrence turns up or the anchor reaches Start.
func (e *RRuleEngine) LastBefore(spec Specification, bound time.Time) (mo.Option[time.Time], error) {
	r, err := e.rule(spec)
	if err != nil {
		return mo.None[time.Time](), err
	}
	// A count depends on every occurrence from Start on, so it cannot be
	// re-anchored.
	if spec.Count.IsAbsent() && spec.Frequency.Valid() {
		interval := max(spec.Interval, 1)
		elapsed := elapsedPeriods(spec, bound.In(spec.Start.Location()))
		for span := searchSpan; elapsed/interval > span; span *= 2 {
			anchor := periodStart(spec, (elapsed/interval-span)*interval)
			shifted, err := rrule.NewRRule(spec.anchoredOption(anchor))
			if err != nil {
				return mo.None[time.Time](), fmt.Errorf("build rrule for %s schedule: %w", spec.Frequency, err)
			}
			if last := shifted.Before(bound, true); !last.IsZero() && !last.Before(anchor) {
				return mo.Some(last), nil
			}
		}
	}
	last := r.Before(bound, true)
	if last.IsZero() {
		return mo.None[time.Time](), nil
	}
	return mo.Some(last), nil
}

// searchSpan is the initial distance, in intervals, of a backward search.
const searchSpan = 2

// elapsedPeriods counts whole frequency units from the period holding Start
// to the one holding t, on the wall clock of Start's location.
func elapsedPeriods(spec Specification, t time.Time) int {
	s := spec.Start
	days := civilDays(t) - civilDays(s)
	switch spec.Frequency {
	case Yearly:
		return t.Year() - s.Year()
	case Monthly:
		return (t.Year()-s.Year())*12 + int(t.Month()) - int(s.Month())
	case Weekly:
		return (days + weekOffset(spec)) / 7
	case Daily:
		return days
	case Hourly:
		return days*24 + t.Hour() - s.Hour()
	case Minutely:
		return (days*24+t.Hour()-s.Hour())*60 + t.Minute() - s.Minute()
	default:
		return ((days*24+t.Hour()-s.Hour())*60+t.Minute()-s.Minute())*60 + t.Second() - s.Second()
	}
}

// periodStart returns the first instant of the period n units after the one
// holding Start.
func periodStart(spec Specification, n int) time.Time {
	s := spec.Start
	y, m, d := s.Date()
	loc := s.Location()
	switch spec.Frequency {
	case Yearly:
		return time.Date(y+n, time.January, 1, 0, 0, 0, 0, loc)
	case Monthly:
		return time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, loc)
	case Weekly:
		return time.Date(y, m, d-weekOffset(spec)+7*n, 0, 0, 0, 0, loc)
	case Daily:
		return time.Date(y, m, d+n, 0, 0, 0, 0, loc)
	case Hourly:
		return time.Date(y, m, d, s.Hour()+n, 0, 0, 0, loc)
	case Minutely:
		return time.Date(y, m, d, s.Hour(), s.Minute()+n, 0, 0, loc)
	default:
		return time.Date(y, m, d, s.Hour(), s.Minute(), s.Second()+n, 0, loc)
	}
}

// weekOffset is the number of days Start lies after the week start.
func weekOffset(spec Specification) int {
	return (int(spec.Start.Weekday()) - int(spec.WeekStart) + 7) % 7
}

func civilDays(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

// anchoredOption is Option with DTSTART moved to anchor. Every field rrule-go
// would otherwise derive from DTSTART is pinned to the original Start.
func (s Specification) anchoredOption(anchor time.Time) rrule.ROption {
	opt := s.Option()
	opt.Dtstart = anchor
	start := s.Start

	if len(opt.Byhour) == 0 && s.Frequency < Hourly {
		opt.Byhour = []int{start.Hour()}
	}
	if len(opt.Byminute) == 0 && s.Frequency < Minutely {
		opt.Byminute = []int{start.Minute()}
	}
	if len(opt.Bysecond) == 0 && s.Frequency < Secondly {
		opt.Bysecond = []int{start.Second()}
	}

	if !s.hasDaySelector() {
		switch s.Frequency {
		case Yearly:
			if len(opt.Bymonth) == 0 {
				opt.Bymonth = []int{int(start.Month())}
			}
			opt.Bymonthday = []int{start.Day()}
		case Monthly:
			opt.Bymonthday = []int{start.Day()}
		case Weekly:
			opt.Byweekday = []rrule.Weekday{toRRuleWeekday(start.Weekday())}
		}
	}
	return opt
}
