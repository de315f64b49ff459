// Package recurrence holds the recurrence specification consumed by the
// describer and the rrule-go backed engine that materializes its first and
// last occurrences.
package recurrence

import (
	"fmt"
	"time"

	"github.com/samber/mo"
	"github.com/teambition/rrule-go"
)

// Frequency is the base period of a recurrence, ordered from coarsest to
// finest. The values line up with rrule-go's.
type Frequency int

const (
	Yearly Frequency = iota
	Monthly
	Weekly
	Daily
	Hourly
	Minutely
	Secondly
)

var frequencyNames = [...]string{"YEARLY", "MONTHLY", "WEEKLY", "DAILY", "HOURLY", "MINUTELY", "SECONDLY"}

var frequencyUnits = [...]string{"year", "month", "week", "day", "hour", "minute", "second"}

func (f Frequency) Valid() bool {
	return f >= Yearly && f <= Secondly
}

func (f Frequency) String() string {
	if !f.Valid() {
		return fmt.Sprintf("Frequency(%d)", int(f))
	}
	return frequencyNames[f]
}

// Unit is the singular noun for one period ("month").
func (f Frequency) Unit() string {
	if !f.Valid() {
		return ""
	}
	return frequencyUnits[f]
}

// NthWeekday is a weekday at a position within the period. A negative N
// counts from the end: -1 is the last such weekday.
type NthWeekday struct {
	Weekday time.Weekday
	N       int
}

// Specification describes a repeating schedule. By-field slices are sets
// whose order is kept for rendering.
type Specification struct {
	Frequency Frequency
	Interval  int
	Start     time.Time
	WeekStart time.Weekday

	Count    mo.Option[int]
	Until    mo.Option[time.Time]
	Timezone mo.Option[string]

	ByMonth            []time.Month
	ByMonthDay         []int
	ByNegativeMonthDay []int
	ByWeekNumber       []int
	ByYearDay          []int
	ByWeekday          []time.Weekday
	ByNthWeekday       []NthWeekday
	ByHour             []int
	ByMinute           []int
	BySecond           []int
}

// WithTimezone returns a copy labelled with the given zone name. An empty
// label clears it.
func (s Specification) WithTimezone(label string) Specification {
	if label == "" {
		s.Timezone = mo.None[string]()
	} else {
		s.Timezone = mo.Some(label)
	}
	return s
}

// hasDaySelector reports whether any field picks days inside the period.
func (s Specification) hasDaySelector() bool {
	return len(s.ByMonthDay) > 0 || len(s.ByNegativeMonthDay) > 0 ||
		len(s.ByWeekNumber) > 0 || len(s.ByYearDay) > 0 ||
		len(s.ByWeekday) > 0 || len(s.ByNthWeekday) > 0
}

// FromOption builds a Specification from rrule-go options. Like any RFC 5545
// engine it fills the day selectors a rule leaves implicit from the start
// date, so FREQ=WEEKLY starting on a Monday becomes "every Monday".
func FromOption(opt rrule.ROption) Specification {
	spec := Specification{
		Frequency:    Frequency(opt.Freq),
		Interval:     opt.Interval,
		Start:        opt.Dtstart,
		WeekStart:    toTimeWeekday(opt.Wkst),
		ByWeekNumber: append([]int(nil), opt.Byweekno...),
		ByYearDay:    append([]int(nil), opt.Byyearday...),
		ByHour:       append([]int(nil), opt.Byhour...),
		ByMinute:     append([]int(nil), opt.Byminute...),
		BySecond:     append([]int(nil), opt.Bysecond...),
	}
	if spec.Interval == 0 {
		spec.Interval = 1
	}
	if opt.Count > 0 {
		spec.Count = mo.Some(opt.Count)
	}
	if !opt.Until.IsZero() {
		spec.Until = mo.Some(opt.Until)
	}

	for _, m := range opt.Bymonth {
		spec.ByMonth = append(spec.ByMonth, time.Month(m))
	}
	for _, d := range opt.Bymonthday {
		if d < 0 {
			spec.ByNegativeMonthDay = append(spec.ByNegativeMonthDay, d)
		} else {
			spec.ByMonthDay = append(spec.ByMonthDay, d)
		}
	}
	for _, wd := range opt.Byweekday {
		if n := wd.N(); n != 0 {
			spec.ByNthWeekday = append(spec.ByNthWeekday, NthWeekday{Weekday: toTimeWeekday(wd), N: n})
		} else {
			spec.ByWeekday = append(spec.ByWeekday, toTimeWeekday(wd))
		}
	}

	if !spec.hasDaySelector() && len(opt.Byeaster) == 0 && !spec.Start.IsZero() {
		switch spec.Frequency {
		case Yearly:
			if len(spec.ByMonth) == 0 {
				spec.ByMonth = []time.Month{spec.Start.Month()}
			}
			spec.ByMonthDay = []int{spec.Start.Day()}
		case Monthly:
			spec.ByMonthDay = []int{spec.Start.Day()}
		case Weekly:
			spec.ByWeekday = []time.Weekday{spec.Start.Weekday()}
		}
	}
	return spec
}

// Option converts the specification back into rrule-go options.
func (s Specification) Option() rrule.ROption {
	opt := rrule.ROption{
		Freq:      rrule.Frequency(s.Frequency),
		Dtstart:   s.Start,
		Interval:  s.Interval,
		Wkst:      toRRuleWeekday(s.WeekStart),
		Byweekno:  s.ByWeekNumber,
		Byyearday: s.ByYearDay,
		Byhour:    s.ByHour,
		Byminute:  s.ByMinute,
		Bysecond:  s.BySecond,
	}
	if count, ok := s.Count.Get(); ok {
		opt.Count = count
	}
	if until, ok := s.Until.Get(); ok {
		opt.Until = until
	}
	for _, m := range s.ByMonth {
		opt.Bymonth = append(opt.Bymonth, int(m))
	}
	opt.Bymonthday = append(opt.Bymonthday, s.ByMonthDay...)
	opt.Bymonthday = append(opt.Bymonthday, s.ByNegativeMonthDay...)
	for _, wd := range s.ByWeekday {
		opt.Byweekday = append(opt.Byweekday, toRRuleWeekday(wd))
	}
	for _, nth := range s.ByNthWeekday {
		wd := toRRuleWeekday(nth.Weekday)
		opt.Byweekday = append(opt.Byweekday, wd.Nth(nth.N))
	}
	return opt
}

// rrule-go numbers weekdays from Monday; time.Weekday from Sunday.
var rruleWeekdays = [...]rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU}

func toRRuleWeekday(wd time.Weekday) rrule.Weekday {
	return rruleWeekdays[(int(wd)+6)%7]
}

func toTimeWeekday(wd rrule.Weekday) time.Weekday {
	return time.Weekday((wd.Day() + 1) % 7)
}
