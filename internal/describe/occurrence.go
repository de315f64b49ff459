package describe

import (
	"fmt"
	"strings"
	"time"

	"rruletext/internal/numword"
	"rruletext/internal/recurrence"
)

// Occurrence builds the clause naming which instances recur, such as
// "third Friday", "first and fifteenth day" or "Monday and Friday in
// January". It does not include the interval or the period.
func Occurrence(spec recurrence.Specification) (string, error) {
	switch spec.Frequency {
	case recurrence.Yearly, recurrence.Monthly, recurrence.Weekly:
		return periodOccurrence(spec)
	case recurrence.Daily, recurrence.Hourly, recurrence.Minutely, recurrence.Secondly:
		return unitOccurrence(spec)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFrequency, spec.Frequency)
	}
}

// selectors holds the rendered by-fields of one specification, each list
// already joined. Fields are read in a fixed priority order: month, month
// day, negative month day, weekday, week number, year day, nth weekday.
type selectors struct {
	months   string
	days     string // month days then negative month days, no noun
	weekdays string
	weeks    string
	yearDays string
	nth      string
}

func readSelectors(spec recurrence.Specification) (selectors, error) {
	var sel selectors
	var err error

	months := make([]string, 0, len(spec.ByMonth))
	for _, m := range spec.ByMonth {
		if m < time.January || m > time.December {
			return sel, fmt.Errorf("%w: month %d", ErrInvalidNumeral, int(m))
		}
		months = append(months, m.String())
	}
	sel.months = joinList(months)

	monthDays := make([]int, 0, len(spec.ByMonthDay)+len(spec.ByNegativeMonthDay))
	monthDays = append(monthDays, spec.ByMonthDay...)
	monthDays = append(monthDays, spec.ByNegativeMonthDay...)
	if sel.days, err = positions(monthDays); err != nil {
		return sel, err
	}

	weekdays := make([]string, 0, len(spec.ByWeekday))
	for _, wd := range spec.ByWeekday {
		weekdays = append(weekdays, wd.String())
	}
	sel.weekdays = joinList(weekdays)

	if sel.weeks, err = positions(spec.ByWeekNumber); err != nil {
		return sel, err
	}
	if sel.yearDays, err = positions(spec.ByYearDay); err != nil {
		return sel, err
	}

	nth := make([]string, 0, len(spec.ByNthWeekday))
	for _, p := range spec.ByNthWeekday {
		pos, err := numword.FromEnd(p.N)
		if err != nil {
			return sel, err
		}
		nth = append(nth, pos+" "+p.Weekday.String())
	}
	sel.nth = joinList(nth)

	return sel, nil
}

// periodOccurrence renders YEARLY, MONTHLY and WEEKLY rules. Weekday
// phrases lead; day numbers either lead or qualify them; week numbers and
// months narrow the result.
func periodOccurrence(spec recurrence.Specification) (string, error) {
	sel, err := readSelectors(spec)
	if err != nil {
		return "", err
	}

	var dayNumbers []string
	if sel.days != "" {
		phrase := sel.days + " day"
		if spec.Frequency != recurrence.Monthly && sel.months == "" {
			phrase += " of the month"
		}
		dayNumbers = append(dayNumbers, phrase)
	}
	if sel.yearDays != "" {
		phrase := sel.yearDays + " day"
		if spec.Frequency != recurrence.Yearly {
			phrase += " of the year"
		}
		dayNumbers = append(dayNumbers, phrase)
	}

	head := joinNonEmpty(" and ", sel.weekdays, sel.nth)
	if numbers := strings.Join(dayNumbers, " and "); numbers != "" {
		if head == "" {
			head = numbers
		} else {
			head += " falling on the " + numbers
		}
	}
	if sel.weeks != "" {
		if head == "" {
			head = sel.weeks + " week"
		} else {
			head += " of the " + sel.weeks + " week"
		}
	}
	if sel.months != "" {
		if head == "" {
			head = sel.months
		} else {
			head += " in " + sel.months
		}
	}
	if head == "" {
		head = spec.Frequency.Unit()
	}
	return head, nil
}

// unitOccurrence renders DAILY and finer rules: the unit itself, narrowed
// by weekdays, month days and months.
func unitOccurrence(spec recurrence.Specification) (string, error) {
	sel, err := readSelectors(spec)
	if err != nil {
		return "", err
	}

	head := spec.Frequency.Unit()
	if weekdays := joinNonEmpty(" and ", sel.weekdays, sel.nth); weekdays != "" {
		head += " on " + weekdays
	}
	if sel.days != "" {
		if len(spec.ByWeekday) > 0 || len(spec.ByNthWeekday) > 0 {
			head += " falling"
		}
		head += " on the " + sel.days + " day of the month"
	}
	if sel.months != "" {
		head += " in " + sel.months
	}
	return head, nil
}

// positions names each value with numword.FromEnd and joins the list.
func positions(values []int) (string, error) {
	words := make([]string, 0, len(values))
	for _, v := range values {
		w, err := numword.FromEnd(v)
		if err != nil {
			return "", err
		}
		words = append(words, w)
	}
	return joinList(words), nil
}

// joinList joins with commas and a final "and": "a, b and c".
func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
