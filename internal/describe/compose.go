// Package describe renders a recurrence specification as an English
// sentence:
//
//	each third Friday of the month starting at 12:00 AM August 19, 2011 ten times
//
// The sentence is assembled from six slots (interval, occurrence, period,
// begin time, terminal and timezone). The first and last occurrences come
// from a recurrence.Engine.
package describe

import (
	"fmt"

	"github.com/ncruces/go-strftime"

	appLog "rruletext/internal/log"
	"rruletext/internal/numword"
	"rruletext/internal/recurrence"
)

const (
	DefaultDateFormat = "%B %d, %Y"
	DefaultTimeFormat = "%I:%M %p"
)

// Options controls formatting. Zero values fall back to the defaults.
type Options struct {
	// DateFormat and TimeFormat are strftime layouts; instants render as
	// TimeFormat followed by DateFormat.
	DateFormat string
	TimeFormat string

	// OpenEnded allows rules with neither count nor until. They render
	// without a terminal slot.
	OpenEnded bool

	// DateOnly drops TimeFormat for schedules without a time of day, such
	// as all-day events: "starting on August 15, 2011".
	DateOnly bool
}

func (o Options) withDefaults() Options {
	if o.DateFormat == "" {
		o.DateFormat = DefaultDateFormat
	}
	if o.TimeFormat == "" {
		o.TimeFormat = DefaultTimeFormat
	}
	return o
}

func (o Options) layout() string {
	if o.DateOnly {
		return o.DateFormat
	}
	return o.TimeFormat + " " + o.DateFormat
}

func (o Options) beginPrefix() string {
	if o.DateOnly {
		return "starting on "
	}
	return "starting at "
}

// Renderer composes descriptions. It holds no per-call state and is safe
// for concurrent use when its Engine is.
type Renderer struct {
	engine recurrence.Engine
}

// NewRenderer returns a Renderer backed by engine, or by rrule-go when
// engine is nil.
func NewRenderer(engine recurrence.Engine) *Renderer {
	if engine == nil {
		engine = recurrence.NewRRuleEngine()
	}
	return &Renderer{engine: engine}
}

var defaultRenderer = NewRenderer(nil)

// Text renders spec with the rrule-go engine.
func Text(spec recurrence.Specification, opts Options) (string, error) {
	return defaultRenderer.Text(spec, opts)
}

// Text renders spec as a single sentence.
func (r *Renderer) Text(spec recurrence.Specification, opts Options) (string, error) {
	d, err := r.Describe(spec, opts)
	if err != nil {
		return "", err
	}
	return d.String(), nil
}

// Describe renders spec slot by slot. On error the returned Description is
// always the zero value.
func (r *Renderer) Describe(spec recurrence.Specification, opts Options) (Description, error) {
	opts = opts.withDefaults()

	if err := checkTermination(spec, opts.OpenEnded); err != nil {
		return Description{}, err
	}

	var b builder

	interval, err := numword.Interval(spec.Interval)
	if err != nil {
		return Description{}, err
	}
	b.interval(interval)

	occurrence, err := Occurrence(spec)
	if err != nil {
		return Description{}, err
	}
	b.occurrence(occurrence)

	switch spec.Frequency {
	case recurrence.Yearly, recurrence.Monthly, recurrence.Weekly:
		b.period("of the " + spec.Frequency.Unit())
	default:
		// Daily and finer occurrences already name their unit.
		b.period("")
	}

	first, err := r.engine.First(spec)
	if err != nil {
		return Description{}, err
	}
	b.beginTime(opts.beginPrefix() + strftime.Format(opts.layout(), first))

	terminal, err := r.terminal(spec, opts)
	if err != nil {
		return Description{}, err
	}
	b.terminal(terminal)

	if label, ok := spec.Timezone.Get(); ok && label != "" {
		b.timezone("in the " + label + " time zone")
	} else {
		b.timezone("")
	}

	d, err := b.build()
	if err != nil {
		return Description{}, err
	}
	appLog.Debug("recurrence described", "frequency", spec.Frequency, "text", d.String())
	return d, nil
}

func checkTermination(spec recurrence.Specification, openEnded bool) error {
	hasCount, hasUntil := spec.Count.IsPresent(), spec.Until.IsPresent()
	switch {
	case hasCount && hasUntil:
		return fmt.Errorf("%w: both count and until are set", ErrTermination)
	case !hasCount && !hasUntil && !openEnded:
		return fmt.Errorf("%w: neither count nor until is set", ErrTermination)
	}
	return nil
}

func (r *Renderer) terminal(spec recurrence.Specification, opts Options) (string, error) {
	if count, ok := spec.Count.Get(); ok {
		if count <= 0 {
			return "", fmt.Errorf("%w: count %d", ErrInvalidNumeral, count)
		}
		if count == 1 {
			return "one time", nil
		}
		words, err := numword.Cardinal(count)
		if err != nil {
			return "", err
		}
		return words + " times", nil
	}

	if until, ok := spec.Until.Get(); ok {
		last, err := r.engine.LastBefore(spec, until)
		if err != nil {
			return "", err
		}
		if t, ok := last.Get(); ok {
			return "until " + strftime.Format(opts.layout(), t), nil
		}
	}
	return "", nil
}
