package ics

import (
	"errors"
	"sort"

	"rruletext/internal/describe"
	appLog "rruletext/internal/log"
	"rruletext/internal/model"
)

// DescribeConfig controls how a feed's rules are rendered.
type DescribeConfig struct {
	// Renderer defaults to the rrule-go backed renderer.
	Renderer *describe.Renderer
	Options  describe.Options
}

// DescribeResult holds one entry per recurring event, failures included.
type DescribeResult struct {
	Events []model.DescribedEvent
	Failed int
}

// DescribeEvents renders the recurrence rule of every parsed event. A rule
// that cannot be described does not stop the others: its entry carries the
// error text instead of a description. Events are ordered by start, then UID.
func DescribeEvents(events []ParsedEvent, cfg DescribeConfig) DescribeResult {
	renderer := cfg.Renderer
	if renderer == nil {
		renderer = describe.NewRenderer(nil)
	}

	result := DescribeResult{Events: make([]model.DescribedEvent, 0, len(events))}
	for _, ev := range events {
		out := model.DescribedEvent{
			SourceID: ev.Source.ID,
			UID:      ev.UID,
			Summary:  ev.Summary,
			Location: ev.Location,
			RRule:    ev.RawRRule,
			Start:    ev.Start,
			AllDay:   ev.AllDay,
		}

		text, err := describeEvent(renderer, ev, cfg.Options)
		if err != nil {
			result.Failed++
			out.Error = err.Error()
			if errors.Is(err, describe.ErrTermination) {
				appLog.Debug("describe: open-ended rule skipped", "uid", ev.UID)
			} else {
				appLog.Error("describe: failed to render rule", err, "uid", ev.UID, "rrule", ev.RawRRule)
			}
		} else {
			out.Description = text
		}
		result.Events = append(result.Events, out)
	}

	sort.SliceStable(result.Events, func(i, j int) bool {
		a, b := result.Events[i], result.Events[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		return a.UID < b.UID
	})
	return result
}

// describeEvent renders all-day events without a time of day.
func describeEvent(renderer *describe.Renderer, ev ParsedEvent, opts describe.Options) (string, error) {
	spec, err := ev.Specification()
	if err != nil {
		return "", err
	}
	opts.DateOnly = ev.AllDay
	return renderer.Text(spec, opts)
}
