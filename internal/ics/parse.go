package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "rruletext/internal/log"
	"rruletext/internal/recurrence"
)

// ParsedEvent is a recurring VEVENT reduced to what a description needs.
type ParsedEvent struct {
	Source Source

	UID      string
	Summary  string
	Location string

	Start   time.Time
	AllDay  bool
	StartTZ string

	RawRRule string
}

// Specification converts the event's RRULE and DTSTART into a recurrence
// specification labelled with the event's TZID, if any.
func (ev ParsedEvent) Specification() (recurrence.Specification, error) {
	spec, err := recurrence.Parse(ev.RawRRule, ev.Start, ev.Start.Location())
	if err != nil {
		return recurrence.Specification{}, err
	}
	return spec.WithTimezone(ev.StartTZ), nil
}

// ParseICS parses a single ICS payload and returns its recurring events.
//
//   - VEVENTs without an RRULE are skipped, as are RECURRENCE-ID overrides;
//     neither carries a rule to describe.
//   - DTSTART timezones come from the library's TZID handling.
//   - A malformed VEVENT is logged and skipped; the rest of the feed is kept.
func ParseICS(src Source, body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, err
	}

	events := make([]ParsedEvent, 0)
	skipped := 0

	for _, comp := range cal.Events() {
		if comp.GetProperty(ical.ComponentPropertyRrule) == nil || comp.GetProperty("RECURRENCE-ID") != nil {
			skipped++
			continue
		}
		ev, perr := parseVEvent(src, comp)
		if perr != nil {
			appLog.Error("ics vevent parse failed", perr, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "id", src.ID, "url", redactURL(src.URL), "recurring", len(events), "skipped", skipped)
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (ParsedEvent, error) {
	out := ParsedEvent{Source: src}

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}

	dtStartProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStartProp == nil {
		return out, errors.New("missing DTSTART")
	}
	start, err := ve.GetStartAt()
	if err != nil {
		return out, err
	}
	out.Start = start

	// VALUE=DATE or a value without 'T' marks an all-day event.
	if vs, ok := dtStartProp.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		out.AllDay = true
	}
	if !strings.Contains(dtStartProp.Value, "T") {
		out.AllDay = true
	}
	if tzs, ok := dtStartProp.ICalParameters["TZID"]; ok && len(tzs) > 0 {
		out.StartTZ = tzs[0]
	}

	out.RawRRule = ve.GetProperty(ical.ComponentPropertyRrule).Value
	return out, nil
}
