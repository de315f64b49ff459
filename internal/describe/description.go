package describe

import (
	"errors"
	"strings"
)

// Description is a rendered recurrence split into its slots. Empty slots
// are left out of the sentence.
type Description struct {
	Interval   string `json:"interval"`
	Occurrence string `json:"occurrence"`
	Period     string `json:"period,omitempty"`
	BeginTime  string `json:"begin_time"`
	Terminal   string `json:"terminal,omitempty"`
	Timezone   string `json:"timezone,omitempty"`
}

// String joins the non-empty slots with single spaces. Only runs of ' '
// collapse; tabs and newlines inside a slot, such as ones a strftime layout
// asked for, are kept.
func (d Description) String() string {
	joined := strings.Join([]string{d.Interval, d.Occurrence, d.Period, d.BeginTime, d.Terminal, d.Timezone}, " ")
	return collapseSpaces(joined)
}

func collapseSpaces(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	prev := byte(' ')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' && prev == ' ' {
			continue
		}
		sb.WriteByte(c)
		prev = c
	}
	return strings.TrimRight(sb.String(), " ")
}

type slot uint8

const (
	slotInterval slot = 1 << iota
	slotOccurrence
	slotPeriod
	slotBeginTime
	slotTerminal
	slotTimezone

	allSlots = slotInterval | slotOccurrence | slotPeriod | slotBeginTime | slotTerminal | slotTimezone
)

var errIncomplete = errors.New("description has undecided slots")

// builder collects slots and only hands out a Description once every slot
// has been decided, even if decided empty.
type builder struct {
	d   Description
	set slot
}

func (b *builder) interval(s string)   { b.d.Interval = s; b.set |= slotInterval }
func (b *builder) occurrence(s string) { b.d.Occurrence = s; b.set |= slotOccurrence }
func (b *builder) period(s string)     { b.d.Period = s; b.set |= slotPeriod }
func (b *builder) beginTime(s string)  { b.d.BeginTime = s; b.set |= slotBeginTime }
func (b *builder) terminal(s string)   { b.d.Terminal = s; b.set |= slotTerminal }
func (b *builder) timezone(s string)   { b.d.Timezone = s; b.set |= slotTimezone }

func (b *builder) build() (Description, error) {
	if b.set != allSlots {
		return Description{}, errIncomplete
	}
	return b.d, nil
}
