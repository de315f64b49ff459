package describe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rruletext/internal/recurrence"
)

func TestOccurrence(t *testing.T) {
	tests := []struct {
		name string
		spec recurrence.Specification
		want string
	}{
		{
			name: "monthly month days",
			spec: recurrence.Specification{Frequency: recurrence.Monthly, ByMonthDay: []int{1, 15}},
			want: "first and fifteenth day",
		},
		{
			name: "monthly last day",
			spec: recurrence.Specification{Frequency: recurrence.Monthly, ByNegativeMonthDay: []int{-1}},
			want: "last day",
		},
		{
			name: "monthly second to last day",
			spec: recurrence.Specification{Frequency: recurrence.Monthly, ByNegativeMonthDay: []int{-2}},
			want: "second to last day",
		},
		{
			name: "monthly first and last day",
			spec: recurrence.Specification{Frequency: recurrence.Monthly, ByMonthDay: []int{1}, ByNegativeMonthDay: []int{-1}},
			want: "first and last day",
		},
		{
			name: "monthly third friday",
			spec: recurrence.Specification{
				Frequency:    recurrence.Monthly,
				ByNthWeekday: []recurrence.NthWeekday{{Weekday: time.Friday, N: 3}},
			},
			want: "third Friday",
		},
		{
			name: "monthly last and second to last weekday",
			spec: recurrence.Specification{
				Frequency: recurrence.Monthly,
				ByNthWeekday: []recurrence.NthWeekday{
					{Weekday: time.Friday, N: -1},
					{Weekday: time.Monday, N: -2},
				},
			},
			want: "last Friday and second to last Monday",
		},
		{
			name: "friday the thirteenth",
			spec: recurrence.Specification{
				Frequency:  recurrence.Monthly,
				ByMonthDay: []int{13},
				ByWeekday:  []time.Weekday{time.Friday},
			},
			want: "Friday falling on the thirteenth day",
		},
		{
			name: "weekday in week number",
			spec: recurrence.Specification{
				Frequency:    recurrence.Yearly,
				ByWeekNumber: []int{20},
				ByWeekday:    []time.Weekday{time.Monday},
			},
			want: "Monday of the twentieth week",
		},
		{
			name: "week numbers alone",
			spec: recurrence.Specification{Frequency: recurrence.Yearly, ByWeekNumber: []int{1, -1}},
			want: "first and last week",
		},
		{
			name: "year days",
			spec: recurrence.Specification{Frequency: recurrence.Yearly, ByYearDay: []int{1, 100}},
			want: "first and one hundredth day",
		},
		{
			name: "month days in months",
			spec: recurrence.Specification{
				Frequency:  recurrence.Yearly,
				ByMonth:    []time.Month{time.January, time.July},
				ByMonthDay: []int{1},
			},
			want: "first day in January and July",
		},
		{
			name: "month days without months in a year",
			spec: recurrence.Specification{Frequency: recurrence.Yearly, ByMonthDay: []int{1}},
			want: "first day of the month",
		},
		{
			name: "months alone",
			spec: recurrence.Specification{Frequency: recurrence.Yearly, ByMonth: []time.Month{time.March}},
			want: "March",
		},
		{
			name: "weekdays in month",
			spec: recurrence.Specification{
				Frequency: recurrence.Yearly,
				ByMonth:   []time.Month{time.January},
				ByWeekday: []time.Weekday{time.Monday, time.Wednesday, time.Friday},
			},
			want: "Monday, Wednesday and Friday in January",
		},
		{
			name: "weekly weekdays",
			spec: recurrence.Specification{
				Frequency: recurrence.Weekly,
				ByWeekday: []time.Weekday{time.Friday, time.Monday},
			},
			want: "Friday and Monday",
		},
		{
			name: "weekly month day",
			spec: recurrence.Specification{Frequency: recurrence.Weekly, ByMonthDay: []int{1}},
			want: "first day of the month",
		},
		{
			name: "weekly year day",
			spec: recurrence.Specification{Frequency: recurrence.Weekly, ByYearDay: []int{3}},
			want: "third day of the year",
		},
		{name: "bare year", spec: recurrence.Specification{Frequency: recurrence.Yearly}, want: "year"},
		{name: "bare month", spec: recurrence.Specification{Frequency: recurrence.Monthly}, want: "month"},
		{name: "bare week", spec: recurrence.Specification{Frequency: recurrence.Weekly}, want: "week"},
		{name: "daily", spec: recurrence.Specification{Frequency: recurrence.Daily}, want: "day"},
		{
			name: "daily month days",
			spec: recurrence.Specification{Frequency: recurrence.Daily, ByMonthDay: []int{1, 15}},
			want: "day on the first and fifteenth day of the month",
		},
		{
			name: "daily weekdays",
			spec: recurrence.Specification{Frequency: recurrence.Daily, ByWeekday: []time.Weekday{time.Monday, time.Friday}},
			want: "day on Monday and Friday",
		},
		{
			name: "daily weekday and month day",
			spec: recurrence.Specification{
				Frequency:  recurrence.Daily,
				ByWeekday:  []time.Weekday{time.Friday},
				ByMonthDay: []int{13},
			},
			want: "day on Friday falling on the thirteenth day of the month",
		},
		{
			name: "daily in month",
			spec: recurrence.Specification{Frequency: recurrence.Daily, ByMonth: []time.Month{time.December}},
			want: "day in December",
		},
		{name: "hourly", spec: recurrence.Specification{Frequency: recurrence.Hourly}, want: "hour"},
		{name: "minutely", spec: recurrence.Specification{Frequency: recurrence.Minutely}, want: "minute"},
		{
			name: "secondly month day",
			spec: recurrence.Specification{Frequency: recurrence.Secondly, ByMonthDay: []int{2}},
			want: "second on the second day of the month",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Occurrence(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOccurrence_Errors(t *testing.T) {
	_, err := Occurrence(recurrence.Specification{Frequency: recurrence.Frequency(12)})
	assert.ErrorIs(t, err, ErrUnsupportedFrequency)

	_, err = Occurrence(recurrence.Specification{Frequency: recurrence.Yearly, ByMonth: []time.Month{13}})
	assert.ErrorIs(t, err, ErrInvalidNumeral)

	_, err = Occurrence(recurrence.Specification{
		Frequency:    recurrence.Monthly,
		ByNthWeekday: []recurrence.NthWeekday{{Weekday: time.Monday, N: 0}},
	})
	assert.ErrorIs(t, err, ErrInvalidNumeral)

	_, err = Occurrence(recurrence.Specification{Frequency: recurrence.Monthly, ByMonthDay: []int{0}})
	assert.ErrorIs(t, err, ErrInvalidNumeral)
}

func TestJoinList(t *testing.T) {
	assert.Equal(t, "", joinList(nil))
	assert.Equal(t, "a", joinList([]string{"a"}))
	assert.Equal(t, "a and b", joinList([]string{"a", "b"}))
	assert.Equal(t, "a, b and c", joinList([]string{"a", "b", "c"}))
}
