package dateutils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		expected      string
		wantAmbiguous bool
		wantErr       bool
	}{
		{
			name:     "US slash format",
			input:    "03/15/2024",
			expected: "2024-03-15",
		},
		{
			name:     "US dash format",
			input:    "03-15-2024",
			expected: "2024-03-15",
		},
		{
			name:     "ISO format",
			input:    "2024-03-15",
			expected: "2024-03-15",
		},
		{
			name:     "two digit year",
			input:    "03/15/24",
			expected: "2024-03-15",
		},
		{
			name:     "long month name",
			input:    "March 15, 2024",
			expected: "2024-03-15",
		},
		{
			name:     "abbreviated month name",
			input:    "Mar 15, 2024",
			expected: "2024-03-15",
		},
		{
			name:     "day first when month slot exceeds twelve",
			input:    "15/03/2024",
			expected: "2024-03-15",
		},
		{
			name:     "whitespace is cleaned",
			input:    "  03/15/2024  ",
			expected: "2024-03-15",
		},
		{
			name:          "day and month both at most twelve",
			input:         "03/04/2024",
			expected:      "2024-03-04",
			wantAmbiguous: true,
		},
		{
			name:          "ambiguous dash format",
			input:         "05-06-2024",
			expected:      "2024-05-06",
			wantAmbiguous: true,
		},
		{
			name:     "same day and month is not ambiguous",
			input:    "04/04/2024",
			expected: "2024-04-04",
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
		{
			name:    "not a date",
			input:   "yesterday-ish",
			wantErr: true,
		},
		{
			name:    "month out of range both ways",
			input:   "13/13/2024",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, ambiguous, err := ParseDate(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ToISODate(parsed))
			assert.Equal(t, tt.wantAmbiguous, ambiguous)
		})
	}
}

func TestDayDistance(t *testing.T) {
	a := time.Date(2024, 3, 15, 23, 50, 0, 0, time.UTC)
	b := time.Date(2024, 3, 18, 0, 10, 0, 0, time.UTC)

	assert.Equal(t, 3, DayDistance(a, b))
	assert.Equal(t, 3, DayDistance(b, a))
	assert.Equal(t, 0, DayDistance(a, a))
}

func TestSameDay(t *testing.T) {
	morning := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2024, 3, 15, 22, 0, 0, 0, time.UTC)
	nextDay := time.Date(2024, 3, 16, 8, 0, 0, 0, time.UTC)

	assert.True(t, SameDay(morning, evening))
	assert.False(t, SameDay(morning, nextDay))
}

func TestMonthRange(t *testing.T) {
	start, end := MonthRange(2024, time.February)
	assert.Equal(t, "2024-02-01", ToISODate(start))
	assert.Equal(t, "2024-02-29", ToISODate(end), "2024 is a leap year")

	start, end = MonthRange(2024, time.December)
	assert.Equal(t, "2024-12-01", ToISODate(start))
	assert.Equal(t, "2024-12-31", ToISODate(end))
}

func TestStartEndOfMonth(t *testing.T) {
	mid := time.Date(2024, 6, 17, 13, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-06-01", ToISODate(StartOfMonth(mid)))
	assert.Equal(t, "2024-06-30", ToISODate(EndOfMonth(mid)))
}

func TestCompareDates(t *testing.T) {
	older := time.Date(2024, 3, 14, 23, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 3, 15, 1, 0, 0, 0, time.UTC)

	assert.Equal(t, -1, CompareDates(older, newer))
	assert.Equal(t, 1, CompareDates(newer, older))
	assert.Equal(t, 0, CompareDates(newer, newer))
}
