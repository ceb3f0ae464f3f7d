package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateRoundTrip(t *testing.T) {
	want := time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC) // leap day
	got, err := DecodeDate(EncodeDate(want))
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
}

func TestDateRoundTrip_ZeroValue(t *testing.T) {
	got, err := DecodeDate(EncodeDate(time.Time{}))
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestDateTimeRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		t    time.Time
	}{
		{"date only", time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)},
		{"date and time", time.Date(2024, time.February, 29, 23, 59, 59, 0, time.UTC)},
		{"date time and micros", time.Date(2024, time.February, 29, 23, 59, 59, 123456000, time.UTC)},
		{"new year boundary", time.Date(2000, time.January, 1, 0, 0, 1, 1000, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeDateTime(EncodeDateTime(tc.t))
			require.NoError(t, err)
			assert.True(t, tc.t.Equal(got), "want %v got %v", tc.t, got)
		})
	}
}

func TestDateTimeRoundTrip_ZeroValue(t *testing.T) {
	got, err := DecodeDateTime(EncodeDateTime(time.Time{}))
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestDateTimeEncode_ShortestForm(t *testing.T) {
	dateOnly := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	assert.Len(t, EncodeDateTime(dateOnly), 4, "date-only values must encode to the 4-byte form")

	withTime := time.Date(2024, time.March, 1, 10, 20, 30, 0, time.UTC)
	assert.Len(t, EncodeDateTime(withTime), 7, "whole-second values must encode to the 7-byte form")

	withMicros := time.Date(2024, time.March, 1, 10, 20, 30, 500000, time.UTC)
	assert.Len(t, EncodeDateTime(withMicros), 11, "fractional-second values must encode to the 11-byte form")
}

func TestTimeRoundTrip(t *testing.T) {
	cases := []Duration{
		{},
		{Negative: false, Hours: 23, Minutes: 59, Seconds: 59},
		{Negative: true, Days: 10, Hours: 5, Minutes: 6, Seconds: 7, Microseconds: 8},
		{Negative: false, Days: 400, Hours: 0, Minutes: 0, Seconds: 0}, // beyond-24h interval
	}
	for i, tc := range cases {
		got, err := DecodeTime(EncodeTime(tc))
		require.NoError(t, err)
		assert.Equal(t, tc, got, "case %d", i)
	}
}

func TestTimeText_ParseFormatRoundTrip(t *testing.T) {
	cases := []string{
		"10:20:30",
		"-10:20:30",
		"100:00:00", // beyond-24h interval, no day carry expected in text form
		"10:20:30.500000",
	}
	for _, s := range cases {
		t.Run(s, func(t *testing.T) {
			d, err := ParseTimeText([]byte(s))
			require.NoError(t, err)
			assert.Equal(t, s, FormatTimeText(d))
		})
	}
}

func TestDateTimeText_ParseFormatRoundTrip(t *testing.T) {
	got, err := ParseDateTimeText([]byte("2024-02-29 23:59:59.123456"))
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29 23:59:59.123456", FormatDateTimeText(got, true))
}

func TestDateTimeText_ZeroDateIsZeroTime(t *testing.T) {
	got, err := ParseDateTimeText([]byte("0000-00-00"))
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestYearRoundTrip(t *testing.T) {
	got, err := DecodeYear(EncodeYear(2024))
	require.NoError(t, err)
	assert.Equal(t, 2024, got)
}

func TestDuration_AsGoDuration(t *testing.T) {
	d := Duration{Negative: true, Hours: 1, Minutes: 30}
	assert.Equal(t, -(time.Hour + 30*time.Minute), d.AsGoDuration())
}
