package dlnatime

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		secs int64
		want string
	}{
		{0, "00:00:00"},
		{59, "00:00:59"},
		{60, "00:01:00"},
		{3723, "01:02:03"},
		{7322, "02:02:02"},
		{100*3600 + 61, "100:01:01"},
		{-5, "00:00:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.secs))
	}
}

func TestFormatShape(t *testing.T) {
	re := regexp.MustCompile(`^\d{2,}:\d{2}:\d{2}$`)
	for _, n := range []int64{0, 1, 59, 61, 3599, 3600, 86399, 359999, 360000} {
		require.Regexp(t, re, Format(n))
	}
}

func TestRoundTrip(t *testing.T) {
	for _, n := range []int64{0, 1, 59, 60, 61, 3599, 3600, 3723, 86399, 86400, 100*3600 - 1} {
		require.Equal(t, n, Parse(Format(n)), "round trip of %d", n)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1:02:03.456", 3723},
		{"00:00:00", 0},
		{"0:00:01", 1},
		{"02:30:00", 9000},
		{" 01:00:00 ", 3600},
		{"garbage", 0},
		{"", 0},
		{"1:02", 0},
		{"1:02:03:04", 0},
		{"NOT_IMPLEMENTED", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Parse(tt.in), "Parse(%q)", tt.in)
	}
}
