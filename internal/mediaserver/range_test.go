package mediaserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	const size = 1000

	tests := []struct {
		name   string
		header string
		start  int64
		end    int64
	}{
		{"open ended", "bytes=0-", 0, 999},
		{"open ended mid file", "bytes=500-", 500, 999},
		{"last byte", "bytes=999-", 999, 999},
		{"bounded", "bytes=100-199", 100, 199},
		{"end clamped", "bytes=900-5000", 900, 999},
		{"single byte", "bytes=42-42", 42, 42},
		{"suffix", "bytes=-100", 900, 999},
		{"suffix clamped to file", "bytes=-5000", 0, 999},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng, err := parseRange(tt.header, size)
			require.NoError(t, err)
			require.NotNil(t, rng)
			assert.Equal(t, tt.start, rng.start)
			assert.Equal(t, tt.end, rng.end)
			assert.Equal(t, tt.end-tt.start+1, rng.length())
		})
	}
}

func TestParseRangeNoHeader(t *testing.T) {
	rng, err := parseRange("", 1000)
	require.NoError(t, err)
	assert.Nil(t, rng)
}

func TestParseRangeUnsatisfiable(t *testing.T) {
	headers := []string{
		"bytes=1000-",      // at end of file
		"bytes=5000-6000",  // past end of file
		"bytes=200-100",    // inverted
		"bytes=-0",         // empty suffix
		"bytes=abc-def",    // garbage
		"bytes=",           // empty spec
		"chunks=0-100",     // wrong unit
		"0-100",            // missing unit
		"bytes=-12x",       // trailing garbage
	}
	for _, h := range headers {
		_, err := parseRange(h, 1000)
		assert.ErrorIs(t, err, errUnsatisfiable, "header %q", h)
	}
}

func TestParseRangeEmptyFile(t *testing.T) {
	_, err := parseRange("bytes=0-", 0)
	assert.ErrorIs(t, err, errUnsatisfiable)
}
