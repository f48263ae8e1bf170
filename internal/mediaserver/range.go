package mediaserver

import (
	"errors"
	"strconv"
	"strings"
)

// byteRange is an inclusive byte span within a file of known size.
type byteRange struct {
	start int64
	end   int64
}

func (r byteRange) length() int64 {
	return r.end - r.start + 1
}

var errUnsatisfiable = errors.New("mediaserver: unsatisfiable range")

// parseRange interprets a Range header against a file of the given size.
// A nil result with nil error means no range was requested and the whole
// file should be served. Multi-range requests are not supported; only the
// single bytes=... forms renderers actually send are handled.
//
//	bytes=N-    from N to end of file
//	bytes=N-M   inclusive span, M clamped to the last byte
//	bytes=-K    final K bytes, clamped to the whole file
//
// Anything else, or a start at or past the end of file, is unsatisfiable.
func parseRange(header string, size int64) (*byteRange, error) {
	if header == "" {
		return nil, nil
	}
	if size <= 0 {
		return nil, errUnsatisfiable
	}

	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, errUnsatisfiable
	}
	spec = strings.TrimSpace(spec)

	first, last, ok := strings.Cut(spec, "-")
	if !ok {
		return nil, errUnsatisfiable
	}

	if first == "" {
		// Suffix form: the final K bytes.
		k, err := strconv.ParseInt(last, 10, 64)
		if err != nil || k <= 0 {
			return nil, errUnsatisfiable
		}
		if k > size {
			k = size
		}
		return &byteRange{start: size - k, end: size - 1}, nil
	}

	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil || start < 0 || start >= size {
		return nil, errUnsatisfiable
	}

	if last == "" {
		return &byteRange{start: start, end: size - 1}, nil
	}

	end, err := strconv.ParseInt(last, 10, 64)
	if err != nil || end < start {
		return nil, errUnsatisfiable
	}
	if end > size-1 {
		end = size - 1
	}
	return &byteRange{start: start, end: end}, nil
}
