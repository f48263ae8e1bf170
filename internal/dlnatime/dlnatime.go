// Package dlnatime converts between whole seconds and the H:MM:SS[.fff]
// time strings that AVTransport actions such as Seek and GetPositionInfo
// put on the wire.
package dlnatime

import (
	"fmt"
	"strconv"
	"strings"
)

// Format renders a number of seconds as HH:MM:SS. Hours are zero-padded to
// two digits but may grow beyond 99. Negative values render as 00:00:00.
func Format(totalSecs int64) string {
	if totalSecs < 0 {
		totalSecs = 0
	}
	h := totalSecs / 3600
	m := (totalSecs % 3600) / 60
	s := totalSecs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Parse converts a DLNA time string ("HH:MM:SS" or "H:MM:SS.mmm") to whole
// seconds. Any fractional suffix is stripped before parsing. Malformed
// strings parse to zero; callers treat zero duration as "unknown".
func Parse(timeStr string) int64 {
	timeStr = strings.TrimSpace(timeStr)
	if i := strings.IndexByte(timeStr, '.'); i >= 0 {
		timeStr = timeStr[:i]
	}

	parts := strings.Split(timeStr, ":")
	if len(parts) != 3 {
		return 0
	}

	h, _ := strconv.ParseInt(parts[0], 10, 64)
	m, _ := strconv.ParseInt(parts[1], 10, 64)
	s, _ := strconv.ParseInt(parts[2], 10, 64)
	if h < 0 || m < 0 || s < 0 {
		return 0
	}

	return h*3600 + m*60 + s
}
