package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatTimestamp converts seconds to HH:MM:SS.mmm
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMillis := int64(math.Round(seconds * 1000))
	hours := totalMillis / 3_600_000
	minutes := (totalMillis % 3_600_000) / 60_000
	secs := (totalMillis % 60_000) / 1000
	millis := totalMillis % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, secs, millis)
}

// ParseTimestamp converts HH:MM:SS.mmm (or MM:SS.mmm, comma separators allowed) to seconds
func ParseTimestamp(ts string) (float64, error) {
	ts = strings.TrimSpace(strings.Replace(ts, ",", ".", 1))
	if ts == "" {
		return 0, fmt.Errorf("empty timestamp")
	}

	parts := strings.Split(ts, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", ts)
	}

	var hours, minutes int
	var err error
	if len(parts) == 3 {
		if !isDigits(parts[0]) {
			return 0, fmt.Errorf("invalid hours in timestamp %q", ts)
		}
		if hours, err = strconv.Atoi(parts[0]); err != nil {
			return 0, fmt.Errorf("invalid hours in timestamp %q", ts)
		}
		parts = parts[1:]
	}
	if !isDigits(parts[0]) {
		return 0, fmt.Errorf("invalid minutes in timestamp %q", ts)
	}
	if minutes, err = strconv.Atoi(parts[0]); err != nil || minutes > 59 {
		return 0, fmt.Errorf("invalid minutes in timestamp %q", ts)
	}

	// plain decimal seconds only
	whole, frac, hasFrac := strings.Cut(parts[1], ".")
	if !isDigits(whole) || (hasFrac && !isDigits(frac)) {
		return 0, fmt.Errorf("invalid seconds in timestamp %q", ts)
	}
	secs, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || secs >= 60 {
		return 0, fmt.Errorf("invalid seconds in timestamp %q", ts)
	}

	return float64(hours*3600+minutes*60) + secs, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
