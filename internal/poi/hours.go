package poi

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Matches the simple whole-week form "Mo-Su 08:00-22:00". Anything more
// elaborate (per-day rules, breaks, month ranges) yields unknown.
var weeklyHoursRe = regexp.MustCompile(`^(Mo-Su)\s+(\d{1,2}):(\d{2})-(\d{1,2}):(\d{2})$`)

// ParseOpeningHours evaluates a weekly opening-hours expression against the
// given local time. Unparseable expressions yield OpenStatusUnknown rather
// than an error.
func ParseOpeningHours(expr string, now time.Time) OpenStatus {
	if expr == "" {
		return OpenStatusUnknown
	}
	txt := strings.TrimSpace(expr)
	if txt == "24/7" {
		return OpenStatusOpen
	}

	m := weeklyHoursRe.FindStringSubmatch(txt)
	if m == nil {
		return OpenStatusUnknown
	}

	sh, _ := strconv.Atoi(m[2])
	sm, _ := strconv.Atoi(m[3])
	eh, _ := strconv.Atoi(m[4])
	em, _ := strconv.Atoi(m[5])

	minutes := now.Hour()*60 + now.Minute()
	start := sh*60 + sm
	end := eh*60 + em

	if end > start {
		if minutes >= start && minutes <= end {
			return OpenStatusOpen
		}
		return OpenStatusClosed
	}

	// Overnight window, e.g. 20:00-02:00.
	if minutes >= start || minutes <= end {
		return OpenStatusOpen
	}
	return OpenStatusClosed
}
