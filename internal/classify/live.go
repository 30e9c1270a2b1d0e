package classify

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// liveWindowBefore is how close to end a sports market must be for the
// regex path to call it live; startTokenWindow is how far back a parsed
// start-time token may point and still count as in progress.
const (
	liveWindowBefore = 8 * time.Hour
	startTokenWindow = 6 * time.Hour
)

// startTimeRe matches tip-off style tokens like "8:00 PM ET".
var startTimeRe = regexp.MustCompile(`(?i)\b(\d{1,2}):(\d{2})\s*(AM|PM)\s*(ET|EST|EDT)\b`)

// eastern approximates US-Eastern; falls back to a fixed -5 offset when
// the tz database is unavailable.
var eastern = func() *time.Location {
	if loc, err := time.LoadLocation("America/New_York"); err == nil {
		return loc
	}
	return time.FixedZone("ET", -5*3600)
}()

// LiveEvent reports whether the market looks like a game in progress.
// A live market's threat score is forced to zero downstream: in-game flow
// is price discovery, not insider anomaly.
func LiveEvent(question, description string, endDate, now time.Time) bool {
	combined := question + " " + description

	sporty := false
	for _, re := range sportsPatterns {
		if re.MatchString(combined) {
			sporty = true
			break
		}
	}
	if !sporty {
		q := strings.ToLower(question)
		for _, kw := range strongSportsKeywords {
			if strings.Contains(q, kw) {
				sporty = true
				break
			}
		}
	}

	if sporty && !endDate.IsZero() {
		untilEnd := endDate.Sub(now)
		if untilEnd > 0 && untilEnd < liveWindowBefore {
			return true
		}
	}

	if start, ok := parseStartToken(combined, now); ok {
		since := now.Sub(start)
		if since >= 0 && since < startTokenWindow {
			return true
		}
	}
	return false
}

// parseStartToken resolves a "8:00 PM ET" style token to the most recent
// matching wall-clock moment in US-Eastern.
func parseStartToken(text string, now time.Time) (time.Time, bool) {
	m := startTimeRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	hour, err1 := strconv.Atoi(m[1])
	minute, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil || hour < 1 || hour > 12 || minute > 59 {
		return time.Time{}, false
	}
	if strings.EqualFold(m[3], "PM") && hour != 12 {
		hour += 12
	}
	if strings.EqualFold(m[3], "AM") && hour == 12 {
		hour = 0
	}

	local := now.In(eastern)
	start := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, eastern)
	if start.After(local) {
		// Token points to later today; the most recent occurrence was yesterday.
		start = start.AddDate(0, 0, -1)
	}
	return start, true
}
