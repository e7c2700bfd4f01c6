package youtube

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

var durationRegex = regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

// ParseDuration converts an ISO-8601 video duration such as "PT4M13S" to
// seconds. It never fails: text without a PT section parses as 0, and a
// component that does not fit an int counts as 0, and a total beyond
// math.MaxInt32 seconds parses as 0. Day and week designators are not part
// of the format the Data API returns and are ignored.
func ParseDuration(text string) int {
	m := durationRegex.FindStringSubmatch(text)
	if m == nil {
		return 0
	}

	h, mins, secs := durationPart(m[1]), durationPart(m[2]), durationPart(m[3])
	if h > math.MaxInt32/3600 || mins > math.MaxInt32/60 || secs > math.MaxInt32 {
		return 0
	}
	total := h*3600 + mins*60 + secs
	if total > math.MaxInt32 {
		return 0
	}
	return int(total)
}

func durationPart(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// FormatDuration renders seconds as H:MM:SS, or M:SS under an hour.
// Negative input renders as 0:00.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
