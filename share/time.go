package share

import "time"

// NowISO returns the current time as an ISO-8601 string, the format every
// JSON response and stored timestamp uses.
func NowISO() string {
	return time.Now().Format(time.RFC3339)
}
