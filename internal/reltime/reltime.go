// Package reltime formats timestamps as compact relative ages ("3h", "2d")
// for single-character-budget report columns.
package reltime

import (
	"fmt"
	"time"
)

// Since formats the age of t relative to now. Buckets truncate toward zero:
// under a minute is "now", then minutes, hours, days and weeks.
// The zero time renders as an empty string so optional timestamps leave
// their column blank.
func Since(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw", int(d.Hours()/(24*7)))
	}
}
