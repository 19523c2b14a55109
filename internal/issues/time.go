package issues

import "time"

func daysSince(t time.Time) float64 {
	return time.Since(t).Hours() / 24
}
