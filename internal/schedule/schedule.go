// Package schedule derives cleaning due dates for clothing items.
package schedule

import "time"

// DefaultIntervalSeconds is the fallback cleaning interval (7 days) applied
// to documents that predate the interval field.
const DefaultIntervalSeconds int64 = 7 * 24 * 60 * 60

// NextCleaningDate returns when an item is next due for cleaning given the
// time it was last cleaned and the cleaning interval in seconds. The input
// is expected to already be UTC; no timezone conversion is performed and the
// interval is not validated here.
func NextCleaningDate(lastCleaned time.Time, intervalSeconds int64) time.Time {
	return lastCleaned.Add(time.Duration(intervalSeconds) * time.Second)
}
