package utils

import "time"

// NowMillis returns the current time as epoch milliseconds, the timestamp
// representation used across the store.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// MillisToTime converts an epoch-millisecond timestamp back to a time.Time.
func MillisToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// FormatMillis renders an epoch-millisecond timestamp for display, in UTC.
func FormatMillis(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04")
}
