package timeutil

import "time"

// StorageLayout is the fixed-width layout used for timestamps persisted as
// text, so that stored values sort lexically in time order.
const StorageLayout = "2006-01-02T15:04:05.000000000Z07:00"

var nowFunc = time.Now

// Now returns the current time in UTC. Tests override the clock with
// SetNowFunc so that dateAdded and dateCompleted stamps are predictable.
func Now() time.Time {
	return nowFunc().UTC()
}

// SetNowFunc overrides the function used by Now. Passing nil resets it.
func SetNowFunc(fn func() time.Time) {
	if fn == nil {
		nowFunc = time.Now
		return
	}
	nowFunc = fn
}

// Format renders t for storage.
func Format(t time.Time) string {
	return t.UTC().Format(StorageLayout)
}

// Parse reads a timestamp written by Format.
func Parse(value string) (time.Time, error) {
	return time.Parse(StorageLayout, value)
}
