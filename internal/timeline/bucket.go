package timeline

import "time"

// DateKeyLayout is the local calendar-day key format.
const DateKeyLayout = "2006-01-02"

// LocalDateKey maps a UTC timestamp to the calendar-day key it falls on
// in loc. Every insert, remove and lookup must go through this; deriving
// a key from the UTC date substring merges days that cross local
// midnight and leaves emptied buckets behind.
func LocalDateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateKeyLayout)
}

// ParseDateKey parses a YYYY-MM-DD key back into a midnight time in loc.
func ParseDateKey(key string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateKeyLayout, key, loc)
}
