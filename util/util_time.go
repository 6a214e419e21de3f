package util

import (
	"time"

	"github.com/jinzhu/now"
)

// Datetime related utility functions. General convention - suffix Z for UTC
// based functions. Partition dates are YYYY-MM-DD strings, event timestamps
// are unix epoch seconds.
const DATETIME_FORMAT_YYYYMMDD_HYPHEN string = "2006-01-02"

// TimeNowZ returns current time in UTC. Should be used everywhere
// to avoid local timezone.
func TimeNowZ() time.Time {
	return time.Now().UTC()
}

func TimeNowUnix() int64 {
	return TimeNowZ().Unix()
}

// GetDateOnlyFromTimestampZ returns the YYYY-MM-DD UTC date of an
// epoch timestamp.
func GetDateOnlyFromTimestampZ(timestamp int64) string {
	return time.Unix(timestamp, 0).UTC().Format(DATETIME_FORMAT_YYYYMMDD_HYPHEN)
}

// ParseDateZ parses a YYYY-MM-DD string as a UTC date.
func ParseDateZ(date string) (time.Time, error) {
	return time.ParseInLocation(DATETIME_FORMAT_YYYYMMDD_HYPHEN, date, time.UTC)
}

// IsValidDate reports whether date is a well formed YYYY-MM-DD string.
func IsValidDate(date string) bool {
	_, err := ParseDateZ(date)
	return err == nil
}

// GetDayBoundsZ returns the [beginning, end] epoch bounds of the UTC day
// for the given partition date.
func GetDayBoundsZ(date string) (int64, int64, error) {
	t, err := ParseDateZ(date)
	if err != nil {
		return 0, 0, err
	}

	day := now.New(t)
	return day.BeginningOfDay().Unix(), day.EndOfDay().Unix(), nil
}

// DateBeforeDays returns the YYYY-MM-DD date the given number of days
// before date.
func DateBeforeDays(date string, days int) (string, error) {
	t, err := ParseDateZ(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, -days).Format(DATETIME_FORMAT_YYYYMMDD_HYPHEN), nil
}

// DateAfterDays returns the YYYY-MM-DD date the given number of days
// after date.
func DateAfterDays(date string, days int) (string, error) {
	t, err := ParseDateZ(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, days).Format(DATETIME_FORMAT_YYYYMMDD_HYPHEN), nil
}

// DaysBetween returns to - from in whole days. Negative when to < from.
func DaysBetween(from, to string) (int, error) {
	fromTime, err := ParseDateZ(from)
	if err != nil {
		return 0, err
	}
	toTime, err := ParseDateZ(to)
	if err != nil {
		return 0, err
	}
	return int(toTime.Sub(fromTime).Hours() / 24), nil
}

// YesterdayDateZ returns yesterday's UTC date. Used only by scripts to
// resolve the "yesterday" trigger; stages always receive an explicit date.
func YesterdayDateZ() string {
	return TimeNowZ().AddDate(0, 0, -1).Format(DATETIME_FORMAT_YYYYMMDD_HYPHEN)
}

// DateRange returns every date from from to to inclusive.
func DateRange(from, to string) ([]string, error) {
	fromTime, err := ParseDateZ(from)
	if err != nil {
		return nil, err
	}
	toTime, err := ParseDateZ(to)
	if err != nil {
		return nil, err
	}

	dates := make([]string, 0)
	for t := fromTime; !t.After(toTime); t = t.AddDate(0, 0, 1) {
		dates = append(dates, t.Format(DATETIME_FORMAT_YYYYMMDD_HYPHEN))
	}
	return dates, nil
}
