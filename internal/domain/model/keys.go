package model

import "time"

// Index key layout. One ordered index exists per key:
//
//	leaderboard:game:<gameID>            best score per subject for one game
//	leaderboard:global                   best score per subject across games
//	leaderboard:game:<gameID>:<yyyymmdd> best score per subject for one UTC day
const (
	keyPrefix = "leaderboard:"
	dayLayout = "20060102"
)

// GameKey returns the per-game index key.
func GameKey(gameID string) string {
	return keyPrefix + "game:" + gameID
}

// GlobalKey returns the cross-game index key.
func GlobalKey() string {
	return keyPrefix + "global"
}

// DayKey returns the per-day index key for the UTC calendar date of t.
func DayKey(gameID string, t time.Time) string {
	return GameKey(gameID) + ":" + DayStamp(t)
}

// DayStamp formats the UTC calendar date of t as yyyymmdd.
func DayStamp(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// ParseDayStamp parses a yyyymmdd date string into a UTC time.
func ParseDayStamp(s string) (time.Time, error) {
	return time.ParseInLocation(dayLayout, s, time.UTC)
}
