package finance

import "time"

// exchangeLocation returns the exchange's named zone, falling back to the
// fixed GMT offset Yahoo reports when tzdata is missing.
func exchangeLocation(name string, gmtOffset int) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.FixedZone("exchange", gmtOffset)
}

// tradingDate maps a bar timestamp to its exchange-local calendar date,
// expressed as UTC midnight so dates from different exchanges compare equal.
func tradingDate(ts int64, loc *time.Location) time.Time {
	local := time.Unix(ts, 0).In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}
