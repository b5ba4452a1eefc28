package costs

import "time"

// periodStart returns the calendar start boundary of a period relative
// to now, in now's location.
func periodStart(period Period, now time.Time) time.Time {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch period {
	case PeriodWeekly:
		// Most recent Monday midnight. time.Weekday has Sunday = 0.
		offset := int(midnight.Weekday()) - int(time.Monday)
		if offset < 0 {
			offset += 7
		}
		return midnight.AddDate(0, 0, -offset)
	case PeriodMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	default:
		return midnight
	}
}
