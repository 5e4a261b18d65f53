package reporting

import (
	"time"

	"karavanCanteen/internal/apperr"
	"karavanCanteen/models"
)

// ResolvePeriod returns the calendar period of kind containing ref, in loc, and the
// period immediately before it: the previous day, the previous ISO week (Monday to
// Sunday) or the previous calendar month.
func ResolvePeriod(ref time.Time, kind models.PeriodKind, loc *time.Location) (cur, prev models.Period, err error) {
	if loc == nil {
		loc = time.UTC
	}
	ref = ref.In(loc)
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, loc)

	switch kind {
	case models.PeriodDaily:
		cur = models.Period{Start: day, End: day.AddDate(0, 0, 1)}
		prev = models.Period{Start: day.AddDate(0, 0, -1), End: day}
	case models.PeriodWeekly:
		offset := (int(day.Weekday()) + 6) % 7 // days since Monday
		start := day.AddDate(0, 0, -offset)
		cur = models.Period{Start: start, End: start.AddDate(0, 0, 7)}
		prev = models.Period{Start: start.AddDate(0, 0, -7), End: start}
	case models.PeriodMonthly:
		start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, loc)
		cur = models.Period{Start: start, End: start.AddDate(0, 1, 0)}
		prev = models.Period{Start: start.AddDate(0, -1, 0), End: start}
	default:
		return models.Period{}, models.Period{}, apperr.Validation("unknown period %q", kind)
	}
	return cur, prev, nil
}
