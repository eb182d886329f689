package holidays

import (
	"context"
	"fmt"

	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// Load reads the stored holidays of region inside period into a calendar.
// Region-less holidays apply to every region.
func Load(ctx context.Context, store worktime.HolidayStore, region string, period generic.Period) (generic.StaticCalendar, error) {
	rows, err := store.ListHolidays(ctx, region, period)
	if err != nil {
		return nil, fmt.Errorf("load holidays %s %s: %w", region, period, err)
	}
	return FromList(rows), nil
}

// FromList indexes holidays by region and date.
func FromList(rows []worktime.PublicHoliday) generic.StaticCalendar {
	cal := generic.StaticCalendar{}
	for _, h := range rows {
		if cal[h.Region] == nil {
			cal[h.Region] = make(map[generic.Date]string)
		}
		cal[h.Region][h.Date] = h.Name
	}
	return cal
}

// Missing returns the generated holidays that are not stored yet, matched
// by date.
func Missing(generated, stored []worktime.PublicHoliday) []worktime.PublicHoliday {
	have := make(map[generic.Date]bool, len(stored))
	for _, h := range stored {
		have[h.Date] = true
	}
	var out []worktime.PublicHoliday
	for _, h := range generated {
		if !have[h.Date] {
			out = append(out, h)
		}
	}
	return out
}
