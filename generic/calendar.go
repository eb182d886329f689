package generic

// =============================================================================
// HOLIDAY CALENDAR - Read contract used by target and compliance computation
// =============================================================================

// HolidayCalendar answers whether a date is a public holiday in a region.
// Implementations must be safe for concurrent reads.
type HolidayCalendar interface {
	// HolidayName returns the holiday's name and true when d is a public
	// holiday in region.
	HolidayName(region string, d Date) (string, bool)
}

// StaticCalendar is an in-memory calendar keyed by region then date.
// The empty region key applies to every region.
type StaticCalendar map[string]map[Date]string

// NewStaticCalendar builds a single-region calendar.
func NewStaticCalendar(region string, days map[Date]string) StaticCalendar {
	return StaticCalendar{region: days}
}

func (c StaticCalendar) HolidayName(region string, d Date) (string, bool) {
	if name, ok := c[region][d]; ok {
		return name, true
	}
	name, ok := c[""][d]
	return name, ok
}

// IsHoliday is a convenience wrapper; a nil calendar has no holidays.
func IsHoliday(cal HolidayCalendar, region string, d Date) bool {
	if cal == nil {
		return false
	}
	_, ok := cal.HolidayName(region, d)
	return ok
}
