package worktime

import (
	"sort"

	"github.com/warp/worktime-engine/generic"
)

// =============================================================================
// TIME-ENTRY AGGREGATOR
// =============================================================================

// NetMinutes is (end - start) - break in whole minutes, floored at zero.
// Open entries contribute nothing.
func NetMinutes(e TimeEntry) int {
	if e.End == nil {
		return 0
	}
	net := int(*e.End-e.Start) - e.BreakMinutes
	if net < 0 {
		return 0
	}
	return net
}

// NetHours is NetMinutes as exact hours.
func NetHours(e TimeEntry) generic.Hours {
	return generic.HoursFromMinutes(NetMinutes(e))
}

// occupied returns the half-open interval [start, end) the entry blocks on
// its day. An open entry blocks the rest of the day.
func occupied(e TimeEntry) (generic.ClockTime, generic.ClockTime) {
	if e.End == nil {
		return e.Start, generic.EndOfDay
	}
	return e.Start, *e.End
}

// Overlaps reports whether two entries on the same day intersect.
// Touching intervals (one ends when the other starts) do not overlap.
func Overlaps(a, b TimeEntry) bool {
	if !a.Date.Equal(b.Date) {
		return false
	}
	aStart, aEnd := occupied(a)
	bStart, bEnd := occupied(b)
	return aStart < bEnd && bStart < aEnd
}

// FindOverlap returns the first existing entry that conflicts with the
// candidate: an intersecting interval, or a second open entry on the same
// day. The candidate itself (same ID) is skipped.
func FindOverlap(existing []TimeEntry, candidate TimeEntry) (TimeEntry, bool) {
	for _, e := range existing {
		if e.ID == candidate.ID && candidate.ID != "" {
			continue
		}
		if e.EmployeeID != candidate.EmployeeID || !e.Date.Equal(candidate.Date) {
			continue
		}
		if Overlaps(e, candidate) || (e.IsOpen() && candidate.IsOpen()) {
			return e, true
		}
	}
	return TimeEntry{}, false
}

// =============================================================================
// DAY AGGREGATE
// =============================================================================

// Block is one closed work interval on a day.
type Block struct {
	EntryID      generic.RecordID
	Start        generic.ClockTime
	End          generic.ClockTime
	BreakMinutes int
}

// DayAggregate summarises one employee-day.
type DayAggregate struct {
	Date   generic.Date
	Blocks []Block // closed entries sorted by start

	NetMinutes           int
	DeclaredBreakMinutes int
	GapMinutes           int // idle time between consecutive blocks
	OpenEntries          int
}

func (d DayAggregate) Net() generic.Hours { return generic.HoursFromMinutes(d.NetMinutes) }

// EffectiveBreakMinutes counts declared breaks plus gaps between blocks.
func (d DayAggregate) EffectiveBreakMinutes() int {
	return d.DeclaredBreakMinutes + d.GapMinutes
}

// HasWork reports whether any entry (closed or open) exists for the day.
func (d DayAggregate) HasWork() bool { return len(d.Blocks) > 0 || d.OpenEntries > 0 }

// FirstStart and LastEnd bound the day's closed blocks; ok=false when none.
func (d DayAggregate) FirstStart() (generic.ClockTime, bool) {
	if len(d.Blocks) == 0 {
		return 0, false
	}
	return d.Blocks[0].Start, true
}

func (d DayAggregate) LastEnd() (generic.ClockTime, bool) {
	if len(d.Blocks) == 0 {
		return 0, false
	}
	last := d.Blocks[0].End
	for _, b := range d.Blocks[1:] {
		if b.End > last {
			last = b.End
		}
	}
	return last, true
}

// AggregateDay builds the aggregate of the entries dated d.
func AggregateDay(d generic.Date, entries []TimeEntry) DayAggregate {
	agg := DayAggregate{Date: d}
	for _, e := range entries {
		if !e.Date.Equal(d) {
			continue
		}
		if e.IsOpen() {
			agg.OpenEntries++
			continue
		}
		agg.Blocks = append(agg.Blocks, Block{EntryID: e.ID, Start: e.Start, End: *e.End, BreakMinutes: e.BreakMinutes})
		agg.NetMinutes += NetMinutes(e)
		agg.DeclaredBreakMinutes += e.BreakMinutes
	}
	sort.Slice(agg.Blocks, func(i, j int) bool { return agg.Blocks[i].Start < agg.Blocks[j].Start })

	reach := generic.ClockTime(-1)
	for _, b := range agg.Blocks {
		if reach >= 0 && b.Start > reach {
			agg.GapMinutes += int(b.Start - reach)
		}
		if b.End > reach {
			reach = b.End
		}
	}
	return agg
}

// AggregateDays groups entries by date and returns the aggregates sorted by date.
func AggregateDays(entries []TimeEntry) []DayAggregate {
	byDate := make(map[generic.Date][]TimeEntry)
	for _, e := range entries {
		byDate[e.Date] = append(byDate[e.Date], e)
	}
	out := make([]DayAggregate, 0, len(byDate))
	for d, es := range byDate {
		out = append(out, AggregateDay(d, es))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// ActualHours sums net hours of closed entries inside p.
func ActualHours(entries []TimeEntry, p generic.Period) generic.Hours {
	minutes := 0
	for _, e := range entries {
		if p.Contains(e.Date) {
			minutes += NetMinutes(e)
		}
	}
	return generic.HoursFromMinutes(minutes)
}
