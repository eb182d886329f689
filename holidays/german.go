/*
Package holidays supplies public holidays to the engine.

PURPOSE:
  Generates the statutory public holidays of a German federal state for a
  year (fixed-date and Easter-relative days) and loads stored holidays into
  a generic.HolidayCalendar for target and compliance computation.

  Generated holidays are persisted by the sync operation; computations only
  ever read the stored set so that an admin can add or remove days.

STATES:
  Two-letter codes: BW BY BE BB HB HH HE MV NI NW RP SL SN ST SH TH.

SEE ALSO:
  - calendar.go: Store-backed calendar loading
  - service/holidays.go: Sync, add, delete
*/
package holidays

import (
	"sort"
	"strings"
	"time"

	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// States lists the supported state codes with their names.
var States = map[string]string{
	"BW": "Baden-Württemberg",
	"BY": "Bayern",
	"BE": "Berlin",
	"BB": "Brandenburg",
	"HB": "Bremen",
	"HH": "Hamburg",
	"HE": "Hessen",
	"MV": "Mecklenburg-Vorpommern",
	"NI": "Niedersachsen",
	"NW": "Nordrhein-Westfalen",
	"RP": "Rheinland-Pfalz",
	"SL": "Saarland",
	"SN": "Sachsen",
	"ST": "Sachsen-Anhalt",
	"SH": "Schleswig-Holstein",
	"TH": "Thüringen",
}

// ValidState reports whether code is a supported state.
func ValidState(code string) bool {
	_, ok := States[strings.ToUpper(code)]
	return ok
}

// =============================================================================
// EASTER
// =============================================================================

// EasterSunday returns Easter Sunday of the Gregorian calendar
// (anonymous Gregorian algorithm).
func EasterSunday(year int) generic.Date {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return generic.NewDate(year, time.Month(month), day)
}

// repentanceDay is Buß- und Bettag: the Wednesday before 23 November.
func repentanceDay(year int) generic.Date {
	d := generic.NewDate(year, time.November, 22)
	for d.Weekday() != time.Wednesday {
		d = d.AddDays(-1)
	}
	return d
}

// =============================================================================
// GENERATOR
// =============================================================================

type rule struct {
	name   string
	date   func(year int) generic.Date
	states string // space separated; empty means nationwide
	since  int
}

func fixed(month time.Month, day int) func(int) generic.Date {
	return func(year int) generic.Date { return generic.NewDate(year, month, day) }
}

func easter(offset int) func(int) generic.Date {
	return func(year int) generic.Date { return EasterSunday(year).AddDays(offset) }
}

var rules = []rule{
	{name: "Neujahr", date: fixed(time.January, 1)},
	{name: "Heilige Drei Könige", date: fixed(time.January, 6), states: "BW BY ST"},
	{name: "Internationaler Frauentag", date: fixed(time.March, 8), states: "BE", since: 2019},
	{name: "Internationaler Frauentag", date: fixed(time.March, 8), states: "MV", since: 2023},
	{name: "Karfreitag", date: easter(-2)},
	{name: "Ostersonntag", date: easter(0), states: "BB"},
	{name: "Ostermontag", date: easter(1)},
	{name: "Tag der Arbeit", date: fixed(time.May, 1)},
	{name: "Christi Himmelfahrt", date: easter(39)},
	{name: "Pfingstsonntag", date: easter(49), states: "BB"},
	{name: "Pfingstmontag", date: easter(50)},
	{name: "Fronleichnam", date: easter(60), states: "BW BY HE NW RP SL"},
	{name: "Mariä Himmelfahrt", date: fixed(time.August, 15), states: "BY SL"},
	{name: "Weltkindertag", date: fixed(time.September, 20), states: "TH", since: 2019},
	{name: "Tag der Deutschen Einheit", date: fixed(time.October, 3)},
	{name: "Reformationstag", date: fixed(time.October, 31), states: "BB HB HH MV NI SN ST SH TH"},
	{name: "Allerheiligen", date: fixed(time.November, 1), states: "BW BY NW RP SL"},
	{name: "Buß- und Bettag", date: repentanceDay, states: "SN"},
	{name: "1. Weihnachtstag", date: fixed(time.December, 25)},
	{name: "2. Weihnachtstag", date: fixed(time.December, 26)},
}

// German returns the public holidays of state in year, sorted by date.
// Returned holidays carry the state as region and no ID.
func German(year int, state string) []worktime.PublicHoliday {
	state = strings.ToUpper(state)
	var out []worktime.PublicHoliday
	for _, r := range rules {
		if r.since > year {
			continue
		}
		if r.states != "" && !containsState(r.states, state) {
			continue
		}
		out = append(out, worktime.PublicHoliday{Date: r.date(year), Name: r.name, Region: state})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func containsState(list, state string) bool {
	for _, s := range strings.Fields(list) {
		if s == state {
			return true
		}
	}
	return false
}
