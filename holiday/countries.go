/*
countries.go - Built-in national holiday tables

PURPOSE:
  Ready-to-register rule tables for the countries the planner ships
  with. Tables carry nationwide holidays only; regional extras and
  company closure days go in as dated entries via TableProvider.AddDate.

AVAILABLE TABLES:
  Germany:       9 nationwide holidays, 4 of them Easter-coupled
  UnitedStates:  9 federal holidays companies commonly observe
  UnitedKingdom: 8 bank holidays (England and Wales set)
  France:        11 jours feries

EXAMPLE:
  provider := holiday.Defaults()
  provider.Holidays("DE", 2025)   // resolved, sorted, with IDs

SEE ALSO:
  - rules.go: The rule kinds these tables are made of
  - provider.go: Defaults() registers all four tables
*/
package holiday

import "time"

// Germany returns the nationwide German holiday table.
func Germany() []Rule {
	return []Rule{
		FixedDate{Month: time.January, Day: 1, Label: "New Year's Day"},
		EasterOffset{Days: -2, Label: "Good Friday"},
		EasterOffset{Days: 1, Label: "Easter Monday"},
		FixedDate{Month: time.May, Day: 1, Label: "Labour Day"},
		EasterOffset{Days: 39, Label: "Ascension Day"},
		EasterOffset{Days: 50, Label: "Whit Monday"},
		FixedDate{Month: time.October, Day: 3, Label: "German Unity Day"},
		FixedDate{Month: time.December, Day: 25, Label: "Christmas Day"},
		FixedDate{Month: time.December, Day: 26, Label: "Second Christmas Day"},
	}
}

// UnitedStates returns the US federal holiday table.
func UnitedStates() []Rule {
	return []Rule{
		FixedDate{Month: time.January, Day: 1, Label: "New Year's Day"},
		NthWeekday{Month: time.January, Weekday: time.Monday, Nth: 3, Label: "Martin Luther King Jr. Day"},
		NthWeekday{Month: time.February, Weekday: time.Monday, Nth: 3, Label: "Presidents' Day"},
		NthWeekday{Month: time.May, Weekday: time.Monday, Nth: -1, Label: "Memorial Day"},
		FixedDate{Month: time.June, Day: 19, Label: "Juneteenth"},
		FixedDate{Month: time.July, Day: 4, Label: "Independence Day"},
		NthWeekday{Month: time.September, Weekday: time.Monday, Nth: 1, Label: "Labor Day"},
		NthWeekday{Month: time.November, Weekday: time.Thursday, Nth: 4, Label: "Thanksgiving Day"},
		FixedDate{Month: time.December, Day: 25, Label: "Christmas Day"},
	}
}

// UnitedKingdom returns the England and Wales bank holiday table.
func UnitedKingdom() []Rule {
	return []Rule{
		FixedDate{Month: time.January, Day: 1, Label: "New Year's Day"},
		EasterOffset{Days: -2, Label: "Good Friday"},
		EasterOffset{Days: 1, Label: "Easter Monday"},
		NthWeekday{Month: time.May, Weekday: time.Monday, Nth: 1, Label: "Early May Bank Holiday"},
		NthWeekday{Month: time.May, Weekday: time.Monday, Nth: -1, Label: "Spring Bank Holiday"},
		NthWeekday{Month: time.August, Weekday: time.Monday, Nth: -1, Label: "Summer Bank Holiday"},
		FixedDate{Month: time.December, Day: 25, Label: "Christmas Day"},
		FixedDate{Month: time.December, Day: 26, Label: "Boxing Day"},
	}
}

// France returns the French national holiday table.
func France() []Rule {
	return []Rule{
		FixedDate{Month: time.January, Day: 1, Label: "New Year's Day"},
		EasterOffset{Days: 1, Label: "Easter Monday"},
		FixedDate{Month: time.May, Day: 1, Label: "Labour Day"},
		FixedDate{Month: time.May, Day: 8, Label: "Victory in Europe Day"},
		EasterOffset{Days: 39, Label: "Ascension Day"},
		EasterOffset{Days: 50, Label: "Whit Monday"},
		FixedDate{Month: time.July, Day: 14, Label: "Bastille Day"},
		FixedDate{Month: time.August, Day: 15, Label: "Assumption Day"},
		FixedDate{Month: time.November, Day: 1, Label: "All Saints' Day"},
		FixedDate{Month: time.November, Day: 11, Label: "Armistice Day"},
		FixedDate{Month: time.December, Day: 25, Label: "Christmas Day"},
	}
}
