/*
provider.go - Rule-backed holiday provider with ad-hoc date entries

PURPOSE:
  TableProvider turns the rule tables from countries.go into the
  per-country date sets the calendar consults. On top of the rules it
  accepts individually dated entries (regional holidays, company closure
  days) that override or extend a year's table.

RESOLUTION:
  A (country, year) pair resolves once into a date-keyed set and is
  cached. Registering a table or adding a dated entry drops that
  country's cached years. Resolved sets are never mutated in place, so
  readers holding one across an invalidation stay consistent.

CONCURRENCY:
  Safe for concurrent use. Calculations hold resolved sets outside the
  lock; mutations only swap cache entries.

SEE ALSO:
  - rules.go: Rule kinds
  - countries.go: Built-in tables registered by Defaults()
  - schedule/calendar.go: The HolidayProvider consumer
*/
package holiday

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/warp/capacity-engine/schedule"
)

// =============================================================================
// TABLE PROVIDER
// =============================================================================

type yearKey struct {
	country schedule.Country
	year    int
}

// TableProvider implements schedule.HolidayProvider from per-country rule
// tables plus individually dated entries.
type TableProvider struct {
	mu     sync.RWMutex
	tables map[schedule.Country][]Rule
	extras map[schedule.Country]map[string]schedule.Holiday // iso date -> entry
	cache  map[yearKey]map[string]schedule.Holiday
}

// NewTableProvider returns an empty provider. Countries resolve to plain
// weekday calendars until a table or dated entry is registered.
func NewTableProvider() *TableProvider {
	return &TableProvider{
		tables: make(map[schedule.Country][]Rule),
		extras: make(map[schedule.Country]map[string]schedule.Holiday),
		cache:  make(map[yearKey]map[string]schedule.Holiday),
	}
}

// Defaults returns a provider preloaded with the built-in national tables.
func Defaults() *TableProvider {
	p := NewTableProvider()
	p.Register("DE", Germany())
	p.Register("US", UnitedStates())
	p.Register("GB", UnitedKingdom())
	p.Register("FR", France())
	return p
}

// Register installs (or replaces) a country's rule table.
func (p *TableProvider) Register(country schedule.Country, rules []Rule) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tables[country] = rules
	p.invalidateLocked(country)
}

// AddDate adds a single dated holiday entry, overriding any rule-derived
// holiday on the same date. A missing ID is derived from country and date.
func (p *TableProvider) AddDate(h schedule.Holiday) error {
	if h.Country == "" {
		return fmt.Errorf("holiday entry needs a country")
	}
	if h.Date.IsZero() {
		return fmt.Errorf("holiday entry needs a date")
	}
	if h.ID == "" {
		h.ID = holidayID(h.Country, h.Date)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.extras[h.Country] == nil {
		p.extras[h.Country] = make(map[string]schedule.Holiday)
	}
	p.extras[h.Country][h.Date.String()] = h
	p.invalidateLocked(h.Country)
	return nil
}

// RemoveDate deletes a dated entry. Rule-derived holidays cannot be
// removed this way; replace the table instead.
func (p *TableProvider) RemoveDate(country schedule.Country, d schedule.Date) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.extras[country][d.String()]; !ok {
		return false
	}
	delete(p.extras[country], d.String())
	p.invalidateLocked(country)
	return true
}

// Countries lists every country with a table or dated entries, sorted.
func (p *TableProvider) Countries() []schedule.Country {
	p.mu.RLock()
	defer p.mu.RUnlock()

	seen := make(map[schedule.Country]bool)
	for c := range p.tables {
		seen[c] = true
	}
	for c, extras := range p.extras {
		if len(extras) > 0 {
			seen[c] = true
		}
	}

	out := make([]schedule.Country, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// =============================================================================
// SCHEDULE.HOLIDAYPROVIDER
// =============================================================================

// IsHoliday reports whether the date is a holiday in the country.
func (p *TableProvider) IsHoliday(country schedule.Country, d schedule.Date) bool {
	_, ok := p.yearSet(country, d.Year())[d.String()]
	return ok
}

// Holidays returns the country's resolved holidays for a year, sorted by
// date.
func (p *TableProvider) Holidays(country schedule.Country, year int) []schedule.Holiday {
	set := p.yearSet(country, year)
	out := make([]schedule.Holiday, 0, len(set))
	for _, h := range set {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Known reports whether the country has any holiday data at all.
func (p *TableProvider) Known(country schedule.Country) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tables[country] != nil || len(p.extras[country]) > 0
}

// =============================================================================
// RESOLUTION
// =============================================================================

// yearSet returns the resolved date set for (country, year), building and
// caching it on first use. Resolved sets are immutable.
func (p *TableProvider) yearSet(country schedule.Country, year int) map[string]schedule.Holiday {
	key := yearKey{country, year}

	p.mu.RLock()
	set, ok := p.cache[key]
	p.mu.RUnlock()
	if ok {
		return set
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if set, ok := p.cache[key]; ok {
		return set
	}

	set = make(map[string]schedule.Holiday)
	for _, rule := range p.tables[country] {
		d := rule.Resolve(year)
		set[d.String()] = schedule.Holiday{
			ID:      holidayID(country, d),
			Country: country,
			Date:    d,
			Name:    rule.Name(),
		}
	}
	for _, h := range p.extras[country] {
		if h.Date.Year() == year {
			set[h.Date.String()] = h
		}
	}

	p.cache[key] = set
	return set
}

// invalidateLocked drops the country's cached years. Caller holds p.mu.
func (p *TableProvider) invalidateLocked(country schedule.Country) {
	for key := range p.cache {
		if key.country == country {
			delete(p.cache, key)
		}
	}
}

func holidayID(country schedule.Country, d schedule.Date) string {
	return fmt.Sprintf("%s-%s", strings.ToLower(string(country)), d)
}
