// Package events fetches the public event list and keeps it cached until a
// booking mutation invalidates it.
package events

import (
	"sort"

	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/model"
)

// Catalog is the event list split for display.
type Catalog struct {
	Featured []model.Event
	Regular  []model.Event
	// Sorted is Featured followed by Regular, then ordered by start date,
	// newest first, across both partitions.
	Sorted []model.Event
}

// Partition splits events on IsFeatured. Each event lands in exactly one of
// Featured and Regular; both keep the backend's order.
func Partition(events []model.Event) Catalog {
	c := Catalog{
		Featured: []model.Event{},
		Regular:  []model.Event{},
	}
	for _, e := range events {
		if e.IsFeatured {
			c.Featured = append(c.Featured, e)
		} else {
			c.Regular = append(c.Regular, e)
		}
	}
	c.Sorted = make([]model.Event, 0, len(events))
	c.Sorted = append(c.Sorted, c.Featured...)
	c.Sorted = append(c.Sorted, c.Regular...)
	sort.SliceStable(c.Sorted, func(i, j int) bool {
		return c.Sorted[i].StartDate.After(c.Sorted[j].StartDate)
	})
	return c
}

// Find returns the event with id from any partition.
func (c Catalog) Find(id string) (model.Event, bool) {
	for _, e := range c.Sorted {
		if e.ID == id {
			return e, true
		}
	}
	return model.Event{}, false
}

// ─── Pagination ───────────────────────────────────────────────────────────────

// DefaultPerPage is the home page's page size for regular events.
const DefaultPerPage = 6

// Page is one page of a list.
type Page struct {
	Items      []model.Event
	Number     int
	TotalPages int
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool { return p.Number > 1 }

// HasNext reports whether a next page exists.
func (p Page) HasNext() bool { return p.Number < p.TotalPages }

// Prev is the previous page number.
func (p Page) Prev() int { return p.Number - 1 }

// Next is the next page number.
func (p Page) Next() int { return p.Number + 1 }

// Paginate returns page number of events. Out of range page numbers are
// clamped; an empty list still has one (empty) page.
func Paginate(events []model.Event, number, perPage int) Page {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	total := (len(events) + perPage - 1) / perPage
	if total == 0 {
		total = 1
	}
	if number < 1 {
		number = 1
	}
	if number > total {
		number = total
	}
	start := (number - 1) * perPage
	end := start + perPage
	if end > len(events) {
		end = len(events)
	}
	items := []model.Event{}
	if start < end {
		items = events[start:end]
	}
	return Page{Items: items, Number: number, TotalPages: total}
}

// ─── Admin filters ────────────────────────────────────────────────────────────

// All matches every status or type.
const All = "all"

// Filter narrows the admin event list by status and type. Empty fields and
// All match everything.
type Filter struct {
	Status string
	Type   string
}

// Active reports whether the filter narrows anything.
func (f Filter) Active() bool {
	return (f.Status != "" && f.Status != All) || (f.Type != "" && f.Type != All)
}

// Apply returns the events f matches, in their original order.
func (f Filter) Apply(events []model.Event) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if f.Status != "" && f.Status != All && string(e.Status) != f.Status {
			continue
		}
		if f.Type != "" && f.Type != All && string(e.Type) != f.Type {
			continue
		}
		out = append(out, e)
	}
	return out
}
