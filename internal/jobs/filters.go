package jobs

import "net/url"

// Filters contains optional criteria for filtering job queries.
type Filters struct {
	Status *Status
}

// FiltersFromQuery extracts job filters from URL query parameters.
// Unknown status values are ignored rather than rejected.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := Status(values.Get("status")); s.Valid() {
		f.Status = &s
	}

	return f
}
