// Package search translates user search input into listing filters.
//
// Two entry modes exist: structured parameters from the filter form, and a
// single free-text query that gets keyword, category, price, and amenity
// constraints inferred from it. Both produce a Filter, which the store
// turns into a SQL predicate.
package search

import (
	"strconv"
	"strings"
	"unicode"
)

// CategoryAll is the sentinel category meaning "do not filter by category".
const CategoryAll = "All"

// Categories is the fixed category vocabulary scanned for in free-text
// queries. Matching is case-insensitive substring containment.
var Categories = []string{
	"room",
	"iconic cities",
	"mountains",
	"castle",
	"arctic",
	"camping",
	"farms",
	"desert",
	"domes",
	"boats",
}

// Filter is the predicate set applied to stored listings. A zero value
// matches everything: absent constraints are unconstrained, never
// "match nothing".
type Filter struct {
	// Keyword is matched case-insensitively as a substring against title,
	// description, location, country, and category, OR-ed across those
	// fields. The OR-group as a whole is one AND-ed term.
	Keyword string

	// Category is an exact category match (structured mode only).
	Category string

	// Categories holds inferred contains-matches from free-text mode.
	// Each entry is its own AND-ed constraint; two distinct hits make the
	// predicate unsatisfiable. That mirrors the original behavior and is
	// deliberate.
	Categories []string

	MinPrice *int
	MaxPrice *int

	PetsAllowed    bool
	SmokingAllowed bool
}

// Empty reports whether the filter carries no constraints at all.
func (f Filter) Empty() bool {
	return f.Keyword == "" && f.Category == "" && len(f.Categories) == 0 &&
		f.MinPrice == nil && f.MaxPrice == nil && !f.PetsAllowed && !f.SmokingAllowed
}

// Params carries the raw structured filter inputs as received from the
// request. All fields are optional strings; malformed numeric values are
// treated as "constraint not supplied".
type Params struct {
	Keyword  string
	Category string
	MinPrice string
	MaxPrice string
	Pets     string
	Smoking  string
}

// FromParams builds a Filter from structured form parameters.
//
// The category constraint is skipped for the sentinel "All". Price bounds
// apply only when they parse as integers. Pets and smoking activate only
// on the literal string "true".
func FromParams(p Params) Filter {
	f := Filter{Keyword: strings.TrimSpace(p.Keyword)}

	if p.Category != "" && p.Category != CategoryAll {
		f.Category = p.Category
	}

	if n, err := strconv.Atoi(strings.TrimSpace(p.MinPrice)); err == nil {
		f.MinPrice = &n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(p.MaxPrice)); err == nil {
		f.MaxPrice = &n
	}

	f.PetsAllowed = p.Pets == "true"
	f.SmokingAllowed = p.Smoking == "true"

	return f
}

// ParseQuery builds a Filter from a free-text query.
//
// The query is lower-cased and trimmed, then always used as the keyword
// OR-group. Additional AND constraints are inferred from trigger
// substrings: "under"/"below" extract the first digit run as a maximum
// price, category vocabulary hits add contains-constraints, "pet" requests
// pets allowed, and "smoking"/"smoke" requests smoking allowed.
//
// An empty query returns ok=false; the caller is expected to redirect to
// the unfiltered listing view rather than search.
func ParseQuery(q string) (Filter, bool) {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return Filter{}, false
	}

	f := Filter{Keyword: q}

	if strings.Contains(q, "under") || strings.Contains(q, "below") {
		if n, ok := firstNumber(q); ok {
			f.MaxPrice = &n
		}
	}

	for _, cat := range Categories {
		if strings.Contains(q, cat) {
			f.Categories = append(f.Categories, cat)
		}
	}

	if strings.Contains(q, "pet") {
		f.PetsAllowed = true
	}
	if strings.Contains(q, "smoking") || strings.Contains(q, "smoke") {
		f.SmokingAllowed = true
	}

	return f, true
}

// firstNumber extracts the first run of digits in s. A parse failure
// (overflow, no digits) reports ok=false and the constraint is skipped.
func firstNumber(s string) (int, bool) {
	start := -1
	for i, r := range s {
		switch {
		case unicode.IsDigit(r):
			if start < 0 {
				start = i
			}
		case start >= 0:
			n, err := strconv.Atoi(s[start:i])
			return n, err == nil
		}
	}
	if start < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[start:])
	return n, err == nil
}
