// Package query builds filtered views over a base gorm query from request
// parameters. Each endpoint declares the filter keys it recognizes and the
// matching rule per key; everything else in the request is ignored and the
// underlying store order is preserved.
package query

import (
	"net/url"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// Page-number pagination bounds.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Match selects how a filter value is compared against its column.
type Match int

const (
	// Substring matches case-insensitively anywhere in the column.
	Substring Match = iota
	// Exact matches the column verbatim.
	Exact
	// AnyOf matches rows whose column equals any of the repeated values.
	// Callers joining across a many-to-many should set Distinct on the rule.
	AnyOf
	// FullName splits the value into exactly two space-separated tokens and
	// matches them case-insensitively against the two columns. Any other
	// token count silently skips the filter.
	FullName
)

// Rule binds a filter key to its columns and match semantics.
type Rule struct {
	Match    Match
	Column   string
	Column2  string // second column for FullName
	Distinct bool   // deduplicate rows, for AnyOf across a join
}

// Rules maps recognized filter keys to their rules.
type Rules map[string]Rule

// Apply narrows db by every recognized, non-empty filter in values.
func Apply(db *gorm.DB, values url.Values, rules Rules) *gorm.DB {
	for key, rule := range rules {
		switch rule.Match {
		case Substring:
			if v := values.Get(key); v != "" {
				db = db.Where("LOWER("+rule.Column+") LIKE LOWER(?)", like(v))
			}
		case Exact:
			if v := values.Get(key); v != "" {
				db = db.Where(rule.Column+" = ?", v)
			}
		case AnyOf:
			if vs := values[key]; len(vs) > 0 {
				db = db.Where(rule.Column+" IN ?", vs)
				if rule.Distinct {
					db = db.Distinct()
				}
			}
		case FullName:
			v := values.Get(key)
			if v == "" {
				continue
			}
			names := strings.Fields(v)
			if len(names) != 2 {
				continue
			}
			db = db.Where("LOWER("+rule.Column+") LIKE LOWER(?)", like(names[0])).
				Where("LOWER("+rule.Column2+") LIKE LOWER(?)", like(names[1]))
		}
	}
	return db
}

// Paginate narrows db to one page selected by the 1-based "page" parameter,
// sized by "page_size". Absent or malformed values fall back to the first
// page and DefaultPageSize; page_size is capped at MaxPageSize.
func Paginate(db *gorm.DB, values url.Values) *gorm.DB {
	page := intValue(values, "page", 1)
	if page < 1 {
		page = 1
	}
	size := intValue(values, "page_size", DefaultPageSize)
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return db.Offset((page - 1) * size).Limit(size)
}

func intValue(values url.Values, key string, fallback int) int {
	v := values.Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func like(v string) string {
	return "%" + v + "%"
}
