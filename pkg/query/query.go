// Package query implements the list-view pipeline shared by every record
// listing: filter, sort, then paginate.
package query

import (
	"sort"
	"strings"
)

// DefaultPageSize is used when a caller asks for a non-positive page size.
const DefaultPageSize = 10

// Direction orders a sort.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection maps free text to a direction, defaulting to ascending.
func ParseDirection(raw string) Direction {
	if strings.EqualFold(strings.TrimSpace(raw), string(Desc)) {
		return Desc
	}
	return Asc
}

// Predicate selects items.
type Predicate[T any] func(T) bool

// Filter returns the items satisfying every predicate, preserving order.
// Nil predicates are skipped.
func Filter[T any](items []T, preds ...Predicate[T]) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		keep := true
		for _, p := range preds {
			if p != nil && !p(item) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, item)
		}
	}
	return out
}

// MatchesText reports whether q is a case-insensitive substring of the
// space-joined fields. An empty query matches everything.
func MatchesText(q string, fields ...string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(strings.Join(fields, " ")), q)
}

// Sort returns a stably sorted copy ordered by the lower-cased key.
func Sort[T any](items []T, key func(T) string, dir Direction) []T {
	out := make([]T, len(items))
	copy(out, items)
	if key == nil {
		return out
	}
	keys := make([]string, len(out))
	for i, item := range out {
		keys[i] = strings.ToLower(key(item))
	}
	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if dir == Desc {
			return keys[idx[a]] > keys[idx[b]]
		}
		return keys[idx[a]] < keys[idx[b]]
	})
	sorted := make([]T, len(out))
	for i, j := range idx {
		sorted[i] = out[j]
	}
	return sorted
}

// SortState remembers the active sort key of a list view.
type SortState struct {
	Key       string    `json:"key"`
	Direction Direction `json:"direction"`
}

// Toggle flips the direction when key is already active, otherwise
// switches to key ascending.
func (s SortState) Toggle(key string) SortState {
	if s.Key == key {
		if s.Direction == Desc {
			return SortState{Key: key, Direction: Asc}
		}
		return SortState{Key: key, Direction: Desc}
	}
	return SortState{Key: key, Direction: Asc}
}

// Page is one window of a filtered, sorted list.
type Page[T any] struct {
	Items      []T
	Page       int
	PageSize   int
	TotalCount int
	TotalPages int
}

// Paginate returns items[(page-1)*size : page*size]. Page numbers below 1
// are treated as 1; pages past the end are empty.
func Paginate[T any](items []T, page, size int) Page[T] {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(items)
	pages := total / size
	if total%size != 0 {
		pages++
	}
	start := total
	if page <= pages {
		start = (page - 1) * size
	}
	end := total
	if size < total-start {
		end = start + size
	}
	window := make([]T, end-start)
	copy(window, items[start:end])
	return Page[T]{Items: window, Page: page, PageSize: size, TotalCount: total, TotalPages: pages}
}
