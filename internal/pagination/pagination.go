// Package pagination splits ordered collections into fixed-size, 1-based pages.
//
// Page numbers that are missing, not integers, or below 1 resolve to the first
// page. Numbers past the end clamp to the last page. An empty collection has a
// single empty page.
package pagination

import (
	"context"
	"strconv"
	"strings"
)

// DefaultSize is used when a caller passes a non-positive page size.
const DefaultSize = 10

// Window is the resolved position of one page inside a collection.
type Window struct {
	Number   int
	NumPages int
	Size     int
	Count    int64
}

// Offset returns the number of items preceding the page.
func (w Window) Offset() int {
	return (w.Number - 1) * w.Size
}

// Limit returns the page size.
func (w Window) Limit() int {
	return w.Size
}

// ParseNumber reads a raw page parameter. Anything but a positive integer yields 1.
func ParseNumber(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Resolve positions page number inside a collection of count items.
func Resolve(number int, count int64, size int) Window {
	if size <= 0 {
		size = DefaultSize
	}
	if count < 0 {
		count = 0
	}

	numPages := int((count + int64(size) - 1) / int64(size))
	if numPages < 1 {
		numPages = 1
	}
	if number < 1 {
		number = 1
	}
	if number > numPages {
		number = numPages
	}

	return Window{Number: number, NumPages: numPages, Size: size, Count: count}
}

// Page is one page of items plus navigation metadata.
type Page[T any] struct {
	Items        []T   `json:"items"`
	Number       int   `json:"number"`
	NumPages     int   `json:"num_pages"`
	PerPage      int   `json:"per_page"`
	Count        int64 `json:"count"`
	HasNext      bool  `json:"has_next"`
	HasPrevious  bool  `json:"has_previous"`
	NextPage     *int  `json:"next_page,omitempty"`
	PreviousPage *int  `json:"previous_page,omitempty"`
}

// NewPage wraps items fetched for w.
func NewPage[T any](items []T, w Window) *Page[T] {
	if items == nil {
		items = []T{}
	}
	p := &Page[T]{
		Items:       items,
		Number:      w.Number,
		NumPages:    w.NumPages,
		PerPage:     w.Size,
		Count:       w.Count,
		HasNext:     w.Number < w.NumPages,
		HasPrevious: w.Number > 1,
	}
	if p.HasNext {
		next := w.Number + 1
		p.NextPage = &next
	}
	if p.HasPrevious {
		prev := w.Number - 1
		p.PreviousPage = &prev
	}
	return p
}

// Len returns the number of items on the page.
func (p *Page[T]) Len() int {
	return len(p.Items)
}

// CountFunc returns the size of a collection.
type CountFunc func(ctx context.Context) (int64, error)

// FetchFunc loads limit items starting at offset.
type FetchFunc[T any] func(ctx context.Context, limit, offset int) ([]T, error)

// Paginate counts the collection, resolves the requested page and fetches it.
// The count and the fetch are separate statements, so under concurrent writes
// the reported count may drift slightly from the items returned.
func Paginate[T any](ctx context.Context, number, size int, count CountFunc, fetch FetchFunc[T]) (*Page[T], error) {
	total, err := count(ctx)
	if err != nil {
		return nil, err
	}

	w := Resolve(number, total, size)
	if total == 0 {
		return NewPage[T](nil, w), nil
	}

	items, err := fetch(ctx, w.Limit(), w.Offset())
	if err != nil {
		return nil, err
	}
	return NewPage(items, w), nil
}
