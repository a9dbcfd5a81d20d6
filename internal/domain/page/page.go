// Package page provides offset-based and cursor-based page-window arithmetic
// for repository list and search operations. It performs no I/O: callers fetch
// candidates and hand the window math to this package.
package page

import (
	"errors"
	"fmt"
)

// Pagination bounds. Limit is capped to keep a single page from degenerating
// into a full-table scan; the cap is overridable per request set via Options.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ErrInvalidPagination is the sentinel wrapped by all pagination validation
// failures.
var ErrInvalidPagination = errors.New("invalid pagination")

// Options selects an offset-based page window.
type Options struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Meta describes the position of a page inside the full result set.
type Meta struct {
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	Total      int64  `json:"total"`
	HasNext    bool   `json:"hasNext"`
	HasPrev    bool   `json:"hasPrev"`
	NextCursor string `json:"nextCursor,omitempty"`
	PrevCursor string `json:"prevCursor,omitempty"`
}

// Result is one page of data plus its pagination metadata.
type Result[T any] struct {
	Data []T  `json:"data"`
	Meta Meta `json:"pagination"`
}

// DefaultOptions returns the first page at the default limit.
func DefaultOptions() Options {
	return Options{Page: 1, Limit: DefaultLimit}
}

// Normalize fills zero fields with defaults, leaving set fields untouched.
func (o Options) Normalize() Options {
	if o.Page == 0 {
		o.Page = 1
	}
	if o.Limit == 0 {
		o.Limit = DefaultLimit
	}
	return o
}

// Validate rejects page < 1, limit < 1 and limit > MaxLimit.
func (o Options) Validate() error {
	if o.Page < 1 {
		return fmt.Errorf("%w: page must be >= 1, got %d", ErrInvalidPagination, o.Page)
	}
	if o.Limit < 1 {
		return fmt.Errorf("%w: limit must be >= 1, got %d", ErrInvalidPagination, o.Limit)
	}
	if o.Limit > MaxLimit {
		return fmt.Errorf("%w: limit must be <= %d, got %d", ErrInvalidPagination, MaxLimit, o.Limit)
	}
	return nil
}

// Offset returns the number of records to skip for this window.
func (o Options) Offset() int {
	return (o.Page - 1) * o.Limit
}

// TotalPages returns ceil(total/limit) for the given limit.
func TotalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// NewResult assembles a page of data with offset-pagination metadata.
func NewResult[T any](data []T, total int64, opts Options) Result[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := TotalPages(total, opts.Limit)
	return Result[T]{
		Data: data,
		Meta: Meta{
			Page:    opts.Page,
			Limit:   opts.Limit,
			Total:   total,
			HasNext: opts.Page < totalPages,
			HasPrev: opts.Page > 1,
		},
	}
}
