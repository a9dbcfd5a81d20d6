package page

// CursorFunc derives an opaque cursor from an item. Callers supply it so the
// cursor encoding stays a storage concern (typically the ordered sort key).
type CursorFunc[T any] func(T) string

// CursorResult is one forward window of an ordered sequence.
//
// HasPrev is always false: backward detection would need data the over-fetch
// strategy does not retrieve. This is a documented limitation of the scheme,
// not an omission in any particular caller.
type CursorResult[T any] struct {
	Data       []T    `json:"data"`
	HasMore    bool   `json:"hasMore"`
	NextCursor string `json:"nextCursor,omitempty"`
	HasPrev    bool   `json:"hasPrev"`
}

// NewCursorResult applies the over-fetch-by-one window to candidates.
//
// Callers request limit+1 items from an ordered sequence; if limit+1 arrived,
// the extra item is dropped, HasMore is set, and NextCursor is derived from
// the last retained item. This avoids a separate count query. Fewer than
// limit+1 candidates means the sequence is exhausted and no cursor is issued.
func NewCursorResult[T any](candidates []T, limit int, cursor CursorFunc[T]) CursorResult[T] {
	if limit < 1 || len(candidates) <= limit {
		if candidates == nil {
			candidates = []T{}
		}
		return CursorResult[T]{Data: candidates}
	}

	retained := candidates[:limit]
	return CursorResult[T]{
		Data:       retained,
		HasMore:    true,
		NextCursor: cursor(retained[limit-1]),
	}
}
