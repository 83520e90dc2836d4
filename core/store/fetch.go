package store

// Fetch runs fn under a fresh ticket of s, counted as in flight, then commits the result.
// On error the current value is left untouched (last known good).
// A superseded result is returned to the caller but not stored.
func Fetch[T any](s *Slice[T], fn func() (T, error)) (T, error) {
	t := s.Begin()
	defer s.track()()

	v, err := fn()
	if err != nil {
		return v, err
	}
	s.Commit(t, v)
	return v, nil
}

// FetchOr is Fetch for call sites that replace the value with fallback() when fn fails.
func FetchOr[T any](s *Slice[T], fallback func() T, fn func() (T, error)) (T, error) {
	t := s.Begin()
	defer s.track()()

	v, err := fn()
	if err != nil {
		v = fallback()
	}
	s.Commit(t, v)
	return v, err
}

// CopyOf returns a copy of items that never aliases the stored collection.
// Elements are copied with Clone. A nil input yields an empty, non-nil slice.
func CopyOf[E any](items []E) []E {
	out := make([]E, len(items))
	for i := range items {
		out[i] = *Clone(&items[i])
	}
	return out
}

// Clone returns a copy of *p, or nil. Types holding pointers or slices provide
// their own deep Clone method, which is used instead of the plain copy.
func Clone[T any](p *T) *T {
	if p == nil {
		return nil
	}
	if c, ok := any(p).(interface{ Clone() *T }); ok {
		return c.Clone()
	}
	cp := *p
	return &cp
}
