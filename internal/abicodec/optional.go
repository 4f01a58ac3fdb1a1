package abicodec

// Optional marks a decoded element that may be absent. Array-of-dynamic
// decoding uses it for zero-length elements so callers pick their own default.
type Optional[T any] struct {
	value   T
	present bool
}

func Some[T any](value T) Optional[T] { return Optional[T]{value: value, present: true} }

func None[T any]() Optional[T] { return Optional[T]{} }

// Get returns the value and whether it was present.
func (o Optional[T]) Get() (T, bool) { return o.value, o.present }

// Present reports whether the element carried data.
func (o Optional[T]) Present() bool { return o.present }

// OrDefault returns the value, or def when absent.
func (o Optional[T]) OrDefault(def T) T {
	if !o.present {
		return def
	}
	return o.value
}

// ValuesOr flattens items, substituting def for absent elements.
func ValuesOr[T any](items []Optional[T], def T) []T {
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = item.OrDefault(def)
	}
	return out
}
