// Package opt provides an explicit present/absent value.
//
// Lookups that can miss return an Option instead of a zero value or a nil
// pointer, so "not found" is never conflated with a valid result. Options
// compose with Chain (flat-map) and Alt (lazy fallback).
package opt

// Option holds either a value (Some) or nothing (None).
// The zero Option is None.
type Option[T any] struct {
	value T
	ok    bool
}

// Some wraps a present value.
func Some[T any](v T) Option[T] {
	return Option[T]{value: v, ok: true}
}

// None returns an absent value.
func None[T any]() Option[T] {
	return Option[T]{}
}

// FromMap looks up key in m.
func FromMap[K comparable, V any](m map[K]V, key K) Option[V] {
	v, ok := m[key]
	if !ok {
		return None[V]()
	}
	return Some(v)
}

// Get returns the value and whether it is present.
func (o Option[T]) Get() (T, bool) {
	return o.value, o.ok
}

// IsSome reports whether a value is present.
func (o Option[T]) IsSome() bool {
	return o.ok
}

// IsNone reports whether the value is absent.
func (o Option[T]) IsNone() bool {
	return !o.ok
}

// OrElse returns the value, or fallback when absent.
func (o Option[T]) OrElse(fallback T) T {
	if o.ok {
		return o.value
	}
	return fallback
}

// Chain applies f to a present value; None passes through.
func Chain[A, B any](o Option[A], f func(A) Option[B]) Option[B] {
	if !o.ok {
		return None[B]()
	}
	return f(o.value)
}

// Map transforms a present value.
func Map[A, B any](o Option[A], f func(A) B) Option[B] {
	if !o.ok {
		return None[B]()
	}
	return Some(f(o.value))
}

// Alt returns o when present, otherwise the result of fallback.
// fallback is evaluated only when o is None.
func Alt[T any](o Option[T], fallback func() Option[T]) Option[T] {
	if o.ok {
		return o
	}
	return fallback()
}
