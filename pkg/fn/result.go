// Package fn holds the small generic toolkit the engine composes its
// analysis and retry paths from.
package fn

import "errors"

var errNoValue = errors.New("fn: result holds no value")

// Result[T] is a value or an error.
type Result[T any] struct {
	val T
	err error
	ok  bool
}

// Ok creates a successful Result.
func Ok[T any](v T) Result[T] {
	return Result[T]{val: v, ok: true}
}

// Err creates a failed Result. A nil err still yields a failure.
func Err[T any](err error) Result[T] {
	if err == nil {
		err = errNoValue
	}
	return Result[T]{err: err}
}

// FromPair creates a Result from a (value, error) pair.
func FromPair[T any](v T, err error) Result[T] {
	if err != nil {
		return Err[T](err)
	}
	return Ok(v)
}

func (r Result[T]) IsOk() bool  { return r.ok }
func (r Result[T]) IsErr() bool { return !r.ok }

// Unwrap returns the value and error.
func (r Result[T]) Unwrap() (T, error) {
	if !r.ok && r.err == nil {
		return r.val, errNoValue
	}
	return r.val, r.err
}

// Must returns the value or panics on error.
func (r Result[T]) Must() T {
	if !r.ok {
		_, err := r.Unwrap()
		panic(err)
	}
	return r.val
}

// UnwrapOr returns the value or a fallback on error.
func (r Result[T]) UnwrapOr(fallback T) T {
	if !r.ok {
		return fallback
	}
	return r.val
}

// Collect returns Ok with all values if all results are ok, or the first error.
func Collect[T any](results []Result[T]) Result[[]T] {
	out := make([]T, len(results))
	for i, r := range results {
		v, err := r.Unwrap()
		if r.IsErr() {
			return Err[[]T](err)
		}
		out[i] = v
	}
	return Ok(out)
}
