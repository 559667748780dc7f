// Package outcome provides the success/failure result type returned by
// every layer function instead of a raised error. An Outcome crosses layer
// boundaries; panics never do.
package outcome

import "github.com/latticeworks/substrate/internal/apperr"

// Outcome holds exactly one of a success value or an application error.
// Once constructed it is immutable.
type Outcome[T any] struct {
	value T
	err   *apperr.Error
	ok    bool
}

// OK creates a successful outcome.
func OK[T any](value T) Outcome[T] {
	return Outcome[T]{value: value, ok: true}
}

// Fail creates a failed outcome.
func Fail[T any](err *apperr.Error) Outcome[T] {
	return Outcome[T]{err: err}
}

// IsOK reports whether the outcome is a success.
func (o Outcome[T]) IsOK() bool { return o.ok }

// Value returns the success value. Meaningful only when IsOK.
func (o Outcome[T]) Value() T { return o.value }

// Err returns the carried error, or nil on success.
func (o Outcome[T]) Err() *apperr.Error {
	if o.ok {
		return nil
	}
	return o.err
}

// Unwrap returns the value or panics with the carried *apperr.Error.
// It is for use inside a single command body guarded by Catch; the panic
// must never cross a layer or goroutine boundary.
func (o Outcome[T]) Unwrap() T {
	if !o.ok {
		panic(o.err)
	}
	return o.value
}

// UnwrapOr returns the value. A failed outcome re-raises its carried
// error unchanged, like Unwrap; the fallback is raised only when the
// outcome succeeded with a semantically absent (nil) value.
func UnwrapOr[T any](o Outcome[*T], fallback *apperr.Error) *T {
	if !o.ok {
		panic(o.err)
	}
	if o.value == nil {
		panic(fallback)
	}
	return o.value
}

// Match invokes exactly one of the two callbacks.
func (o Outcome[T]) Match(onSuccess func(T), onFailure func(*apperr.Error)) {
	if o.ok {
		onSuccess(o.value)
		return
	}
	onFailure(o.err)
}

// MapValue transforms the success value; a failure passes through unchanged.
func MapValue[T, U any](o Outcome[T], fn func(T) U) Outcome[U] {
	if !o.ok {
		return Fail[U](o.err)
	}
	return OK(fn(o.value))
}

// MapError transforms the carried error; a success passes through unchanged.
func (o Outcome[T]) MapError(fn func(*apperr.Error) *apperr.Error) Outcome[T] {
	if o.ok {
		return o
	}
	return Fail[T](fn(o.err))
}

// Then chains a further outcome-producing step, short-circuiting on failure
// without invoking the continuation.
func Then[T, U any](o Outcome[T], fn func(T) Outcome[U]) Outcome[U] {
	if !o.ok {
		return Fail[U](o.err)
	}
	return fn(o.value)
}

// Catch runs fn, converting a panicked *apperr.Error back into a failed
// outcome. It pairs with Unwrap/UnwrapOr to give command bodies early-exit
// convenience while keeping the cross-layer contract outcome-shaped. Any
// other panic value is re-raised.
func Catch[T any](fn func() Outcome[T]) (result Outcome[T]) {
	defer func() {
		if r := recover(); r != nil {
			appErr, ok := r.(*apperr.Error)
			if !ok {
				panic(r)
			}
			result = Fail[T](appErr)
		}
	}()
	return fn()
}
