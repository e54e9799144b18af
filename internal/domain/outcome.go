package domain

import "fmt"

// Outcome is the tagged result of a single remote call: either a value or the
// failure that prevented it. Adapters return it from every normalized operation
// and callers pick one of the compatibility views (OrEmpty, OK, Message).
type Outcome[T any] struct {
	value T
	err   error
}

// Ok returns a successful outcome holding v.
func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{value: v}
}

// Fail returns a failed outcome. A nil err is replaced so the outcome stays failed.
func Fail[T any](err error) Outcome[T] {
	if err == nil {
		err = fmt.Errorf("operation failed without detail")
	}
	return Outcome[T]{err: err}
}

// From builds an outcome from a conventional (value, error) pair.
func From[T any](v T, err error) Outcome[T] {
	if err != nil {
		return Fail[T](err)
	}
	return Ok(v)
}

// Get returns the value and the failure, if any.
func (o Outcome[T]) Get() (T, error) {
	return o.value, o.err
}

// Err returns the failure or nil.
func (o Outcome[T]) Err() error {
	return o.err
}

// OK reports whether the call succeeded. This is the booleanized view:
// the failure detail is available only through Err.
func (o Outcome[T]) OK() bool {
	return o.err == nil
}

// OrEmpty returns the value on success and the zero value on failure.
// This is the absorbed view: "request failed" and "nothing found" look the same.
func (o Outcome[T]) OrEmpty() T {
	if o.err != nil {
		var zero T
		return zero
	}
	return o.value
}

// Message renders the stringified view: success on success, otherwise
// failurePrefix followed by the raw remote error text.
func (o Outcome[T]) Message(success, failurePrefix string) string {
	if o.err == nil {
		return success
	}
	return failurePrefix + ": " + Detail(o.err)
}
