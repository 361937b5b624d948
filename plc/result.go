package plc

import "errors"

var errUnknown = errors.New("unknown failure")

// Result is the uniform envelope returned by device operations.
//
// Content holds the zero value of T when Success is false and must not be used.
type Result[T any] struct {
	Success bool
	Content T
	Kind    ErrorKind
	Message string

	err error
}

// OK returns a successful result carrying content.
func OK[T any](content T) Result[T] {
	return Result[T]{Success: true, Content: content}
}

// Fail returns a failed result for err. The message is prefixed with the text registered
// in msgs for the kind of err; a nil msgs uses DefaultMessages.
func Fail[T any](err error, msgs Messages) Result[T] {
	if err == nil {
		err = errUnknown
	}
	kind := KindOf(err)

	return Result[T]{
		Kind:    kind,
		Message: msgs.Format(kind, err),
		err:     err,
	}
}

// Convert returns a failed result of another content type carrying the same error.
func Convert[U, T any](r Result[T]) Result[U] {
	return Result[U]{
		Success: r.Success,
		Kind:    r.Kind,
		Message: r.Message,
		err:     r.err,
	}
}

// Err returns the error behind a failed result, or nil on success.
func (r Result[T]) Err() error {
	if r.Success {
		return nil
	}
	if r.err == nil {
		return errUnknown
	}

	return r.err
}

// Unwrap returns the content and the error as a Go style pair.
func (r Result[T]) Unwrap() (T, error) {
	if !r.Success {
		var zero T
		return zero, r.Err()
	}

	return r.Content, nil
}
