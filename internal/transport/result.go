// internal/transport/result.go
package transport

// Result holds either a value or an error, never both.
type Result[T any] struct {
	value T
	err   *ErrorInfo
}

// Ok wraps a successful value.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// Fail wraps a failure. A nil info is recorded as an unexpected error so the
// result is never empty.
func Fail[T any](info *ErrorInfo) Result[T] {
	if info == nil {
		info = NewError(KindUnexpected, "Unexpected error", "no error information")
	}
	return Result[T]{err: info}
}

// FailWith re-types another result's failure.
func FailWith[T, U any](r Result[U]) Result[T] {
	return Fail[T](r.err)
}

// IsSuccess reports whether the result carries a value.
func (r Result[T]) IsSuccess() bool { return r.err == nil }

// Value returns the success value, or the zero value on failure.
func (r Result[T]) Value() T { return r.value }

// Err returns the failure, or nil on success.
func (r Result[T]) Err() *ErrorInfo { return r.err }

// Unwrap returns the result as a conventional (value, error) pair.
func (r Result[T]) Unwrap() (T, error) {
	if r.err != nil {
		var zero T
		return zero, r.err
	}
	return r.value, nil
}
