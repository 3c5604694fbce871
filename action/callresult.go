// Package action defines the contract every asset action implements, the
// monadic call result it returns, and a multi-variant dispatch decorator
// for actions that expose several overloads of their execute step.
package action

import "fmt"

// CallResult is the monadic wrapper every action invocation eventually
// produces: either Valid(value) or Error(message, ...). then/onError thread
// or short-circuit through it the way a Result/Either type does in other
// languages.
type CallResult struct {
	valid   bool
	value   interface{}
	message string
	image   string // exception-image: %T/%v of the captured error
	stack   string
	prior   *CallResult
}

// Valid wraps a successful value.
func Valid(value interface{}) *CallResult {
	return &CallResult{valid: true, value: value}
}

// Failed wraps an error condition: a message, an optional "exception image"
// (a rendering of the underlying Go error, if any), a stack trace, and an
// optional prior CallResult this one supersedes (chained failures).
func Failed(message, image, stack string, prior *CallResult) *CallResult {
	return &CallResult{message: message, image: image, stack: stack, prior: prior}
}

// FromError builds a Failed CallResult from a plain Go error.
func FromError(err error) *CallResult {
	if err == nil {
		return Valid(nil)
	}
	return Failed(err.Error(), fmt.Sprintf("%T", err), "", nil)
}

// IsValid reports whether this result carries a value.
func (c *CallResult) IsValid() bool { return c != nil && c.valid }

// IsError reports whether this result carries a failure.
func (c *CallResult) IsError() bool { return c != nil && !c.valid }

// Value returns the wrapped value, or nil for an Error result.
func (c *CallResult) Value() interface{} {
	if c == nil {
		return nil
	}
	return c.value
}

// Message returns the failure message, empty for a Valid result.
func (c *CallResult) Message() string {
	if c == nil {
		return ""
	}
	return c.message
}

// ExceptionImage returns the rendered Go error type/value that produced
// this failure, if any.
func (c *CallResult) ExceptionImage() string {
	if c == nil {
		return ""
	}
	return c.image
}

// StackTrace returns the captured stack trace, if any.
func (c *CallResult) StackTrace() string {
	if c == nil {
		return ""
	}
	return c.stack
}

// Prior returns the CallResult this failure superseded, or nil.
func (c *CallResult) Prior() *CallResult { return c.prior }

// Then threads value through f when c is Valid; an Error result passes
// through unchanged.
func (c *CallResult) Then(f func(interface{}) *CallResult) *CallResult {
	if c.IsError() {
		return c
	}
	return f(c.value)
}

// OnError threads the failure through f when c is an Error; a Valid result
// passes through unchanged.
func (c *CallResult) OnError(f func(*CallResult) *CallResult) *CallResult {
	if c.IsValid() {
		return c
	}
	return f(c)
}

// raiseSentinel marks a GetResult default that should raise instead of
// being returned as a value.
type raiseSentinel struct{}

// Raise is the exception-shaped sentinel for GetResult: passing it as the
// default causes GetResult to return an error instead of a zero value.
var Raise = raiseSentinel{}

// GetResult returns the wrapped value for a Valid result. For an Error
// result it returns def, unless def is Raise, in which case it returns the
// failure as a Go error.
func (c *CallResult) GetResult(def interface{}) (interface{}, error) {
	if c.IsValid() {
		return c.value, nil
	}
	if _, raise := def.(raiseSentinel); raise {
		return nil, fmt.Errorf("action: %s", c.message)
	}
	return def, nil
}
