// Package status classifies core errors (configuration, assembly, execution,
// overflow, cache-miss) with a closed set of gRPC status codes, without this
// module ever running a gRPC server. The codes give callers a structured way
// to ask "what kind of error is this" instead of string-matching messages.
package status

import (
	stderrors "errors"
	"flag"
	"fmt"
	"runtime"

	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var LogErrorStackTraces = flag.Bool("log_error_stack_traces", false, "If true, stack traces will be printed for errors that have them.")

const stackDepth = 10

type wrappedError struct {
	error
	*stack
}

func (w *wrappedError) Unwrap() error { return w.error }

type StackTrace = errors.StackTrace
type stack []uintptr

func (s *stack) StackTrace() StackTrace {
	f := make([]errors.Frame, len(*s))
	for i := range f {
		f[i] = errors.Frame((*s)[i])
	}
	return f
}

func callers() *stack {
	var pcs [stackDepth]uintptr
	n := runtime.Callers(3, pcs[:])
	var st stack = pcs[0:n]
	return &st
}

// statusError wraps an error with a classification code while preserving the
// underlying error for errors.Is()/errors.As() checks.
type statusError struct {
	code codes.Code
	err  error
}

func (e *statusError) Error() string  { return fmt.Sprintf("%s: %s", e.code, e.err) }
func (e *statusError) Unwrap() error  { return e.err }
func (e *statusError) Code() codes.Code { return e.code }

// WrapWithCode wraps an error with a classification code while preserving the
// underlying error for errors.Is() checks.
func WrapWithCode(err error, code codes.Code) error {
	return &statusError{code: code, err: err}
}

func makeStatusErrorFromMessage(code codes.Code, msg string) error {
	return makeStatusError(code, stderrors.New(msg))
}

func makeStatusError(code codes.Code, err error) error {
	se := &statusError{code: code, err: err}
	if !*LogErrorStackTraces {
		return se
	}
	return &wrappedError{se, callers()}
}

func OK() error { return nil }

func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	var se *statusError
	if stderrors.As(err, &se) {
		return se.code
	}
	return codes.Unknown
}

func InvalidArgumentError(msg string) error { return makeStatusErrorFromMessage(codes.InvalidArgument, msg) }
func IsInvalidArgumentError(err error) bool { return Code(err) == codes.InvalidArgument }
func InvalidArgumentErrorf(format string, a ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, a...))
}

func NotFoundError(msg string) error { return makeStatusErrorFromMessage(codes.NotFound, msg) }
func IsNotFoundError(err error) bool { return Code(err) == codes.NotFound }
func NotFoundErrorf(format string, a ...interface{}) error {
	return NotFoundError(fmt.Sprintf(format, a...))
}

func AlreadyExistsError(msg string) error { return makeStatusErrorFromMessage(codes.AlreadyExists, msg) }
func IsAlreadyExistsError(err error) bool { return Code(err) == codes.AlreadyExists }
func AlreadyExistsErrorf(format string, a ...interface{}) error {
	return AlreadyExistsError(fmt.Sprintf(format, a...))
}

func FailedPreconditionError(msg string) error {
	return makeStatusErrorFromMessage(codes.FailedPrecondition, msg)
}
func IsFailedPreconditionError(err error) bool { return Code(err) == codes.FailedPrecondition }
func FailedPreconditionErrorf(format string, a ...interface{}) error {
	return FailedPreconditionError(fmt.Sprintf(format, a...))
}

func AbortedError(msg string) error { return makeStatusErrorFromMessage(codes.Aborted, msg) }
func IsAbortedError(err error) bool { return Code(err) == codes.Aborted }
func AbortedErrorf(format string, a ...interface{}) error {
	return AbortedError(fmt.Sprintf(format, a...))
}

func ResourceExhaustedError(msg string) error {
	return makeStatusErrorFromMessage(codes.ResourceExhausted, msg)
}
func IsResourceExhaustedError(err error) bool { return Code(err) == codes.ResourceExhausted }
func ResourceExhaustedErrorf(format string, a ...interface{}) error {
	return ResourceExhaustedError(fmt.Sprintf(format, a...))
}

func InternalError(msg string) error { return makeStatusErrorFromMessage(codes.Internal, msg) }
func IsInternalError(err error) bool { return Code(err) == codes.Internal }
func InternalErrorf(format string, a ...interface{}) error {
	return InternalError(fmt.Sprintf(format, a...))
}

func UnknownError(msg string) error { return makeStatusErrorFromMessage(codes.Unknown, msg) }
func UnknownErrorf(format string, a ...interface{}) error {
	return UnknownError(fmt.Sprintf(format, a...))
}

// WrapError prepends additional context to an error description, preserving
// the underlying status code.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	var se *statusError
	if stderrors.As(err, &se) {
		return makeStatusError(se.code, fmt.Errorf("%s: %w", msg, se.err))
	}
	return makeStatusError(Code(err), fmt.Errorf("%s: %w", msg, err))
}

func WrapErrorf(err error, format string, a ...interface{}) error {
	return WrapError(err, fmt.Sprintf(format, a...))
}

// GRPCStatus lets statusError satisfy the interface github.com/grpc/status's
// FromError looks for, so Code() above and status.Code() agree with each
// other when an error crosses a library boundary that expects gRPC status
// semantics (none of this module's own call sites do).
func (e *statusError) GRPCStatus() *status.Status {
	return status.New(e.code, e.err.Error())
}
