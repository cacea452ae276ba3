package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInputUnavailable = errors.New("input unavailable")
	ErrInputReadFailure = errors.New("input read failure")
	ErrWorkerFailure    = errors.New("worker failure")
	ErrInvalidInput     = errors.New("invalid input")
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrInternal         = errors.New("internal error")
	ErrTimeout          = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// Invalid returns an ErrInvalidInput AppError with a 400 status.
func Invalid(format string, args ...any) *AppError {
	return Newf(ErrInvalidInput, http.StatusBadRequest, format, args...)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrInputUnavailable):
		return http.StatusNotFound
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Kind returns a short stable name for the class of err, used in logs,
// events and scan history. A nil error has kind "".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInputUnavailable):
		return "input_unavailable"
	case errors.Is(err, ErrInputReadFailure):
		return "input_read_failure"
	case errors.Is(err, ErrWorkerFailure):
		return "worker_failure"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "internal"
	}
}

// ExitCode maps err to a process exit status for command-line tools.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrInvalidInput):
		return 2
	case errors.Is(err, ErrInputUnavailable):
		return 3
	case errors.Is(err, ErrInputReadFailure):
		return 4
	case errors.Is(err, ErrWorkerFailure):
		return 5
	default:
		return 1
	}
}
