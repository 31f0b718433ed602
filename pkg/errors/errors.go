// Package errors defines the error taxonomy shared by the indexing pipeline
// and maps it onto process exit codes for the CLI.
package errors

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidPartition = errors.New("invalid partition request")
	ErrDecode           = errors.New("document decode failed")
	ErrWorkerFailure    = errors.New("worker failed")
	ErrWorkerTimeout    = errors.New("worker timed out")
	ErrEmptyCorpus      = errors.New("empty corpus")
	ErrIO               = errors.New("i/o failure")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// Exit codes returned by cmd/indexer.
const (
	ExitOK          = 0
	ExitInternal    = 1
	ExitConfig      = 2
	ExitData        = 3
	ExitTimeout     = 4
	ExitEmptyCorpus = 5
	ExitIO          = 6
	// ExitInterrupted follows the shell convention for SIGINT.
	ExitInterrupted = 130
)

type AppError struct {
	Err      error
	Message  string
	ExitCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, exitCode int, message string) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  message,
		ExitCode: exitCode,
	}
}

func Newf(sentinel error, exitCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  fmt.Sprintf(format, args...),
		ExitCode: exitCode,
	}
}

// DecodeError reports a document whose bytes are not valid UTF-8 text.
type DecodeError struct {
	DocID string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("decoding document %q: %s", e.DocID, ErrDecode)
	}
	return fmt.Sprintf("decoding document %q: %s: %v", e.DocID, ErrDecode, e.Err)
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// WorkerError wraps a failure inside a pool worker with the partition it
// was processing.
type WorkerError struct {
	Stage     string
	Partition int
	Start     int
	End       int
	Err       error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("%s worker %d [%d, %d): %v", e.Stage, e.Partition, e.Start, e.End, e.Err)
}

func (e *WorkerError) Is(target error) bool {
	return target == ErrWorkerFailure
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}

// ExitCode maps err onto the process exit code for the CLI.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.ExitCode
	}

	switch {
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrInvalidPartition):
		return ExitConfig
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, ErrWorkerTimeout):
		return ExitTimeout
	case errors.Is(err, ErrDecode), errors.Is(err, ErrWorkerFailure):
		return ExitData
	case errors.Is(err, ErrEmptyCorpus):
		return ExitEmptyCorpus
	case errors.Is(err, ErrIO):
		return ExitIO
	default:
		return ExitInternal
	}
}
