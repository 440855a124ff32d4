package upload_service

import (
	"errors"
	"fmt"
)

// ErrorKind classifies terminal pipeline failures.
type ErrorKind string

const (
	ErrKindValidation ErrorKind = "validation" // Rejected before any network call
	ErrKindRemote     ErrorKind = "remote"     // Platform API failure or structured user error
	ErrKindTransfer   ErrorKind = "transfer"   // Staged target POST failed
	ErrKindTimeout    ErrorKind = "timeout"    // Poll ceiling reached without processed sources
	ErrKindCanceled   ErrorKind = "canceled"   // Caller canceled the session
	ErrKindFinalize   ErrorKind = "finalize"   // Record creation failed after a processed upload
)

// ErrSessionActive is returned when a shop already has a running session.
var ErrSessionActive = errors.New("an upload session is already in progress for this shop")

// PipelineError is a terminal pipeline failure. There are no retries; the
// session moves to failed and the slot is released.
type PipelineError struct {
	Kind       ErrorKind
	Message    string
	HTTPStatus int // Transfer failures only, 0 when no HTTP answer arrived
	Err        error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// KindOf returns the error kind, or empty string for non-pipeline errors.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

func validationError(format string, args ...interface{}) *PipelineError {
	return &PipelineError{Kind: ErrKindValidation, Message: fmt.Sprintf(format, args...)}
}

func remoteError(msg string, err error) *PipelineError {
	return &PipelineError{Kind: ErrKindRemote, Message: msg, Err: err}
}

func transferError(status int, err error) *PipelineError {
	return &PipelineError{Kind: ErrKindTransfer, Message: "staged upload transfer failed", HTTPStatus: status, Err: err}
}

func timeoutError(attempts int) *PipelineError {
	return &PipelineError{Kind: ErrKindTimeout, Message: fmt.Sprintf("asset not processed after %d polls", attempts)}
}

func canceledError() *PipelineError {
	return &PipelineError{Kind: ErrKindCanceled, Message: "upload canceled by caller"}
}

func finalizeError(err error) *PipelineError {
	return &PipelineError{Kind: ErrKindFinalize, Message: "video record creation failed", Err: err}
}
