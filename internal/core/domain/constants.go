package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSendingReplyFailed    = errors.New("failed to send reply")
	ErrEmptyPrompt           = errors.New("empty prompt")
	ErrContextLengthExceeded = errors.New("maximum context length exceeded")
	ErrNotAnchor             = errors.New("message is not a conversation anchor")
	ErrNotThread             = errors.New("channel is not a thread")
	ErrEmptyImage            = errors.New("no image returned")
	ErrCommandNotFound       = errors.New("command not found")
	ErrCommandRegistered     = errors.New("command already registered")
)

// InvalidRequestError is a request the backend rejected for a reason other than context length.
type InvalidRequestError struct {
	Message string
	Err     error
}

func (e *InvalidRequestError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid request: %s", e.Message)
	}

	return fmt.Sprintf("invalid request: %s: %v", e.Message, e.Err)
}

func (e *InvalidRequestError) Unwrap() error {
	return e.Err
}
