package models

import (
	"context"
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindAuthorization ErrorKind = "authorization"
	KindConflict      ErrorKind = "conflict"
	KindNotFound      ErrorKind = "not_found"
	KindStore         ErrorKind = "store"
	KindTimeout       ErrorKind = "timeout"
	KindTransientLoad ErrorKind = "transient_load"
)

// AppError is the error surfaced to callers of the services. Code is stable
// per failure and is what errors.Is compares on.
type AppError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrEventNotFound      = &AppError{Kind: KindNotFound, Code: "event_not_found", Message: "event not found"}
	ErrProfileNotFound    = &AppError{Kind: KindNotFound, Code: "profile_not_found", Message: "profile not found"}
	ErrAlreadyJoined      = &AppError{Kind: KindConflict, Code: "already_joined", Message: "you have already joined this event"}
	ErrEventFull          = &AppError{Kind: KindConflict, Code: "event_full", Message: "event is full"}
	ErrEventClosed        = &AppError{Kind: KindConflict, Code: "event_closed", Message: "event is closed"}
	ErrNotAParticipant    = &AppError{Kind: KindConflict, Code: "not_a_participant", Message: "user is not a participant of this event"}
	ErrCreatorCannotLeave = &AppError{Kind: KindConflict, Code: "creator_cannot_leave", Message: "the creator cannot leave their own event, close or cancel it instead"}
	ErrProfileExists      = &AppError{Kind: KindConflict, Code: "profile_exists", Message: "profile already exists"}
	ErrConcurrentUpdate   = &AppError{Kind: KindConflict, Code: "concurrent_update", Message: "event changed while updating, try again"}
	ErrNotAuthorized      = &AppError{Kind: KindAuthorization, Code: "not_authorized", Message: "you are not allowed to perform this action"}
	ErrCannotKickSelf     = &AppError{Kind: KindValidation, Code: "cannot_kick_self", Message: "the creator cannot kick themself"}
	ErrEmptyMessage       = &AppError{Kind: KindValidation, Code: "empty_message", Message: "message cannot be empty"}
	ErrValidation         = &AppError{Kind: KindValidation, Code: "validation_failed", Message: "invalid input"}
	ErrStore              = &AppError{Kind: KindStore, Code: "store_failure", Message: "store request failed"}
	ErrTimeout            = &AppError{Kind: KindTimeout, Code: "timeout", Message: "store request timed out"}
	ErrTransientLoad      = &AppError{Kind: KindTransientLoad, Code: "transient_load", Message: "could not load data"}
)

// ErrPreconditionFailed is returned by repositories when a conditional update
// matched no document. Services translate it into a domain error.
var ErrPreconditionFailed = errors.New("precondition failed")

// ErrNoDocument is returned by repositories for point reads that find nothing.
var ErrNoDocument = errors.New("document not found")

func Validationf(format string, args ...any) error {
	return &AppError{Kind: KindValidation, Code: ErrValidation.Code, Message: fmt.Sprintf(format, args...)}
}

// StoreFailure wraps a backend error, keeping deadline overruns apart from
// explicit rejections.
func StoreFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &AppError{Kind: KindTimeout, Code: ErrTimeout.Code, Message: op + " timed out", Err: err}
	}
	return &AppError{Kind: KindStore, Code: ErrStore.Code, Message: op + " failed", Err: err}
}

// KindOf reports the kind of err, or KindStore for errors that did not come
// from this package.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindStore
}

// CodeOf reports the stable code of err.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrStore.Code
}
