package model

import (
	"errors"
	"net/http"
)

// Kind is the stable category of a store failure.
type Kind string

const (
	KindUnauthorized   Kind = "unauthorized"
	KindAlreadyExists  Kind = "already_exists"
	KindNotFound       Kind = "not_found"
	KindDuplicateHash  Kind = "duplicate_hash"
	KindLengthMismatch Kind = "length_mismatch"
	KindInvalidField   Kind = "invalid_field"
	KindAccessDenied   Kind = "access_denied"
)

const (
	MsgUnauthorized       = "Only the admin can perform this action"
	MsgUserExists         = "User already exists"
	MsgUserNotFound       = "User does not exist"
	MsgSharedUserNotFound = "Shared user does not exist"
	MsgDocumentNotFound   = "Document not found"
	MsgDuplicateHash      = "Document hash already exists"
	MsgLengthMismatch     = "Input arrays must have the same length"
	MsgEmptyDocumentID    = "Document ID cannot be empty"
	MsgEmptyAction        = "Action cannot be empty"
	MsgEmptyPerformer     = "User ID cannot be empty"
	MsgAccessDenied       = "Access denied"
)

// Error is returned by every failing store operation.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on Kind, and on Message too when the target carries one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Sentinels for errors.Is matching by kind.
var (
	ErrUnauthorized   = &Error{Kind: KindUnauthorized}
	ErrAlreadyExists  = &Error{Kind: KindAlreadyExists}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrDuplicateHash  = &Error{Kind: KindDuplicateHash}
	ErrLengthMismatch = &Error{Kind: KindLengthMismatch}
	ErrInvalidField   = &Error{Kind: KindInvalidField}
	ErrAccessDenied   = &Error{Kind: KindAccessDenied}
)

func Unauthorized() error { return newError(KindUnauthorized, MsgUnauthorized) }
func AlreadyExists(msg string) error { return newError(KindAlreadyExists, msg) }
func NotFound(msg string) error { return newError(KindNotFound, msg) }
func DuplicateHash() error { return newError(KindDuplicateHash, MsgDuplicateHash) }
func LengthMismatch() error { return newError(KindLengthMismatch, MsgLengthMismatch) }
func InvalidField(msg string) error { return newError(KindInvalidField, msg) }
func AccessDenied() error { return newError(KindAccessDenied, MsgAccessDenied) }

// KindOf returns the kind of a store error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StatusCode returns the HTTP status code for an error
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindAlreadyExists, KindDuplicateHash:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindLengthMismatch, KindInvalidField:
		return http.StatusBadRequest
	case KindAccessDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
