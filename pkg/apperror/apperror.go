package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindForbidden    Kind = "forbidden"
	KindUnauthorized Kind = "unauthorized"
	KindConflict     Kind = "conflict"
	KindUpstream     Kind = "upstream"
)

// Error is the error type surfaced by application services.
// Code is a stable machine-readable identifier, Message is safe to show to callers.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  map[string]string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Code + ": " + e.cause.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches errors of the same code so sentinels work with errors.Is after WithFields/Wrap.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// WithFields returns a copy carrying field-level details.
func (e *Error) WithFields(fields map[string]string) *Error {
	cp := *e
	cp.Fields = fields
	return &cp
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validation(code, message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message, Fields: fields}
}

// Upstream wraps a record-store or dispatcher failure. The cause is kept for logs only.
func Upstream(op string, cause error) *Error {
	return &Error{Kind: KindUpstream, Code: "upstream_failure", Message: "internal error", cause: fmt.Errorf("%s: %w", op, cause)}
}

var (
	ErrLocationNotAllowed    = New(KindValidation, "location_not_allowed", "location outside the allowed area")
	ErrRollEntryNotFound     = New(KindValidation, "roll_entry_not_found", "dni not found in the electoral roll")
	ErrAccountAlreadyExists  = New(KindValidation, "account_already_exists", "an account already exists for this dni or email")
	ErrInvalidCredentials    = New(KindValidation, "invalid_credentials", "invalid credentials")
	ErrEmailNotVerified      = New(KindForbidden, "email_not_verified", "email must be verified before logging in")
	ErrTokenInvalidOrExpired = New(KindValidation, "token_invalid_or_expired", "invalid or expired token")
	ErrUnauthorized          = New(KindUnauthorized, "unauthorized", "unauthorized")
	ErrAccountNotFound       = New(KindNotFound, "account_not_found", "user not found")
	ErrProposalNotFound      = New(KindNotFound, "proposal_not_found", "proposal not found")
	ErrNotProposalAuthor     = New(KindForbidden, "not_proposal_author", "only the author can modify this proposal")
	ErrInvalidVoteValue      = New(KindValidation, "invalid_vote_value", "vote value must be 1, -1 or 0")
	ErrRedundantVote         = New(KindConflict, "redundant_vote", "you already voted this way")
	ErrNoVoteToWithdraw      = New(KindConflict, "no_vote_to_withdraw", "there is no vote to withdraw")
	ErrNotificationNotFound  = New(KindNotFound, "notification_not_found", "notification not found")
	ErrNotNotificationOwner  = New(KindForbidden, "not_notification_owner", "not allowed")
	ErrEmptyUpdate           = New(KindValidation, "empty_update", "nothing to update")
	ErrSearchUnavailable     = New(KindUpstream, "search_unavailable", "search is not available")
)

// KindOf returns the kind of err, treating unknown errors as upstream failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}

// HTTPStatus maps an error to the smallest-disclosure status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the caller-facing message. Upstream detail never leaves the process.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindUpstream {
		return e.Message
	}
	return "internal error"
}

// PublicCode returns the stable code for err.
func PublicCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal_error"
}

// FieldsOf returns field-level details if any.
func FieldsOf(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
