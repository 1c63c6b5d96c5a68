package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so callers at the edge (HTTP, CLI) can map it
// to a response without inspecting messages.
type ErrorKind string

const (
	// KindValidation marks malformed input: bad names, bad paths, bad refs.
	KindValidation ErrorKind = "validation"
	// KindNotFound marks a missing repository, branch, path or object.
	KindNotFound ErrorKind = "not_found"
	// KindConflict marks a create that lost to an existing repository or branch.
	KindConflict ErrorKind = "conflict"
	// KindIO marks a storage failure underneath the object store.
	KindIO ErrorKind = "io"
	// KindInternal marks anything unexpected.
	KindInternal ErrorKind = "internal"
)

// Sentinel errors shared across packages. Each carries a kind through Error so
// errors.Is and KindOf agree.
var (
	ErrInvalidName        = &Error{Kind: KindValidation, Message: "invalid repository name"}
	ErrInvalidPath        = &Error{Kind: KindValidation, Message: "invalid path"}
	ErrInvalidBranchName  = &Error{Kind: KindValidation, Message: "invalid branch name"}
	ErrNotAFile           = &Error{Kind: KindValidation, Message: "is a directory, not a file"}
	ErrRepositoryNotFound = &Error{Kind: KindNotFound, Message: "repository not found"}
	ErrBranchNotFound     = &Error{Kind: KindNotFound, Message: "branch not found"}
	ErrRepositoryEmpty    = &Error{Kind: KindNotFound, Message: "repository is empty"}
	ErrPathNotFound       = &Error{Kind: KindNotFound, Message: "path not found"}
	ErrObjectNotFound     = &Error{Kind: KindNotFound, Message: "object not found"}
	ErrRepositoryExists   = &Error{Kind: KindConflict, Message: "repository already exists"}
	ErrBranchExists       = &Error{Kind: KindConflict, Message: "branch already exists"}
)

// Error is a classified failure with the operation that produced it.
type Error struct {
	Op      string    // Operation that failed, e.g. "browse.list".
	Kind    ErrorKind // Failure class.
	Message string    // Human-readable reason, safe to show to clients.
	Err     error     // Underlying error, if any.
}

// Error formats the error as "op: message: cause".
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}

	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}

	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel with the same kind and message, so a
// wrapped copy produced by Wrap still matches the sentinel it was derived from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return e.Kind == t.Kind && e.Message == t.Message
}

// Wrap returns a copy of the sentinel annotated with an operation, an optional
// detail appended to the message and an optional cause.
//
// Parameters:
//   - sentinel: One of the package sentinels (ErrBranchNotFound, ...).
//   - op: Operation name.
//   - detail: Extra context, e.g. the offending name. May be empty.
//   - cause: Underlying error. May be nil.
//
// Returns:
//   - error: *Error that matches sentinel with errors.Is.
func Wrap(sentinel *Error, op, detail string, cause error) error {
	err := &Error{
		Op:      op,
		Kind:    sentinel.Kind,
		Message: sentinel.Message,
		Err:     cause,
	}

	if detail != "" {
		err.Err = detailError{detail: detail, cause: cause}
	}

	return err
}

// NewError builds an unclassified error of the given kind.
func NewError(kind ErrorKind, op, message string, cause error) error {
	return &Error{Op: op, Kind: kind, Message: message, Err: cause}
}

// IOError wraps a storage failure.
func IOError(op string, cause error) error {
	return &Error{Op: op, Kind: KindIO, Message: "storage failure", Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain, KindInternal when
// there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindInternal
}

// MessageOf returns the client-safe message of the first *Error in err's chain.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if d, ok := e.Err.(detailError); ok {
			return e.Message + ": " + d.detail
		}

		return e.Message
	}

	return "internal error"
}

// IsNotFound reports whether err is of kind KindNotFound.
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

// IsValidation reports whether err is of kind KindValidation.
func IsValidation(err error) bool {
	return err != nil && KindOf(err) == KindValidation
}

// IsConflict reports whether err is of kind KindConflict.
func IsConflict(err error) bool {
	return err != nil && KindOf(err) == KindConflict
}

// detailError carries the detail text of a wrapped sentinel in front of its cause.
type detailError struct {
	detail string
	cause  error
}

func (d detailError) Error() string {
	if d.cause != nil {
		return d.detail + ": " + d.cause.Error()
	}

	return d.detail
}

func (d detailError) Unwrap() error {
	return d.cause
}
