package vfs

import "errors"

// Error is a domain error from file system operations.
//
// These are business-logic conditions (path absent, create collision,
// read-only namespace, ...) as opposed to infrastructure failures. Callers
// inspect the Code to decide how to present the failure; Path carries the
// offending location for messaging and debugging.
type Error struct {
	// Code is the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Path is the file system path related to the error, if any.
	Path string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// ErrorCode represents the category of a file system error.
type ErrorCode int

const (
	// ErrNotFound indicates the requested path does not exist.
	ErrNotFound ErrorCode = iota

	// ErrConflict indicates a create-only operation collided with an
	// existing active path.
	ErrConflict

	// ErrInvalidTarget indicates a destination that is missing, not a
	// directory, or otherwise unusable for the operation.
	ErrInvalidTarget

	// ErrReadOnly indicates a mutation was attempted against the virtual
	// namespace.
	ErrReadOnly

	// ErrStorageUnavailable indicates the underlying content store
	// rejected the operation (quota, denied access, closed connection).
	// Transient cases are retried once before this surfaces.
	ErrStorageUnavailable

	// ErrMigration indicates a schema migration step failed. The index
	// keeps serving the pre-migration snapshot when this happens.
	ErrMigration
)

// String returns the stable identifier for the code, used in logs and
// metric labels.
func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "not_found"
	case ErrConflict:
		return "conflict"
	case ErrInvalidTarget:
		return "invalid_target"
	case ErrReadOnly:
		return "read_only"
	case ErrStorageUnavailable:
		return "storage_unavailable"
	case ErrMigration:
		return "migration"
	default:
		return "unknown"
	}
}

// NotFound builds an ErrNotFound error for path.
func NotFound(path string) error {
	return &Error{Code: ErrNotFound, Message: "no such file or folder", Path: path}
}

// Conflict builds an ErrConflict error for path.
func Conflict(path string) error {
	return &Error{Code: ErrConflict, Message: "path already exists", Path: path}
}

// InvalidTarget builds an ErrInvalidTarget error for path.
func InvalidTarget(path, why string) error {
	return &Error{Code: ErrInvalidTarget, Message: why, Path: path}
}

// ReadOnly builds an ErrReadOnly error for path.
func ReadOnly(path string) error {
	return &Error{Code: ErrReadOnly, Message: "virtual namespace is read-only", Path: path}
}

// StorageUnavailable wraps an infrastructure failure from the content
// layer. The cause is kept in Message for logging; the metadata index is
// guaranteed untouched when this is returned from a create.
func StorageUnavailable(path string, cause error) error {
	msg := "storage unavailable"
	if cause != nil {
		msg += ": " + cause.Error()
	}
	return &Error{Code: ErrStorageUnavailable, Message: msg, Path: path}
}

// CodeOf extracts the ErrorCode from err, unwrapping as needed.
func CodeOf(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}
