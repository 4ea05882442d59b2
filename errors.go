package a2ui

import (
	"errors"
	"fmt"
)

// Sentinel errors for session operations.
var (
	ErrNotFound          = errors.New("a2ui: not found")
	ErrSurfaceNotFound   = fmt.Errorf("%w: surface", ErrNotFound)
	ErrPathNotFound      = fmt.Errorf("%w: path", ErrNotFound)
	ErrPathConflict      = errors.New("a2ui: path conflict")
	ErrInvalidPath       = errors.New("a2ui: invalid path")
	ErrInvalidSurfaceID  = errors.New("a2ui: invalid surface id")
	ErrInvalidMessage    = errors.New("a2ui: invalid server message")
	ErrMalformedEnvelope = errors.New("a2ui: envelope carries both userAction and error")
	ErrSurfaceClosed     = errors.New("a2ui: surface torn down")
	ErrSessionClosed     = errors.New("a2ui: session closed")
)

// ErrorCode values populate the "code" key of error payloads raised by this
// package.
const (
	CodeUnknownSurface    = "unknownSurface"
	CodePathConflict      = "pathConflict"
	CodeInvalidPath       = "invalidPath"
	CodeInvalidMessage    = "invalidMessage"
	CodeSubscriberFailure = "subscriberFailure"
	CodeSessionClosed     = "sessionClosed"
)

// IsNotFound checks if err is any not-found error (surface or path).
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsPathConflict checks if err is a path resolution conflict.
func IsPathConflict(err error) bool {
	return errors.Is(err, ErrPathConflict)
}

// PathError records a failed path resolution within a surface.
type PathError struct {
	SurfaceID string
	Path      string
	Reason    string
	Err       error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%v: surface %q path %q: %s", e.Err, e.SurfaceID, e.Path, e.Reason)
}

func (e *PathError) Unwrap() error { return e.Err }

// Payload converts the error into an ErrorPayload for the error channel.
func (e *PathError) Payload() ErrorPayload {
	code := CodePathConflict
	switch {
	case errors.Is(e.Err, ErrInvalidPath):
		code = CodeInvalidPath
	case errors.Is(e.Err, ErrNotFound):
		code = CodeUnknownSurface
	}
	return ErrorPayload{
		"code":      code,
		"message":   e.Error(),
		"surfaceId": e.SurfaceID,
		"path":      e.Path,
		"conflict":  e.Reason,
	}
}

// errorPayload builds a payload for a failure that is not a PathError.
func errorPayload(code string, err error, kv ...any) ErrorPayload {
	p := ErrorPayload{
		"code":    code,
		"message": err.Error(),
	}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			p[k] = kv[i+1]
		}
	}
	return p
}

// payloadFor picks the richest payload for err.
func payloadFor(err error, code string, kv ...any) ErrorPayload {
	var pe *PathError
	if errors.As(err, &pe) {
		return pe.Payload()
	}
	if errors.Is(err, ErrNotFound) {
		code = CodeUnknownSurface
	}
	return errorPayload(code, err, kv...)
}
