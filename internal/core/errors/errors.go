package errors

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeDecode            ErrorCode = "DECODE_ERROR"
	CodeManifestRead      ErrorCode = "MANIFEST_READ_ERROR"
	CodeClassResolution   ErrorCode = "CLASS_RESOLUTION_ERROR"
	CodeValidationError   ErrorCode = "VALIDATION_ERROR"
	CodeTimeout           ErrorCode = "TIMEOUT"
	CodeInternal          ErrorCode = "INTERNAL_ERROR"
	CodeClasspathWarning  ErrorCode = "CLASSPATH_WARNING"
	CodePermissionDenied  ErrorCode = "PERMISSION_DENIED"
	CodeFrozen            ErrorCode = "FROZEN"
	CodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
)

type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}

	// origin is the error a copy was made from, so errors.Is still
	// matches sentinels after AddContext.
	origin *DomainError
}

const (
	CtxPath      = "path"
	CtxLocation  = "location"
	CtxOperation = "operation"
	CtxClass     = "class"
	CtxEntry     = "entry"
)

func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) > 0 {
		msg += fmt.Sprintf(" %v", e.Context)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && e.origin != nil && e.origin == t
}

func (e *DomainError) clone() *DomainError {
	out := *e
	out.Context = make(map[string]interface{}, len(e.Context)+1)
	for k, v := range e.Context {
		out.Context[k] = v
	}
	if e.origin == nil {
		out.origin = e
	}
	return &out
}

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

// AddContext returns a copy of the first DomainError in err's chain with
// the key/value pair attached; err itself is left untouched. Foreign errors
// are wrapped as internal.
func AddContext(err error, key string, value interface{}) error {
	var de *DomainError
	if errors.As(err, &de) {
		return de.clone().WithContext(key, value)
	}
	return &DomainError{
		Code:    CodeInternal,
		Message: "wrapped error",
		Err:     err,
		Context: map[string]interface{}{key: value},
	}
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost DomainError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code, true
	}
	return "", false
}

// NotFound reports an explicit import root that does not exist or cannot be read.
func NotFound(path string, err error) error {
	de := &DomainError{Code: CodeNotFound, Message: fmt.Sprintf("import root %q not found", path), Err: err}
	return de.WithContext(CtxPath, path)
}

// Decode reports class bytes the decoder rejected.
func Decode(location string, err error) error {
	de := &DomainError{Code: CodeDecode, Message: "cannot decode class file", Err: err}
	return de.WithContext(CtxLocation, location)
}

// ManifestRead reports an unreadable or malformed archive manifest.
func ManifestRead(path string, err error) error {
	de := &DomainError{Code: CodeManifestRead, Message: "cannot read manifest", Err: err}
	return de.WithContext(CtxPath, path)
}

// ClassResolution reports a single requested type that no location provides.
func ClassResolution(name string) error {
	de := &DomainError{Code: CodeClassResolution, Message: fmt.Sprintf("cannot locate class %s", name)}
	return de.WithContext(CtxClass, name)
}

// ClasspathWarning reports a skipped classpath entry.
func ClasspathWarning(path string, err error) error {
	de := &DomainError{Code: CodeClasspathWarning, Message: "skipping classpath entry", Err: err}
	return de.WithContext(CtxPath, path)
}
