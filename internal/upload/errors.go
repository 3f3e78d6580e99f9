package upload

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the standard upload error enumeration reported by the
// multipart layer. Values match the conventional numeric codes.
type ErrorCode int

const (
	CodeOK        ErrorCode = 0
	CodeIniSize   ErrorCode = 1
	CodeFormSize  ErrorCode = 2
	CodePartial   ErrorCode = 3
	CodeNoFile    ErrorCode = 4
	CodeNoTmpDir  ErrorCode = 6
	CodeCantWrite ErrorCode = 7
	CodeExtension ErrorCode = 8
)

func (c ErrorCode) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeIniSize:
		return "request exceeds server size limit"
	case CodeFormSize:
		return "file exceeds size limit"
	case CodePartial:
		return "partial upload"
	case CodeNoFile:
		return "no file"
	case CodeNoTmpDir:
		return "missing temporary directory"
	case CodeCantWrite:
		return "failed to write temporary file"
	case CodeExtension:
		return "upload stopped by extension"
	default:
		return "unknown"
	}
}

// Kind classifies a terminal request failure.
type Kind int

const (
	KindInputAbsent Kind = iota + 1
	KindUploadTransport
	KindDirectoryMissing
	KindPersist
	KindProcessing
)

func (k Kind) String() string {
	switch k {
	case KindInputAbsent:
		return "input_absent"
	case KindUploadTransport:
		return "upload_transport"
	case KindDirectoryMissing:
		return "directory_missing"
	case KindPersist:
		return "persist_failure"
	case KindProcessing:
		return "processing_failure"
	default:
		return "unknown"
	}
}

// Message is the user facing text for the kind. KindUploadTransport
// messages also carry the code, see Error.Message.
func (k Kind) Message() string {
	switch k {
	case KindInputAbsent:
		return "No upload provided."
	case KindUploadTransport:
		return "Upload error"
	case KindDirectoryMissing:
		return "Upload directory not found."
	case KindPersist:
		return "Error saving uploaded file. Check folder permissions."
	case KindProcessing:
		return "Video processing failed."
	default:
		return "Unexpected error."
	}
}

// Status maps the kind onto an HTTP status code: client mistakes are 400,
// everything else 500.
func (k Kind) Status() int {
	switch k {
	case KindInputAbsent, KindUploadTransport:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is the single error type returned by the upload pipeline.
type Error struct {
	Kind Kind
	Code ErrorCode
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Kind == KindUploadTransport {
		msg = fmt.Sprintf("%s: code %d", msg, e.Code)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same kind, so errors.Is(err, ErrPersist) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == CodeOK || t.Code == e.Code)
}

// Message renders the user facing text for this error.
func (e *Error) Message() string {
	if e.Kind == KindUploadTransport {
		return fmt.Sprintf("%s: %d (%s)", e.Kind.Message(), e.Code, e.Code)
	}
	return e.Kind.Message()
}

var (
	ErrInputAbsent      = &Error{Kind: KindInputAbsent}
	ErrUploadTransport  = &Error{Kind: KindUploadTransport}
	ErrDirectoryMissing = &Error{Kind: KindDirectoryMissing}
	ErrPersist          = &Error{Kind: KindPersist}
	ErrProcessing       = &Error{Kind: KindProcessing}
)

// KindOf extracts the Kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
