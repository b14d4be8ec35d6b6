package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Local errors
var (
	ErrFileAccess = errors.New("fileops: could not read file")
	ErrTooSmall   = errors.New("fileops: file is too small to fingerprint")

	ErrEmptyRequest              = errors.New("opensubtitles: no usable fingerprint in request")
	ErrMandatoryParameterMissing = errors.New("opensubtitles: mandatory parameter missing")
)

// Transport errors
var (
	ErrTimeout            = errors.New("opensubtitles: request timed out")
	ErrServiceUnavailable = errors.New("opensubtitles: service unavailable")
	ErrNetwork            = errors.New("opensubtitles: network error")

	// ErrSessionTimeout is returned when the login call times out. It also matches ErrTimeout.
	ErrSessionTimeout = fmt.Errorf("session: login timed out: %w", ErrTimeout)
)

// Remote status errors
var (
	ErrUnauthorized         = errors.New("opensubtitles: unauthorized")
	ErrNoSession            = errors.New("opensubtitles: no session")
	ErrDownloadLimitReached = errors.New("opensubtitles: download limit reached")
	ErrInvalidParameters    = errors.New("opensubtitles: invalid parameters")
	ErrMethodNotFound       = errors.New("opensubtitles: method not found")
	ErrUnknownRemote        = errors.New("opensubtitles: unknown remote error")
	ErrInvalidUserAgent     = errors.New("opensubtitles: invalid user agent")
	ErrDisabledUserAgent    = errors.New("opensubtitles: disabled user agent")
	ErrInvalidResultShape   = errors.New("opensubtitles: invalid result shape")

	// ErrService is the catch-all for remote failures with no dedicated error.
	ErrService = errors.New("opensubtitles: service error")
)

// StatusOK is the status line of a successful reply.
const StatusOK = "200 OK"

var statusErrors = map[string]error{
	"401": ErrUnauthorized,
	"405": ErrMandatoryParameterMissing,
	"406": ErrNoSession,
	"407": ErrDownloadLimitReached,
	"408": ErrInvalidParameters,
	"409": ErrMethodNotFound,
	"410": ErrUnknownRemote,
	"411": ErrInvalidUserAgent,
	"415": ErrDisabledUserAgent,
}

// StatusError is a non-200 status line returned by the service.
type StatusError struct {
	Code   string // e.g. "401"
	Status string // the raw status line, e.g. "401 Unauthorized"
	Err    error  // one of the sentinel errors above
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v (%s)", e.Err, e.Status)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// FromStatus maps a status line ("<code> <text>") to an error. It returns nil
// for code 200.
func FromStatus(status string) error {
	status = strings.TrimSpace(status)
	if status == "" {
		return &StatusError{Status: "unknown error (empty status)", Err: ErrService}
	}
	code, _, _ := strings.Cut(status, " ")
	if code == "200" {
		return nil
	}
	err, ok := statusErrors[code]
	if !ok {
		err = ErrService
	}
	return &StatusError{Code: code, Status: status, Err: err}
}
