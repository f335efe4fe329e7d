package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"plaza/internal/pkg/logx"
)

// ErrConflict is returned by stores when an insert hits an existing row.
var ErrConflict = errors.New("record already exists")

// CustomError carries a business code, a client-facing message and the matching HTTP status.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Message is the user-friendly error description.
	Message string

	// Status is the HTTP status used when the error is returned over HTTP.
	Status int
}

// Error implements the error interface.
func (e CustomError) Error() string {
	return fmt.Sprintf("error code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// NewError builds a *CustomError for a predefined code.
// details are printf arguments for message templates that contain verbs; an unknown code
// yields ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]
	if !ok {
		logx.Error(
			fmt.Errorf("error code %d is not registered", code),
			"Unknown error code requested",
			"requested_code", code,
		)
		templateErr = errorMap[ErrUnknown]
	}

	customErr := templateErr

	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	if len(details) > 0 {
		if strings.Contains(customErr.Message, "%") {
			customErr.Message = fmt.Sprintf(customErr.Message, details...)
		} else {
			logx.Warn("Details provided for an error without placeholders. Details ignored.", "code", code)
		}
	}

	return &customErr
}

// As extracts a *CustomError from err, falling back to ErrUnknown.
func As(err error) *CustomError {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr
	}
	return NewError(ErrUnknown)
}
