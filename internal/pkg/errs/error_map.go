package errs

import "net/http"

// errorMap holds the user-facing template for every error code.
var errorMap = map[int]CustomError{
	ErrInvalidParams:     {Code: ErrInvalidParams, Message: "Invalid event payload."},
	ErrInvalidJSONFormat: {Code: ErrInvalidJSONFormat, Message: "Malformed event."},
	ErrUnknownEventType:  {Code: ErrUnknownEventType, Message: "Unknown event type: %s."},

	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Content is too long (max %d bytes)."},

	ErrAuthRequired:    {Code: ErrAuthRequired, Message: "Authentication required", Status: http.StatusUnauthorized},
	ErrAuthFailed:      {Code: ErrAuthFailed, Message: "Authentication failed", Status: http.StatusUnauthorized},
	ErrInvalidResident: {Code: ErrInvalidResident, Message: "Invalid resident", Status: http.StatusForbidden},
	ErrSessionKicked:   {Code: ErrSessionKicked, Message: "Session replaced by a new connection"},
	ErrUnauthorized:    {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},

	ErrUnknown:          {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrProcessingFailed: {Code: ErrProcessingFailed, Message: "Failed to process event.", Status: http.StatusInternalServerError},
}
