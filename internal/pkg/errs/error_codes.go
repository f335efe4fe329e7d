/*
Package errs provides the application error type and the business error codes shared by the
HTTP surface and the WebSocket event stream.
*/
package errs

// 1xxx: Request and event format errors
const (
	// ErrInvalidParams indicates that an event payload or request parameter failed validation.
	ErrInvalidParams = 1001

	// ErrInvalidJSONFormat indicates that an inbound frame is not a well-formed event envelope.
	ErrInvalidJSONFormat = 1003

	// ErrUnknownEventType indicates that an inbound event declared a type the relay does not handle.
	ErrUnknownEventType = 1008
)

// 2xxx: Content errors
const (
	// ErrMessageContentTooLong indicates that chat or comment content exceeded the length limit.
	ErrMessageContentTooLong = 2201
)

// 3xxx: Authentication and session errors
const (
	// ErrAuthRequired indicates that the connection request carried no credential.
	ErrAuthRequired = 3001

	// ErrAuthFailed indicates that the credential could not be decoded or checked.
	ErrAuthFailed = 3002

	// ErrInvalidResident indicates that the credential names an unknown or inactive resident.
	ErrInvalidResident = 3003

	// ErrSessionKicked indicates that a newer connection for the same resident replaced this one.
	ErrSessionKicked = 3004

	// ErrUnauthorized indicates that an HTTP request needs a valid bearer token.
	ErrUnauthorized = 3005
)

// 5xxx: Internal errors
const (
	// ErrUnknown represents an unclassified internal error.
	ErrUnknown = 5000

	// ErrProcessingFailed indicates that an event could not be persisted and was dropped.
	ErrProcessingFailed = 5001
)
