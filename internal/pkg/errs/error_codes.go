/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific protocol or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrInvalidJSONFormat indicates that an inbound frame is not valid JSON.
	ErrInvalidJSONFormat = 1003

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007

	// ErrMalformedPayload indicates that an event payload is structurally invalid
	// (bad state path, scalar traversal, unknown update type, bad activity status).
	ErrMalformedPayload = 1008

	// ErrUnsupportedEvent indicates that the client sent an event type the server does not handle.
	ErrUnsupportedEvent = 1009
)

// 2xxx: Room and Content Errors
const (
	// ErrRoomNotFound indicates that the referenced room does not exist.
	ErrRoomNotFound = 2103

	// ErrNotMember indicates that the connection is not a member of the referenced room.
	ErrNotMember = 2105

	// ErrRoomIDInvalid indicates that a client-supplied room id failed validation.
	ErrRoomIDInvalid = 2106

	// ErrMessageContentTooLong indicates that the user's message content exceeded the maximum length limit.
	ErrMessageContentTooLong = 2201

	// ErrMessageContentEmpty indicates that a chat message had no content after trimming.
	ErrMessageContentEmpty = 2202
)

// 3xxx: Identity, Session, and Security Errors
const (
	// ErrSessionKicked indicates that the membership held by this connection was taken over by another connection.
	ErrSessionKicked = 3004

	// ErrUnauthenticated indicates that a room-scoped event arrived on a connection with no bound identity.
	ErrUnauthenticated = 3005

	// ErrInvalidToken indicates that a signed identity token could not be verified.
	ErrInvalidToken = 3006
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrServerShuttingDown indicates the coordinator is no longer accepting work.
	ErrServerShuttingDown = 5001
)
