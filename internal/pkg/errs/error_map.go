/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses, WebSocket error frames, and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:     {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrInvalidJSONFormat: {Code: ErrInvalidJSONFormat, Message: "Unsupported message format.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrMalformedPayload:  {Code: ErrMalformedPayload, Message: "Malformed payload: %s", Status: http.StatusBadRequest},
	ErrUnsupportedEvent:  {Code: ErrUnsupportedEvent, Message: "Unsupported event type: %s", Status: http.StatusBadRequest},

	// 2xxx: Room and Content Errors
	ErrRoomNotFound:          {Code: ErrRoomNotFound, Message: "Room not found.", Status: http.StatusNotFound},
	ErrNotMember:             {Code: ErrNotMember, Message: "You are not a member of this room."},
	ErrRoomIDInvalid:         {Code: ErrRoomIDInvalid, Message: "Invalid room id."},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long."},
	ErrMessageContentEmpty:   {Code: ErrMessageContentEmpty, Message: "Message is empty."},

	// 3xxx: Identity, Session, and Security Errors
	ErrSessionKicked:   {Code: ErrSessionKicked, Message: "You joined this room from another connection."},
	ErrUnauthenticated: {Code: ErrUnauthenticated, Message: "Please authenticate first.", Status: http.StatusUnauthorized},
	ErrInvalidToken:    {Code: ErrInvalidToken, Message: "Identity token is invalid or expired.", Status: http.StatusUnauthorized},

	// 5xxx: Internal System Errors
	ErrUnknown:            {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrServerShuttingDown: {Code: ErrServerShuttingDown, Message: "Server is shutting down. Please reconnect.", Status: http.StatusServiceUnavailable},
}
