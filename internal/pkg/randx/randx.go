/*
Package randx generates identifiers used by the relay for connections and outbound events.
*/
package randx

import "github.com/google/uuid"

// ConnectionID returns a fresh identifier for a transport connection. It only appears in logs.
func ConnectionID() string {
	return uuid.NewString()
}

// EventID returns a unique identifier for an outbound event envelope.
func EventID() string {
	return uuid.NewString()
}
