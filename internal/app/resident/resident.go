/*
Package resident holds the identity of an authenticated resident and the verifier that
resolves a claimed resident id against the directory.
*/
package resident

// Resident is the identity and profile snapshot of an authenticated resident.
// It is captured once when the connection authenticates and is not refreshed afterwards,
// so profile edits show up on the next connection.
type Resident struct {
	// ID is the directory id of the resident. Always positive.
	ID int64 `json:"id"`

	// Login is the resident's unique login name.
	Login string `json:"login"`

	// DisplayName is the name shown to other residents.
	DisplayName string `json:"displayName"`

	// Email is kept for the lifetime of the session and never sent to other residents.
	Email string `json:"-"`
}
