package jwt

import "github.com/golang-jwt/jwt/v5"

// Claims is the credential presented by a resident when opening a relay connection.
// Issuance happens outside the relay; the relay only trusts the resident id once the
// signature and expiry check out.
type Claims struct {
	// ResidentID is the numeric id of the resident in the directory.
	ResidentID int64 `json:"resident_id"`

	jwt.RegisteredClaims
}
