/*
Package jwt decodes the HS256 credentials that residents present to the relay.

Decoding is local: the signature, the algorithm, the expiry and the shape of the resident id
are checked, and nothing else. Whether the resident exists is the identity verifier's job.
*/
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer identifies credentials minted for the relay.
const TokenIssuer = "plaza"

// ErrInvalidCredential is returned for every token that does not decode to a resident id.
var ErrInvalidCredential = errors.New("invalid credential")

// Decoder turns a signed token into a resident id.
type Decoder struct {
	secret []byte
}

// NewDecoder returns a Decoder verifying HMAC signatures with secret.
func NewDecoder(secret string) *Decoder {
	return &Decoder{secret: []byte(secret)}
}

// Decode validates tokenString and returns the resident id it carries.
// All failures wrap ErrInvalidCredential.
func (d *Decoder) Decode(tokenString string) (int64, error) {
	if tokenString == "" {
		return 0, fmt.Errorf("%w: empty token", ErrInvalidCredential)
	}

	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return d.secret, nil
	}, jwt.WithExpirationRequired(), jwt.WithIssuer(TokenIssuer))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}

	if !token.Valid {
		return 0, fmt.Errorf("%w: token not valid", ErrInvalidCredential)
	}

	if claims.ResidentID <= 0 {
		return 0, fmt.Errorf("%w: resident id %d out of range", ErrInvalidCredential, claims.ResidentID)
	}

	return claims.ResidentID, nil
}

// GenerateToken signs a credential for residentID valid for duration.
func GenerateToken(residentID int64, secret string, duration time.Duration) (string, error) {
	now := time.Now()

	claims := &Claims{
		ResidentID: residentID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    TokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(secret))
}
