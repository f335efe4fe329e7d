//go:generate go run go.uber.org/mock/mockgen -source=verifier.go -destination=mocks/mock_directory.go -package=mocks
package resident

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidResident is returned when an id does not belong to an active resident.
// Unknown and suspended accounts are deliberately indistinguishable.
var ErrInvalidResident = errors.New("invalid resident")

// Directory is the identity store queried during authentication.
type Directory interface {
	// FindActiveResidentByID returns the active resident with the given id, or
	// ErrInvalidResident when there is none.
	FindActiveResidentByID(ctx context.Context, id int64) (Resident, error)
}

// Verifier checks a claimed resident id against the Directory.
// There is no caching: each connection attempt costs one directory round trip.
type Verifier struct {
	directory Directory
}

// NewVerifier returns a Verifier backed by directory.
func NewVerifier(directory Directory) *Verifier {
	return &Verifier{directory: directory}
}

// Verify returns the profile snapshot of the resident with the given id.
// It returns ErrInvalidResident for unknown or inactive residents and a wrapped error when the
// directory itself fails.
func (v *Verifier) Verify(ctx context.Context, id int64) (Resident, error) {
	if id <= 0 {
		return Resident{}, ErrInvalidResident
	}

	r, err := v.directory.FindActiveResidentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrInvalidResident) {
			return Resident{}, ErrInvalidResident
		}
		return Resident{}, fmt.Errorf("directory lookup for resident %d: %w", id, err)
	}

	return r, nil
}
