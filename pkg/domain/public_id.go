package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"

	dErrors "github.com/sr13dr31/belyispisok/pkg/domain-errors"
)

// PublicID is the human-shareable identifier printed on profiles and typed
// into lookups: a role prefix, a hyphen, and six ASCII digits (M-123456,
// C-654321). Public IDs are globally unique across Workers and Companies and
// immutable once assigned.
type PublicID string

// Role prefixes for the shared public-id space.
const (
	PublicPrefixWorker  = 'M'
	PublicPrefixCompany = 'C'
)

const publicIDDigits = 6

// ParsePublicID validates the structural format at trust boundaries. It does
// not check existence, only shape.
func ParsePublicID(s string) (PublicID, error) {
	if len(s) != publicIDDigits+2 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "public id must look like M-123456 or C-123456")
	}
	if s[0] != PublicPrefixWorker && s[0] != PublicPrefixCompany {
		return "", dErrors.New(dErrors.CodeInvalidInput, "public id must start with M or C")
	}
	if s[1] != '-' {
		return "", dErrors.New(dErrors.CodeInvalidInput, "public id must look like M-123456 or C-123456")
	}
	for _, c := range s[2:] {
		if c < '0' || c > '9' {
			return "", dErrors.New(dErrors.CodeInvalidInput, "public id suffix must be six digits")
		}
	}
	return PublicID(s), nil
}

// FormatPublicID assembles a public id from a role prefix and a digit suffix.
func FormatPublicID(prefix byte, digits string) PublicID {
	return PublicID(fmt.Sprintf("%c-%s", prefix, digits))
}

// RandomPublicID draws a candidate id with a uniformly random six-digit
// suffix. Callers must check the shared id space for collisions before
// accepting a candidate.
func RandomPublicID(prefix byte) (PublicID, error) {
	max := big.NewInt(1)
	for i := 0; i < publicIDDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("draw public id suffix: %w", err)
	}
	return PublicID(fmt.Sprintf("%c-%06d", prefix, n.Int64())), nil
}

func (p PublicID) String() string { return string(p) }

// IsWorker reports whether the id belongs to the worker prefix space.
func (p PublicID) IsWorker() bool { return len(p) > 0 && p[0] == PublicPrefixWorker }

// IsCompany reports whether the id belongs to the company prefix space.
func (p PublicID) IsCompany() bool { return len(p) > 0 && p[0] == PublicPrefixCompany }
