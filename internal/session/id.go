package session

import (
	"strings"

	polarisErrors "github.com/harunnryd/polaris/internal/errors"

	"github.com/oklog/ulid/v2"
)

// MaxIDLength bounds client-supplied session ids.
const MaxIDLength = 128

// NewID returns a server-generated session id.
func NewID() string {
	return ulid.Make().String()
}

// ResolveID returns the trimmed client id, or a fresh one when it is blank.
// Client ids are opaque but must be at most MaxIDLength characters from
// [A-Za-z0-9._:-].
func ResolveID(requested string) (string, error) {
	id := strings.TrimSpace(requested)
	if id == "" {
		return NewID(), nil
	}
	if err := ValidateID(id); err != nil {
		return "", err
	}
	return id, nil
}

func ValidateID(id string) error {
	if id == "" || len(id) > MaxIDLength {
		return polarisErrors.InvalidInput("Invalid sessionId.")
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '_', r == ':', r == '-':
		default:
			return polarisErrors.InvalidInput("Invalid sessionId.")
		}
	}
	return nil
}
