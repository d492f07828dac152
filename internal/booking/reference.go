package booking

import (
	"crypto/rand"
	"fmt"

	"fixam/internal/models"
)

const referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewReference generates a human-readable booking reference of the form
// FXM- followed by nine random base-36 uppercase characters.
func NewReference() (string, error) {
	buf := make([]byte, models.ReferenceLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate reference: %w", err)
	}
	for i, b := range buf {
		buf[i] = referenceAlphabet[int(b)%len(referenceAlphabet)]
	}
	return models.ReferencePrefix + string(buf), nil
}
