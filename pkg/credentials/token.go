package credentials

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// GenerateActivationCode generates a cryptographically secure, URL-safe
// opaque code for account activation and password reset links.
func GenerateActivationCode() (string, error) {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate activation code: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
