// internal/invitation/token.go
package invitation

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// tokenBytes of entropy per invitation token. 32 bytes encodes to a 43
// character URL-safe string.
const tokenBytes = 32

// NewToken returns a high-entropy, URL-safe, single-use invitation token.
func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate invitation token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
