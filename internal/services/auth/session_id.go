package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

func NewSessionID() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
