package auth

import "github.com/google/uuid"

// GenerateAPIKey generates a random API key in UUID v4 format.
func GenerateAPIKey() string {
	return uuid.NewString()
}
