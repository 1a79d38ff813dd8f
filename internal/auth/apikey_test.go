package auth

import (
	"testing"

	"github.com/google/uuid"
)

func TestGenerateAPIKey(t *testing.T) {
	key1 := GenerateAPIKey()
	key2 := GenerateAPIKey()

	if key1 == "" {
		t.Fatal("expected non-empty API key")
	}
	if key1 == key2 {
		t.Error("expected unique API keys")
	}
	if _, err := uuid.Parse(key1); err != nil {
		t.Errorf("expected UUID-formatted key, got %q: %v", key1, err)
	}
}
