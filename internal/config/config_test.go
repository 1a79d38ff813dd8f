package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Translation.SourceLanguage != "en" {
		t.Errorf("SourceLanguage = %s, want en", cfg.Translation.SourceLanguage)
	}
	if cfg.Translation.MaxBatchItems != 100 {
		t.Errorf("MaxBatchItems = %d, want 100", cfg.Translation.MaxBatchItems)
	}
	if cfg.Translation.MaxBatchChars != 20000 {
		t.Errorf("MaxBatchChars = %d, want 20000", cfg.Translation.MaxBatchChars)
	}
	if cfg.Translation.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.Translation.MaxAttempts)
	}
	if cfg.Firestore.Enabled {
		t.Error("Firestore.Enabled = true, want false")
	}
	if cfg.Firestore.CredentialsCollection != "api_keys" {
		t.Errorf("CredentialsCollection = %s, want api_keys", cfg.Firestore.CredentialsCollection)
	}
	if cfg.RateLimit.RequestsPerSecond != 10 {
		t.Errorf("RequestsPerSecond = %f, want 10", cfg.RateLimit.RequestsPerSecond)
	}
	if cfg.TokenFile != "token.json" {
		t.Errorf("TokenFile = %s, want token.json", cfg.TokenFile)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("TARGET_LANGUAGE", "ja")
	t.Setenv("MAX_BATCH_ITEMS", "50")
	t.Setenv("FIRESTORE_ENABLED", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Translation.TargetLanguage != "ja" {
		t.Errorf("TargetLanguage = %s, want ja", cfg.Translation.TargetLanguage)
	}
	if cfg.Translation.MaxBatchItems != 50 {
		t.Errorf("MaxBatchItems = %d, want 50", cfg.Translation.MaxBatchItems)
	}
	if !cfg.Firestore.Enabled {
		t.Error("Firestore.Enabled = false, want true")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 7070
google:
  client_id: file-client-id
translation:
  source_language: fr
  target_language: de
  max_batch_chars: 5000
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Google.ClientID != "file-client-id" {
		t.Errorf("ClientID = %s, want file-client-id", cfg.Google.ClientID)
	}
	if cfg.Translation.SourceLanguage != "fr" {
		t.Errorf("SourceLanguage = %s, want fr", cfg.Translation.SourceLanguage)
	}
	if cfg.Translation.MaxBatchChars != 5000 {
		t.Errorf("MaxBatchChars = %d, want 5000", cfg.Translation.MaxBatchChars)
	}
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SERVER_PORT", "9999")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999 (env wins)", cfg.Server.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}
