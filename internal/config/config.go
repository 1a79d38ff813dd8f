// Package config loads the flat pipeline configuration from a YAML file and
// the environment.
package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config is the flat configuration passed into the pipeline and its
// collaborators.
type Config struct {
	Server struct {
		Port           int      `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
		AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS"`
	} `yaml:"server"`

	Google struct {
		ProjectID    string `yaml:"project_id" env:"GOOGLE_PROJECT_ID"`
		ClientID     string `yaml:"client_id" env:"GOOGLE_CLIENT_ID"`
		ClientSecret string `yaml:"client_secret" env:"GOOGLE_CLIENT_SECRET"`
		RedirectURI  string `yaml:"redirect_uri" env:"GOOGLE_REDIRECT_URI"`
		// When set, client credentials are loaded from Secret Manager
		// instead of the fields above.
		ClientIDSecret     string `yaml:"client_id_secret" env:"GOOGLE_CLIENT_ID_SECRET"`
		ClientSecretSecret string `yaml:"client_secret_secret" env:"GOOGLE_CLIENT_SECRET_SECRET"`
		RedirectURISecret  string `yaml:"redirect_uri_secret" env:"GOOGLE_REDIRECT_URI_SECRET"`
	} `yaml:"google"`

	Translation struct {
		SourceLanguage string `yaml:"source_language" env:"SOURCE_LANGUAGE" env-default:"en"`
		TargetLanguage string `yaml:"target_language" env:"TARGET_LANGUAGE"`
		MaxBatchItems  int    `yaml:"max_batch_items" env:"MAX_BATCH_ITEMS" env-default:"100"`
		MaxBatchChars  int    `yaml:"max_batch_chars" env:"MAX_BATCH_CHARS" env-default:"20000"`
		MaxAttempts    int    `yaml:"max_attempts" env:"MAX_ATTEMPTS" env-default:"3"`
		MemoryEntries  int    `yaml:"memory_entries" env:"MEMORY_ENTRIES" env-default:"10000"`
	} `yaml:"translation"`

	Firestore struct {
		Enabled               bool   `yaml:"enabled" env:"FIRESTORE_ENABLED" env-default:"false"`
		CredentialsCollection string `yaml:"credentials_collection" env:"FIRESTORE_CREDENTIALS_COLLECTION" env-default:"api_keys"`
		RecoveryCollection    string `yaml:"recovery_collection" env:"FIRESTORE_RECOVERY_COLLECTION" env-default:"translation_recovery"`
	} `yaml:"firestore"`

	RateLimit struct {
		RequestsPerSecond float64 `yaml:"requests_per_second" env:"RATE_LIMIT_RPS" env-default:"10"`
		BurstSize         int     `yaml:"burst_size" env:"RATE_LIMIT_BURST" env-default:"20"`
	} `yaml:"rate_limit"`

	TokenFile string `yaml:"token_file" env:"TOKEN_FILE" env-default:"token.json"`
}

// Load reads configuration from the optional YAML file at path, with
// environment variables taking precedence. A .env file in the working
// directory is honored when present.
func Load(path string) (*Config, error) {
	// Missing .env files are fine; explicit config files are not.
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment config: %w", err)
	}
	return &cfg, nil
}
