// Command gslides-translator translates Google Slides presentations. It
// duplicates the source presentation, translates its unique strings through
// Google Cloud Translation, and writes the translations into the duplicate.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/eprouveze/gslides-translator/internal/auth"
	"github.com/eprouveze/gslides-translator/internal/cache"
	"github.com/eprouveze/gslides-translator/internal/config"
	"github.com/eprouveze/gslides-translator/internal/jobs"
	"github.com/eprouveze/gslides-translator/internal/middleware"
	"github.com/eprouveze/gslides-translator/internal/pipeline"
	"github.com/eprouveze/gslides-translator/internal/ratelimit"
	"github.com/eprouveze/gslides-translator/internal/retry"
	"github.com/eprouveze/gslides-translator/internal/slides"
	"github.com/eprouveze/gslides-translator/internal/translate"
	"github.com/eprouveze/gslides-translator/internal/transport"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var verbose bool

	root := &cobra.Command{
		Use:           "gslides-translator",
		Short:         "Translate Google Slides presentations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newTranslateCmd(&configPath))
	root.AddCommand(newServeCmd(&configPath))
	return root
}

func newTranslateCmd(configPath *string) *cobra.Command {
	var presentationID, sourceLang, targetLang string

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate a presentation and print the result link",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if sourceLang == "" {
				sourceLang = cfg.Translation.SourceLanguage
			}
			if targetLang == "" {
				targetLang = cfg.Translation.TargetLanguage
			}
			if targetLang == "" {
				return fmt.Errorf("target language is required (--target)")
			}
			if _, err := translate.ParseLanguage(targetLang); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			oauthCfg, err := loadOAuthConfig(ctx, cfg)
			if err != nil {
				return err
			}

			flow := auth.NewLocalFlow(*oauthCfg, cfg.TokenFile, slog.Default())
			tokenSource, err := flow.TokenSource(ctx)
			if err != nil {
				return fmt.Errorf("failed to obtain credentials: %w", err)
			}

			logger := slog.Default()
			memory := cache.NewTranslationMemory(cfg.Translation.MemoryEntries, logger)
			progress := pipeline.NewProgress()
			driver := newDriver(cfg, sourceLang, targetLang, tokenSource, memory, nil, progress, logger)

			done := make(chan struct{})
			var link string
			var runErr error
			go func() {
				defer close(done)
				link, runErr = driver.Run(ctx, presentationID)
			}()

			reportProgress(done, progress)
			if runErr != nil {
				return runErr
			}

			fmt.Printf("Translated presentation: %s\n", link)
			return nil
		},
	}

	cmd.Flags().StringVarP(&presentationID, "presentation", "p", "", "source presentation ID")
	cmd.Flags().StringVarP(&sourceLang, "source", "s", "", "source language code (default from config)")
	cmd.Flags().StringVarP(&targetLang, "target", "t", "", "target language code")
	cmd.MarkFlagRequired("presentation")
	return cmd
}

// reportProgress prints new log lines and the percentage until the pipeline
// finishes. Snapshots may lag the driver; that is fine for display.
func reportProgress(done <-chan struct{}, progress *pipeline.Progress) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	printed := 0
	flush := func() {
		snapshot := progress.Snapshot()
		for ; printed < len(snapshot.Log); printed++ {
			fmt.Printf("[%3d%%] %s\n", snapshot.Percent, snapshot.Log[printed])
		}
	}

	for {
		select {
		case <-done:
			flush()
			return
		case <-ticker.C:
			flush()
		}
	}
}

func newServeCmd(configPath *string) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the translation job HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := slog.Default()

			oauthCfg, err := loadOAuthConfig(ctx, cfg)
			if err != nil {
				return err
			}
			authHandler := auth.NewHandler(*oauthCfg, logger)

			memory := cache.NewTranslationMemory(cfg.Translation.MemoryEntries, logger)
			registry := jobs.NewRegistry(logger)

			var recovery *jobs.FirestoreRecoveryStore
			var credStore auth.CredentialStore
			if cfg.Firestore.Enabled {
				credStore, err = auth.NewFirestoreCredentialStore(ctx, cfg.Google.ProjectID, cfg.Firestore.CredentialsCollection)
				if err != nil {
					return err
				}
				defer credStore.Close()

				recovery, err = jobs.NewFirestoreRecoveryStore(ctx, cfg.Google.ProjectID, cfg.Firestore.RecoveryCollection)
				if err != nil {
					return err
				}
				defer recovery.Close()

				// Completing the OAuth flow mints an API key bound to the
				// refresh token.
				authHandler.SetOnTokenFunc(func(ctx context.Context, token *oauth2.Token) error {
					if token.RefreshToken == "" {
						return fmt.Errorf("no refresh token granted; re-run the authorization flow")
					}
					apiKey := auth.GenerateAPIKey()
					if err := credStore.Store(ctx, &auth.CredentialRecord{
						APIKey:       apiKey,
						RefreshToken: token.RefreshToken,
						CreatedAt:    time.Now(),
						LastUsed:     time.Now(),
					}); err != nil {
						return err
					}
					logger.Info("API key issued", slog.String("api_key", apiKey))
					return nil
				})
			}

			start := func(jobCtx context.Context, job *jobs.Job, tokenSource oauth2.TokenSource) {
				sourceLang := job.SourceLang
				if sourceLang == "" {
					sourceLang = cfg.Translation.SourceLanguage
				}
				var jobRecovery pipeline.RecoveryStore
				if recovery != nil {
					jobRecovery = recovery.ForJob(job.ID)
				}
				driver := newDriver(cfg, sourceLang, job.TargetLang, tokenSource, memory, jobRecovery, job.Progress, logger)
				go func() {
					if _, err := driver.Run(jobCtx, job.PresentationID); err != nil {
						logger.Error("job failed",
							slog.String("job_id", job.ID),
							slog.Any("error", err),
						)
					}
				}()
			}

			jobsHandler := transport.NewJobsHandler(registry, start, nil, logger)

			serverCfg := transport.DefaultServerConfig()
			serverCfg.Port = cfg.Server.Port
			serverCfg.AllowedOrigins = cfg.Server.AllowedOrigins
			serverCfg.Logger = logger

			server := transport.NewServer(serverCfg, jobsHandler)
			server.SetAuthHandler(authHandler)
			server.SetRateLimitMiddleware(ratelimit.New(ratelimit.Config{
				RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
				BurstSize:         cfg.RateLimit.BurstSize,
				Logger:            logger,
			}))
			if credStore != nil {
				server.SetAPIKeyMiddleware(middleware.NewAPIKey(middleware.APIKeyConfig{
					Store:             credStore,
					OAuthClientID:     oauthCfg.ClientID,
					OAuthClientSecret: oauthCfg.ClientSecret,
					Logger:            logger,
				}))
			}

			return server.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (overrides config)")
	return cmd
}

// newDriver wires the pipeline driver from configuration and a token source.
func newDriver(cfg *config.Config, sourceLang, targetLang string, tokenSource oauth2.TokenSource, memory *cache.TranslationMemory, recovery pipeline.RecoveryStore, progress *pipeline.Progress, logger *slog.Logger) *pipeline.Driver {
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.Translation.MaxAttempts

	return pipeline.NewDriver(
		pipeline.Config{
			SourceLang:    sourceLang,
			TargetLang:    targetLang,
			MaxBatchItems: cfg.Translation.MaxBatchItems,
			MaxBatchChars: cfg.Translation.MaxBatchChars,
			Retry:         retryCfg,
			Logger:        logger,
		},
		pipeline.Deps{
			Auth:       auth.NewVerifier(tokenSource),
			Extractor:  slides.NewExtractor(nil, tokenSource, logger),
			Translator: translate.NewTranslator(nil, tokenSource, memory, logger),
			Writer:     slides.NewWriter(nil, nil, tokenSource, logger),
			Recovery:   recovery,
			Progress:   progress,
		},
	)
}

// loadOAuthConfig resolves the OAuth client credentials, preferring Secret
// Manager when secret names are configured.
func loadOAuthConfig(ctx context.Context, cfg *config.Config) (*auth.Config, error) {
	if cfg.Google.ClientIDSecret != "" && cfg.Google.ProjectID != "" {
		loader, err := auth.NewSecretLoader(ctx, cfg.Google.ProjectID)
		if err != nil {
			return nil, err
		}
		defer loader.Close()
		return loader.LoadOAuthConfig(ctx, cfg.Google.ClientIDSecret, cfg.Google.ClientSecretSecret, cfg.Google.RedirectURISecret)
	}

	if cfg.Google.ClientID == "" || cfg.Google.ClientSecret == "" {
		return nil, fmt.Errorf("google client credentials are not configured")
	}
	return &auth.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURI:  cfg.Google.RedirectURI,
		Scopes:       auth.DefaultScopes,
	}, nil
}
