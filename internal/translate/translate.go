// Package translate adapts the Google Cloud Translation API into the
// pipeline's translation collaborator.
package translate

import (
	"context"
	"fmt"
	"log/slog"

	gtranslate "cloud.google.com/go/translate"
	"golang.org/x/oauth2"
	"golang.org/x/text/language"
	"google.golang.org/api/option"

	"github.com/eprouveze/gslides-translator/internal/cache"
	"github.com/eprouveze/gslides-translator/internal/pipeline"
)

// Client abstracts the Cloud Translation client for testing.
type Client interface {
	Translate(ctx context.Context, inputs []string, target language.Tag, opts *gtranslate.Options) ([]gtranslate.Translation, error)
}

// ClientFactory creates a translation client from a token source.
type ClientFactory func(ctx context.Context, tokenSource oauth2.TokenSource) (Client, error)

// NewRealClientFactory returns a factory that creates real Cloud Translation
// clients.
func NewRealClientFactory() ClientFactory {
	return func(ctx context.Context, tokenSource oauth2.TokenSource) (Client, error) {
		return gtranslate.NewClient(ctx, option.WithTokenSource(tokenSource))
	}
}

// Translator implements pipeline.Translator over the Cloud Translation API,
// consulting a translation memory before calling out.
type Translator struct {
	factory     ClientFactory
	tokenSource oauth2.TokenSource
	memory      *cache.TranslationMemory
	logger      *slog.Logger
}

// NewTranslator creates a translator. The memory is optional.
func NewTranslator(factory ClientFactory, tokenSource oauth2.TokenSource, memory *cache.TranslationMemory, logger *slog.Logger) *Translator {
	if factory == nil {
		factory = NewRealClientFactory()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Translator{
		factory:     factory,
		tokenSource: tokenSource,
		memory:      memory,
		logger:      logger,
	}
}

// ParseLanguage validates an ISO language code.
func ParseLanguage(code string) (language.Tag, error) {
	tag, err := language.Parse(code)
	if err != nil {
		return language.Und, fmt.Errorf("invalid language code %q: %w", code, err)
	}
	return tag, nil
}

// TranslateBatch translates one batch of unique strings. The result carries
// exactly one entry per submitted unit; a response whose item count differs
// from the request surfaces as pipeline.ErrStructuralMismatch and is never
// padded or truncated.
func (t *Translator) TranslateBatch(ctx context.Context, batch pipeline.TranslationBatch, sourceLang, targetLang string) (pipeline.TranslationResult, error) {
	target, err := ParseLanguage(targetLang)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pipeline.ErrTranslateFailed, err)
	}

	opts := &gtranslate.Options{Format: gtranslate.Text}
	if sourceLang != "" {
		source, err := ParseLanguage(sourceLang)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", pipeline.ErrTranslateFailed, err)
		}
		opts.Source = source
	}

	result := make(pipeline.TranslationResult, len(batch.Units))

	// Serve what the memory already knows; only misses go on the wire.
	var pending []pipeline.Unit
	for _, u := range batch.Units {
		if t.memory != nil {
			if translated, ok := t.memory.Lookup(sourceLang, targetLang, u.Text); ok {
				result[u.ID] = translated
				continue
			}
		}
		pending = append(pending, u)
	}

	if len(pending) == 0 {
		t.logger.Debug("batch served entirely from translation memory",
			slog.Int("units", len(batch.Units)),
		)
		return result, nil
	}

	client, err := t.factory(ctx, t.tokenSource)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create translate client: %v", pipeline.ErrTranslateFailed, err)
	}

	inputs := make([]string, len(pending))
	for i, u := range pending {
		inputs[i] = u.Text
	}

	translations, err := client.Translate(ctx, inputs, target, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pipeline.ErrTranslateFailed, err)
	}
	if len(translations) != len(pending) {
		return nil, fmt.Errorf("%w: submitted %d items, got %d back",
			pipeline.ErrStructuralMismatch, len(pending), len(translations))
	}

	for i, u := range pending {
		translated := translations[i].Text
		result[u.ID] = translated
		if t.memory != nil {
			t.memory.Store(sourceLang, targetLang, u.Text, translated)
		}
	}

	t.logger.Debug("batch translated",
		slog.Int("units", len(batch.Units)),
		slog.Int("from_memory", len(batch.Units)-len(pending)),
		slog.String("target", targetLang),
	)
	return result, nil
}
