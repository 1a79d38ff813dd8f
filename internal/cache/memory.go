package cache

import (
	"log/slog"
	"strings"
)

// TranslationMemory remembers translated strings per language pair so
// repeated jobs over similar presentations skip the external translation
// call for text already seen.
type TranslationMemory struct {
	lru *LRU
}

// NewTranslationMemory creates a translation memory backed by an LRU cache.
func NewTranslationMemory(maxEntries int, logger *slog.Logger) *TranslationMemory {
	cfg := DefaultLRUConfig()
	if maxEntries > 0 {
		cfg.MaxEntries = maxEntries
	}
	if logger != nil {
		cfg.Logger = logger
	}
	return &TranslationMemory{lru: NewLRU(cfg)}
}

// Lookup returns the remembered translation of text for the language pair.
func (m *TranslationMemory) Lookup(sourceLang, targetLang, text string) (string, bool) {
	v, ok := m.lru.Get(memoryKey(sourceLang, targetLang, text))
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Store remembers a translation for the language pair.
func (m *TranslationMemory) Store(sourceLang, targetLang, text, translated string) {
	m.lru.Set(memoryKey(sourceLang, targetLang, text), translated)
}

// Metrics exposes hit/miss statistics of the underlying cache.
func (m *TranslationMemory) Metrics() Metrics {
	return m.lru.Metrics()
}

func memoryKey(sourceLang, targetLang, text string) string {
	var b strings.Builder
	b.Grow(len(sourceLang) + len(targetLang) + len(text) + 2)
	b.WriteString(sourceLang)
	b.WriteByte('|')
	b.WriteString(targetLang)
	b.WriteByte('|')
	b.WriteString(text)
	return b.String()
}
