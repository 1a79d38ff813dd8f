package cache

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewLRU(t *testing.T) {
	cache := NewLRU(LRUConfig{
		MaxEntries: 10,
		DefaultTTL: 5 * time.Minute,
		Logger:     testLogger(),
	})

	if cache == nil {
		t.Fatal("expected cache to be created")
	}
	if cache.Len() != 0 {
		t.Errorf("expected length 0, got %d", cache.Len())
	}
}

func TestLRUSetAndGet(t *testing.T) {
	cache := NewLRU(LRUConfig{
		MaxEntries: 10,
		DefaultTTL: 5 * time.Minute,
		Logger:     testLogger(),
	})

	cache.Set("key1", "value1")

	val, ok := cache.Get("key1")
	if !ok {
		t.Fatal("expected key1 to be found")
	}
	if val != "value1" {
		t.Errorf("expected value1, got %v", val)
	}

	_, ok = cache.Get("key2")
	if ok {
		t.Error("expected key2 to not be found")
	}

	if cache.Len() != 1 {
		t.Errorf("expected length 1, got %d", cache.Len())
	}
}

func TestLRUUpdateExistingKey(t *testing.T) {
	cache := NewLRU(LRUConfig{
		MaxEntries: 10,
		DefaultTTL: 5 * time.Minute,
		Logger:     testLogger(),
	})

	cache.Set("key1", "value1")
	cache.Set("key1", "value2")

	val, ok := cache.Get("key1")
	if !ok {
		t.Fatal("expected key1 to be found")
	}
	if val != "value2" {
		t.Errorf("expected value2, got %v", val)
	}
	if cache.Len() != 1 {
		t.Errorf("expected length 1, got %d", cache.Len())
	}
}

func TestLRUEviction(t *testing.T) {
	cache := NewLRU(LRUConfig{
		MaxEntries: 3,
		DefaultTTL: 5 * time.Minute,
		Logger:     testLogger(),
	})

	cache.Set("key1", "value1")
	cache.Set("key2", "value2")
	cache.Set("key3", "value3")

	// Touch key1 so key2 becomes the oldest.
	cache.Get("key1")

	cache.Set("key4", "value4")

	if _, ok := cache.Get("key2"); ok {
		t.Error("expected key2 to be evicted")
	}
	if _, ok := cache.Get("key1"); !ok {
		t.Error("expected key1 to survive")
	}
	if _, ok := cache.Get("key4"); !ok {
		t.Error("expected key4 to be present")
	}
	if cache.Len() != 3 {
		t.Errorf("expected length 3, got %d", cache.Len())
	}

	metrics := cache.Metrics()
	if metrics.Evictions != 1 {
		t.Errorf("expected 1 eviction, got %d", metrics.Evictions)
	}
}

func TestLRUExpiration(t *testing.T) {
	cache := NewLRU(LRUConfig{
		MaxEntries: 10,
		DefaultTTL: 10 * time.Millisecond,
		Logger:     testLogger(),
	})

	cache.Set("key1", "value1")
	time.Sleep(20 * time.Millisecond)

	if _, ok := cache.Get("key1"); ok {
		t.Error("expected key1 to be expired")
	}

	metrics := cache.Metrics()
	if metrics.Expirations != 1 {
		t.Errorf("expected 1 expiration, got %d", metrics.Expirations)
	}
}

func TestLRUMetrics(t *testing.T) {
	cache := NewLRU(LRUConfig{
		MaxEntries: 10,
		DefaultTTL: 5 * time.Minute,
		Logger:     testLogger(),
	})

	cache.Set("key1", "value1")
	cache.Get("key1")
	cache.Get("key1")
	cache.Get("missing")

	metrics := cache.Metrics()
	if metrics.Hits != 2 {
		t.Errorf("expected 2 hits, got %d", metrics.Hits)
	}
	if metrics.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", metrics.Misses)
	}

	rate := metrics.HitRate()
	expected := float64(2) / float64(3) * 100
	if rate < expected-0.01 || rate > expected+0.01 {
		t.Errorf("expected hit rate %.2f, got %.2f", expected, rate)
	}
}

func TestLRUHitRateEmpty(t *testing.T) {
	var m Metrics
	if m.HitRate() != 0 {
		t.Errorf("expected 0 hit rate with no accesses, got %f", m.HitRate())
	}
}

func TestLRUConcurrentAccess(t *testing.T) {
	cache := NewLRU(LRUConfig{
		MaxEntries: 100,
		DefaultTTL: 5 * time.Minute,
		Logger:     testLogger(),
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d-%d", n, j)
				cache.Set(key, j)
				cache.Get(key)
			}
		}(i)
	}
	wg.Wait()

	if cache.Len() > 100 {
		t.Errorf("expected at most 100 entries, got %d", cache.Len())
	}
}

func TestTranslationMemory(t *testing.T) {
	memory := NewTranslationMemory(100, testLogger())

	if _, ok := memory.Lookup("en", "fr", "Hello"); ok {
		t.Error("expected no translation before storing")
	}

	memory.Store("en", "fr", "Hello", "Bonjour")

	got, ok := memory.Lookup("en", "fr", "Hello")
	if !ok {
		t.Fatal("expected stored translation to be found")
	}
	if got != "Bonjour" {
		t.Errorf("expected Bonjour, got %q", got)
	}

	// A different language pair is a miss even for the same text.
	if _, ok := memory.Lookup("en", "ja", "Hello"); ok {
		t.Error("expected miss for untranslated language pair")
	}

	metrics := memory.Metrics()
	if metrics.Hits != 1 {
		t.Errorf("expected 1 hit, got %d", metrics.Hits)
	}
	if metrics.Misses != 2 {
		t.Errorf("expected 2 misses, got %d", metrics.Misses)
	}
}
