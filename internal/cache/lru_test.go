package cache

import (
	"sync"
	"testing"
)

func TestLRUCache_BasicOperations(t *testing.T) {
	cache := NewLRU[string, int](3)

	cache.Put("a", 1)
	cache.Put("b", 2)
	cache.Put("c", 3)

	if v, ok := cache.Get("a"); !ok || v != 1 {
		t.Errorf("expected 1, got %v", v)
	}
	if v, ok := cache.Get("b"); !ok || v != 2 {
		t.Errorf("expected 2, got %v", v)
	}
	if v, ok := cache.Get("c"); !ok || v != 3 {
		t.Errorf("expected 3, got %v", v)
	}
}

func TestLRUCache_Eviction(t *testing.T) {
	cache := NewLRU[string, int](2)

	cache.Put("a", 1)
	cache.Put("b", 2)
	cache.Put("c", 3) // evicts "a"

	if _, ok := cache.Get("a"); ok {
		t.Error("expected 'a' to be evicted")
	}
	if v, ok := cache.Get("b"); !ok || v != 2 {
		t.Errorf("expected 2, got %v", v)
	}
	if v, ok := cache.Get("c"); !ok || v != 3 {
		t.Errorf("expected 3, got %v", v)
	}
}

func TestLRUCache_AccessOrder(t *testing.T) {
	cache := NewLRU[string, int](2)

	cache.Put("a", 1)
	cache.Put("b", 2)
	cache.Get("a")
	cache.Put("c", 3) // evicts "b", not "a"

	if _, ok := cache.Get("b"); ok {
		t.Error("expected 'b' to be evicted")
	}
	if v, ok := cache.Get("a"); !ok || v != 1 {
		t.Errorf("expected 1, got %v", v)
	}
}

func TestLRUCache_Update(t *testing.T) {
	cache := NewLRU[string, int](2)

	cache.Put("a", 1)
	cache.Put("a", 10)

	if v, ok := cache.Get("a"); !ok || v != 10 {
		t.Errorf("expected 10, got %v", v)
	}
	if cache.Len() != 1 {
		t.Errorf("expected len 1, got %d", cache.Len())
	}
}

func TestLRUCache_ZeroCapacity(t *testing.T) {
	cache := NewLRU[string, int](0)

	cache.Put("a", 1)
	cache.Put("b", 2)

	if cache.Len() != 1 {
		t.Errorf("expected len 1, got %d", cache.Len())
	}
	if v, ok := cache.Get("b"); !ok || v != 2 {
		t.Errorf("expected 2, got %v", v)
	}
}

func TestLRUCache_Concurrent(t *testing.T) {
	cache := NewLRU[int, int](64)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				cache.Put(i%100, g)
				cache.Get(i % 50)
			}
		}(g)
	}
	wg.Wait()

	if cache.Len() > 64 {
		t.Errorf("cache exceeded capacity: %d", cache.Len())
	}
}

func TestEmbeddingCache_BasicOperations(t *testing.T) {
	cache := NewEmbeddingCache(100)

	embedding := []float32{0.1, 0.2, 0.3, 0.4}
	cache.Put("labse", "hello world", embedding)

	got, ok := cache.Get("labse", "hello world")
	if !ok {
		t.Fatal("expected to find embedding")
	}
	if len(got) != len(embedding) {
		t.Fatalf("expected len %d, got %d", len(embedding), len(got))
	}
	for i := range embedding {
		if got[i] != embedding[i] {
			t.Errorf("expected %f at index %d, got %f", embedding[i], i, got[i])
		}
	}
}

func TestEmbeddingCache_KeyedByModel(t *testing.T) {
	cache := NewEmbeddingCache(100)
	cache.Put("model-a", "gatto", []float32{1, 0})

	if _, ok := cache.Get("model-b", "gatto"); ok {
		t.Error("embedding from another model must not be returned")
	}
}

func TestEmbeddingCache_CopiesVectors(t *testing.T) {
	cache := NewEmbeddingCache(10)

	embedding := []float32{1, 2, 3}
	cache.Put("m", "text", embedding)
	embedding[0] = 99

	got, _ := cache.Get("m", "text")
	if got[0] != 1 {
		t.Errorf("cache must hold a copy of the stored vector, got %f", got[0])
	}

	got[1] = 99
	again, _ := cache.Get("m", "text")
	if again[1] != 2 {
		t.Errorf("cache must return a copy, got %f", again[1])
	}
}

func TestEmbeddingCache_Stats(t *testing.T) {
	cache := NewEmbeddingCache(100)

	cache.Put("m", "test", []float32{0.1, 0.2, 0.3})
	cache.Get("m", "test")
	cache.Get("m", "test")
	cache.Get("m", "nonexistent")

	stats := cache.Stats()
	if stats.Hits != 2 {
		t.Errorf("expected 2 hits, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", stats.Misses)
	}
	if stats.Entries != 1 {
		t.Errorf("expected 1 entry, got %d", stats.Entries)
	}
	expectedRate := 2.0 / 3.0 * 100
	if stats.HitRate < expectedRate-1 || stats.HitRate > expectedRate+1 {
		t.Errorf("expected hit rate ~%.1f%%, got %.1f%%", expectedRate, stats.HitRate)
	}
}

func TestKey(t *testing.T) {
	if Key("m", "a") != Key("m", "a") {
		t.Error("key must be deterministic")
	}
	if Key("m", "ab") == Key("ma", "b") {
		t.Error("model and text must be separated in the key")
	}
	if len(Key("m", "a")) != 32 {
		t.Errorf("expected 32 hex chars, got %d", len(Key("m", "a")))
	}
}

func BenchmarkLRUCache_Put(b *testing.B) {
	cache := NewLRU[int, int](1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Put(i%1000, i)
	}
}

func BenchmarkLRUCache_Get(b *testing.B) {
	cache := NewLRU[int, int](1000)
	for i := 0; i < 1000; i++ {
		cache.Put(i, i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Get(i % 1000)
	}
}

func BenchmarkEmbeddingCache_Get(b *testing.B) {
	cache := NewEmbeddingCache(1000)
	cache.Put("m", "test", make([]float32, 768))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Get("m", "test")
	}
}
