package streamcache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Skssssee/Musict/internal/models"
	"github.com/Skssssee/Musict/internal/resolver"
)

type fakeResolver struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeResolver) Resolve(ctx context.Context, query string, kind models.MediaKind) (resolver.Resolution, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	if f.err != nil {
		return resolver.Resolution{}, f.err
	}
	return resolver.Resolution{
		Title:    query,
		Duration: time.Duration(n) * time.Minute,
		Descriptor: models.StreamDescriptor{
			URL:      "https://cdn.example/" + query,
			Kind:     kind,
			IssuedAt: time.Now(),
		},
	}, nil
}

func (f *fakeResolver) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestCache(upstream resolver.Resolver, ttl time.Duration) *Cache {
	return New(upstream, Config{TTL: ttl, ResolveTimeout: time.Second}, zerolog.Nop())
}

func TestResolveMemoisesWithinTTL(t *testing.T) {
	fake := &fakeResolver{}
	c := newTestCache(fake, time.Hour)
	ctx := context.Background()

	first, err := c.Resolve(ctx, "song-a", models.MediaAudio)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	second, err := c.Resolve(ctx, "song-a", models.MediaAudio)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if fake.callCount() != 1 {
		t.Fatalf("expected one upstream call, got %d", fake.callCount())
	}
	if first.Descriptor.URL != second.Descriptor.URL {
		t.Fatal("cached descriptor mismatch")
	}
}

func TestResolveReResolvesAfterTTL(t *testing.T) {
	fake := &fakeResolver{}
	c := newTestCache(fake, time.Minute)

	base := time.Now()
	c.now = func() time.Time { return base }

	ctx := context.Background()
	if _, err := c.Resolve(ctx, "song-a", models.MediaAudio); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := c.Resolve(ctx, "song-a", models.MediaAudio); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if fake.callCount() != 2 {
		t.Fatalf("expected re-resolution after ttl, got %d calls", fake.callCount())
	}
}

func TestAudioAndVideoAreSeparateNamespaces(t *testing.T) {
	fake := &fakeResolver{}
	c := newTestCache(fake, time.Hour)
	ctx := context.Background()

	if _, err := c.Resolve(ctx, "song-a", models.MediaAudio); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := c.Resolve(ctx, "song-a", models.MediaVideo); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if fake.callCount() != 2 {
		t.Fatalf("expected per-kind resolution, got %d calls", fake.callCount())
	}
}

func TestKeyNormalisesWhitespace(t *testing.T) {
	a := Key("  song   a ", models.MediaAudio)
	b := Key("song a", models.MediaAudio)
	if a != b {
		t.Fatalf("keys differ: %q vs %q", a, b)
	}
}

func TestInvalidateForcesReResolution(t *testing.T) {
	fake := &fakeResolver{}
	c := newTestCache(fake, time.Hour)
	ctx := context.Background()

	if _, err := c.Resolve(ctx, "song-a", models.MediaAudio); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	c.Invalidate(ctx, "song-a", models.MediaAudio)
	if _, err := c.Resolve(ctx, "song-a", models.MediaAudio); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if fake.callCount() != 2 {
		t.Fatalf("expected re-resolution after invalidate, got %d calls", fake.callCount())
	}
}

func TestFailuresAreNotCached(t *testing.T) {
	fake := &fakeResolver{err: &resolver.Error{Kind: resolver.KindUpstreamBlocked, Query: "song-a"}}
	c := newTestCache(fake, time.Hour)
	ctx := context.Background()

	if _, err := c.Resolve(ctx, "song-a", models.MediaAudio); err == nil {
		t.Fatal("expected error")
	}
	if _, err := c.Resolve(ctx, "song-a", models.MediaAudio); err == nil {
		t.Fatal("expected error")
	}
	if fake.callCount() != 2 {
		t.Fatalf("failures must not be cached, got %d calls", fake.callCount())
	}
}
