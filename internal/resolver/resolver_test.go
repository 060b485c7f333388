package resolver

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestClassifyExtractorFailures(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name   string
		stderr string
		want   Kind
	}{
		{"bot wall", "ERROR: Sign in to confirm you're not a bot", KindUpstreamBlocked},
		{"consent wall", "ERROR: consent page encountered", KindUpstreamBlocked},
		{"gone", "ERROR: Video unavailable", KindNotFound},
		{"bad url", "ERROR: Unsupported URL: ftp://x", KindNotFound},
		{"no results", "ERROR: No video results", KindNotFound},
		{"generic", "ERROR: unable to download webpage", KindNetwork},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classify(ctx, tc.stderr); got != tc.want {
				t.Fatalf("classify(%q) = %s, want %s", tc.stderr, got, tc.want)
			}
		})
	}
}

func TestClassifyTimeoutIsNetwork(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	if got := classify(ctx, "ERROR: Video unavailable"); got != KindNetwork {
		t.Fatalf("deadline exceeded must classify as network, got %s", got)
	}
}

func TestKindOfAndUserMessage(t *testing.T) {
	err := &Error{Kind: KindUpstreamBlocked, Query: "q"}
	wrapped := errors.Join(errors.New("outer"), err)

	if KindOf(wrapped) != KindUpstreamBlocked {
		t.Fatalf("kind lost through wrapping: %s", KindOf(wrapped))
	}
	if KindOf(errors.New("plain")) != KindNetwork {
		t.Fatal("untyped errors must default to network")
	}
	if UserMessage(&Error{Kind: KindNotFound}) == UserMessage(err) {
		t.Fatal("user messages must differ per kind")
	}
}
