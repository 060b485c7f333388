/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package calls owns the single authenticated calling identity and
// multiplexes per-channel call legs over it.
package calls

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Skssssee/Musict/internal/models"
)

// Transport is the real-time call client bound to one identity. Play joins
// the chat's call leg or replaces its stream when a leg already exists.
type Transport interface {
	Play(ctx context.Context, chatID int64, d models.StreamDescriptor) error
	Leave(ctx context.Context, chatID int64) error
	Pause(ctx context.Context, chatID int64) error
	Resume(ctx context.Context, chatID int64) error
}

// TrackEnd is the asynchronous end-of-stream notification delivered to the
// playback manager.
type TrackEnd struct {
	ChatID        int64
	Reason        models.EndReason
	Cause         error
	ExpiredStream bool
}

// Binding multiplexes call legs for many chats over one transport identity.
// At most one leg exists per chat. Join fails with KindNotReady until the
// identity has authenticated (two-phase startup).
type Binding struct {
	transport   Transport
	joinTimeout time.Duration
	logger      zerolog.Logger

	mu    sync.Mutex
	ready bool
	legs  map[int64]struct{}

	ends chan TrackEnd
}

// NewBinding creates a binding over the transport. MarkReady must be called
// once the calling identity has authenticated.
func NewBinding(transport Transport, joinTimeout time.Duration, logger zerolog.Logger) *Binding {
	return &Binding{
		transport:   transport,
		joinTimeout: joinTimeout,
		logger:      logger.With().Str("component", "calls").Logger(),
		legs:        make(map[int64]struct{}),
		ends:        make(chan TrackEnd, 64),
	}
}

// MarkReady flips the binding into the authenticated state.
func (b *Binding) MarkReady() {
	b.mu.Lock()
	b.ready = true
	b.mu.Unlock()
	b.logger.Info().Msg("call transport ready")
}

// Ready reports whether the calling identity is authenticated.
func (b *Binding) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready
}

// Active reports whether a call leg exists for the chat.
func (b *Binding) Active(chatID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.legs[chatID]
	return ok
}

// Join establishes or updates the chat's call leg to stream the descriptor.
// A bounded timeout keeps a wedged transport from leaving the channel stuck.
func (b *Binding) Join(ctx context.Context, chatID int64, d models.StreamDescriptor) error {
	b.mu.Lock()
	ready := b.ready
	b.mu.Unlock()
	if !ready {
		return &Error{Kind: KindNotReady, ChatID: chatID}
	}

	joinCtx := ctx
	if b.joinTimeout > 0 {
		var cancel context.CancelFunc
		joinCtx, cancel = context.WithTimeout(ctx, b.joinTimeout)
		defer cancel()
	}

	if err := b.transport.Play(joinCtx, chatID, d); err != nil {
		if errors.Is(joinCtx.Err(), context.DeadlineExceeded) {
			return &Error{Kind: KindTimeout, ChatID: chatID, Err: err}
		}
		return &Error{Kind: KindRejected, ChatID: chatID, Err: err}
	}

	b.mu.Lock()
	b.legs[chatID] = struct{}{}
	b.mu.Unlock()
	return nil
}

// Leave tears down the chat's call leg. Leaving without a leg is a no-op.
func (b *Binding) Leave(ctx context.Context, chatID int64) error {
	b.mu.Lock()
	_, ok := b.legs[chatID]
	delete(b.legs, chatID)
	b.mu.Unlock()
	if !ok {
		return nil
	}
	if err := b.transport.Leave(ctx, chatID); err != nil {
		b.logger.Warn().Err(err).Int64("chat", chatID).Msg("leave failed")
		return err
	}
	return nil
}

// Pause suspends the chat's stream.
func (b *Binding) Pause(ctx context.Context, chatID int64) error {
	if !b.Active(chatID) {
		return &Error{Kind: KindRejected, ChatID: chatID}
	}
	return b.transport.Pause(ctx, chatID)
}

// Resume continues the chat's stream.
func (b *Binding) Resume(ctx context.Context, chatID int64) error {
	if !b.Active(chatID) {
		return &Error{Kind: KindRejected, ChatID: chatID}
	}
	return b.transport.Resume(ctx, chatID)
}

// Events returns the ordered end-of-stream notification channel.
func (b *Binding) Events() <-chan TrackEnd {
	return b.ends
}

// ReportStreamEnd is called by transport adapters when a chat's stream
// finishes on its own. A nil cause means the stream completed.
func (b *Binding) ReportStreamEnd(chatID int64, cause error) {
	reason := models.EndCompleted
	if cause != nil {
		reason = models.EndFailed
	}
	b.ends <- TrackEnd{
		ChatID:        chatID,
		Reason:        reason,
		Cause:         cause,
		ExpiredStream: streamExpired(cause),
	}
}

// ReportExternalStop is called when the call leg is torn down outside the
// bot's control, e.g. the identity was removed from the chat.
func (b *Binding) ReportExternalStop(chatID int64) {
	b.mu.Lock()
	delete(b.legs, chatID)
	b.mu.Unlock()
	b.ends <- TrackEnd{ChatID: chatID, Reason: models.EndStopped}
}

// Shutdown leaves every active leg.
func (b *Binding) Shutdown(ctx context.Context) {
	b.mu.Lock()
	chats := make([]int64, 0, len(b.legs))
	for chatID := range b.legs {
		chats = append(chats, chatID)
	}
	b.mu.Unlock()

	for _, chatID := range chats {
		if err := b.Leave(ctx, chatID); err != nil {
			b.logger.Warn().Err(err).Int64("chat", chatID).Msg("shutdown leave failed")
		}
	}
}

// streamExpired guesses whether a failure came from a stale descriptor URL.
func streamExpired(cause error) bool {
	if cause == nil {
		return false
	}
	msg := strings.ToLower(cause.Error())
	return strings.Contains(msg, "403") ||
		strings.Contains(msg, "forbidden") ||
		strings.Contains(msg, "expired")
}
