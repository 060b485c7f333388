/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package auditlog forwards playback activity to the configured audit
// destination chat. Delivery is best effort; auditing must never affect
// playback.
package auditlog

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Skssssee/Musict/internal/events"
)

// Messenger sends a text message to a chat.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// DestinationResolver reports where audit entries go, if anywhere.
type DestinationResolver interface {
	AuditDestination(ctx context.Context) (int64, bool)
}

// Service handles audit logging by subscribing to playback events and
// forwarding formatted entries to the destination chat.
type Service struct {
	dest      DestinationResolver
	messenger Messenger
	bus       *events.Bus
	logger    zerolog.Logger
}

// NewService creates a new audit service.
func NewService(dest DestinationResolver, messenger Messenger, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		dest:      dest,
		messenger: messenger,
		bus:       bus,
		logger:    logger.With().Str("component", "auditlog").Logger(),
	}
}

// Start subscribes to playback events and forwards them until the context is
// cancelled.
func (s *Service) Start(ctx context.Context) {
	s.logger.Info().Msg("audit service starting")

	play := s.bus.Subscribe(events.EventAuditPlay)
	skip := s.bus.Subscribe(events.EventAuditSkip)
	stop := s.bus.Subscribe(events.EventAuditStop)
	failure := s.bus.Subscribe(events.EventAuditFailure)

	defer func() {
		s.bus.Unsubscribe(events.EventAuditPlay, play)
		s.bus.Unsubscribe(events.EventAuditSkip, skip)
		s.bus.Unsubscribe(events.EventAuditStop, stop)
		s.bus.Unsubscribe(events.EventAuditFailure, failure)
	}()

	s.logger.Info().Msg("audit service started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("audit service stopping")
			return

		case payload := <-play:
			s.forward(ctx, formatPlay(payload))

		case payload := <-skip:
			s.forward(ctx, formatSkip(payload))

		case payload := <-stop:
			s.forward(ctx, formatStop(payload))

		case payload := <-failure:
			s.forward(ctx, formatFailure(payload))
		}
	}
}

// forward delivers one entry. No destination means auditing is off and the
// entry is dropped silently.
func (s *Service) forward(ctx context.Context, text string) {
	chatID, ok := s.dest.AuditDestination(ctx)
	if !ok {
		return
	}
	if err := s.messenger.SendMessage(ctx, chatID, text); err != nil {
		s.logger.Warn().Err(err).Int64("chat", chatID).Msg("audit delivery failed")
	}
}

func formatPlay(p events.Payload) string {
	verb := "playing"
	if queued, _ := p["queued"].(bool); queued {
		verb = "queued"
	}
	return fmt.Sprintf("%s %q (%s) in chat %v, requested by %v",
		verb, str(p, "title"), str(p, "kind"), p["chat_id"], str(p, "requested_by"))
}

func formatSkip(p events.Payload) string {
	return fmt.Sprintf("skipped %q in chat %v", str(p, "title"), p["chat_id"])
}

func formatStop(p events.Payload) string {
	if external, _ := p["external"].(bool); external {
		return fmt.Sprintf("playback ended externally in chat %v", p["chat_id"])
	}
	return fmt.Sprintf("playback stopped in chat %v", p["chat_id"])
}

func formatFailure(p events.Payload) string {
	return fmt.Sprintf("playback failed for %q in chat %v: %s",
		str(p, "title"), p["chat_id"], str(p, "cause"))
}

func str(p events.Payload, key string) string {
	v, _ := p[key].(string)
	return v
}
