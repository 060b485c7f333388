/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package broadcast fans a message out to every chat the service has seen.
package broadcast

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Skssssee/Musict/internal/events"
	"github.com/Skssssee/Musict/internal/telemetry"
)

// Messenger sends a text message to a chat.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// ChatLister yields every known chat ID.
type ChatLister interface {
	Chats(ctx context.Context) ([]int64, error)
}

// Report summarises one broadcast run.
type Report struct {
	Sent   int
	Failed int
}

// Broadcaster delivers owner announcements chat by chat. Deliveries are
// sequential with a pause between sends so the messaging platform's flood
// limits are respected.
type Broadcaster struct {
	chats     ChatLister
	messenger Messenger
	bus       *events.Bus
	delay     time.Duration
	logger    zerolog.Logger
}

// New creates a broadcaster. A zero delay disables pacing.
func New(chats ChatLister, messenger Messenger, bus *events.Bus, delay time.Duration, logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		chats:     chats,
		messenger: messenger,
		bus:       bus,
		delay:     delay,
		logger:    logger.With().Str("component", "broadcast").Logger(),
	}
}

// Send delivers text to every known chat. Failures for individual chats are
// counted and skipped; cancellation stops the run and returns the partial
// report.
func (b *Broadcaster) Send(ctx context.Context, text string) (Report, error) {
	chats, err := b.chats.Chats(ctx)
	if err != nil {
		return Report{}, err
	}

	var report Report
	for i, chatID := range chats {
		if i > 0 && b.delay > 0 {
			select {
			case <-ctx.Done():
				b.finish(report, true)
				return report, ctx.Err()
			case <-time.After(b.delay):
			}
		}
		if ctx.Err() != nil {
			b.finish(report, true)
			return report, ctx.Err()
		}

		if err := b.messenger.SendMessage(ctx, chatID, text); err != nil {
			report.Failed++
			telemetry.BroadcastMessages.WithLabelValues("failed").Inc()
			b.logger.Warn().Err(err).Int64("chat", chatID).Msg("broadcast delivery failed")
			continue
		}
		report.Sent++
		telemetry.BroadcastMessages.WithLabelValues("sent").Inc()
	}

	b.finish(report, false)
	return report, nil
}

func (b *Broadcaster) finish(report Report, cancelled bool) {
	b.logger.Info().
		Int("sent", report.Sent).
		Int("failed", report.Failed).
		Bool("cancelled", cancelled).
		Msg("broadcast finished")
	b.bus.Publish(events.EventBroadcastDone, events.Payload{
		"sent":      report.Sent,
		"failed":    report.Failed,
		"cancelled": cancelled,
	})
}
