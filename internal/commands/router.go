/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Skssssee/Musict/internal/broadcast"
	"github.com/Skssssee/Musict/internal/models"
	"github.com/Skssssee/Musict/internal/player"
	"github.com/Skssssee/Musict/internal/store"
)

// Router dispatches every inbound command. It records the origin chat,
// enforces privileges, and delegates to the playback and admin services.
type Router struct {
	store       *store.Store
	manager     *player.Manager
	broadcaster *broadcast.Broadcaster
	logger      zerolog.Logger
}

// NewRouter creates a command router.
func NewRouter(st *store.Store, manager *player.Manager, broadcaster *broadcast.Broadcaster, logger zerolog.Logger) *Router {
	return &Router{
		store:       st,
		manager:     manager,
		broadcaster: broadcaster,
		logger:      logger.With().Str("component", "commands").Logger(),
	}
}

// Dispatch executes one command and returns the reply for the origin chat.
func (r *Router) Dispatch(ctx context.Context, cmd Command) (string, error) {
	origin := cmd.Origin()

	// Registry insert happens for every command, privileged or not, so the
	// broadcast fan-out knows about the chat.
	if err := r.store.RecordChat(ctx, origin.ChatID); err != nil {
		r.logger.Warn().Err(err).Int64("chat", origin.ChatID).Msg("chat registry insert failed")
	}

	switch c := cmd.(type) {
	case Play:
		return r.play(ctx, c)
	case Pause:
		if err := r.requireSudo(ctx, origin); err != nil {
			return "", err
		}
		if err := r.manager.Pause(ctx, origin.ChatID); err != nil {
			return "", err
		}
		return "Paused.", nil
	case Resume:
		if err := r.requireSudo(ctx, origin); err != nil {
			return "", err
		}
		if err := r.manager.Resume(ctx, origin.ChatID); err != nil {
			return "", err
		}
		return "Resumed.", nil
	case Skip:
		if err := r.requireSudo(ctx, origin); err != nil {
			return "", err
		}
		if err := r.manager.Skip(ctx, origin.ChatID); err != nil {
			return "", err
		}
		return "Skipped.", nil
	case Stop:
		if err := r.requireSudo(ctx, origin); err != nil {
			return "", err
		}
		if err := r.manager.Stop(ctx, origin.ChatID); err != nil {
			return "", err
		}
		return "Stopped and cleared the queue.", nil
	case Queue:
		return r.queue(origin), nil
	case NowPlaying:
		return r.nowPlaying(origin), nil
	case AddSudo:
		if err := r.requireOwner(origin); err != nil {
			return "", err
		}
		if err := r.store.AddSudo(ctx, c.TargetID); err != nil {
			return "", err
		}
		return fmt.Sprintf("User %d now has elevated access.", c.TargetID), nil
	case RemoveSudo:
		if err := r.requireOwner(origin); err != nil {
			return "", err
		}
		if err := r.store.RemoveSudo(ctx, c.TargetID); err != nil {
			return "", err
		}
		return fmt.Sprintf("User %d no longer has elevated access.", c.TargetID), nil
	case SudoList:
		if err := r.requireOwner(origin); err != nil {
			return "", err
		}
		return r.sudoList(ctx)
	case IsSudo:
		if err := r.requireSudo(ctx, origin); err != nil {
			return "", err
		}
		ok, err := r.store.IsSudo(ctx, c.TargetID)
		if err != nil {
			return "", err
		}
		if ok {
			return fmt.Sprintf("User %d has elevated access.", c.TargetID), nil
		}
		return fmt.Sprintf("User %d does not have elevated access.", c.TargetID), nil
	case AuditOn:
		if err := r.requireOwner(origin); err != nil {
			return "", err
		}
		if err := r.store.SetAuditEnabled(ctx, c.Destination); err != nil {
			return "", err
		}
		return fmt.Sprintf("Audit logging enabled, destination %d.", c.Destination), nil
	case AuditOff:
		if err := r.requireOwner(origin); err != nil {
			return "", err
		}
		if err := r.store.SetAuditDisabled(ctx); err != nil {
			return "", err
		}
		return "Audit logging disabled.", nil
	case Broadcast:
		if err := r.requireOwner(origin); err != nil {
			return "", err
		}
		report, err := r.broadcaster.Send(ctx, c.Text)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Broadcast done: %d sent, %d failed.", report.Sent, report.Failed), nil
	default:
		return "", fmt.Errorf("unknown command %T", cmd)
	}
}

func (r *Router) play(ctx context.Context, c Play) (string, error) {
	track, queued, err := r.manager.Enqueue(ctx, c.From.ChatID, c.Query, c.From.Requester, c.Kind)
	if err != nil {
		return "", err
	}
	if queued {
		return fmt.Sprintf("Queued: %s (%s)", track.Title, models.FormatDuration(track.Duration)), nil
	}
	return fmt.Sprintf("Now playing: %s (%s)", track.Title, models.FormatDuration(track.Duration)), nil
}

func (r *Router) queue(origin Origin) string {
	tracks := r.manager.Queue(origin.ChatID)
	if len(tracks) == 0 {
		return "The queue is empty."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d track(s) queued:\n", len(tracks))
	for i, t := range tracks {
		fmt.Fprintf(&b, "%d. %s (%s) by %s\n", i+1, t.Title, models.FormatDuration(t.Duration), t.RequestedBy.Name)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (r *Router) nowPlaying(origin Origin) string {
	track, state, ok := r.manager.NowPlaying(origin.ChatID)
	if !ok || track == nil {
		return "Nothing is playing."
	}
	if state == models.StatePaused {
		return fmt.Sprintf("Paused: %s (%s)", track.Title, models.FormatDuration(track.Duration))
	}
	return fmt.Sprintf("Now playing: %s (%s), requested by %s",
		track.Title, models.FormatDuration(track.Duration), track.RequestedBy.Name)
}

func (r *Router) sudoList(ctx context.Context) (string, error) {
	ids, err := r.store.SudoUsers(ctx)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "No elevated users.", nil
	}
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%d", id))
	}
	return "Elevated users: " + strings.Join(parts, ", "), nil
}

func (r *Router) requireOwner(origin Origin) error {
	if !r.store.IsOwner(origin.Requester.ID) {
		return ErrNotOwner
	}
	return nil
}

func (r *Router) requireSudo(ctx context.Context, origin Origin) error {
	ok, err := r.store.IsSudo(ctx, origin.Requester.ID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotSudo
	}
	return nil
}
