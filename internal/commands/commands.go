/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package commands is the inbound command surface. Each command is a fixed
// variant with its own payload, dispatched through a single router so every
// entry point shares the same chat recording and privilege checks.
package commands

import (
	"github.com/Skssssee/Musict/internal/models"
)

// Command is implemented by every inbound command variant.
type Command interface {
	Origin() Origin
	command()
}

// Origin identifies who issued a command and where.
type Origin struct {
	ChatID    int64
	Requester models.Requester
}

// Play requests playback of a resolved query in the origin chat.
type Play struct {
	From  Origin
	Query string
	Kind  models.MediaKind
}

// Pause suspends the origin chat's playback.
type Pause struct{ From Origin }

// Resume continues the origin chat's playback.
type Resume struct{ From Origin }

// Skip drops the current track and advances the queue.
type Skip struct{ From Origin }

// Stop clears the queue and leaves the call.
type Stop struct{ From Origin }

// Queue lists the origin chat's pending tracks.
type Queue struct{ From Origin }

// NowPlaying reports the origin chat's current track.
type NowPlaying struct{ From Origin }

// AddSudo grants elevated access to a user.
type AddSudo struct {
	From     Origin
	TargetID int64
}

// RemoveSudo revokes a user's elevated access.
type RemoveSudo struct {
	From     Origin
	TargetID int64
}

// SudoList lists all elevated users.
type SudoList struct{ From Origin }

// IsSudo reports whether a user has elevated access.
type IsSudo struct {
	From     Origin
	TargetID int64
}

// AuditOn enables audit logging to a destination chat.
type AuditOn struct {
	From        Origin
	Destination int64
}

// AuditOff disables audit logging.
type AuditOff struct{ From Origin }

// Broadcast delivers a message to every known chat.
type Broadcast struct {
	From Origin
	Text string
}

func (c Play) Origin() Origin       { return c.From }
func (c Pause) Origin() Origin      { return c.From }
func (c Resume) Origin() Origin     { return c.From }
func (c Skip) Origin() Origin       { return c.From }
func (c Stop) Origin() Origin       { return c.From }
func (c Queue) Origin() Origin      { return c.From }
func (c NowPlaying) Origin() Origin { return c.From }
func (c AddSudo) Origin() Origin    { return c.From }
func (c RemoveSudo) Origin() Origin { return c.From }
func (c SudoList) Origin() Origin   { return c.From }
func (c IsSudo) Origin() Origin     { return c.From }
func (c AuditOn) Origin() Origin    { return c.From }
func (c AuditOff) Origin() Origin   { return c.From }
func (c Broadcast) Origin() Origin  { return c.From }

func (Play) command()       {}
func (Pause) command()      {}
func (Resume) command()     {}
func (Skip) command()       {}
func (Stop) command()       {}
func (Queue) command()      {}
func (NowPlaying) command() {}
func (AddSudo) command()    {}
func (RemoveSudo) command() {}
func (SudoList) command()   {}
func (IsSudo) command()     {}
func (AuditOn) command()    {}
func (AuditOff) command()   {}
func (Broadcast) command()  {}
