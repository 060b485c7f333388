package models

import (
	"fmt"
	"time"
)

// MediaKind selects the resolved stream flavour.
type MediaKind string

const (
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
)

// SessionState tracks a channel session through its lifecycle.
type SessionState string

const (
	StateIdle     SessionState = "idle"
	StateJoining  SessionState = "joining"
	StatePlaying  SessionState = "playing"
	StatePaused   SessionState = "paused"
	StateStopping SessionState = "stopping"
)

// IsValid reports whether the state is one of the defined values.
func (s SessionState) IsValid() bool {
	switch s {
	case StateIdle, StateJoining, StatePlaying, StatePaused, StateStopping:
		return true
	}
	return false
}

// EndReason explains why a call leg's stream ended.
type EndReason string

const (
	EndCompleted EndReason = "completed"
	EndFailed    EndReason = "failed"
	EndSkipped   EndReason = "skipped"
	EndStopped   EndReason = "stopped"
)

// Requester identifies the user who asked for a track.
type Requester struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// StreamDescriptor is the time-limited handle to a playable source
// returned by the resolver. Upstream URLs expire, so IssuedAt matters.
type StreamDescriptor struct {
	URL      string    `json:"url"`
	Format   string    `json:"format"`
	Kind     MediaKind `json:"kind"`
	IssuedAt time.Time `json:"issued_at"`
}

// Track is one entry in a channel's play queue.
type Track struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Query       string           `json:"query"`
	Descriptor  StreamDescriptor `json:"descriptor"`
	Duration    time.Duration    `json:"duration"` // 0 = unknown or live
	Kind        MediaKind        `json:"kind"`
	RequestedBy Requester        `json:"requested_by"`
	EnqueuedAt  time.Time        `json:"enqueued_at"`
}

// SudoUser is a persisted elevated identity. The owner is never stored here.
type SudoUser struct {
	UserID    int64 `gorm:"primaryKey"`
	CreatedAt time.Time
}

// KnownChat records a channel that has issued at least one command.
type KnownChat struct {
	ChatID    int64 `gorm:"primaryKey"`
	CreatedAt time.Time
}

// AuditConfig is the singleton audit routing record (row id 1).
type AuditConfig struct {
	ID                int `gorm:"primaryKey"`
	Enabled           bool
	DestinationChatID int64
	UpdatedAt         time.Time
}

// FormatDuration renders a track duration as h:mm:ss, mm:ss, or "live"
// when the duration is unknown.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "live"
	}
	total := int(d.Seconds())
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
