/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"sync"
	"time"

	"github.com/Skssssee/Musict/internal/models"
)

// session is the in-memory playback state machine for one chat. All
// mutations happen under mu; operations for different chats never contend.
type session struct {
	chatID int64

	mu           sync.Mutex
	state        models.SessionState
	queue        []*models.Track
	current      *models.Track
	lastActivity time.Time

	// closed marks a session removed from the manager's map. Set under mu
	// before removal so a caller that fetched the pointer earlier cannot
	// mutate an orphan.
	closed bool
}

func newSession(chatID int64) *session {
	return &session{
		chatID:       chatID,
		state:        models.StateIdle,
		lastActivity: time.Now(),
	}
}

// popLocked removes and returns the head of the queue, or nil.
func (s *session) popLocked() *models.Track {
	if len(s.queue) == 0 {
		return nil
	}
	next := s.queue[0]
	s.queue = s.queue[1:]
	return next
}

// snapshotQueueLocked copies the pending tracks for read-side queries.
func (s *session) snapshotQueueLocked() []models.Track {
	out := make([]models.Track, 0, len(s.queue))
	for _, t := range s.queue {
		out = append(out, *t)
	}
	return out
}
