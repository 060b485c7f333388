/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package player drives per-chat playback: one session per chat, a FIFO
// queue, and strictly serialized state transitions per chat. Different chats
// proceed fully in parallel.
package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Skssssee/Musict/internal/calls"
	"github.com/Skssssee/Musict/internal/events"
	"github.com/Skssssee/Musict/internal/models"
	"github.com/Skssssee/Musict/internal/streamcache"
	"github.com/Skssssee/Musict/internal/telemetry"
)

// ErrPrecondition reports an operation invalid in the chat's current state.
var ErrPrecondition = errors.New("not valid in current playback state")

// Manager owns every chat session and reacts to transport end-of-stream
// notifications by advancing the matching queue.
type Manager struct {
	cache   *streamcache.Cache
	binding *calls.Binding
	bus     *events.Bus
	logger  zerolog.Logger

	mu       sync.Mutex
	sessions map[int64]*session
}

// NewManager creates a playback manager.
func NewManager(cache *streamcache.Cache, binding *calls.Binding, bus *events.Bus, logger zerolog.Logger) *Manager {
	return &Manager{
		cache:    cache,
		binding:  binding,
		bus:      bus,
		logger:   logger.With().Str("component", "player").Logger(),
		sessions: make(map[int64]*session),
	}
}

// Run consumes transport notifications until context cancellation. End
// events for a chat are processed in the order the transport raised them and
// never concurrently with a user-issued operation on the same chat.
func (m *Manager) Run(ctx context.Context) {
	m.logger.Info().Msg("playback manager started")
	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("playback manager stopped")
			return
		case end := <-m.binding.Events():
			m.handleTrackEnd(ctx, end)
		}
	}
}

// Enqueue resolves the query and either starts playing immediately (idle
// chat) or appends to the queue. queued reports which happened. On any
// failure the chat's state is exactly what it was before the call.
func (m *Manager) Enqueue(ctx context.Context, chatID int64, query string, requester models.Requester, kind models.MediaKind) (track *models.Track, queued bool, err error) {
	res, err := m.cache.Resolve(ctx, query, kind)
	if err != nil {
		return nil, false, err
	}

	track = &models.Track{
		ID:          uuid.NewString(),
		Title:       res.Title,
		Query:       query,
		Descriptor:  res.Descriptor,
		Duration:    res.Duration,
		Kind:        kind,
		RequestedBy: requester,
		EnqueuedAt:  time.Now(),
	}

	s := m.lockLive(chatID)
	defer s.mu.Unlock()
	s.lastActivity = time.Now()

	if s.state != models.StateIdle {
		s.queue = append(s.queue, track)
		m.auditPlay(chatID, track, true)
		return track, true, nil
	}

	s.state = models.StateJoining
	if err := m.binding.Join(ctx, chatID, track.Descriptor); err != nil {
		s.state = models.StateIdle
		return nil, false, err
	}

	m.startTrackLocked(s, track)
	return track, false, nil
}

// Pause suspends playback. Valid only while playing.
func (m *Manager) Pause(ctx context.Context, chatID int64) error {
	s := m.lockExisting(chatID)
	if s == nil {
		return fmt.Errorf("%w: nothing playing", ErrPrecondition)
	}
	defer s.mu.Unlock()

	if s.state != models.StatePlaying {
		return fmt.Errorf("%w: state is %s", ErrPrecondition, s.state)
	}
	if err := m.binding.Pause(ctx, chatID); err != nil {
		return err
	}
	s.state = models.StatePaused
	s.lastActivity = time.Now()
	return nil
}

// Resume continues playback. Valid only while paused.
func (m *Manager) Resume(ctx context.Context, chatID int64) error {
	s := m.lockExisting(chatID)
	if s == nil {
		return fmt.Errorf("%w: nothing playing", ErrPrecondition)
	}
	defer s.mu.Unlock()

	if s.state != models.StatePaused {
		return fmt.Errorf("%w: state is %s", ErrPrecondition, s.state)
	}
	if err := m.binding.Resume(ctx, chatID); err != nil {
		return err
	}
	s.state = models.StatePlaying
	s.lastActivity = time.Now()
	return nil
}

// Skip drops the current track and advances the queue.
func (m *Manager) Skip(ctx context.Context, chatID int64) error {
	s := m.lockExisting(chatID)
	if s == nil {
		return fmt.Errorf("%w: nothing playing", ErrPrecondition)
	}
	defer s.mu.Unlock()

	if s.state != models.StatePlaying && s.state != models.StatePaused {
		return fmt.Errorf("%w: state is %s", ErrPrecondition, s.state)
	}

	skipped := s.current
	if skipped != nil {
		m.bus.Publish(events.EventAuditSkip, events.Payload{
			"chat_id": chatID,
			"title":   skipped.Title,
		})
	}
	m.advanceLocked(ctx, s)
	return nil
}

// Stop clears the whole queue and tears down the call leg. The only
// operation that discards queued tracks. Idempotent when already idle.
func (m *Manager) Stop(ctx context.Context, chatID int64) error {
	s := m.lockExisting(chatID)
	if s == nil {
		// Leaving without a leg is a no-op on the transport side.
		return m.binding.Leave(ctx, chatID)
	}

	s.state = models.StateStopping
	s.queue = nil
	s.current = nil
	if err := m.binding.Leave(ctx, chatID); err != nil {
		m.logger.Warn().Err(err).Int64("chat", chatID).Msg("leave on stop failed")
	}
	s.state = models.StateIdle

	// Close and unregister while still holding the session lock so a racing
	// Enqueue that fetched this pointer retries against a fresh session
	// instead of mutating the orphan.
	s.closed = true
	m.removeSession(chatID)
	s.mu.Unlock()

	m.bus.Publish(events.EventAuditStop, events.Payload{"chat_id": chatID})
	return nil
}

// Queue returns a copy of the chat's pending tracks.
func (m *Manager) Queue(chatID int64) []models.Track {
	s := m.lockExisting(chatID)
	if s == nil {
		return nil
	}
	defer s.mu.Unlock()
	return s.snapshotQueueLocked()
}

// NowPlaying returns the active track and state for the chat.
func (m *Manager) NowPlaying(chatID int64) (*models.Track, models.SessionState, bool) {
	s := m.lockExisting(chatID)
	if s == nil {
		return nil, models.StateIdle, false
	}
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, s.state, true
	}
	copied := *s.current
	return &copied, s.state, true
}

// SessionCount reports how many chat sessions are tracked.
func (m *Manager) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown stops every session and leaves all call legs.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	chats := make([]int64, 0, len(m.sessions))
	for chatID := range m.sessions {
		chats = append(chats, chatID)
	}
	m.mu.Unlock()

	for _, chatID := range chats {
		if err := m.Stop(ctx, chatID); err != nil {
			m.logger.Warn().Err(err).Int64("chat", chatID).Msg("shutdown stop failed")
		}
	}
}

func (m *Manager) handleTrackEnd(ctx context.Context, end calls.TrackEnd) {
	s := m.lockExisting(end.ChatID)
	if s == nil {
		return
	}
	defer s.mu.Unlock()

	if s.state != models.StatePlaying && s.state != models.StatePaused {
		return
	}

	switch end.Reason {
	case models.EndFailed:
		telemetry.TrackFailures.Inc()
		ended := s.current
		payload := events.Payload{"chat_id": end.ChatID, "reason": string(end.Reason)}
		if ended != nil {
			payload["title"] = ended.Title
		}
		if end.Cause != nil {
			payload["cause"] = end.Cause.Error()
		}
		m.bus.Publish(events.EventAuditFailure, payload)

		// A stale descriptor must not be served again from cache.
		if end.ExpiredStream && ended != nil {
			m.cache.Invalidate(ctx, ended.Query, ended.Kind)
		}
		m.advanceLocked(ctx, s)

	case models.EndCompleted, models.EndSkipped:
		m.advanceLocked(ctx, s)

	case models.EndStopped:
		// Leg torn down externally (e.g. identity removed from the chat).
		s.queue = nil
		s.current = nil
		s.state = models.StateIdle
		m.bus.Publish(events.EventAuditStop, events.Payload{
			"chat_id":  end.ChatID,
			"external": true,
		})
	}
}

// advanceLocked pops the next track and plays it, or leaves the call when
// the queue is empty. Tracks whose join fails are discarded, not retried.
func (m *Manager) advanceLocked(ctx context.Context, s *session) {
	for {
		next := s.popLocked()
		if next == nil {
			if err := m.binding.Leave(ctx, s.chatID); err != nil {
				m.logger.Warn().Err(err).Int64("chat", s.chatID).Msg("leave on empty queue failed")
			}
			s.current = nil
			s.state = models.StateIdle
			return
		}

		if err := m.binding.Join(ctx, s.chatID, next.Descriptor); err != nil {
			m.bus.Publish(events.EventAuditFailure, events.Payload{
				"chat_id": s.chatID,
				"title":   next.Title,
				"cause":   err.Error(),
			})
			continue
		}

		m.startTrackLocked(s, next)
		return
	}
}

// startTrackLocked records the new current track and announces it.
func (m *Manager) startTrackLocked(s *session, track *models.Track) {
	s.current = track
	s.state = models.StatePlaying
	s.lastActivity = time.Now()

	telemetry.TracksPlayed.WithLabelValues(string(track.Kind)).Inc()
	m.bus.Publish(events.EventNowPlaying, events.Payload{
		"chat_id":      s.chatID,
		"title":        track.Title,
		"duration":     models.FormatDuration(track.Duration),
		"requested_by": track.RequestedBy.Name,
	})
	m.auditPlay(s.chatID, track, false)
}

func (m *Manager) auditPlay(chatID int64, track *models.Track, queued bool) {
	m.bus.Publish(events.EventAuditPlay, events.Payload{
		"chat_id":      chatID,
		"title":        track.Title,
		"query":        track.Query,
		"kind":         string(track.Kind),
		"requested_by": track.RequestedBy.Name,
		"queued":       queued,
	})
}

func (m *Manager) getOrCreate(chatID int64) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[chatID]
	if !ok {
		s = newSession(chatID)
		m.sessions[chatID] = s
		telemetry.ActiveSessions.Set(float64(len(m.sessions)))
	}
	return s
}

func (m *Manager) lookup(chatID int64) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[chatID]
}

// lockLive returns the chat's registered session with its lock held,
// creating one when absent. Retries when a concurrent Stop removed the
// session between the map lookup and the lock acquisition.
func (m *Manager) lockLive(chatID int64) *session {
	for {
		s := m.getOrCreate(chatID)
		s.mu.Lock()
		if !s.closed {
			return s
		}
		s.mu.Unlock()
	}
}

// lockExisting returns the locked session, or nil when the chat has none.
// A session closed by a racing Stop counts as absent.
func (m *Manager) lockExisting(chatID int64) *session {
	s := m.lookup(chatID)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	return s
}

func (m *Manager) removeSession(chatID int64) {
	m.mu.Lock()
	delete(m.sessions, chatID)
	telemetry.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()
}
