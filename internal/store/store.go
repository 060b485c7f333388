/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package store persists the permission set, the channel registry, and the
// audit routing configuration. Sessions and queues stay in memory; this is
// the only durable state the bot owns.
package store

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skssssee/Musict/internal/models"
)

const auditConfigID = 1

// Store wraps the durable collections behind single-key operations.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger

	ownerID       int64
	fallbackAudit int64
}

// New creates a store bound to the fixed owner identity. fallbackAudit is the
// statically configured audit channel used when no logger chat is enabled
// (0 = none).
func New(db *gorm.DB, ownerID, fallbackAudit int64, logger zerolog.Logger) *Store {
	return &Store{
		db:            db,
		logger:        logger.With().Str("component", "store").Logger(),
		ownerID:       ownerID,
		fallbackAudit: fallbackAudit,
	}
}

// OwnerID returns the fixed owner identity.
func (s *Store) OwnerID() int64 {
	return s.ownerID
}

// IsOwner is a pure equality test against the configured owner.
func (s *Store) IsOwner(userID int64) bool {
	return userID == s.ownerID
}

// IsSudo reports whether the identity is the owner or a persisted sudo user.
func (s *Store) IsSudo(ctx context.Context, userID int64) (bool, error) {
	if s.IsOwner(userID) {
		return true, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.SudoUser{}).Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// AddSudo grants elevated access. Idempotent; the owner is never stored.
func (s *Store) AddSudo(ctx context.Context, userID int64) error {
	if s.IsOwner(userID) {
		return nil
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.SudoUser{UserID: userID, CreatedAt: time.Now()}).Error
}

// RemoveSudo revokes elevated access. Removing an absent identity is a no-op.
func (s *Store) RemoveSudo(ctx context.Context, userID int64) error {
	return s.db.WithContext(ctx).Delete(&models.SudoUser{}, "user_id = ?", userID).Error
}

// SudoUsers lists all persisted sudo identities.
func (s *Store) SudoUsers(ctx context.Context) ([]int64, error) {
	var rows []models.SudoUser
	if err := s.db.WithContext(ctx).Order("user_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.UserID)
	}
	return ids, nil
}

// RecordChat inserts the chat into the channel registry. Idempotent; called
// on every inbound command.
func (s *Store) RecordChat(ctx context.Context, chatID int64) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.KnownChat{ChatID: chatID, CreatedAt: time.Now()}).Error
}

// Chats lists every channel that has issued at least one command.
func (s *Store) Chats(ctx context.Context) ([]int64, error) {
	var rows []models.KnownChat
	if err := s.db.WithContext(ctx).Order("chat_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ChatID)
	}
	return ids, nil
}

// SetAuditEnabled turns audit logging on, routing entries to destination.
func (s *Store) SetAuditEnabled(ctx context.Context, destination int64) error {
	cfg := models.AuditConfig{
		ID:                auditConfigID,
		Enabled:           true,
		DestinationChatID: destination,
		UpdatedAt:         time.Now(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"enabled", "destination_chat_id", "updated_at"}),
		}).
		Create(&cfg).Error
}

// SetAuditDisabled turns audit logging off. The stored destination is kept.
func (s *Store) SetAuditDisabled(ctx context.Context) error {
	cfg := models.AuditConfig{ID: auditConfigID, Enabled: false, UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"enabled", "updated_at"}),
		}).
		Create(&cfg).Error
}

// AuditEnabled reports whether audit logging is switched on.
func (s *Store) AuditEnabled(ctx context.Context) (bool, error) {
	var cfg models.AuditConfig
	err := s.db.WithContext(ctx).First(&cfg, "id = ?", auditConfigID).Error
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return cfg.Enabled, nil
}

// AuditDestination resolves where audit lines go. Priority: the enabled
// logger chat, then the static fallback channel. ok is false when audit
// lines should be dropped.
func (s *Store) AuditDestination(ctx context.Context) (chatID int64, ok bool) {
	var cfg models.AuditConfig
	err := s.db.WithContext(ctx).First(&cfg, "id = ?", auditConfigID).Error
	if err == nil && cfg.Enabled && cfg.DestinationChatID != 0 {
		return cfg.DestinationChatID, true
	}
	if err != nil && err != gorm.ErrRecordNotFound {
		s.logger.Error().Err(err).Msg("audit config read failed")
	}
	if s.fallbackAudit != 0 {
		return s.fallbackAudit, true
	}
	return 0, false
}
