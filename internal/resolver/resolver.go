/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package resolver turns a user query into a playable stream descriptor.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Skssssee/Musict/internal/models"
)

// Kind classifies resolution failures. Callers surface distinct user-facing
// messages per kind.
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindNetwork         Kind = "network"
	KindUpstreamBlocked Kind = "upstream_blocked"
)

// Error is a typed resolution failure.
type Error struct {
	Kind  Kind
	Query string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolve %q: %s: %v", e.Query, e.Kind, e.Err)
	}
	return fmt.Sprintf("resolve %q: %s", e.Query, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind, defaulting to network for untyped errors.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindNetwork
}

// UserMessage renders the one-line caller-facing reason for a failure.
func UserMessage(err error) string {
	switch KindOf(err) {
	case KindNotFound:
		return "no result found for that query"
	case KindUpstreamBlocked:
		return "the source refused the request, try again later"
	default:
		return "source temporarily unavailable"
	}
}

// Resolution is a successful lookup: stream handle plus display metadata.
type Resolution struct {
	Title      string
	Duration   time.Duration // 0 = live or unknown
	Descriptor models.StreamDescriptor
}

// Resolver resolves queries to stream descriptors. Implementations are
// network-bound and may block for seconds; callers bound them with a context.
type Resolver interface {
	Resolve(ctx context.Context, query string, kind models.MediaKind) (Resolution, error)
}
