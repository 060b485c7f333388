/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package calls

import (
	"errors"
	"fmt"
)

// Kind classifies transport failures.
type Kind string

const (
	KindNotReady Kind = "not_ready"
	KindTimeout  Kind = "timeout"
	KindRejected Kind = "rejected"
)

// Error is a typed transport failure.
type Error struct {
	Kind   Kind
	ChatID int64
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport chat %d: %s: %v", e.ChatID, e.Kind, e.Err)
	}
	return fmt.Sprintf("transport chat %d: %s", e.ChatID, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind, defaulting to rejected for untyped errors.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindRejected
}
