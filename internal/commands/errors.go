/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package commands

import (
	"errors"

	"github.com/Skssssee/Musict/internal/calls"
	"github.com/Skssssee/Musict/internal/player"
	"github.com/Skssssee/Musict/internal/resolver"
)

// Authorization failures are distinct from functional errors so the caller
// can reply differently to "you may not" and "it did not work".
var (
	ErrNotOwner = errors.New("command requires the owner")
	ErrNotSudo  = errors.New("command requires elevated access")
)

// UserMessage maps an error to a short reply suitable for the issuing chat.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotOwner):
		return "Only the owner can do that."
	case errors.Is(err, ErrNotSudo):
		return "You need elevated access for that."
	case errors.Is(err, player.ErrPrecondition):
		return "Nothing to do in the current playback state."
	}

	var rerr *resolver.Error
	if errors.As(err, &rerr) {
		return resolver.UserMessage(err)
	}

	var cerr *calls.Error
	if errors.As(err, &cerr) {
		switch cerr.Kind {
		case calls.KindNotReady:
			return "Still starting up, try again in a moment."
		case calls.KindTimeout:
			return "Joining the call timed out."
		default:
			return "Could not join the call in this chat."
		}
	}

	return "Something went wrong, please try again."
}
