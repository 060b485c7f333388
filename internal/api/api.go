/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the command surface over HTTP. Chat frontends post
// commands here; the body carries the command type plus its payload and the
// response carries the reply text for the origin chat.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Skssssee/Musict/internal/calls"
	"github.com/Skssssee/Musict/internal/commands"
	"github.com/Skssssee/Musict/internal/models"
	"github.com/Skssssee/Musict/internal/player"
	"github.com/Skssssee/Musict/internal/resolver"
)

// API handles the HTTP command surface.
type API struct {
	commands *commands.Router
	logger   zerolog.Logger
}

// New creates the API handler.
func New(router *commands.Router, logger zerolog.Logger) *API {
	return &API{
		commands: router,
		logger:   logger.With().Str("component", "api").Logger(),
	}
}

// RegisterRoutes registers the command endpoint.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Post("/v1/commands", a.handleCommand)
}

// commandRequest is the wire form of one inbound command.
type commandRequest struct {
	Type     string `json:"type"`
	ChatID   int64  `json:"chat_id"`
	UserID   int64  `json:"user_id"`
	UserName string `json:"user_name"`

	Query       string `json:"query,omitempty"`
	Kind        string `json:"kind,omitempty"`
	TargetID    int64  `json:"target_id,omitempty"`
	Destination int64  `json:"destination,omitempty"`
	Text        string `json:"text,omitempty"`
}

func (a *API) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cmd, err := req.toCommand()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reply, err := a.commands.Dispatch(r.Context(), cmd)
	if err != nil {
		a.logger.Debug().Err(err).Str("type", req.Type).Int64("chat", req.ChatID).Msg("command failed")
		writeError(w, statusFor(err), commands.UserMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"reply": reply})
}

func (r commandRequest) toCommand() (commands.Command, error) {
	origin := commands.Origin{
		ChatID:    r.ChatID,
		Requester: models.Requester{ID: r.UserID, Name: r.UserName},
	}
	if origin.ChatID == 0 || origin.Requester.ID == 0 {
		return nil, errors.New("chat_id and user_id are required")
	}

	switch r.Type {
	case "play":
		if r.Query == "" {
			return nil, errors.New("query is required")
		}
		kind := models.MediaAudio
		if r.Kind == string(models.MediaVideo) {
			kind = models.MediaVideo
		}
		return commands.Play{From: origin, Query: r.Query, Kind: kind}, nil
	case "pause":
		return commands.Pause{From: origin}, nil
	case "resume":
		return commands.Resume{From: origin}, nil
	case "skip":
		return commands.Skip{From: origin}, nil
	case "stop":
		return commands.Stop{From: origin}, nil
	case "queue":
		return commands.Queue{From: origin}, nil
	case "now_playing":
		return commands.NowPlaying{From: origin}, nil
	case "add_sudo":
		return commands.AddSudo{From: origin, TargetID: r.TargetID}, nil
	case "remove_sudo":
		return commands.RemoveSudo{From: origin, TargetID: r.TargetID}, nil
	case "sudo_list":
		return commands.SudoList{From: origin}, nil
	case "is_sudo":
		return commands.IsSudo{From: origin, TargetID: r.TargetID}, nil
	case "audit_on":
		return commands.AuditOn{From: origin, Destination: r.Destination}, nil
	case "audit_off":
		return commands.AuditOff{From: origin}, nil
	case "broadcast":
		if r.Text == "" {
			return nil, errors.New("text is required")
		}
		return commands.Broadcast{From: origin, Text: r.Text}, nil
	default:
		return nil, fmt.Errorf("unknown command type %q", r.Type)
	}
}

// statusFor maps the error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, commands.ErrNotOwner), errors.Is(err, commands.ErrNotSudo):
		return http.StatusForbidden
	case errors.Is(err, player.ErrPrecondition):
		return http.StatusConflict
	}

	var rerr *resolver.Error
	if errors.As(err, &rerr) {
		switch rerr.Kind {
		case resolver.KindNotFound:
			return http.StatusNotFound
		case resolver.KindUpstreamBlocked:
			return http.StatusBadGateway
		default:
			return http.StatusGatewayTimeout
		}
	}

	var cerr *calls.Error
	if errors.As(err, &cerr) {
		switch cerr.Kind {
		case calls.KindNotReady:
			return http.StatusServiceUnavailable
		case calls.KindTimeout:
			return http.StatusGatewayTimeout
		default:
			return http.StatusBadGateway
		}
	}

	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
