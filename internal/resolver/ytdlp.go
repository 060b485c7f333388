/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Skssssee/Musict/internal/models"
)

// YTDLP resolves queries by invoking the yt-dlp extractor without
// downloading. Stream URLs it returns are time-limited upstream.
type YTDLP struct {
	bin         string
	cookiesFile string
	logger      zerolog.Logger
}

// NewYTDLP creates a yt-dlp backed resolver. cookiesFile is optional and
// passed through to the extractor to get past upstream consent walls.
func NewYTDLP(bin, cookiesFile string, logger zerolog.Logger) *YTDLP {
	if bin == "" {
		bin = "yt-dlp"
	}
	return &YTDLP{
		bin:         bin,
		cookiesFile: cookiesFile,
		logger:      logger.With().Str("component", "resolver").Logger(),
	}
}

type ytdlpInfo struct {
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Ext      string  `json:"ext"`
	Duration float64 `json:"duration"`
	IsLive   bool    `json:"is_live"`
}

// Resolve runs the extractor and parses its JSON output.
func (y *YTDLP) Resolve(ctx context.Context, query string, kind models.MediaKind) (Resolution, error) {
	format := "bestaudio/best"
	if kind == models.MediaVideo {
		format = "best[height<=360]"
	}

	args := []string{"-j", "--no-warnings", "--no-playlist", "-f", format}
	if y.cookiesFile != "" {
		args = append(args, "--cookies", y.cookiesFile)
	}
	if !strings.Contains(query, "://") {
		query = "ytsearch1:" + query
	}
	args = append(args, query)

	cmd := exec.CommandContext(ctx, y.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	y.logger.Debug().Str("query", query).Dur("took", time.Since(start)).Err(err).Msg("extractor finished")

	if err != nil {
		return Resolution{}, &Error{Kind: classify(ctx, stderr.String()), Query: query, Err: err}
	}

	var info ytdlpInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return Resolution{}, &Error{Kind: KindNetwork, Query: query, Err: err}
	}
	if info.URL == "" {
		return Resolution{}, &Error{Kind: KindNotFound, Query: query}
	}

	duration := time.Duration(info.Duration * float64(time.Second))
	if info.IsLive {
		duration = 0
	}

	return Resolution{
		Title:    info.Title,
		Duration: duration,
		Descriptor: models.StreamDescriptor{
			URL:      info.URL,
			Format:   info.Ext,
			Kind:     kind,
			IssuedAt: time.Now(),
		},
	}, nil
}

// classify maps extractor failures onto the error taxonomy.
func classify(ctx context.Context, stderr string) Kind {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return KindNetwork
	}

	lowered := strings.ToLower(stderr)
	switch {
	case strings.Contains(lowered, "sign in to confirm"),
		strings.Contains(lowered, "confirm you're not a bot"),
		strings.Contains(lowered, "consent"),
		strings.Contains(lowered, "captcha"):
		return KindUpstreamBlocked
	case strings.Contains(lowered, "video unavailable"),
		strings.Contains(lowered, "not available"),
		strings.Contains(lowered, "unsupported url"),
		strings.Contains(lowered, "no video results"),
		strings.Contains(lowered, "404"):
		return KindNotFound
	default:
		return KindNetwork
	}
}
