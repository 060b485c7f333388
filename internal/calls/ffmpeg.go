/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package calls

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Skssssee/Musict/internal/models"
)

// FFmpegTransport plays streams locally by running one ffmpeg process per
// chat. It stands in for a real call transport in development and single-host
// deployments; natural process exits are reported through the end callback.
type FFmpegTransport struct {
	bin    string
	logger zerolog.Logger
	onEnd  func(chatID int64, cause error)

	mu    sync.Mutex
	procs map[int64]*proc
}

type proc struct {
	cmd     *exec.Cmd
	done    chan struct{}
	stopped bool
	mu      sync.Mutex
}

// NewFFmpegTransport creates the transport. OnEnd must be set before the
// first Play call.
func NewFFmpegTransport(bin string, logger zerolog.Logger) *FFmpegTransport {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpegTransport{
		bin:    bin,
		logger: logger.With().Str("component", "ffmpeg-transport").Logger(),
		procs:  make(map[int64]*proc),
	}
}

// OnEnd registers the natural end-of-stream callback.
func (t *FFmpegTransport) OnEnd(fn func(chatID int64, cause error)) {
	t.onEnd = fn
}

// Play starts streaming the descriptor for the chat, replacing any stream
// already playing there.
func (t *FFmpegTransport) Play(ctx context.Context, chatID int64, d models.StreamDescriptor) error {
	t.stopProc(chatID)

	args := []string{"-hide_banner", "-loglevel", "error", "-re", "-i", d.URL}
	if d.Kind == models.MediaVideo {
		args = append(args, "-f", "null", "-")
	} else {
		args = append(args, "-vn", "-f", "null", "-")
	}

	cmd := exec.Command(t.bin, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	p := &proc{cmd: cmd, done: make(chan struct{})}
	t.mu.Lock()
	t.procs[chatID] = p
	t.mu.Unlock()

	go func() {
		err := cmd.Wait()
		close(p.done)

		p.mu.Lock()
		deliberate := p.stopped
		p.mu.Unlock()
		if deliberate {
			return
		}

		t.mu.Lock()
		if t.procs[chatID] == p {
			delete(t.procs, chatID)
		}
		t.mu.Unlock()

		if err != nil {
			t.logger.Debug().Err(err).Int64("chat", chatID).Msg("ffmpeg exited with error")
		}
		if t.onEnd != nil {
			t.onEnd(chatID, err)
		}
	}()

	return nil
}

// Leave stops the chat's process if one is running.
func (t *FFmpegTransport) Leave(_ context.Context, chatID int64) error {
	t.stopProc(chatID)
	return nil
}

// Pause suspends the chat's process.
func (t *FFmpegTransport) Pause(_ context.Context, chatID int64) error {
	return t.signal(chatID, syscall.SIGSTOP)
}

// Resume continues the chat's process.
func (t *FFmpegTransport) Resume(_ context.Context, chatID int64) error {
	return t.signal(chatID, syscall.SIGCONT)
}

func (t *FFmpegTransport) signal(chatID int64, sig syscall.Signal) error {
	t.mu.Lock()
	p, ok := t.procs[chatID]
	t.mu.Unlock()
	if !ok || p.cmd.Process == nil {
		return fmt.Errorf("no stream for chat %d", chatID)
	}
	return p.cmd.Process.Signal(sig)
}

// stopProc terminates a chat's process deliberately so the exit is not
// reported as a natural stream end.
func (t *FFmpegTransport) stopProc(chatID int64) {
	t.mu.Lock()
	p, ok := t.procs[chatID]
	delete(t.procs, chatID)
	t.mu.Unlock()
	if !ok {
		return
	}

	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	select {
	case <-p.done:
		return
	default:
	}

	if p.cmd.Process != nil {
		_ = p.cmd.Process.Signal(os.Interrupt)
	}

	select {
	case <-time.After(5 * time.Second):
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
		<-p.done
	case <-p.done:
	}
}
