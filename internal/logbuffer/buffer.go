/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package logbuffer keeps the most recent log lines in memory so operators
// can inspect them over the ops HTTP surface without shell access.
package logbuffer

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Entry is one captured log line.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Component string    `json:"component,omitempty"`
	Message   string    `json:"message"`
	Raw       string    `json:"raw"`
}

// Buffer is a fixed-capacity ring of log entries. It implements io.Writer so
// it can be attached as an additional zerolog output.
type Buffer struct {
	mu       sync.RWMutex
	entries  []Entry
	capacity int
	head     int
	count    int
}

// New creates a buffer holding up to capacity entries.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Buffer{
		entries:  make([]Entry, capacity),
		capacity: capacity,
	}
}

// Write captures one zerolog JSON line. Always reports success; log capture
// must never fail the logger.
func (b *Buffer) Write(p []byte) (int, error) {
	entry := Entry{Timestamp: time.Now(), Raw: string(p)}

	var fields map[string]any
	if err := json.Unmarshal(p, &fields); err == nil {
		if v, ok := fields["level"].(string); ok {
			entry.Level = v
		}
		if v, ok := fields["component"].(string); ok {
			entry.Component = v
		}
		if v, ok := fields["message"].(string); ok {
			entry.Message = v
		}
		if v, ok := fields["time"].(string); ok {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				entry.Timestamp = t
			}
		}
	}

	b.mu.Lock()
	b.entries[b.head] = entry
	b.head = (b.head + 1) % b.capacity
	if b.count < b.capacity {
		b.count++
	}
	b.mu.Unlock()

	return len(p), nil
}

// Recent returns up to n entries, oldest first. n <= 0 returns everything.
func (b *Buffer) Recent(n int) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n <= 0 || n > b.count {
		n = b.count
	}
	out := make([]Entry, 0, n)

	start := b.head - n
	if start < 0 {
		start += b.capacity
	}
	for i := 0; i < n; i++ {
		out = append(out, b.entries[(start+i)%b.capacity])
	}
	return out
}

// Len reports how many entries are currently held.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Handler serves the captured entries as JSON. The limit query parameter
// bounds the response.
func (b *Buffer) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				limit = parsed
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(b.Recent(limit))
	}
}
