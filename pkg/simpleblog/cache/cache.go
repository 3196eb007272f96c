// Package cache holds the entry format and validity rules shared by the
// content cache backends in its subpackages.
package cache

import (
	"encoding/json"
	"errors"
	"time"
)

// ValidityWindow is how long an entry may be served after it was written.
const ValidityWindow = 3 * 24 * time.Hour

// Entry is a cached markdown body and the time it was written.
type Entry struct {
	Content   []byte
	Timestamp time.Time
}

type envelope struct {
	Content   []byte `json:"content"`
	Timestamp *int64 `json:"timestamp"`
}

// Encode serializes the entry as JSON with a millisecond timestamp.
func Encode(e Entry) ([]byte, error) {
	ms := e.Timestamp.UnixMilli()
	return json.Marshal(envelope{Content: e.Content, Timestamp: &ms})
}

// Decode parses an encoded entry. Payloads that are not valid JSON, carry
// undecodable content or lack a timestamp are rejected.
func Decode(data []byte) (Entry, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Entry{}, err
	}
	if env.Timestamp == nil {
		return Entry{}, errors.New("cache entry has no timestamp")
	}
	return Entry{Content: env.Content, Timestamp: time.UnixMilli(*env.Timestamp)}, nil
}

// Fresh reports whether an entry written at ts is still valid at now.
func Fresh(ts, now time.Time, window time.Duration) bool {
	return now.Sub(ts) < window
}

// Options is the configuration common to every backend.
type Options struct {
	Now    func() time.Time
	Window time.Duration
}

// Option configures a backend.
type Option func(*Options)

// WithClock replaces the time source used to stamp and check entries.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		if now != nil {
			o.Now = now
		}
	}
}

// WithWindow overrides ValidityWindow.
func WithWindow(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.Window = d
		}
	}
}

// Apply resolves opts over the defaults.
func Apply(opts ...Option) Options {
	o := Options{Now: time.Now, Window: ValidityWindow}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Fresh reports whether an entry written at ts is valid under o.
func (o Options) Fresh(ts time.Time) bool {
	return Fresh(ts, o.Now(), o.Window)
}
