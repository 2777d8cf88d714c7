package services

import "time"

// DefaultMaxAttempts bounds how often a unit of work is retried after an
// optimistic-concurrency conflict.
const DefaultMaxAttempts = 3

type settings struct {
	now               func() time.Time
	maxAttempts       int
	retryBackoff      time.Duration
	extractionTimeout time.Duration
	analysisTimeout   time.Duration
	maxFileSize       int64
}

func defaultSettings() settings {
	return settings{
		now:               time.Now,
		maxAttempts:       DefaultMaxAttempts,
		retryBackoff:      5 * time.Millisecond,
		extractionTimeout: 60 * time.Second,
		analysisTimeout:   90 * time.Second,
		maxFileSize:       50 * 1024 * 1024,
	}
}

func applyOptions(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option tunes a service.
type Option func(*settings)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithMaxAttempts sets how many times a conflicting unit of work runs
// before ConcurrentModification is returned.
func WithMaxAttempts(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithTimeouts sets the per-call collaborator timeouts. Zero keeps the default.
func WithTimeouts(extraction, analysis time.Duration) Option {
	return func(s *settings) {
		if extraction > 0 {
			s.extractionTimeout = extraction
		}
		if analysis > 0 {
			s.analysisTimeout = analysis
		}
	}
}

// WithMaxFileSize bounds uploads.
func WithMaxFileSize(n int64) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxFileSize = n
		}
	}
}
