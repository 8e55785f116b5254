package remote

import (
	"log/slog"
)

// DefaultChunkSize is the number of bytes written per chunk during uploads.
const DefaultChunkSize = 32 * 1024

// Option configures Mirror and UploadRelease.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	progress  ProgressTracker
	chunkSize int
}

func defaultOptions() *options {
	return &options{
		logger:    nil, // No default logger
		progress:  NopProgress{},
		chunkSize: DefaultChunkSize,
	}
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger for operation-level messages.
// If logger is nil, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithProgress sets the progress tracker. A nil tracker discards events.
func WithProgress(tracker ProgressTracker) Option {
	return func(o *options) {
		if tracker == nil {
			tracker = NopProgress{}
		}
		o.progress = tracker
	}
}

// WithChunkSize sets the upload chunk size. Non-positive values are ignored.
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

func (o *options) debug(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Debug(msg, args...)
	}
}

func (o *options) info(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Info(msg, args...)
	}
}
