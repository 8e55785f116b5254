package remote

import (
	"log/slog"
)

// ProgressTracker receives transfer progress events.
//
// For each file FileStarted is called once before any ChunkWritten event for
// that file and FileFinished once after the last one. BatchFinished is called
// when a whole Mirror or UploadRelease operation has completed. Events are
// delivered synchronously on the transferring goroutine.
type ProgressTracker interface {
	FileStarted(localPath, remotePath string, size int64)
	ChunkWritten(remotePath string, offset int64, n int)
	FileFinished(remotePath string)
	BatchFinished()
}

// NopProgress discards every event.
type NopProgress struct{}

// FileStarted implements ProgressTracker.
func (NopProgress) FileStarted(string, string, int64) {}

// ChunkWritten implements ProgressTracker.
func (NopProgress) ChunkWritten(string, int64, int) {}

// FileFinished implements ProgressTracker.
func (NopProgress) FileFinished(string) {}

// BatchFinished implements ProgressTracker.
func (NopProgress) BatchFinished() {}

// LogProgress reports progress through a structured logger. File boundaries
// are logged at info level and chunks at debug level.
type LogProgress struct {
	logger *slog.Logger
	files  int
	bytes  int64
}

// NewLogProgress creates a LogProgress writing to logger.
// A nil logger uses slog.Default().
func NewLogProgress(logger *slog.Logger) *LogProgress {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogProgress{logger: logger}
}

// FileStarted implements ProgressTracker.
func (p *LogProgress) FileStarted(localPath, remotePath string, size int64) {
	p.logger.Info("uploading", "local", localPath, "remote", remotePath, "size", size)
}

// ChunkWritten implements ProgressTracker.
func (p *LogProgress) ChunkWritten(remotePath string, offset int64, n int) {
	p.bytes += int64(n)
	p.logger.Debug("chunk written", "remote", remotePath, "offset", offset, "bytes", n)
}

// FileFinished implements ProgressTracker.
func (p *LogProgress) FileFinished(remotePath string) {
	p.files++
	p.logger.Info("uploaded", "remote", remotePath)
}

// BatchFinished implements ProgressTracker.
func (p *LogProgress) BatchFinished() {
	p.logger.Info("upload complete", "files", p.files, "bytes", p.bytes)
	p.files, p.bytes = 0, 0
}
