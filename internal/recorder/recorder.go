// Package recorder mirrors raw protocol traffic to numbered files for
// offline diagnosis. Recording is best-effort: failures are logged and never
// alter control flow.
package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"go.uber.org/zap"
)

// EnvDir names the environment variable that enables recording.
const EnvDir = "TWS_RECORD_DIR"

// Recorder writes NNNN-request.msg / NNNN-response.msg pairs under a
// directory. A nil *Recorder is valid and records nothing.
type Recorder struct {
	dir string
	seq atomic.Int64
	log *zap.Logger
}

// New creates a recorder rooted at dir, creating it if needed. Returns nil
// (recording disabled) when dir is empty.
func New(dir string, log *zap.Logger) *Recorder {
	if dir == "" {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn("recorder disabled: cannot create directory",
			zap.String("dir", dir), zap.Error(err))
		return nil
	}
	return &Recorder{dir: dir, log: log}
}

// FromEnv creates a recorder from EnvDir, or nil when unset.
func FromEnv(log *zap.Logger) *Recorder {
	return New(os.Getenv(EnvDir), log)
}

// Request records one outgoing payload.
func (r *Recorder) Request(payload []byte) {
	r.write("request", payload)
}

// Response records one incoming payload.
func (r *Recorder) Response(payload []byte) {
	r.write("response", payload)
}

func (r *Recorder) write(kind string, payload []byte) {
	if r == nil {
		return
	}
	n := r.seq.Add(1)
	name := filepath.Join(r.dir, fmt.Sprintf("%04d-%s.msg", n, kind))
	if err := os.WriteFile(name, payload, 0o644); err != nil {
		r.log.Warn("recorder write failed", zap.String("file", name), zap.Error(err))
	}
}
