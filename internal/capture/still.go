package capture

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"os"
	"sync"
	"time"
)

// StillSource serves a JPEG file as the live frame. It stands in for a camera
// on kiosks without one and in demos.
type StillSource struct {
	path string

	mu    sync.Mutex
	frame *Frame
	seq   int64
}

// NewStillSource creates a source for the JPEG at path
func NewStillSource(path string) *StillSource {
	return &StillSource{path: path}
}

// Acquire loads and decodes the file
func (s *StillSource) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame != nil {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %s is not a jpeg: %v", ErrDeviceUnavailable, s.path, err)
	}
	s.frame = &Frame{
		Data:     data,
		MIMEType: "image/jpeg",
		Width:    cfg.Width,
		Height:   cfg.Height,
	}
	return nil
}

// Snapshot returns the file contents stamped as a fresh frame
func (s *StillSource) Snapshot() (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame == nil {
		return Frame{}, ErrNotReady
	}
	s.seq++
	f := *s.frame
	f.Data = bytes.Clone(s.frame.Data)
	f.Seq = s.seq
	f.CapturedAt = time.Now()
	return f, nil
}

// Release forgets the loaded frame
func (s *StillSource) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = nil
	return nil
}

// Acquired reports whether the file is loaded
func (s *StillSource) Acquired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame != nil
}
