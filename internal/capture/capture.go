// Package capture owns the camera stream and still-frame extraction over it.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/clive/kiosk-go/internal/config"
)

var (
	// ErrDeviceUnavailable is returned by Acquire when no camera is present or granted.
	ErrDeviceUnavailable = errors.New("capture: device unavailable")
	// ErrNotReady is returned by Snapshot when no frame has been decoded yet.
	ErrNotReady = errors.New("capture: no frame ready")
)

// Resource is a camera stream that can produce still frames.
//
// Acquire while acquired and Release while released are no-ops. Implementations
// are safe for concurrent use: Acquire runs on a command goroutine while Release
// is called from the program loop.
type Resource interface {
	Acquire(ctx context.Context) error
	Snapshot() (Frame, error)
	Release() error
	Acquired() bool
}

// Frame is one encoded still image taken from the stream
type Frame struct {
	Data       []byte
	MIMEType   string
	Width      int
	Height     int
	Seq        int64
	CapturedAt time.Time
}

// New builds the resource selected by cfg.Driver.
func New(cfg config.CameraConfig, logger *slog.Logger) (Resource, error) {
	switch cfg.Driver {
	case config.DriverFFmpeg, "":
		return NewCamera(cfg.Device, cfg.Command, cfg.StopGrace, logger), nil
	case config.DriverStill:
		return NewStillSource(cfg.StillPath), nil
	default:
		return nil, fmt.Errorf("capture: unknown driver %q", cfg.Driver)
	}
}

// Shutdown releases r for good at program exit, waiting for the device to be
// let go when r supports it.
func Shutdown(r Resource) error {
	if c, ok := r.(io.Closer); ok {
		return c.Close()
	}
	return r.Release()
}
