package capture

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const maxFrameSize = 16 << 20

// deviceToken is replaced with the configured device path in custom commands
const deviceToken = "{device}"

// Camera streams MJPEG frames from an ffmpeg process and keeps only the latest one.
type Camera struct {
	device  string
	command []string
	grace   time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	handle *streamHandle
	latest *Frame
	seq    int64

	// in-progress stops started by Release
	stopping sync.WaitGroup
}

// streamHandle manages one spawned capture process
type streamHandle struct {
	cmd  *exec.Cmd
	done chan struct{}

	mu     sync.Mutex
	killed bool
}

// NewCamera creates a camera for device. An empty command uses ffmpeg's v4l2 input.
func NewCamera(device string, command []string, grace time.Duration, logger *slog.Logger) *Camera {
	if logger == nil {
		logger = slog.Default()
	}
	return &Camera{
		device:  device,
		command: command,
		grace:   grace,
		logger:  logger,
	}
}

// defaultCommand reads the V4L2 device and writes a MJPEG stream to stdout
func defaultCommand() []string {
	return []string{
		"ffmpeg", "-hide_banner", "-loglevel", "error",
		"-f", "v4l2", "-i", deviceToken,
		"-f", "mjpeg", "-q:v", "4", "-r", "10", "-",
	}
}

func (c *Camera) args() (args []string, usesDevice bool) {
	src := c.command
	if len(src) == 0 {
		src = defaultCommand()
	}
	args = make([]string, len(src))
	for i, a := range src {
		if strings.Contains(a, deviceToken) {
			usesDevice = true
			a = strings.ReplaceAll(a, deviceToken, c.device)
		}
		args[i] = a
	}
	return args, usesDevice
}

// Acquire starts the capture process. Frames arrive asynchronously; Snapshot
// reports ErrNotReady until the first one is decoded.
func (c *Camera) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle != nil {
		return nil
	}

	args, usesDevice := c.args()
	if usesDevice {
		if _, err := os.Stat(c.device); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, c.device, err)
		}
	}
	if _, err := exec.LookPath(args[0]); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stderr = io.Discard
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: stdout pipe: %v", ErrDeviceUnavailable, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start %s: %v", ErrDeviceUnavailable, args[0], err)
	}

	h := &streamHandle{cmd: cmd, done: make(chan struct{})}
	c.handle = h
	c.latest = nil

	go c.readFrames(h, stdout)

	c.logger.Info("camera acquired", "device", c.device, "pid", cmd.Process.Pid)
	return nil
}

// readFrames decodes the stream until EOF, then reaps the process. Frames read
// after the handle was released are discarded.
func (c *Camera) readFrames(h *streamHandle, stdout io.Reader) {
	defer close(h.done)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 512<<10), maxFrameSize)
	scanner.Split(ScanJPEG)

	for scanner.Scan() {
		data := bytes.Clone(scanner.Bytes())
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			continue
		}

		c.mu.Lock()
		if c.handle != h {
			c.mu.Unlock()
			continue
		}
		c.seq++
		c.latest = &Frame{
			Data:       data,
			MIMEType:   "image/jpeg",
			Width:      cfg.Width,
			Height:     cfg.Height,
			Seq:        c.seq,
			CapturedAt: time.Now(),
		}
		c.mu.Unlock()
	}

	// Stream ended on its own (camera unplugged, ffmpeg crashed): drop the
	// handle so the next capture re-acquires.
	c.mu.Lock()
	if c.handle == h {
		c.handle = nil
		c.latest = nil
		c.logger.Warn("camera stream ended", "device", c.device, "error", scanner.Err())
	}
	c.mu.Unlock()

	if scanner.Err() != nil {
		// Oversized or unreadable frame: the process may still be writing.
		h.kill()
		io.Copy(io.Discard, stdout)
	}
	// Wait must follow the last read from the stdout pipe.
	h.cmd.Wait()
}

// Snapshot returns a copy of the most recent frame
func (c *Camera) Snapshot() (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil {
		return Frame{}, fmt.Errorf("%w: camera not acquired", ErrNotReady)
	}
	if c.latest == nil {
		return Frame{}, ErrNotReady
	}
	f := *c.latest
	f.Data = bytes.Clone(c.latest.Data)
	return f, nil
}

// Release stops the capture process. It never blocks on process exit: the
// process gets an interrupt and is killed if still alive after the grace period.
func (c *Camera) Release() error {
	h := c.detach()
	if h == nil {
		return nil
	}
	c.stopping.Add(1)
	go func() {
		defer c.stopping.Done()
		h.stop(c.grace)
	}()
	c.logger.Info("camera released", "device", c.device)
	return nil
}

// Close releases the camera and waits until every capture process it started
// has exited, including ones still stopping after an earlier Release.
func (c *Camera) Close() error {
	if h := c.detach(); h != nil {
		h.stop(c.grace)
		c.logger.Info("camera closed", "device", c.device)
	}
	c.stopping.Wait()
	return nil
}

func (c *Camera) detach() *streamHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.handle
	c.handle = nil
	c.latest = nil
	return h
}

// Acquired reports whether the capture process is running
func (c *Camera) Acquired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle != nil
}

// stop interrupts the process and kills it if it doesn't exit within grace
func (h *streamHandle) stop(grace time.Duration) {
	h.interrupt()
	select {
	case <-h.done:
		return
	case <-time.After(grace):
		h.kill()
		select {
		case <-h.done:
		case <-time.After(grace):
		}
	}
}

func (h *streamHandle) interrupt() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.killed && h.cmd.Process != nil {
		h.cmd.Process.Signal(os.Interrupt)
	}
}

func (h *streamHandle) kill() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.killed && h.cmd.Process != nil {
		h.killed = true
		h.cmd.Process.Kill()
	}
}
