package capture

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FFmpegDevice reads a camera through an ffmpeg child process that writes an
// MJPEG stream to stdout.
type FFmpegDevice struct {
	Binary string
	Format string // ffmpeg input format, e.g. v4l2 or avfoundation
	Input  string // device path or index
	// FirstFrameTimeout bounds how long Open waits for the camera to produce
	// its first frame.
	FirstFrameTimeout time.Duration
	Logger            *zap.Logger
}

// Open starts ffmpeg and waits for the first frame. Audio is never captured.
// ffmpeg has no notion of facing, so Input must already name the front camera.
func (d *FFmpegDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	if c.Audio {
		return nil, errors.New("ffmpeg device: audio capture is not supported")
	}

	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := d.FirstFrameTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	procCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(procCtx, d.Binary,
		"-hide_banner", "-loglevel", "error",
		"-f", d.Format, "-i", d.Input,
		"-an", "-f", "mjpeg", "-q:v", "2", "pipe:1",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	s := &ffmpegStream{
		cmd:    cmd,
		cancel: cancel,
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger.With(zap.String("camera_input", d.Input)),
	}
	go s.readFrames(stdout)

	select {
	case <-s.ready:
		return s, nil
	case <-s.done:
		_ = s.Stop()
		return nil, fmt.Errorf("ffmpeg exited before the first frame: %w", s.readErr())
	case <-time.After(timeout):
		_ = s.Stop()
		return nil, errors.New("ffmpeg device: timed out waiting for the first frame")
	case <-ctx.Done():
		_ = s.Stop()
		return nil, ctx.Err()
	}
}

type ffmpegStream struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	ready  chan struct{}
	done   chan struct{}
	logger *zap.Logger

	mu      sync.Mutex
	latest  []byte
	err     error
	stopped bool
	once    sync.Once
}

func (s *ffmpegStream) readFrames(r io.Reader) {
	defer close(s.done)

	readyOnce := sync.Once{}
	err := splitJPEGFrames(bufio.NewReaderSize(r, 1<<16), func(frame []byte) {
		s.mu.Lock()
		s.latest = frame
		s.mu.Unlock()
		readyOnce.Do(func() { close(s.ready) })
	})

	s.mu.Lock()
	s.err = err
	s.latest = nil
	s.mu.Unlock()
	if err != nil && !errors.Is(err, io.EOF) {
		s.logger.Warn("camera stream ended", zap.Error(err))
	}
}

func (s *ffmpegStream) readErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		return io.EOF
	}
	return s.err
}

func (s *ffmpegStream) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.ActiveTracks() == 0 {
		return nil, ErrCameraInactive
	}
	s.mu.Lock()
	frame := s.latest
	s.mu.Unlock()

	if frame == nil {
		return nil, ErrCameraInactive
	}
	img, err := jpeg.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}

func (s *ffmpegStream) ActiveTracks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return 0
	}
	select {
	case <-s.done:
		return 0
	default:
		return 1
	}
}

func (s *ffmpegStream) Stop() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.latest = nil
		s.mu.Unlock()

		s.cancel()
		// stdout must be drained before Wait closes it.
		<-s.done
		if s.cmd != nil {
			_ = s.cmd.Wait()
		}
		s.logger.Debug("camera stream stopped")
	})
	return nil
}

// splitJPEGFrames scans an MJPEG byte stream and calls emit for every complete
// JPEG image, delimited by the SOI (FFD8) and EOI (FFD9) markers.
func splitJPEGFrames(r io.ByteReader, emit func([]byte)) error {
	var (
		frame  []byte
		inside bool
		prev   byte
	)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		switch {
		case !inside && prev == 0xFF && b == 0xD8:
			inside = true
			frame = append(frame[:0:0], 0xFF, 0xD8)
		case inside:
			frame = append(frame, b)
			if prev == 0xFF && b == 0xD9 {
				emit(frame)
				frame = nil
				inside = false
				b = 0
			}
		}
		prev = b
	}
}
