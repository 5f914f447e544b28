package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
)

// ErrCameraInactive is returned by Snapshot when no stream is open.
var ErrCameraInactive = errors.New("capture: camera is not active")

// Facing selects which camera a device should open.
type Facing string

const (
	FacingUser        Facing = "user"
	FacingEnvironment Facing = "environment"
)

// Constraints describe the stream requested from a Device.
type Constraints struct {
	Facing Facing
	Audio  bool
}

// Device acquires video streams from camera hardware.
type Device interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is a live video stream. Stop releases every track and must be safe
// to call more than once.
type Stream interface {
	Frame(ctx context.Context) (image.Image, error)
	ActiveTracks() int
	Stop() error
}

// Session owns at most one camera stream at a time. Close is the single
// release path for toggle-off, teardown and failed activation.
type Session struct {
	mu     sync.Mutex
	device Device
	stream Stream
}

// NewSession creates an inactive session over device.
func NewSession(device Device) *Session {
	return &Session{device: device}
}

// Open acquires a front facing, video only stream. Opening an active session
// is a no-op. On failure the session is left inactive.
func (s *Session) Open(ctx context.Context) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != nil {
		if s.stream.ActiveTracks() > 0 {
			return nil
		}
		// The previous stream died on its own; replace it.
		_ = s.stream.Stop()
		s.stream = nil
	}
	if s.device == nil {
		return errors.New("capture: no camera device configured")
	}

	stream, err := s.device.Open(ctx, Constraints{Facing: FacingUser})
	defer func() {
		if err != nil && stream != nil {
			_ = stream.Stop()
		}
	}()
	if err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	if stream == nil {
		err = errors.New("open camera: device returned no stream")
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("open camera: %w", ctxErr)
		return err
	}

	s.stream = stream
	return nil
}

// Active reports whether a live stream is held. A stream whose process
// exited counts as inactive.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream != nil && s.stream.ActiveTracks() > 0
}

// ActiveTracks reports the number of live tracks held by the session.
func (s *Session) ActiveTracks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return 0
	}
	return s.stream.ActiveTracks()
}

// Snapshot copies the current frame and encodes it as JPEG.
func (s *Session) Snapshot(ctx context.Context) (*CapturedImage, error) {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()

	if stream == nil || stream.ActiveTracks() == 0 {
		return nil, ErrCameraInactive
	}
	frame, err := stream.Frame(ctx)
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	if frame == nil {
		return nil, ErrCameraInactive
	}
	return FromFrame(frame)
}

// Close stops the stream if one is held.
func (s *Session) Close() error {
	s.mu.Lock()
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()

	if stream == nil {
		return nil
	}
	return stream.Stop()
}
