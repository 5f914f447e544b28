package capture

import (
	"context"
	"errors"
	"image"
	"sync"
)

// StillDevice serves one fixed frame. It stands in for camera hardware on
// kiosks without a camera and in tests.
type StillDevice struct {
	Frame image.Image
	// Err, when set, is returned by Open.
	Err error

	mu    sync.Mutex
	opens int
	live  []*stillStream
}

// Open returns a stream serving d.Frame.
func (d *StillDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.Err != nil {
		return nil, d.Err
	}
	if c.Audio {
		return nil, errors.New("still device: audio capture is not supported")
	}
	s := &stillStream{frame: d.Frame}
	d.mu.Lock()
	d.opens++
	d.live = append(d.live, s)
	d.mu.Unlock()
	return s, nil
}

// Opens reports how many streams were handed out.
func (d *StillDevice) Opens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

// Unplug ends every live stream as if the camera had disappeared. Holders
// are not told.
func (d *StillDevice) Unplug() {
	d.mu.Lock()
	live := d.live
	d.mu.Unlock()
	for _, s := range live {
		_ = s.Stop()
	}
}

// LiveTracks counts tracks that were opened and not yet stopped.
func (d *StillDevice) LiveTracks() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, s := range d.live {
		n += s.ActiveTracks()
	}
	return n
}

type stillStream struct {
	mu      sync.Mutex
	frame   image.Image
	stopped bool
}

func (s *stillStream) Frame(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, ErrCameraInactive
	}
	return s.frame, nil
}

func (s *stillStream) ActiveTracks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return 0
	}
	return 1
}

func (s *stillStream) Stop() error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	return nil
}
