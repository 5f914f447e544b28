// Package checkin is the kiosk component: it owns the current capture, the
// display state and the camera session, and drives one authentication
// attempt at a time.
package checkin

import (
	"context"
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/example/photoauth/internal/capture"
	"github.com/example/photoauth/internal/logging"
	"github.com/example/photoauth/internal/preview"
	"github.com/example/photoauth/internal/usecase"
)

var (
	// ErrNoPhoto is returned by Authenticate when nothing has been captured.
	ErrNoPhoto = errors.New(preview.MsgNoPhoto)
	// ErrBusy is returned when an attempt is already in flight.
	ErrBusy = errors.New("an authentication attempt is already running")
)

// Authenticator runs one upload and recognition round.
type Authenticator interface {
	Authenticate(ctx context.Context, data []byte) (*usecase.Attempt, error)
}

// Kiosk is the single check-in component.
type Kiosk struct {
	auth     Authenticator
	camera   *capture.Session
	previews *preview.Registry
	logger   *zap.Logger

	// camMu serialises camera transitions; it is taken before mu.
	camMu sync.Mutex

	mu      sync.Mutex
	state   preview.State
	current *capture.CapturedImage
	busy    bool
}

// New creates a kiosk. camera may be nil when no device is configured.
func New(auth Authenticator, camera *capture.Session, previews *preview.Registry, logger *zap.Logger) *Kiosk {
	if previews == nil {
		previews = preview.NewRegistry()
	}
	return &Kiosk{
		auth:     auth,
		camera:   camera,
		previews: previews,
		logger:   logger.Named("kiosk"),
		state:    preview.Initial(),
	}
}

// State returns the current display state.
func (k *Kiosk) State() preview.State {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.state
}

// Preview returns the bytes behind a preview URL.
func (k *Kiosk) Preview(id string) ([]byte, bool) {
	return k.previews.Get(id)
}

// SelectFile captures an operator supplied image file.
func (k *Kiosk) SelectFile(r io.Reader) (preview.State, error) {
	img, err := capture.FromReader(r)
	if err != nil {
		return k.State(), err
	}
	return k.show(img), nil
}

// SetCamera turns camera mode on or off. A failed activation is not an
// error for the caller: the camera stays off and the status text says so.
func (k *Kiosk) SetCamera(ctx context.Context, on bool) preview.State {
	k.camMu.Lock()
	defer k.camMu.Unlock()
	return k.setCamera(ctx, on)
}

// ToggleCamera flips camera mode.
func (k *Kiosk) ToggleCamera(ctx context.Context) preview.State {
	k.camMu.Lock()
	defer k.camMu.Unlock()
	return k.setCamera(ctx, !k.State().CameraActive)
}

func (k *Kiosk) setCamera(ctx context.Context, on bool) preview.State {
	if !on {
		if k.camera != nil {
			if err := k.camera.Close(); err != nil {
				k.logger.Warn("camera release failed", zap.Error(err))
			}
		}
		return k.dispatch(preview.CameraDeactivated{})
	}

	if k.camera == nil {
		k.logger.Warn("camera requested but no device is configured")
		return k.dispatch(preview.CameraFailed{Err: errors.New("no camera device")})
	}
	if err := k.camera.Open(ctx); err != nil {
		k.logger.Warn("camera activation failed", zap.Error(logging.NewOperationError("kiosk.camera_open", "", err)))
		_ = k.camera.Close()
		return k.dispatch(preview.CameraFailed{Err: err})
	}
	return k.dispatch(preview.CameraActivated{})
}

// Snapshot captures the current camera frame. Without an active stream it
// does nothing.
func (k *Kiosk) Snapshot(ctx context.Context) (preview.State, error) {
	if k.camera == nil {
		return k.State(), nil
	}
	img, err := k.camera.Snapshot(ctx)
	if errors.Is(err, capture.ErrCameraInactive) {
		if k.State().CameraActive {
			return k.cameraLost(), nil
		}
		return k.State(), nil
	}
	if err != nil {
		return k.State(), logging.NewOperationError("kiosk.snapshot", "", err)
	}
	return k.show(img), nil
}

// Authenticate uploads the current capture and applies the recognition
// answer. Failures are reflected in the returned state; the error is only
// informative.
func (k *Kiosk) Authenticate(ctx context.Context) (preview.State, error) {
	k.mu.Lock()
	if k.busy {
		state := k.state
		k.mu.Unlock()
		return state, ErrBusy
	}
	img := k.current
	if img == nil {
		k.state = preview.Reduce(k.state, preview.PhotoMissing{})
		state := k.state
		k.mu.Unlock()
		return state, ErrNoPhoto
	}
	k.busy = true
	k.state = preview.Reduce(k.state, preview.UploadStarted{})
	k.mu.Unlock()

	attempt, err := k.auth.Authenticate(ctx, img.Data)

	k.mu.Lock()
	defer k.mu.Unlock()
	k.busy = false
	if k.current != img {
		// A newer capture replaced the photo while the attempt ran; its reset
		// state wins.
		return k.state, err
	}
	k.state = preview.Reduce(k.state, attemptEvent(attempt, err))
	return k.state, err
}

// Close tears the kiosk down and releases the camera.
func (k *Kiosk) Close() error {
	if k.camera == nil {
		return nil
	}
	k.camMu.Lock()
	defer k.camMu.Unlock()
	err := k.camera.Close()
	k.dispatch(preview.CameraDeactivated{})
	return err
}

// cameraLost handles a stream that ended without being turned off.
func (k *Kiosk) cameraLost() preview.State {
	k.camMu.Lock()
	defer k.camMu.Unlock()
	if k.camera.Active() || !k.State().CameraActive {
		return k.State()
	}
	k.logger.Warn("camera stream ended unexpectedly")
	_ = k.camera.Close()
	return k.dispatch(preview.CameraFailed{Err: capture.ErrCameraInactive})
}

func (k *Kiosk) show(img *capture.CapturedImage) preview.State {
	url := k.previews.Put(img.ID, img.Data)

	k.mu.Lock()
	defer k.mu.Unlock()
	if prior := k.state.PreviewID; prior != "" && prior != img.ID {
		k.previews.Revoke(prior)
	}
	k.current = img
	k.state = preview.Reduce(k.state, preview.ImageCaptured{
		PreviewID:   img.ID,
		PreviewURL:  url,
		AspectRatio: img.AspectRatio(),
	})
	return k.state
}

func (k *Kiosk) dispatch(e preview.Event) preview.State {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.state = preview.Reduce(k.state, e)
	return k.state
}

func attemptEvent(attempt *usecase.Attempt, err error) preview.Event {
	var key string
	if attempt != nil {
		key = attempt.ObjectKey
	}
	switch {
	case errors.Is(err, usecase.ErrUploadFailed):
		return preview.UploadFailed{ObjectKey: key, Err: err}
	case err != nil:
		return preview.AuthFailed{ObjectKey: key, Err: err}
	}

	switch attempt.Outcome {
	case usecase.OutcomeMatched:
		return preview.AuthCompleted{
			ObjectKey: key,
			Outcome:   preview.OutcomeMatched,
			Identity:  &preview.Identity{FirstName: attempt.FirstName, LastName: attempt.LastName},
		}
	case usecase.OutcomeNotFound:
		return preview.AuthCompleted{ObjectKey: key, Outcome: preview.OutcomeNotFound}
	default:
		return preview.AuthCompleted{ObjectKey: key, Outcome: preview.OutcomeUnrecognized}
	}
}
