package preview

// Event moves State from one value to the next.
type Event interface {
	event()
}

// ImageCaptured is dispatched for every file selection or snapshot.
type ImageCaptured struct {
	PreviewID   string
	PreviewURL  string
	AspectRatio float64
}

// CameraActivated is dispatched once a stream is held.
type CameraActivated struct{}

// CameraDeactivated is dispatched after the stream is released.
type CameraDeactivated struct{}

// CameraFailed is dispatched when a stream could not be acquired.
type CameraFailed struct {
	Err error
}

// PhotoMissing is dispatched when authentication is requested without a capture.
type PhotoMissing struct{}

// UploadStarted is dispatched before the photo is sent to storage.
type UploadStarted struct{}

// UploadFailed is dispatched when storage rejected the photo.
type UploadFailed struct {
	ObjectKey string
	Err       error
}

// Outcome is the classified recognition result carried by AuthCompleted.
type Outcome string

const (
	OutcomeMatched      Outcome = "matched"
	OutcomeNotFound     Outcome = "not_found"
	OutcomeUnrecognized Outcome = "unrecognized"
)

// AuthCompleted is dispatched when the recognition service answered.
type AuthCompleted struct {
	ObjectKey string
	Outcome   Outcome
	Identity  *Identity
}

// AuthFailed is dispatched on transport or decoding failures of the
// recognition query.
type AuthFailed struct {
	ObjectKey string
	Err       error
}

func (ImageCaptured) event()     {}
func (CameraActivated) event()   {}
func (CameraDeactivated) event() {}
func (CameraFailed) event()      {}
func (PhotoMissing) event()      {}
func (UploadStarted) event()     {}
func (UploadFailed) event()      {}
func (AuthCompleted) event()     {}
func (AuthFailed) event()        {}

// Reduce maps (state, event) to the next state. It has no side effects.
func Reduce(s State, e Event) State {
	switch e := e.(type) {
	case ImageCaptured:
		s.PreviewID = e.PreviewID
		s.PreviewURL = e.PreviewURL
		s.AspectRatio = e.AspectRatio
		s.Status = StatusIdle
		s.Message = MsgPleaseAuthenticate
		s.Authenticated = false
		s.ObjectKey = ""
		s.Identity = nil
	case CameraActivated:
		s.CameraActive = true
	case CameraDeactivated:
		s.CameraActive = false
	case CameraFailed:
		s.CameraActive = false
		s.Message = MsgCameraUnavailable
	case PhotoMissing:
		s.Message = MsgNoPhoto
		s.Authenticated = false
		s.Identity = nil
	case UploadStarted:
		s.Status = StatusUploading
		s.Message = MsgUploading
		s.Authenticated = false
		s.ObjectKey = ""
		s.Identity = nil
	case UploadFailed:
		s.Status = StatusError
		s.Message = MsgUploadFailed
		s.Authenticated = false
		s.ObjectKey = e.ObjectKey
	case AuthCompleted:
		s = reduceOutcome(s, e)
		s.ObjectKey = e.ObjectKey
	case AuthFailed:
		s.Status = StatusError
		s.Message = MsgFailed
		s.Authenticated = false
		s.ObjectKey = e.ObjectKey
	}
	return s
}

func reduceOutcome(s State, e AuthCompleted) State {
	switch {
	case e.Outcome == OutcomeMatched && e.Identity != nil:
		id := *e.Identity
		s.Status = StatusAuthenticated
		s.Message = id.Greeting()
		s.Authenticated = true
		s.Identity = &id
	case e.Outcome == OutcomeNotFound:
		s.Status = StatusNotFound
		s.Message = MsgNotFound
		s.Authenticated = false
		s.Identity = nil
	default:
		s.Status = StatusError
		s.Message = MsgCouldNotAuth
		s.Authenticated = false
		s.Identity = nil
	}
	return s
}
