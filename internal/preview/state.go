// Package preview holds what the kiosk currently shows: an immutable state
// record, the events that move it, and the registry of preview images.
package preview

import "fmt"

// Status is the display state of the kiosk.
type Status string

const (
	StatusIdle            Status = "idle"
	StatusAwaitingCapture Status = "awaiting_capture"
	StatusUploading       Status = "uploading"
	StatusAuthenticated   Status = "authenticated"
	StatusNotFound        Status = "not_found"
	StatusError           Status = "error"
)

// Operator facing messages.
const (
	MsgAwaitingCapture    = "Take a photo or choose a file to begin."
	MsgPleaseAuthenticate = "Please authenticate."
	MsgNoPhoto            = "Please take a photo first."
	MsgUploading          = "Uploading photo..."
	MsgUploadFailed       = "Photo upload failed. Please try again."
	MsgNotFound           = "We could not find you. Please check in at the registration desk."
	MsgCouldNotAuth       = "Could not authenticate you. Please try again."
	MsgFailed             = "Something went wrong while authenticating. Please try again."
	MsgCameraUnavailable  = "Camera unavailable. Choose a file instead."
)

// PlaceholderURL is shown when nothing has been captured.
const PlaceholderURL = "/static/placeholder.svg"

// Identity is the person matched by the recognition service.
type Identity struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Greeting renders the personalised success message.
func (i Identity) Greeting() string {
	return fmt.Sprintf("Welcome, %s %s! You are authenticated.", i.FirstName, i.LastName)
}

// State is the kiosk display record. Values are never mutated in place;
// Reduce returns a new State.
type State struct {
	PreviewID     string    `json:"preview_id,omitempty"`
	PreviewURL    string    `json:"preview_url"`
	AspectRatio   float64   `json:"aspect_ratio,omitempty"`
	Status        Status    `json:"status"`
	Message       string    `json:"message"`
	Authenticated bool      `json:"authenticated"`
	CameraActive  bool      `json:"camera_active"`
	ObjectKey     string    `json:"object_key,omitempty"`
	Identity      *Identity `json:"identity,omitempty"`
}

// Initial is the state before any capture.
func Initial() State {
	return State{
		PreviewURL: PlaceholderURL,
		Status:     StatusAwaitingCapture,
		Message:    MsgAwaitingCapture,
	}
}

// HasImage reports whether a capture is on display.
func (s State) HasImage() bool {
	return s.PreviewID != ""
}
