package preview

import (
	"errors"
	"strings"
	"testing"
)

func captured(id string) ImageCaptured {
	return ImageCaptured{PreviewID: id, PreviewURL: URLFor(id), AspectRatio: 1.5}
}

func TestInitialShowsPlaceholder(t *testing.T) {
	s := Initial()
	if s.PreviewURL != PlaceholderURL || s.HasImage() {
		t.Fatalf("expected placeholder, got %+v", s)
	}
	if s.Status != StatusAwaitingCapture {
		t.Fatalf("unexpected status %s", s.Status)
	}
}

func TestCaptureResetsAuthentication(t *testing.T) {
	s := Reduce(Initial(), captured("a"))
	s = Reduce(s, UploadStarted{})
	s = Reduce(s, AuthCompleted{Outcome: OutcomeMatched, Identity: &Identity{FirstName: "Ada", LastName: "Lovelace"}})
	if !s.Authenticated {
		t.Fatal("expected authenticated state")
	}

	next := Reduce(s, captured("b"))
	if next.Authenticated || next.Identity != nil {
		t.Fatal("expected authentication to reset on capture")
	}
	if next.Status != StatusIdle || next.Message != MsgPleaseAuthenticate {
		t.Fatalf("unexpected state after capture: %+v", next)
	}
	if next.PreviewID != "b" || next.PreviewURL != URLFor("b") || next.AspectRatio != 1.5 {
		t.Fatalf("expected preview to follow the newest capture, got %+v", next)
	}
	if !s.Authenticated {
		t.Fatal("expected previous state value to be untouched")
	}
}

func TestResetAfterErrorStates(t *testing.T) {
	for _, prior := range []Event{
		UploadFailed{Err: errors.New("500")},
		AuthFailed{Err: errors.New("timeout")},
		AuthCompleted{Outcome: OutcomeNotFound},
	} {
		s := Reduce(Reduce(Initial(), captured("a")), prior)
		s = Reduce(s, captured("b"))
		if s.Status != StatusIdle || s.Message != MsgPleaseAuthenticate || s.Authenticated {
			t.Fatalf("expected reset after %T, got %+v", prior, s)
		}
	}
}

func TestPhotoMissingMessage(t *testing.T) {
	s := Reduce(Initial(), PhotoMissing{})
	if s.Message != MsgNoPhoto {
		t.Fatalf("unexpected message %q", s.Message)
	}
	if s.Authenticated {
		t.Fatal("expected unauthenticated")
	}
}

func TestMatchedGreetsByName(t *testing.T) {
	s := Reduce(Reduce(Initial(), captured("a")), UploadStarted{})
	s = Reduce(s, AuthCompleted{ObjectKey: "k.jpeg", Outcome: OutcomeMatched, Identity: &Identity{FirstName: "A", LastName: "B"}})

	if s.Status != StatusAuthenticated || !s.Authenticated {
		t.Fatalf("expected authenticated, got %+v", s)
	}
	if !strings.Contains(s.Message, "A") || !strings.Contains(s.Message, "B") {
		t.Fatalf("expected both names in %q", s.Message)
	}
	if s.ObjectKey != "k.jpeg" {
		t.Fatalf("expected object key to be kept, got %q", s.ObjectKey)
	}
}

func TestMatchedWithoutIdentityCannotAuthenticate(t *testing.T) {
	s := Reduce(Initial(), AuthCompleted{Outcome: OutcomeMatched})
	if s.Authenticated || s.Message != MsgCouldNotAuth {
		t.Fatalf("unexpected state %+v", s)
	}
}

func TestNotFoundIsDistinctFromFailure(t *testing.T) {
	notFound := Reduce(Initial(), AuthCompleted{Outcome: OutcomeNotFound})
	failed := Reduce(Initial(), AuthFailed{Err: errors.New("boom")})
	uploadFailed := Reduce(Initial(), UploadFailed{Err: errors.New("boom")})

	if notFound.Status != StatusNotFound || notFound.Authenticated {
		t.Fatalf("unexpected not found state %+v", notFound)
	}
	if notFound.Message == failed.Message || notFound.Message == uploadFailed.Message {
		t.Fatal("expected not found wording to differ from failures")
	}
	if failed.Status != StatusError || uploadFailed.Status != StatusError {
		t.Fatal("expected error status for failures")
	}
	if uploadFailed.Message != MsgUploadFailed {
		t.Fatalf("unexpected upload failure message %q", uploadFailed.Message)
	}
}

func TestUnrecognizedDefaultsToCouldNotAuthenticate(t *testing.T) {
	s := Reduce(Initial(), AuthCompleted{Outcome: OutcomeUnrecognized})
	if s.Message != MsgCouldNotAuth || s.Authenticated {
		t.Fatalf("unexpected state %+v", s)
	}
}

func TestCameraEventsKeepPreview(t *testing.T) {
	s := Reduce(Initial(), captured("a"))
	s = Reduce(s, CameraActivated{})
	if !s.CameraActive {
		t.Fatal("expected camera active")
	}
	s = Reduce(s, CameraDeactivated{})
	if s.CameraActive {
		t.Fatal("expected camera inactive")
	}

	failed := Reduce(Reduce(s, CameraActivated{}), CameraFailed{Err: errors.New("denied")})
	if failed.CameraActive {
		t.Fatal("expected camera off after failure")
	}
	if failed.PreviewID != "a" || failed.PreviewURL != URLFor("a") {
		t.Fatalf("expected prior preview to be kept, got %+v", failed)
	}
	if failed.Message != MsgCameraUnavailable {
		t.Fatalf("unexpected message %q", failed.Message)
	}
}

func TestRegistryRevoke(t *testing.T) {
	r := NewRegistry()
	url := r.Put("a", []byte("jpeg"))
	if url != "/api/preview/a" {
		t.Fatalf("unexpected url %q", url)
	}
	if data, ok := r.Get("a"); !ok || string(data) != "jpeg" {
		t.Fatal("expected registered preview")
	}
	r.Revoke("a")
	if _, ok := r.Get("a"); ok {
		t.Fatal("expected preview to be revoked")
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Len())
	}
}
