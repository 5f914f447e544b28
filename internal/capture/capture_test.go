package capture

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func testFrame(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func TestFromReaderKeepsJPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testFrame(40, 20), nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	original := buf.Bytes()

	img, err := FromReader(bytes.NewReader(original))
	if err != nil {
		t.Fatalf("expected image, got error: %v", err)
	}
	if !bytes.Equal(img.Data, original) {
		t.Fatal("expected jpeg bytes to be kept as is")
	}
	if img.Width != 40 || img.Height != 20 {
		t.Fatalf("unexpected size %dx%d", img.Width, img.Height)
	}
	if img.AspectRatio() != 2 {
		t.Fatalf("unexpected aspect ratio %f", img.AspectRatio())
	}
	if img.ID == "" {
		t.Fatal("expected generated id")
	}
}

func TestFromReaderReencodesPNG(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, testFrame(10, 30)); err != nil {
		t.Fatalf("encode: %v", err)
	}

	img, err := FromReader(&buf)
	if err != nil {
		t.Fatalf("expected image, got error: %v", err)
	}
	if _, format, err := image.DecodeConfig(bytes.NewReader(img.Data)); err != nil || format != "jpeg" {
		t.Fatalf("expected jpeg payload, got %q (%v)", format, err)
	}
	if img.Width != 10 || img.Height != 30 {
		t.Fatalf("unexpected size %dx%d", img.Width, img.Height)
	}
}

func TestFromReaderRejectsNonImage(t *testing.T) {
	_, err := FromReader(strings.NewReader("hello"))
	if !errors.Is(err, ErrNotAnImage) {
		t.Fatalf("expected ErrNotAnImage, got %v", err)
	}
}

func TestFromReaderRejectsLargeInput(t *testing.T) {
	_, err := FromReader(bytes.NewReader(make([]byte, MaxImageSize+1)))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestCapturedImageIDsAreUnique(t *testing.T) {
	a, err := FromFrame(testFrame(4, 4))
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	b, err := FromFrame(testFrame(4, 4))
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	if a.ID == b.ID {
		t.Fatal("expected distinct ids")
	}
}

func TestAspectRatioUnknownSize(t *testing.T) {
	var img *CapturedImage
	if img.AspectRatio() != 0 {
		t.Fatal("expected zero ratio for nil image")
	}
	if (&CapturedImage{Width: 3}).AspectRatio() != 0 {
		t.Fatal("expected zero ratio for zero height")
	}
}

func TestSessionSnapshotWithoutStream(t *testing.T) {
	session := NewSession(&StillDevice{Frame: testFrame(8, 8)})

	img, err := session.Snapshot(context.Background())
	if !errors.Is(err, ErrCameraInactive) {
		t.Fatalf("expected ErrCameraInactive, got %v", err)
	}
	if img != nil {
		t.Fatal("expected no image")
	}
}

func TestSessionOpenSnapshotClose(t *testing.T) {
	device := &StillDevice{Frame: testFrame(16, 9)}
	session := NewSession(device)

	if err := session.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := session.Open(context.Background()); err != nil {
		t.Fatalf("second open: %v", err)
	}
	if device.Opens() != 1 {
		t.Fatalf("expected a single stream, got %d", device.Opens())
	}
	if session.ActiveTracks() != 1 {
		t.Fatalf("expected 1 active track, got %d", session.ActiveTracks())
	}

	img, err := session.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if img.Width != 16 || img.Height != 9 {
		t.Fatalf("unexpected size %dx%d", img.Width, img.Height)
	}

	if err := session.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := session.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if session.Active() || session.ActiveTracks() != 0 || device.LiveTracks() != 0 {
		t.Fatal("expected all tracks stopped")
	}
}

type partialDevice struct {
	stream *stillStream
}

func (d *partialDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	d.stream = &stillStream{}
	return d.stream, errors.New("permission denied")
}

func TestSessionOpenFailureReleasesPartialStream(t *testing.T) {
	device := &partialDevice{}
	session := NewSession(device)

	err := session.Open(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if session.Active() {
		t.Fatal("expected inactive session")
	}
	if device.stream.ActiveTracks() != 0 {
		t.Fatal("expected partially opened stream to be stopped")
	}
}

func TestSessionRequestsFrontFacingVideoOnly(t *testing.T) {
	var got Constraints
	device := deviceFunc(func(ctx context.Context, c Constraints) (Stream, error) {
		got = c
		return &stillStream{}, nil
	})
	session := NewSession(device)
	if err := session.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer session.Close()

	if got.Facing != FacingUser || got.Audio {
		t.Fatalf("unexpected constraints %+v", got)
	}
}

type deviceFunc func(ctx context.Context, c Constraints) (Stream, error)

func (f deviceFunc) Open(ctx context.Context, c Constraints) (Stream, error) { return f(ctx, c) }

func TestSplitJPEGFrames(t *testing.T) {
	stream := []byte{
		0x00, 0x11,
		0xFF, 0xD8, 0x01, 0x02, 0xFF, 0xD9,
		0x42,
		0xFF, 0xD8, 0x03, 0xFF, 0xD9,
		0xFF, 0xD8, 0x04,
	}

	var frames [][]byte
	err := splitJPEGFrames(bufio.NewReader(bytes.NewReader(stream)), func(f []byte) {
		frames = append(frames, f)
	})
	if err == nil {
		t.Fatal("expected EOF at end of stream")
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if !bytes.Equal(frames[0], []byte{0xFF, 0xD8, 0x01, 0x02, 0xFF, 0xD9}) {
		t.Fatalf("unexpected first frame % x", frames[0])
	}
	if !bytes.Equal(frames[1], []byte{0xFF, 0xD8, 0x03, 0xFF, 0xD9}) {
		t.Fatalf("unexpected second frame % x", frames[1])
	}
}
