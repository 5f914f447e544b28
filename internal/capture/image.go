package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/google/uuid"
)

// JPEGQuality is the encoder quality used for snapshots and re-encoded files.
const JPEGQuality = 95

// MaxImageSize bounds how many bytes are read from an operator supplied file.
const MaxImageSize = 10 << 20

var (
	// ErrNotAnImage is returned when the supplied bytes do not decode as an image.
	ErrNotAnImage = errors.New("capture: not a supported image")
	// ErrTooLarge is returned when a file exceeds MaxImageSize.
	ErrTooLarge = errors.New("capture: image too large")
)

// CapturedImage is one photo produced by a file selection or a camera snapshot.
type CapturedImage struct {
	ID     string
	Data   []byte
	Width  int
	Height int
}

// AspectRatio returns width over height, or 0 when the size is unknown.
func (c *CapturedImage) AspectRatio() float64 {
	if c == nil || c.Height == 0 {
		return 0
	}
	return float64(c.Width) / float64(c.Height)
}

// FromFile reads the image at path.
func FromFile(path string) (*CapturedImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	return FromReader(f)
}

// FromReader reads an operator supplied image. JPEG input is kept as is;
// other formats are re-encoded to JPEG.
func FromReader(r io.Reader) (*CapturedImage, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) > MaxImageSize {
		return nil, ErrTooLarge
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, ErrNotAnImage
	}
	if format == "jpeg" {
		return newCapturedImage(data, cfg.Width, cfg.Height), nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrNotAnImage
	}
	return FromFrame(img)
}

// FromFrame encodes a camera frame as JPEG.
func FromFrame(img image.Image) (*CapturedImage, error) {
	if img == nil {
		return nil, ErrNotAnImage
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	b := img.Bounds()
	return newCapturedImage(buf.Bytes(), b.Dx(), b.Dy()), nil
}

func newCapturedImage(data []byte, width, height int) *CapturedImage {
	return &CapturedImage{
		ID:     uuid.NewString(),
		Data:   data,
		Width:  width,
		Height: height,
	}
}
