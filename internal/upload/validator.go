// Package upload gates user-supplied images before they enter the
// classification pipeline.
package upload

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"strings"
	"sync"

	"github.com/nfnt/resize"
)

// MaxBytes is the upload ceiling (10 MiB).
const MaxBytes = 10 << 20

const previewMaxWidth = 320

var (
	// ErrUnsupportedType rejects non-image MIME types.
	ErrUnsupportedType = errors.New("unsupported file type, please upload an image")
	// ErrTooLarge rejects files above the 10 MiB ceiling.
	ErrTooLarge = errors.New("file too large, maximum size is 10MB")
)

// Candidate is a validated, in-memory image awaiting classification.
// Candidates are immutable; choosing a new file replaces the candidate
// wholesale rather than mutating it.
type Candidate struct {
	Filename string
	MimeType string
	Data     []byte

	mu      sync.Mutex
	preview []byte
	done    bool
}

// Validate checks the file against the pipeline's constraints, in order:
// MIME type first, then byte size. On success it kicks off preview
// derivation in the background; the candidate is usable before the
// preview exists.
func Validate(filename, mimeType string, data []byte) (*Candidate, error) {
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, ErrUnsupportedType
	}
	if len(data) > MaxBytes {
		return nil, ErrTooLarge
	}

	c := &Candidate{
		Filename: filename,
		MimeType: mimeType,
		Data:     data,
	}
	go c.derivePreview()
	return c, nil
}

// Size returns the candidate's byte size.
func (c *Candidate) Size() int { return len(c.Data) }

// Preview returns the derived thumbnail and whether derivation has
// finished. A failed derivation reports done with a nil preview.
func (c *Candidate) Preview() ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preview, c.done
}

// derivePreview decodes the image and encodes a small JPEG thumbnail.
// Failures are logged and otherwise ignored: the preview is a nicety, not
// a gate.
func (c *Candidate) derivePreview() {
	defer func() {
		c.mu.Lock()
		c.done = true
		c.mu.Unlock()
	}()

	var img image.Image
	var err error
	switch {
	case strings.Contains(c.MimeType, "png"):
		img, err = png.Decode(bytes.NewReader(c.Data))
	default:
		img, err = jpeg.Decode(bytes.NewReader(c.Data))
	}
	if err != nil {
		slog.Debug("Preview derivation failed to decode image", "filename", c.Filename, "error", err)
		return
	}

	thumb := resize.Resize(previewMaxWidth, 0, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		slog.Debug("Preview derivation failed to encode thumbnail", "filename", c.Filename, "error", err)
		return
	}

	c.mu.Lock()
	c.preview = buf.Bytes()
	c.mu.Unlock()
}
