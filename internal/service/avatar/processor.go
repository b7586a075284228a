// Package avatar turns uploaded profile images into the stored avatar
// format: a 250x250 JPEG no larger than 1MB.
package avatar

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/phrazzld/taskman-api/internal/domain"
)

// Processing errors
var (
	// ErrTooLarge indicates the upload (or the re-encoded result) exceeds
	// the 1MB avatar limit.
	ErrTooLarge = errors.New("avatar image exceeds the 1MB size limit")

	// ErrUnsupportedFormat indicates the file is not a jpg, jpeg, or png.
	ErrUnsupportedFormat = errors.New("avatar must be a .jpg, .jpeg or .png image")

	// ErrDecodeFailed indicates the bytes could not be decoded as an image.
	ErrDecodeFailed = errors.New("avatar image could not be decoded")
)

// Dimensions of the stored avatar.
const (
	Width  = 250
	Height = 250
)

// allowedExtensions are the accepted upload filename extensions.
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Processor converts raw uploaded image bytes into the stored avatar format.
type Processor interface {
	// Process decodes the raw bytes, resizes to 250x250, and re-encodes as
	// JPEG. Returns ErrDecodeFailed for undecodable input and ErrTooLarge
	// when the result still exceeds the size limit.
	Process(raw []byte) ([]byte, error)
}

// CheckUpload validates an upload before any processing happens: the
// declared filename must carry an allowed extension and the raw bytes must
// fit within the size limit. Validation failures abort before persistence.
func CheckUpload(filename string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return ErrUnsupportedFormat
	}
	if size > domain.MaxAvatarBytes {
		return ErrTooLarge
	}
	return nil
}

// ImagingProcessor implements Processor using the imaging library.
type ImagingProcessor struct{}

var _ Processor = (*ImagingProcessor)(nil)

// NewImagingProcessor creates an ImagingProcessor.
func NewImagingProcessor() *ImagingProcessor {
	return &ImagingProcessor{}
}

// Process implements Processor.Process. The image is cropped to fill the
// target dimensions rather than letterboxed, matching how profile pictures
// are usually displayed.
func (p *ImagingProcessor) Process(raw []byte) ([]byte, error) {
	if len(raw) > domain.MaxAvatarBytes {
		return nil, ErrTooLarge
	}

	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}

	resized := imaging.Fill(img, Width, Height, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG); err != nil {
		return nil, fmt.Errorf("failed to encode avatar as JPEG: %w", err)
	}

	if buf.Len() > domain.MaxAvatarBytes {
		return nil, ErrTooLarge
	}

	return buf.Bytes(), nil
}
