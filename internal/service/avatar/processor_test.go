package avatar_test

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/service/avatar"
)

// encodeTestImage renders a solid-color image in the given format.
func encodeTestImage(t *testing.T, format string, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}

	var buf bytes.Buffer
	switch format {
	case "png":
		require.NoError(t, png.Encode(&buf, img))
	default:
		require.NoError(t, jpeg.Encode(&buf, img, nil))
	}
	return buf.Bytes()
}

func TestCheckUpload(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		filename string
		size     int64
		expected error
	}{
		{"jpg ok", "me.jpg", 1024, nil},
		{"jpeg ok", "me.jpeg", 1024, nil},
		{"png ok", "me.png", 1024, nil},
		{"uppercase extension ok", "ME.PNG", 1024, nil},
		{"gif rejected", "me.gif", 1024, avatar.ErrUnsupportedFormat},
		{"no extension rejected", "me", 1024, avatar.ErrUnsupportedFormat},
		{"oversized rejected", "me.jpg", domain.MaxAvatarBytes + 1, avatar.ErrTooLarge},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := avatar.CheckUpload(tc.filename, tc.size)
			if tc.expected == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.expected)
			}
		})
	}
}

func TestProcessResizesToAvatarDimensions(t *testing.T) {
	t.Parallel()

	proc := avatar.NewImagingProcessor()

	for _, format := range []string{"jpeg", "png"} {
		raw := encodeTestImage(t, format, 600, 400)

		out, err := proc.Process(raw)
		require.NoError(t, err)

		decoded, kind, err := image.Decode(bytes.NewReader(out))
		require.NoError(t, err)

		assert.Equal(t, "jpeg", kind, "output should be re-encoded as JPEG")
		assert.Equal(t, avatar.Width, decoded.Bounds().Dx())
		assert.Equal(t, avatar.Height, decoded.Bounds().Dy())
	}
}

func TestProcessRejectsGarbage(t *testing.T) {
	t.Parallel()

	proc := avatar.NewImagingProcessor()

	_, err := proc.Process([]byte("definitely not an image"))
	assert.ErrorIs(t, err, avatar.ErrDecodeFailed)
}

func TestProcessRejectsOversizedInput(t *testing.T) {
	t.Parallel()

	proc := avatar.NewImagingProcessor()

	_, err := proc.Process(make([]byte, domain.MaxAvatarBytes+1))
	assert.ErrorIs(t, err, avatar.ErrTooLarge)
}
