package avatar

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/gabriel-vasile/mimetype"
	"github.com/stretchr/testify/require"

	apperrors "github.com/targoninc/venel-api/errors"
)

func encodedPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProcessor_Downsamples_To_Bounded_Dimensions(t *testing.T) {
	req := require.New(t)
	processor := NewProcessor(10*1024*1024, 64, 80)

	out, err := processor.Process(encodedPNG(t, 640, 480))
	req.NoError(err)

	req.Equal("image/jpeg", mimetype.Detect(out).String())
	decoded, _, err := image.Decode(bytes.NewReader(out))
	req.NoError(err)
	req.Equal(64, decoded.Bounds().Dx())
	req.Equal(48, decoded.Bounds().Dy())
}

func TestProcessor_Keeps_Small_Images_Dimensions(t *testing.T) {
	req := require.New(t)
	processor := NewProcessor(10*1024*1024, 256, 80)

	out, err := processor.Process(encodedPNG(t, 32, 32))
	req.NoError(err)

	decoded, _, err := image.Decode(bytes.NewReader(out))
	req.NoError(err)
	req.Equal(32, decoded.Bounds().Dx())
	req.Equal(32, decoded.Bounds().Dy())
}

func TestProcessor_Rejects_Oversized_Input(t *testing.T) {
	req := require.New(t)
	processor := NewProcessor(1024, 64, 80)

	_, err := processor.Process(encodedPNG(t, 640, 480))

	req.ErrorIs(err, apperrors.ErrAvatarTooLarge)
}

func TestProcessor_Rejects_Non_Image_Input(t *testing.T) {
	req := require.New(t)
	processor := NewProcessor(1024, 64, 80)

	_, err := processor.Process([]byte("definitely not an image"))
	req.ErrorIs(err, apperrors.ErrUnsupportedAvatar)

	_, err = processor.Process(nil)
	req.ErrorIs(err, apperrors.ErrUnsupportedAvatar)
}

func TestProcessor_Rejects_Truncated_Image(t *testing.T) {
	req := require.New(t)
	processor := NewProcessor(10*1024*1024, 64, 80)
	valid := encodedPNG(t, 64, 64)

	_, err := processor.Process(valid[:32])

	req.ErrorIs(err, apperrors.ErrUnsupportedAvatar)
}
