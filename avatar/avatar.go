// Package avatar bounds user avatars before they are persisted: oversized
// uploads are rejected, decodable images are downsampled and re-encoded at
// a fixed quality so the stored snapshot stays small.
package avatar

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	_ "image/gif"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"

	apperrors "github.com/targoninc/venel-api/errors"
)

type Processor struct {
	MaxBytes int
	MaxDim   int
	Quality  int
}

func NewProcessor(maxBytes, maxDim, quality int) *Processor {
	return &Processor{MaxBytes: maxBytes, MaxDim: maxDim, Quality: quality}
}

// Process validates, downsamples, and recompresses raw avatar bytes.
// On any failure the caller keeps the previous snapshot untouched.
func (p *Processor) Process(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, apperrors.ErrUnsupportedAvatar
	}
	if len(raw) > p.MaxBytes {
		return nil, apperrors.ErrAvatarTooLarge
	}
	if !strings.HasPrefix(mimetype.Detect(raw).String(), "image/") {
		return nil, apperrors.ErrUnsupportedAvatar
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUnsupportedAvatar, err)
	}

	img = downsample(img, p.MaxDim)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.Quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// downsample shrinks img so its longest side is at most maxDim, averaging
// the covered source pixels per target pixel. Images already within bounds
// are returned unchanged.
func downsample(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	scale := float64(maxDim) / float64(w)
	if h > w {
		scale = float64(maxDim) / float64(h)
	}
	dstW := int(float64(w) * scale)
	dstH := int(float64(h) * scale)
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	for y := 0; y < dstH; y++ {
		sy0 := bounds.Min.Y + y*h/dstH
		sy1 := bounds.Min.Y + (y+1)*h/dstH
		for x := 0; x < dstW; x++ {
			sx0 := bounds.Min.X + x*w/dstW
			sx1 := bounds.Min.X + (x+1)*w/dstW
			var r, g, b, a, n uint64
			for sy := sy0; sy < sy1; sy++ {
				for sx := sx0; sx < sx1; sx++ {
					pr, pg, pb, pa := img.At(sx, sy).RGBA()
					r += uint64(pr)
					g += uint64(pg)
					b += uint64(pb)
					a += uint64(pa)
					n++
				}
			}
			if n == 0 {
				continue
			}
			offset := dst.PixOffset(x, y)
			dst.Pix[offset] = uint8(r / n >> 8)
			dst.Pix[offset+1] = uint8(g / n >> 8)
			dst.Pix[offset+2] = uint8(b / n >> 8)
			dst.Pix[offset+3] = uint8(a / n >> 8)
		}
	}
	return dst
}
