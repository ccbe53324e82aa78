// Package imaging downsamples and re-encodes imported photos into the
// transport format expected by the generation service, and produces small
// previews for display.
package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/starford/fiche/internal/apperr"
	"github.com/starford/fiche/internal/models"
)

const (
	// MaxDimension caps either side of a compressed image.
	MaxDimension = 2000
	// PreviewSize is the longer side of a preview image.
	PreviewSize = 200

	compressQuality = 75
	previewQuality  = 60
)

// Compress decodes data and re-encodes it as JPEG, scaled down so neither
// dimension exceeds MaxDimension. Images already within bounds keep their
// dimensions.
func Compress(data []byte) ([]byte, error) {
	src, err := decode(data)
	if err != nil {
		return nil, err
	}
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	if w > MaxDimension {
		h = h * MaxDimension / w
		w = MaxDimension
	}
	if h > MaxDimension {
		w = w * MaxDimension / h
		h = MaxDimension
	}
	return encode(scale(src, w, h), compressQuality)
}

// Preview produces a small JPEG whose longer side equals PreviewSize, with
// the aspect ratio preserved.
func Preview(data []byte) ([]byte, error) {
	src, err := decode(data)
	if err != nil {
		return nil, err
	}
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	if w > h {
		h = PreviewSize * h / w
		w = PreviewSize
	} else {
		w = PreviewSize * w / h
		h = PreviewSize
	}
	return encode(scale(src, w, h), previewQuality)
}

// PrepareBatch computes the compressed payload and preview for every photo
// that does not have one yet. All photos start concurrently; a decode
// failure is recorded on the photo itself and never aborts its siblings.
func PrepareBatch(ctx context.Context, photos []*models.Photo) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range photos {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if p.Payload == nil {
				payload, err := Compress(p.Raw)
				if err != nil {
					p.Err = err
					return nil
				}
				p.Payload = payload
			}
			if p.Preview == nil {
				if preview, err := Preview(p.Raw); err == nil {
					p.Preview = preview
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("imaging: %w: %v", apperr.ErrDecodeFailure, err)
	}
	return img, nil
}

func scale(src image.Image, w, h int) image.Image {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if src.Bounds().Dx() == w && src.Bounds().Dy() == h {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

func encode(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("imaging: encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
