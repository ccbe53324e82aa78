package imaging

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/starford/fiche/internal/apperr"
	"github.com/starford/fiche/internal/models"
)

func testImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 10 {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func decodeJPEG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	return img
}

func TestCompressDownscalesLargeImage(t *testing.T) {
	data := testImage(t, 4000, 1000)
	out, err := Compress(data)
	if err != nil {
		t.Fatal(err)
	}
	img := decodeJPEG(t, out)
	b := img.Bounds()
	if b.Dx() != MaxDimension {
		t.Errorf("width = %d, want %d", b.Dx(), MaxDimension)
	}
	if b.Dy() != 500 {
		t.Errorf("height = %d, want 500 (aspect preserved)", b.Dy())
	}
}

func TestCompressKeepsSmallImage(t *testing.T) {
	data := testImage(t, 800, 600)
	out, err := Compress(data)
	if err != nil {
		t.Fatal(err)
	}
	b := decodeJPEG(t, out).Bounds()
	if b.Dx() != 800 || b.Dy() != 600 {
		t.Errorf("dimensions = %dx%d, want 800x600", b.Dx(), b.Dy())
	}
}

func TestPreviewLongerSide(t *testing.T) {
	data := testImage(t, 1000, 400)
	out, err := Preview(data)
	if err != nil {
		t.Fatal(err)
	}
	b := decodeJPEG(t, out).Bounds()
	if b.Dx() != PreviewSize {
		t.Errorf("width = %d, want %d", b.Dx(), PreviewSize)
	}
	if b.Dy() != 80 {
		t.Errorf("height = %d, want 80", b.Dy())
	}

	data = testImage(t, 400, 1000)
	out, err = Preview(data)
	if err != nil {
		t.Fatal(err)
	}
	b = decodeJPEG(t, out).Bounds()
	if b.Dy() != PreviewSize {
		t.Errorf("height = %d, want %d", b.Dy(), PreviewSize)
	}
}

func TestCompressRejectsGarbage(t *testing.T) {
	_, err := Compress([]byte("not an image"))
	if !errors.Is(err, apperr.ErrDecodeFailure) {
		t.Errorf("err = %v, want decode failure", err)
	}
}

func TestPrepareBatchIsolatesFailures(t *testing.T) {
	photos := []*models.Photo{
		{Name: "ok.png", Raw: testImage(t, 100, 100)},
		{Name: "broken.png", Raw: []byte("garbage")},
		{Name: "ok2.png", Raw: testImage(t, 50, 80)},
	}
	if err := PrepareBatch(context.Background(), photos); err != nil {
		t.Fatal(err)
	}

	if photos[0].Err != nil || photos[0].Payload == nil || photos[0].Preview == nil {
		t.Errorf("first photo not prepared: err=%v", photos[0].Err)
	}
	if photos[1].Err == nil {
		t.Error("broken photo should carry an error")
	}
	if photos[1].Payload != nil {
		t.Error("broken photo should have no payload")
	}
	if photos[2].Err != nil || photos[2].Payload == nil {
		t.Errorf("sibling aborted by failure: err=%v", photos[2].Err)
	}
}

func TestPrepareBatchSkipsExistingPayload(t *testing.T) {
	payload := []byte{0xff, 0xd8}
	photos := []*models.Photo{{Name: "done.jpg", Raw: testImage(t, 10, 10), Payload: payload}}
	if err := PrepareBatch(context.Background(), photos); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(photos[0].Payload, payload) {
		t.Error("existing payload was recomputed")
	}
}
