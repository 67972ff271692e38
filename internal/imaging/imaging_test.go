package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return buf.Bytes()
}

func TestPrepareSmallImageKeepsSize(t *testing.T) {
	data := encodePNG(t, 100, 80)

	out, err := Prepare(data)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 80 {
		t.Errorf("small image resized: %v", img.Bounds())
	}
}

func TestPrepareDownscalesLargeImage(t *testing.T) {
	data := encodePNG(t, 2048, 1024)

	out, err := Prepare(data)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if img.Bounds().Dx() != MaxDimension {
		t.Errorf("expected width %d, got %d", MaxDimension, img.Bounds().Dx())
	}
	if img.Bounds().Dy() != MaxDimension/2 {
		t.Errorf("expected aspect ratio preserved, got height %d", img.Bounds().Dy())
	}
}

func TestPrepareRejectsNonImage(t *testing.T) {
	if _, err := Prepare([]byte("not an image at all")); err == nil {
		t.Error("expected error for non-image data")
	}
}
