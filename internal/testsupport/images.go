package testsupport

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// GradientImage renders a smooth color ramp, distinctive enough to act as a
// reference pattern for template matching.
func GradientImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(255 * x / w),
				G: uint8(255 * y / h),
				B: uint8(255 * (x + y) / (w + h)),
				A: 255,
			})
		}
	}
	return img
}

// WriteLogoPNG writes a gradient reference logo to path.
func WriteLogoPNG(t testing.TB, path string, w, h int) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer file.Close()
	if err := png.Encode(file, GradientImage(w, h)); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

// FrameJPEG renders a black frame and, when withLogo is set, pastes the
// gradient reference pattern at the given offset. The black background keeps
// correlation against the pattern near zero everywhere else.
func FrameJPEG(t testing.TB, frameW, frameH, logoW, logoH int, withLogo bool, at image.Point) []byte {
	t.Helper()

	frame := image.NewRGBA(image.Rect(0, 0, frameW, frameH))
	draw.Draw(frame, frame.Bounds(), image.NewUniform(color.RGBA{A: 255}), image.Point{}, draw.Src)
	if withLogo {
		logo := GradientImage(logoW, logoH)
		draw.Draw(frame, logo.Bounds().Add(at), logo, image.Point{}, draw.Src)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("encode frame: %v", err)
	}
	return buf.Bytes()
}
