package detect

import (
	"image"
	"image/color"
	"image/draw"
	"testing"
)

func checkerPattern(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func TestMatchTemplateReturnsGlobalPeak(t *testing.T) {
	tmpl := checkerPattern(48, 48)

	// A flat mid-gray block sits early in scan order. It has no variance,
	// so it must score zero against a patterned reference; the exact copy
	// further down the raster is the only similarity maximum.
	target := image.NewGray(image.Rect(0, 0, 800, 600))
	draw.Draw(target, image.Rect(60, 40, 180, 120), image.NewUniform(color.Gray{Y: 127}), image.Point{}, draw.Src)
	at := image.Pt(500, 400)
	draw.Draw(target, tmpl.Bounds().Add(at), tmpl, image.Point{}, draw.Src)

	score, loc := matchTemplate(newGrayPlane(target), tmpl)
	if score < 0.999 {
		t.Fatalf("expected the exact copy to score 1.0, got %v", score)
	}
	if loc != at {
		t.Fatalf("peak at %v, want %v", loc, at)
	}
}

func TestMatchTemplateFlatReferenceMatchesBrightness(t *testing.T) {
	tmpl := image.NewGray(image.Rect(0, 0, 30, 20))
	draw.Draw(tmpl, tmpl.Bounds(), image.NewUniform(color.Gray{Y: 180}), image.Point{}, draw.Src)

	target := image.NewGray(image.Rect(0, 0, 200, 150))
	at := image.Pt(110, 60)
	draw.Draw(target, tmpl.Bounds().Add(at), tmpl, image.Point{}, draw.Src)

	score, loc := matchTemplate(newGrayPlane(target), tmpl)
	if score != 1 {
		t.Fatalf("expected exact brightness match to score 1, got %v", score)
	}
	if loc != at {
		t.Fatalf("peak at %v, want %v", loc, at)
	}
}
