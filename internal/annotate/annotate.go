// Package annotate renders detection outcomes onto captured thumbnails so a
// reviewer can see at a glance where the logo was found and how strong the
// match was.
package annotate

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"os"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"streamwatch/internal/detect"
)

const (
	borderWidth = 3
	jpegQuality = 90
)

var (
	detectedColor    = color.RGBA{G: 200, A: 255}
	notDetectedColor = color.RGBA{R: 220, A: 255}
)

// Annotator writes marked-up copies of target images.
type Annotator struct{}

// New returns an Annotator.
func New() *Annotator { return &Annotator{} }

// Annotate reloads the image at srcPath, draws the detection outcome onto a
// copy, and encodes it as JPEG at dstPath. A srcPath that no longer decodes
// is a recoverable per-item failure surfaced as an error; callers log it and
// continue with the remaining items.
func (a *Annotator) Annotate(srcPath string, result detect.Result, dstPath string) error {
	file, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open target image: %w", err)
	}
	img, _, err := image.Decode(file)
	closeErr := file.Close()
	if err != nil {
		return fmt.Errorf("decode target image: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("close target image: %w", closeErr)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, img.Bounds().Min, draw.Src)

	if result.Detected && result.Location != nil {
		drawRectangle(canvas, *result.Location, detectedColor)
		label := fmt.Sprintf("confidence: %.1f%%", result.Confidence*100)
		drawLabel(canvas, label, result.Location.Min.X, result.Location.Min.Y-6, detectedColor)
	} else {
		drawLabel(canvas, "logo not detected", 20, 30, notDetectedColor)
	}

	out, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("create annotated image: %w", err)
	}
	if err := jpeg.Encode(out, canvas, &jpeg.Options{Quality: jpegQuality}); err != nil {
		_ = out.Close()
		return fmt.Errorf("encode annotated image: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close annotated image: %w", err)
	}
	return nil
}

// drawRectangle strokes the rectangle border, clamped to the canvas bounds.
func drawRectangle(canvas *image.RGBA, rect image.Rectangle, c color.RGBA) {
	bounds := canvas.Bounds()
	for i := 0; i < borderWidth; i++ {
		edge := rect.Inset(-i)
		for x := edge.Min.X; x <= edge.Max.X; x++ {
			setPixel(canvas, bounds, x, edge.Min.Y, c)
			setPixel(canvas, bounds, x, edge.Max.Y, c)
		}
		for y := edge.Min.Y; y <= edge.Max.Y; y++ {
			setPixel(canvas, bounds, edge.Min.X, y, c)
			setPixel(canvas, bounds, edge.Max.X, y, c)
		}
	}
}

func setPixel(canvas *image.RGBA, bounds image.Rectangle, x, y int, c color.RGBA) {
	if (image.Point{X: x, Y: y}).In(bounds) {
		canvas.SetRGBA(x, y, c)
	}
}

// drawLabel renders text at the given baseline position, nudged back inside
// the canvas when the location sits too close to an edge.
func drawLabel(canvas *image.RGBA, text string, x, y int, c color.RGBA) {
	face := basicfont.Face7x13
	if y < face.Height {
		y = face.Height + 2
	}
	if x < 0 {
		x = 0
	}
	drawer := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(text)
}
