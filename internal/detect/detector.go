package detect

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io/fs"
	"math"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
)

const (
	// scaleSteps is the number of template scales tried per target image.
	scaleSteps = 20
	// minScale and maxScale bound the tried template sizes relative to the
	// reference logo's native dimensions.
	minScale = 0.5
	maxScale = 1.5
)

var (
	// ErrReferenceNotFound reports that the reference logo path does not
	// resolve to a readable file.
	ErrReferenceNotFound = errors.New("reference logo not found")
	// ErrReferenceDecode reports that the reference logo file could not be
	// decoded as an image.
	ErrReferenceDecode = errors.New("reference logo could not be decoded")
)

// Result is the outcome of a single detection call. Confidence is the best
// correlation score found across all tried scales whether or not it cleared
// the threshold; Location and Scale are set only when Detected is true.
type Result struct {
	Detected   bool
	Confidence float64
	Location   *image.Rectangle
	Scale      float64
}

// Detector matches a fixed reference logo against target images. The
// reference raster is loaded once at construction and never mutated, so a
// Detector is safe for concurrent use.
type Detector struct {
	threshold float64
	ref       *image.Gray
	refW      int
	refH      int
}

// New loads the reference logo from logoPath and builds a detector with the
// given decision threshold (0-1). The reference is stored as grayscale.
func New(logoPath string, threshold float64) (*Detector, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold must be between 0 and 1, got %v", threshold)
	}

	file, err := os.Open(logoPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrReferenceNotFound, logoPath)
		}
		return nil, fmt.Errorf("open reference logo: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReferenceDecode, logoPath, err)
	}

	ref := toGray(img)
	bounds := ref.Bounds()
	if bounds.Dx() < 1 || bounds.Dy() < 1 {
		return nil, fmt.Errorf("%w: %s: empty image", ErrReferenceDecode, logoPath)
	}

	return &Detector{
		threshold: threshold,
		ref:       ref,
		refW:      bounds.Dx(),
		refH:      bounds.Dy(),
	}, nil
}

// Threshold returns the decision threshold the detector was built with.
func (d *Detector) Threshold() float64 { return d.threshold }

// ReferenceSize returns the reference logo's native pixel dimensions.
func (d *Detector) ReferenceSize() (width, height int) { return d.refW, d.refH }

// DetectFile runs detection against the image stored at path. A missing or
// undecodable file is a recoverable condition, not an error: the zero result
// (no detection, confidence 0) is returned so callers treat it as "no logo".
func (d *Detector) DetectFile(path string) Result {
	file, err := os.Open(path)
	if err != nil {
		return Result{}
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return Result{}
	}
	return d.Detect(img)
}

// Detect searches img for the reference logo. It tries scaleSteps evenly
// spaced template scales over [minScale, maxScale], skipping scales where the
// resized reference no longer fits inside the target, and keeps the single
// best correlation peak. Ties between scales resolve to the later (larger)
// scale, so a match saturated inside a uniform region reports the largest
// template that still fits it. Pure function of the receiver and its input.
func (d *Detector) Detect(img image.Image) Result {
	plane := newGrayPlane(toGray(img))

	var (
		bestScore    float64
		bestLocation image.Point
		bestW, bestH int
		bestScale    float64
		found        bool
	)

	step := (maxScale - minScale) / float64(scaleSteps-1)
	for i := 0; i < scaleSteps; i++ {
		scale := minScale + float64(i)*step
		candW := int(math.Round(float64(d.refW) * scale))
		candH := int(math.Round(float64(d.refH) * scale))
		if candW < 1 || candH < 1 {
			continue
		}
		if candW > plane.w || candH > plane.h {
			continue
		}

		score, loc := matchTemplate(plane, resizeGray(d.ref, candW, candH))
		if score > bestScore || (found && score == bestScore) {
			bestScore = score
			bestLocation = loc
			bestW, bestH = candW, candH
			bestScale = scale
			found = true
		}
	}

	if !found || bestScore < d.threshold {
		return Result{Confidence: bestScore}
	}

	location := image.Rect(bestLocation.X, bestLocation.Y, bestLocation.X+bestW, bestLocation.Y+bestH)
	return Result{
		Detected:   true,
		Confidence: bestScore,
		Location:   &location,
		Scale:      bestScale,
	}
}

// toGray converts img to an origin-anchored grayscale raster using the
// standard library's luminance model.
func toGray(img image.Image) *image.Gray {
	if gray, ok := img.(*image.Gray); ok && gray.Bounds().Min == (image.Point{}) {
		return gray
	}
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(gray, gray.Bounds(), img, bounds.Min, draw.Src)
	return gray
}

// resizeGray scales src to the requested dimensions with bilinear filtering.
func resizeGray(src *image.Gray, width, height int) *image.Gray {
	if src.Bounds().Dx() == width && src.Bounds().Dy() == height {
		return src
	}
	dst := image.NewGray(image.Rect(0, 0, width, height))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}
