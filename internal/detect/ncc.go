package detect

import (
	"image"
	"math"
)

const nccEpsilon = 1e-9

// grayPlane is a float64 luminance raster with integral images of values and
// squared values, so any window's sum and energy are constant-time lookups.
type grayPlane struct {
	w, h int
	pix  []float64
	sum  []float64 // (w+1)*(h+1) summed-area table of pix
	sq   []float64 // (w+1)*(h+1) summed-area table of pix²
}

func newGrayPlane(g *image.Gray) *grayPlane {
	bounds := g.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	p := &grayPlane{
		w:   w,
		h:   h,
		pix: make([]float64, w*h),
		sum: make([]float64, (w+1)*(h+1)),
		sq:  make([]float64, (w+1)*(h+1)),
	}
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride:]
		rowSum := 0.0
		rowSq := 0.0
		for x := 0; x < w; x++ {
			v := float64(row[x])
			p.pix[y*w+x] = v
			rowSum += v
			rowSq += v * v
			p.sum[(y+1)*(w+1)+x+1] = p.sum[y*(w+1)+x+1] + rowSum
			p.sq[(y+1)*(w+1)+x+1] = p.sq[y*(w+1)+x+1] + rowSq
		}
	}
	return p
}

// windowSum returns the luminance total over the w×h window whose top-left
// corner is (x, y).
func (p *grayPlane) windowSum(x, y, w, h int) float64 {
	stride := p.w + 1
	return p.sum[(y+h)*stride+x+w] - p.sum[y*stride+x+w] - p.sum[(y+h)*stride+x] + p.sum[y*stride+x]
}

// windowEnergy returns the sum of squared luminance over the w×h window
// whose top-left corner is (x, y).
func (p *grayPlane) windowEnergy(x, y, w, h int) float64 {
	stride := p.w + 1
	return p.sq[(y+h)*stride+x+w] - p.sq[y*stride+x+w] - p.sq[(y+h)*stride+x] + p.sq[y*stride+x]
}

// templatePlane is a resized reference raster prepared for correlation. For
// patterned references pix holds the mean-subtracted values, so a dot
// product against raw target pixels already yields the zero-mean cross
// term. A reference whose variance sits below quantization noise carries no
// pattern to correlate; it is marked flat and matched by brightness instead.
type templatePlane struct {
	w, h     int
	n        float64
	pix      []float64
	mean     float64
	norm     float64   // sqrt of the mean-subtracted energy
	restNorm []float64 // restNorm[y]: sqrt of the residual energy in rows y and below
	restSum  []float64 // restSum[y]: residual total in rows y and below
	flat     bool
}

func newTemplatePlane(g *image.Gray) *templatePlane {
	bounds := g.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	t := &templatePlane{w: w, h: h, n: float64(w * h), pix: make([]float64, w*h)}

	total := 0.0
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride:]
		for x := 0; x < w; x++ {
			v := float64(row[x])
			t.pix[y*w+x] = v
			total += v
		}
	}
	t.mean = total / t.n

	rowEnergy := make([]float64, h)
	rowSum := make([]float64, h)
	energy := 0.0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r := t.pix[y*w+x] - t.mean
			t.pix[y*w+x] = r
			rowEnergy[y] += r * r
			rowSum[y] += r
		}
		energy += rowEnergy[y]
	}
	t.norm = math.Sqrt(energy)
	t.flat = t.norm < math.Sqrt(t.n)/2

	t.restNorm = make([]float64, h+1)
	t.restSum = make([]float64, h+1)
	for y := h - 1; y >= 0; y-- {
		t.restNorm[y] = t.restNorm[y+1] + rowEnergy[y]
		t.restSum[y] = t.restSum[y+1] + rowSum[y]
	}
	for y := range t.restNorm {
		t.restNorm[y] = math.Sqrt(t.restNorm[y])
	}
	return t
}

// bestMatch scans every candidate top-left offset in region (row-major) and
// returns the highest zero-mean normalized cross-correlation with its
// position. Strict greater-than keeps the first-encountered position on
// ties. Windows with no variance score zero, so a uniform background never
// correlates with a patterned reference. After each accumulated row the
// remaining rows can contribute at most μ·restSum plus restNorm·sqrt(winVar)
// to the dot product, which lets a window that cannot beat the current best
// be abandoned mid-scan without affecting the returned maximum.
func bestMatch(target *grayPlane, tmpl *templatePlane, region image.Rectangle) (float64, image.Point) {
	best := 0.0
	bestPt := image.Pt(region.Min.X, region.Min.Y)
	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			winSum := target.windowSum(x, y, tmpl.w, tmpl.h)
			winVar := target.windowEnergy(x, y, tmpl.w, tmpl.h) - winSum*winSum/tmpl.n
			if winVar <= nccEpsilon {
				continue
			}
			sqrtVar := math.Sqrt(winVar)
			mu := winSum / tmpl.n
			need := best * tmpl.norm * sqrtVar

			dot := 0.0
			abandoned := false
			for ty := 0; ty < tmpl.h; ty++ {
				trow := tmpl.pix[ty*tmpl.w : (ty+1)*tmpl.w]
				prow := target.pix[(y+ty)*target.w+x:]
				for tx, tv := range trow {
					dot += tv * prow[tx]
				}
				if dot+mu*tmpl.restSum[ty+1]+tmpl.restNorm[ty+1]*sqrtVar <= need {
					abandoned = true
					break
				}
			}
			if abandoned {
				continue
			}

			score := dot / (tmpl.norm * sqrtVar)
			if score > 1 {
				score = 1
			}
			if score > best {
				best = score
				bestPt = image.Pt(x, y)
			}
		}
	}
	return best, bestPt
}

// bestFlatMatch scores a flat reference by brightness proximity: one minus
// the RMS difference between the window and the reference's mean level,
// relative to that level. A window that is uniform at the reference's
// brightness scores exactly 1; a black window scores 0 against any brighter
// flat reference. The scan reads only the integral images.
func bestFlatMatch(target *grayPlane, tmpl *templatePlane, region image.Rectangle) (float64, image.Point) {
	level := tmpl.mean
	if level < 1 {
		level = 1
	}
	best := 0.0
	bestPt := image.Pt(region.Min.X, region.Min.Y)
	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			winSum := target.windowSum(x, y, tmpl.w, tmpl.h)
			diff := target.windowEnergy(x, y, tmpl.w, tmpl.h) - 2*tmpl.mean*winSum + tmpl.n*tmpl.mean*tmpl.mean
			if diff < 0 {
				diff = 0
			}
			score := 1 - math.Sqrt(diff/tmpl.n)/level
			if score > best {
				best = score
				bestPt = image.Pt(x, y)
			}
		}
	}
	return best, bestPt
}

// matchTemplate correlates tmpl against every position of the target plane
// and returns the best score with its top-left position. The scan is
// exhaustive, so the returned pair is the global maximum of the similarity
// map.
func matchTemplate(target *grayPlane, tmpl *image.Gray) (float64, image.Point) {
	tb := tmpl.Bounds()
	region := image.Rect(0, 0, target.w-tb.Dx()+1, target.h-tb.Dy()+1)
	prepared := newTemplatePlane(tmpl)
	if prepared.flat {
		return bestFlatMatch(target, prepared, region)
	}
	return bestMatch(target, prepared, region)
}
