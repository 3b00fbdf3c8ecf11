// Package detect implements multi-scale template matching of a reference
// logo against captured stream thumbnails.
//
// The detector compares luminance only: both the reference and the target are
// reduced to grayscale before correlation, which keeps the score stable under
// stream compression artifacts and color grading. The reference is resized to
// twenty evenly spaced scales between 50% and 150% of its native size and the
// best normalized cross-correlation peak across all fitting scales decides
// the outcome.
package detect
