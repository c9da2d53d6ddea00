package serviceimpl

import (
	"image"
	"image/draw"
	"math"
)

// SSIM stabilization constants for 8-bit dynamic range.
const (
	ssimC1 = (0.01 * 255) * (0.01 * 255)
	ssimC2 = (0.03 * 255) * (0.03 * 255)
)

// cosineSimilarity returns the cosine of the angle between two embeddings,
// 0 when either vector is degenerate.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// structuralSimilarity computes the global SSIM index between two grayscale
// crops of equal size. Returns 0 when the sizes differ.
func structuralSimilarity(a, b *image.Gray) float64 {
	w := a.Bounds().Dx()
	h := a.Bounds().Dy()
	if w == 0 || h == 0 || w != b.Bounds().Dx() || h != b.Bounds().Dy() {
		return 0
	}
	n := float64(w * h)

	var sumA, sumB float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sumA += float64(a.GrayAt(a.Bounds().Min.X+x, a.Bounds().Min.Y+y).Y)
			sumB += float64(b.GrayAt(b.Bounds().Min.X+x, b.Bounds().Min.Y+y).Y)
		}
	}
	muA := sumA / n
	muB := sumB / n

	var varA, varB, cov float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			da := float64(a.GrayAt(a.Bounds().Min.X+x, a.Bounds().Min.Y+y).Y) - muA
			db := float64(b.GrayAt(b.Bounds().Min.X+x, b.Bounds().Min.Y+y).Y) - muB
			varA += da * da
			varB += db * db
			cov += da * db
		}
	}
	varA /= n
	varB /= n
	cov /= n

	return ((2*muA*muB + ssimC1) * (2*cov + ssimC2)) /
		((muA*muA + muB*muB + ssimC1) * (varA + varB + ssimC2))
}

// toGray converts any decoded image to 8-bit grayscale.
func toGray(img image.Image) *image.Gray {
	gray := image.NewGray(img.Bounds())
	draw.Draw(gray, gray.Bounds(), img, img.Bounds().Min, draw.Src)
	return gray
}
