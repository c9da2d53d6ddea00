package serviceimpl

import (
	"image"
	"image/color"
	"math"
	"testing"

	"eals-backend/domain/services"
)

func TestCosineSimilarity(t *testing.T) {
	if got := cosineSimilarity([]float32{1, 0, 0}, []float32{1, 0, 0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("identical vectors: got %f, want 1", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{0, 1}); math.Abs(got) > 1e-9 {
		t.Errorf("orthogonal vectors: got %f, want 0", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{-1, 0}); math.Abs(got+1) > 1e-9 {
		t.Errorf("opposite vectors: got %f, want -1", got)
	}
	if got := cosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}); got != 0 {
		t.Errorf("length mismatch: got %f, want 0", got)
	}
	if got := cosineSimilarity([]float32{0, 0}, []float32{1, 1}); got != 0 {
		t.Errorf("zero vector: got %f, want 0", got)
	}
}

func gradientGray(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x + y) % 256)})
		}
	}
	return img
}

func flatGray(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func TestStructuralSimilarity(t *testing.T) {
	a := gradientGray(cropSize, cropSize)

	if got := structuralSimilarity(a, a); math.Abs(got-1) > 1e-9 {
		t.Errorf("identical images: got %f, want 1", got)
	}

	dark := flatGray(cropSize, cropSize, 10)
	bright := flatGray(cropSize, cropSize, 240)
	if got := structuralSimilarity(dark, bright); got > 0.5 {
		t.Errorf("flat dark vs bright: got %f, want well under identical", got)
	}

	small := flatGray(10, 10, 128)
	if got := structuralSimilarity(a, small); got != 0 {
		t.Errorf("size mismatch: got %f, want 0", got)
	}
}

func TestClassifyPose(t *testing.T) {
	tests := []struct {
		yaw, pitch float64
		want       string
	}{
		{0, 0, services.PoseStraight},
		{-15, 0, services.PoseFacingRight},
		{15, 0, services.PoseFacingLeft},
		{0, -8, services.PoseFacingDown},
		{0, 12, services.PoseFacingUp},
		{-10, 0, services.PoseStraight}, // thresholds are exclusive
		{10, 0, services.PoseStraight},
		{0, -7, services.PoseStraight},
		{0, 10, services.PoseStraight},
		{-15, 12, services.PoseFacingRight}, // yaw wins over pitch
	}
	for _, tt := range tests {
		if got := classifyPose(tt.yaw, tt.pitch); got != tt.want {
			t.Errorf("classifyPose(%v, %v) = %q, want %q", tt.yaw, tt.pitch, got, tt.want)
		}
	}
}

func TestTrackerSmoothsNearbyBox(t *testing.T) {
	var tr boxTracker
	tr.Update([]services.TrackedBox{{X: 100, Y: 100, W: 50, H: 50, EmployeeID: "emp-01-0001"}})

	got := tr.Update([]services.TrackedBox{{X: 110, Y: 110, W: 50, H: 50}})
	if len(got) != 1 {
		t.Fatalf("expected 1 box, got %d", len(got))
	}
	if math.Abs(got[0].X-103) > 1e-9 || math.Abs(got[0].Y-103) > 1e-9 {
		t.Errorf("smoothed position = (%f, %f), want (103, 103)", got[0].X, got[0].Y)
	}
	if got[0].EmployeeID != "emp-01-0001" {
		t.Errorf("label not carried: %q", got[0].EmployeeID)
	}
}

func TestTrackerRejectsDistantBox(t *testing.T) {
	var tr boxTracker
	tr.Update([]services.TrackedBox{{X: 100, Y: 100, W: 50, H: 50, EmployeeID: "emp-01-0001"}})

	got := tr.Update([]services.TrackedBox{{X: 300, Y: 300, W: 50, H: 50}})
	if got[0].X != 300 || got[0].Y != 300 {
		t.Errorf("distant box must start a fresh track, got (%f, %f)", got[0].X, got[0].Y)
	}
	if got[0].EmployeeID != "" {
		t.Errorf("distant box must not inherit a label, got %q", got[0].EmployeeID)
	}
}

func TestTrackerFreshLabelWins(t *testing.T) {
	var tr boxTracker
	tr.Update([]services.TrackedBox{{X: 100, Y: 100, W: 50, H: 50, EmployeeID: "emp-01-0001"}})

	got := tr.Update([]services.TrackedBox{{X: 102, Y: 102, W: 50, H: 50, EmployeeID: "emp-01-0002"}})
	if got[0].EmployeeID != "emp-01-0002" {
		t.Errorf("new recognition should replace the carried label, got %q", got[0].EmployeeID)
	}
}
