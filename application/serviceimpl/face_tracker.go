package serviceimpl

import (
	"eals-backend/domain/services"
)

// Smoothing weights for box coordinates across frames, plus the squared
// center distance beyond which a detection is treated as a new track.
const (
	smoothPrevWeight  = 0.7
	smoothCurWeight   = 0.3
	trackRejectDistSq = 10000.0
)

// boxTracker smooths detection boxes between frames so the overlay does not
// jitter, and carries the identity label across frames where recognition
// found nothing new.
type boxTracker struct {
	prev []services.TrackedBox
}

func (t *boxTracker) Reset() {
	t.prev = nil
}

// Update matches each detection against the previous frame's boxes by
// squared center distance and blends the coordinates. A detection too far
// from every previous box starts a fresh track with its raw coordinates.
func (t *boxTracker) Update(detected []services.TrackedBox) []services.TrackedBox {
	smoothed := make([]services.TrackedBox, 0, len(detected))
	for _, cur := range detected {
		if prev, ok := t.nearest(cur); ok {
			cur.X = smoothPrevWeight*prev.X + smoothCurWeight*cur.X
			cur.Y = smoothPrevWeight*prev.Y + smoothCurWeight*cur.Y
			cur.W = smoothPrevWeight*prev.W + smoothCurWeight*cur.W
			cur.H = smoothPrevWeight*prev.H + smoothCurWeight*cur.H
			if cur.EmployeeID == "" {
				cur.EmployeeID = prev.EmployeeID
			}
		}
		smoothed = append(smoothed, cur)
	}
	t.prev = smoothed
	return smoothed
}

func (t *boxTracker) nearest(cur services.TrackedBox) (services.TrackedBox, bool) {
	bestDist := trackRejectDistSq
	bestIdx := -1
	cx := cur.X + cur.W/2
	cy := cur.Y + cur.H/2
	for i, p := range t.prev {
		dx := cx - (p.X + p.W/2)
		dy := cy - (p.Y + p.H/2)
		if d := dx*dx + dy*dy; d < bestDist {
			bestDist = d
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return services.TrackedBox{}, false
	}
	return t.prev[bestIdx], true
}
