package fatigue

import (
	"math"
	"slices"

	"github.com/ayusman/vigil/internal/detector"
)

// minDistance is the smallest reference segment treated as non-degenerate.
const minDistance = 1e-10

// Layout names the six-point contours used for the aspect ratios.
type Layout struct {
	LeftEye  []int
	RightEye []int
	Mouth    []int
}

// DefaultLayout returns the MediaPipe face mesh contours.
func DefaultLayout() Layout {
	return Layout{
		LeftEye:  slices.Clone(detector.LeftEyeIndices),
		RightEye: slices.Clone(detector.RightEyeIndices),
		Mouth:    slices.Clone(detector.MouthIndices),
	}
}

// distance is the planar distance between two landmarks; depth is ignored.
func distance(a, b detector.Point3D) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Ratio computes (|p2-p6| + |p3-p5|) / (2*|p1-p4|) for the six landmarks
// named by idx. It returns 0 when fewer than six indices are given, an index
// is outside the face, or the p1-p4 segment is degenerate.
func Ratio(face *detector.FaceLandmarks, idx []int) float64 {
	if len(idx) < 6 {
		return 0
	}

	var p [6]detector.Point3D
	for i := range p {
		pt, ok := face.Point(idx[i])
		if !ok {
			return 0
		}
		p[i] = pt
	}

	base := distance(p[0], p[3])
	if !(base >= minDistance) {
		return 0
	}

	r := (distance(p[1], p[5]) + distance(p[2], p[4])) / (2 * base)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// Ratios holds the per-frame aspect ratios of one face.
type Ratios struct {
	Left  float64
	Right float64
	// EAR is the mean of Left and Right, or 0 if either eye is unavailable.
	EAR float64
	MAR float64
}

// Measure computes all aspect ratios of face under layout.
func Measure(face *detector.FaceLandmarks, layout Layout) Ratios {
	r := Ratios{
		Left:  Ratio(face, layout.LeftEye),
		Right: Ratio(face, layout.RightEye),
		MAR:   Ratio(face, layout.Mouth),
	}
	if r.Left > 0 && r.Right > 0 {
		r.EAR = (r.Left + r.Right) / 2
	}
	return r
}
