// Package detector provides face landmark detection interfaces and types for
// fatigue monitoring.
package detector

// Face mesh landmark counts following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/face_landmarker
const (
	NumFaceMeshLandmarks = 468
	NumRefinedLandmarks  = 478
)

// Six-point contours used for aspect ratios, ordered p1..p6: outer corner,
// two upper lid points, inner corner, two lower lid points.
var (
	LeftEyeIndices  = []int{362, 385, 387, 263, 373, 380}
	RightEyeIndices = []int{33, 160, 158, 133, 153, 144}
	// Inner lip corners with two upper and two lower lip points.
	MouthIndices = []int{61, 81, 311, 291, 402, 178}
)

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// FaceLandmarks represents the mesh points detected for one face.
// Coordinates are normalized to the frame (0.0-1.0).
type FaceLandmarks struct {
	Points []Point3D `json:"points"`
	Score  float64   `json:"score,omitempty"`
}

// Point returns the landmark at index i and whether it exists.
func (f *FaceLandmarks) Point(i int) (Point3D, bool) {
	if f == nil || i < 0 || i >= len(f.Points) {
		return Point3D{}, false
	}
	return f.Points[i], true
}

// Len returns the number of landmarks in the face.
func (f *FaceLandmarks) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Points)
}
