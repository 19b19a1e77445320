package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	faces []FaceLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFaces sets the faces that will be returned by Detect.
func (m *MockDetector) SetFaces(faces []FaceLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces = faces
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured faces or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]FaceLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.faces, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Width of the synthetic eye and mouth contours, in normalized units.
const (
	syntheticEyeWidth   = 0.06
	syntheticMouthWidth = 0.12
)

// FaceWithRatios returns a synthetic face mesh whose eye contours have the
// given aspect ratio and whose mouth contour has the given mouth ratio.
func FaceWithRatios(ear, mar float64) FaceLandmarks {
	return FaceWithEyeRatios(ear, ear, mar)
}

// FaceWithEyeRatios is like FaceWithRatios with independent left and right
// eye ratios.
func FaceWithEyeRatios(left, right, mar float64) FaceLandmarks {
	face := FaceLandmarks{
		Points: make([]Point3D, NumFaceMeshLandmarks),
		Score:  0.97,
	}

	// Spread the background mesh over the face area so unrelated points
	// never coincide.
	for i := range face.Points {
		face.Points[i] = Point3D{
			X: 0.3 + 0.4*float64(i%24)/24,
			Y: 0.2 + 0.6*float64(i/24)/20,
		}
	}

	placeContour(face.Points, LeftEyeIndices, 0.62, 0.42, syntheticEyeWidth, left)
	placeContour(face.Points, RightEyeIndices, 0.38, 0.42, syntheticEyeWidth, right)
	placeContour(face.Points, MouthIndices, 0.50, 0.72, syntheticMouthWidth, mar)

	return face
}

// placeContour lays out a six-point contour centered on (cx, cy) so that
// (|p2-p6| + |p3-p5|) / (2*|p1-p4|) equals ratio.
func placeContour(points []Point3D, idx []int, cx, cy, width, ratio float64) {
	half := ratio * width / 2
	points[idx[0]] = Point3D{X: cx - width/2, Y: cy}
	points[idx[1]] = Point3D{X: cx - width/6, Y: cy - half}
	points[idx[2]] = Point3D{X: cx + width/6, Y: cy - half}
	points[idx[3]] = Point3D{X: cx + width/2, Y: cy}
	points[idx[4]] = Point3D{X: cx + width/6, Y: cy + half}
	points[idx[5]] = Point3D{X: cx - width/6, Y: cy + half}
}

// OpenEyesFace returns a relaxed face: eyes open, mouth closed.
func OpenEyesFace() FaceLandmarks {
	return FaceWithRatios(0.30, 0.20)
}

// ClosedEyesFace returns a face with both eyes shut and the mouth closed.
func ClosedEyesFace() FaceLandmarks {
	return FaceWithRatios(0.08, 0.20)
}

// YawningFace returns a face with eyes open and the mouth wide open.
func YawningFace() FaceLandmarks {
	return FaceWithRatios(0.30, 1.10)
}

// DegenerateFace returns a mesh where every landmark coincides.
func DegenerateFace() FaceLandmarks {
	face := FaceLandmarks{Points: make([]Point3D, NumFaceMeshLandmarks)}
	for i := range face.Points {
		face.Points[i] = Point3D{X: 0.5, Y: 0.5}
	}
	return face
}
