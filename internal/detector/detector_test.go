package detector

import (
	"errors"
	"math"
	"testing"
)

const epsilon = 1e-9

func dist2D(a, b Point3D) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func contourRatio(face FaceLandmarks, idx []int) float64 {
	p := func(i int) Point3D { return face.Points[idx[i]] }
	return (dist2D(p(1), p(5)) + dist2D(p(2), p(4))) / (2 * dist2D(p(0), p(3)))
}

func TestFaceLandmarks_Point(t *testing.T) {
	face := OpenEyesFace()

	t.Run("in range", func(t *testing.T) {
		p, ok := face.Point(LeftEyeIndices[0])
		if !ok {
			t.Fatal("expected landmark to exist")
		}
		if p != face.Points[LeftEyeIndices[0]] {
			t.Errorf("Point returned %+v, want %+v", p, face.Points[LeftEyeIndices[0]])
		}
	})

	t.Run("out of range", func(t *testing.T) {
		if _, ok := face.Point(NumFaceMeshLandmarks); ok {
			t.Error("expected index past the mesh to be missing")
		}
		if _, ok := face.Point(-1); ok {
			t.Error("expected negative index to be missing")
		}
	})

	t.Run("nil face", func(t *testing.T) {
		var f *FaceLandmarks
		if f.Len() != 0 {
			t.Errorf("nil face Len() = %d, want 0", f.Len())
		}
		if _, ok := f.Point(0); ok {
			t.Error("nil face should have no points")
		}
	})
}

func TestFaceWithRatios(t *testing.T) {
	tests := []struct {
		name string
		ear  float64
		mar  float64
	}{
		{"open", 0.30, 0.20},
		{"closed", 0.08, 0.20},
		{"yawn", 0.30, 1.10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			face := FaceWithRatios(tt.ear, tt.mar)
			if face.Len() != NumFaceMeshLandmarks {
				t.Fatalf("Len() = %d, want %d", face.Len(), NumFaceMeshLandmarks)
			}
			if got := contourRatio(face, LeftEyeIndices); math.Abs(got-tt.ear) > epsilon {
				t.Errorf("left eye ratio = %f, want %f", got, tt.ear)
			}
			if got := contourRatio(face, RightEyeIndices); math.Abs(got-tt.ear) > epsilon {
				t.Errorf("right eye ratio = %f, want %f", got, tt.ear)
			}
			if got := contourRatio(face, MouthIndices); math.Abs(got-tt.mar) > epsilon {
				t.Errorf("mouth ratio = %f, want %f", got, tt.mar)
			}
		})
	}

	t.Run("independent eyes", func(t *testing.T) {
		face := FaceWithEyeRatios(0.1, 0.3, 0.2)
		if got := contourRatio(face, LeftEyeIndices); math.Abs(got-0.1) > epsilon {
			t.Errorf("left eye ratio = %f, want 0.1", got)
		}
		if got := contourRatio(face, RightEyeIndices); math.Abs(got-0.3) > epsilon {
			t.Errorf("right eye ratio = %f, want 0.3", got)
		}
	})
}

func TestDegenerateFace(t *testing.T) {
	face := DegenerateFace()
	first := face.Points[0]
	for i, p := range face.Points {
		if p != first {
			t.Fatalf("point %d = %+v, want all points equal to %+v", i, p, first)
		}
	}
}

func TestMockDetector(t *testing.T) {
	m := NewMockDetector()

	faces, err := m.Detect(nil)
	if err != nil || len(faces) != 0 {
		t.Fatalf("fresh mock returned faces=%d err=%v", len(faces), err)
	}

	m.SetFaces([]FaceLandmarks{OpenEyesFace()})
	faces, err = m.Detect(nil)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(faces) != 1 {
		t.Errorf("expected 1 face, got %d", len(faces))
	}

	wantErr := errors.New("camera glare")
	m.SetError(wantErr)
	if _, err := m.Detect(nil); !errors.Is(err, wantErr) {
		t.Errorf("Detect() error = %v, want %v", err, wantErr)
	}

	if m.Calls() != 3 {
		t.Errorf("Calls() = %d, want 3", m.Calls())
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestParseResponse(t *testing.T) {
	t.Run("faces", func(t *testing.T) {
		line := []byte(`{"faces":[{"points":[{"x":0.1,"y":0.2,"z":0.0},{"x":0.3,"y":0.4,"z":-0.1}],"score":0.9}]}` + "\n")
		faces, err := parseResponse(line)
		if err != nil {
			t.Fatalf("parseResponse() error = %v", err)
		}
		if len(faces) != 1 || faces[0].Len() != 2 {
			t.Fatalf("unexpected faces: %+v", faces)
		}
		if faces[0].Points[1].Z != -0.1 {
			t.Errorf("Z = %f, want -0.1", faces[0].Points[1].Z)
		}
	})

	t.Run("no faces", func(t *testing.T) {
		faces, err := parseResponse([]byte(`{"faces":[]}`))
		if err != nil || len(faces) != 0 {
			t.Errorf("parseResponse() = %v, %v; want empty, nil", faces, err)
		}
	})

	t.Run("service error", func(t *testing.T) {
		if _, err := parseResponse([]byte(`{"faces":[],"error":"model not loaded"}`)); err == nil {
			t.Error("expected error from service")
		}
	})

	t.Run("malformed", func(t *testing.T) {
		if _, err := parseResponse([]byte(`not json`)); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxFaces != 1 {
		t.Errorf("MaxFaces = %d, want 1", cfg.MaxFaces)
	}
	if cfg.IdleTimeout.Seconds() != 10 {
		t.Errorf("IdleTimeout = %v, want 10s", cfg.IdleTimeout)
	}
}
