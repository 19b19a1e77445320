package fatigue

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ayusman/vigil/internal/detector"
)

const epsilon = 1e-9

func TestRatio(t *testing.T) {
	layout := DefaultLayout()

	t.Run("open eyes above default threshold", func(t *testing.T) {
		face := detector.OpenEyesFace()
		r := Ratio(&face, layout.LeftEye)
		assert.InDelta(t, 0.30, r, epsilon)
		assert.Greater(t, r, DefaultEARThreshold)
	})

	t.Run("degenerate landmarks", func(t *testing.T) {
		face := detector.DegenerateFace()
		assert.Zero(t, Ratio(&face, layout.LeftEye))
		assert.Zero(t, Ratio(&face, layout.Mouth))
	})

	t.Run("fewer than six indices", func(t *testing.T) {
		face := detector.OpenEyesFace()
		assert.Zero(t, Ratio(&face, layout.LeftEye[:5]))
		assert.Zero(t, Ratio(&face, nil))
	})

	t.Run("index outside the face", func(t *testing.T) {
		face := detector.OpenEyesFace()
		face.Points = face.Points[:300]
		assert.Zero(t, Ratio(&face, layout.LeftEye), "left eye uses indices above 300")
	})

	t.Run("nil face", func(t *testing.T) {
		assert.Zero(t, Ratio(nil, layout.LeftEye))
	})

	t.Run("NaN coordinates", func(t *testing.T) {
		face := detector.OpenEyesFace()
		face.Points[layout.LeftEye[1]].Y = math.NaN()
		assert.Zero(t, Ratio(&face, layout.LeftEye))
	})

	t.Run("depth is ignored", func(t *testing.T) {
		face := detector.OpenEyesFace()
		for _, i := range layout.RightEye {
			face.Points[i].Z = float64(i) * 0.01
		}
		assert.InDelta(t, 0.30, Ratio(&face, layout.RightEye), epsilon)
	})
}

func TestMeasure(t *testing.T) {
	layout := DefaultLayout()

	t.Run("mean of both eyes", func(t *testing.T) {
		face := detector.FaceWithEyeRatios(0.20, 0.30, 0.50)
		r := Measure(&face, layout)
		assert.InDelta(t, 0.20, r.Left, epsilon)
		assert.InDelta(t, 0.30, r.Right, epsilon)
		assert.InDelta(t, 0.25, r.EAR, epsilon)
		assert.InDelta(t, 0.50, r.MAR, epsilon)
	})

	t.Run("one eye unavailable", func(t *testing.T) {
		face := detector.OpenEyesFace()
		for _, i := range layout.LeftEye {
			face.Points[i] = detector.Point3D{X: 0.6, Y: 0.4}
		}
		r := Measure(&face, layout)
		assert.Zero(t, r.Left)
		assert.Greater(t, r.Right, 0.0)
		assert.Zero(t, r.EAR)
	})
}
