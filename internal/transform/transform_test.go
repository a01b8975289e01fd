package transform

import (
	"math"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulIdentity(t *testing.T) {
	m := Translation(1, 2, 3)
	assert.Equal(t, m, Mul(Identity(), m))
	assert.Equal(t, m, Mul(m, Identity()))
}

func TestMulComposesLeftToRight(t *testing.T) {
	a := Translation(1, 0, 0)
	b := Translation(0, 2, 0)
	p := TransformPoint(Vec3{0, 0, 0}, Mul(a, b))
	assert.Equal(t, Vec4{1, 2, 0, 1}, p)
}

func TestTranspose(t *testing.T) {
	m := Translation(4, 5, 6)
	tt := Transpose(m)
	assert.Equal(t, float32(4), tt[3])
	assert.Equal(t, float32(5), tt[7])
	assert.Equal(t, float32(6), tt[11])
	assert.Equal(t, m, Transpose(tt))
}

func TestLookAtLHMapsTargetOntoPositiveZ(t *testing.T) {
	cam := DefaultCamera()
	view := cam.View()

	eye := TransformPoint(cam.Position, view)
	assert.InDelta(t, 0, eye[0], 1e-4)
	assert.InDelta(t, 0, eye[1], 1e-4)
	assert.InDelta(t, 0, eye[2], 1e-4)

	target := TransformPoint(cam.Target, view)
	dist := math32.Sqrt(3 * 67.5 * 67.5)
	assert.InDelta(t, 0, target[0], 1e-3)
	assert.InDelta(t, 0, target[1], 1e-3)
	assert.InDelta(t, dist, target[2], 1e-3)
}

func TestPerspectiveFovLHDepthRange(t *testing.T) {
	proj := PerspectiveFovLH(FieldOfView(45), 16.0/9.0, NearPlane, FarPlane)

	near := TransformPoint(Vec3{0, 0, NearPlane}, proj)
	require.NotZero(t, near[3])
	assert.InDelta(t, 0, near[2]/near[3], 1e-6)

	far := TransformPoint(Vec3{0, 0, FarPlane}, proj)
	require.NotZero(t, far[3])
	assert.InDelta(t, 1, far[2]/far[3], 1e-5)
}

func TestPerspectiveFovLHScales(t *testing.T) {
	fov := FieldOfView(45)
	proj := PerspectiveFovLH(fov, 2, 1, 1000)
	yScale := 1 / math.Tan(math.Pi/8)
	assert.InDelta(t, yScale, proj[5], 1e-5)
	assert.InDelta(t, yScale/2, proj[0], 1e-5)
	assert.Equal(t, float32(1), proj[11])
	assert.Equal(t, float32(0), proj[15])
}

func TestFieldOfView(t *testing.T) {
	assert.Equal(t, 2*math32.Pi*(float32(45)/360), FieldOfView(45))
	assert.Equal(t, float32(0), FieldOfView(-30))
	assert.Equal(t, 2*math32.Pi, FieldOfView(720))
}

func TestRippleMatchesFormula(t *testing.T) {
	g := DefaultGrid()
	for _, time := range []float32{0, 0.5, 3.25} {
		for i := 0; i < g.Count; i += 7 {
			for j := 0; j < g.Count; j += 5 {
				p := g.Offset(i, j, time)
				want := math32.Sin(math32.Sqrt(p[0]*p[0]+p[1]*p[1]) + time)
				assert.Equal(t, want, p[2], "cell (%d, %d) t=%v", i, j, time)
			}
		}
	}
}

func TestRippleIsPure(t *testing.T) {
	g := DefaultGrid()
	first := g.World(3, 17, 0)
	for range 10 {
		assert.Equal(t, first, g.World(3, 17, 0))
	}
	assert.Equal(t, math.Float32bits(Ripple(1.5, -2, 0)), math.Float32bits(Ripple(1.5, -2, 0)))
}

func TestGridCenteredOnOrigin(t *testing.T) {
	g := Grid{Count: 2, Step: 2.25}
	want := [][2]float32{
		{-1.125, -1.125},
		{-1.125, 1.125},
		{1.125, -1.125},
		{1.125, 1.125},
	}
	k := 0
	for i := 0; i < g.Count; i++ {
		for j := 0; j < g.Count; j++ {
			p := g.Offset(i, j, 0)
			assert.Equal(t, want[k][0], p[0])
			assert.Equal(t, want[k][1], p[1])
			assert.InDelta(t, math.Sin(1.125*math.Sqrt2), p[2], 1e-6)
			k++
		}
	}
}

func TestDefaultGridSymmetry(t *testing.T) {
	g := DefaultGrid()
	first := g.Offset(0, 0, 0)
	last := g.Offset(g.Count-1, g.Count-1, 0)
	assert.Equal(t, -first[0], last[0])
	assert.Equal(t, -first[1], last[1])
	assert.Equal(t, 1024, g.Len())
}
