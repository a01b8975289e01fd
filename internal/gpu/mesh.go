package gpu

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gputypes"
)

// cubeIndexCount is the index count of one cube draw (12 triangles).
const cubeIndexCount = 36

// quadVertexCount is the vertex count of the full-screen quad (2 triangles).
const quadVertexCount = 6

// cubePositions are the corners of a unit cube spanning [-1, 1].
var cubePositions = [8][3]float32{
	{-1, 1, -1}, // top left back
	{1, 1, -1},  // top right back
	{1, 1, 1},   // top right front
	{-1, 1, 1},  // top left front
	{-1, -1, -1},
	{1, -1, -1},
	{1, -1, 1},
	{-1, -1, 1},
}

// cubeIndices wind clockwise when seen from outside the cube.
var cubeIndices = [cubeIndexCount]uint32{
	3, 6, 2, 3, 7, 6, // front
	1, 4, 0, 1, 5, 4, // back
	0, 7, 3, 0, 4, 7, // left
	2, 5, 1, 2, 6, 5, // right
	0, 2, 1, 0, 3, 2, // top
	7, 5, 6, 7, 4, 5, // bottom
}

// quadPositions cover clip space with two clockwise triangles.
var quadPositions = [quadVertexCount][3]float32{
	{-1, 1, 0}, {1, 1, 0}, {-1, -1, 0},
	{1, 1, 0}, {1, -1, 0}, {-1, -1, 0},
}

// quadTexcoords map the quad to [0,1]² with v pointing down.
var quadTexcoords = [quadVertexCount][2]float32{
	{0, 0}, {1, 0}, {0, 1},
	{1, 0}, {1, 1}, {0, 1},
}

var (
	positionLayout = gputypes.VertexBufferLayout{
		ArrayStride: 12,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes: []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
		},
	}
	texcoordLayout = gputypes.VertexBufferLayout{
		ArrayStride: 8,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes: []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 1},
		},
	}
)

// float3Bytes packs float3 vertices as little-endian float32.
func float3Bytes(v [][3]float32) []byte {
	buf := make([]byte, len(v)*12)
	for i, p := range v {
		for c := 0; c < 3; c++ {
			off := i*12 + c*4
			binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(p[c]))
		}
	}
	return buf
}

// float2Bytes packs float2 vertices as little-endian float32.
func float2Bytes(v [][2]float32) []byte {
	buf := make([]byte, len(v)*8)
	for i, p := range v {
		binary.LittleEndian.PutUint32(buf[i*8:i*8+4], math.Float32bits(p[0]))
		binary.LittleEndian.PutUint32(buf[i*8+4:i*8+8], math.Float32bits(p[1]))
	}
	return buf
}

// uint32Bytes packs indices as little-endian uint32.
func uint32Bytes(v []uint32) []byte {
	buf := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], x)
	}
	return buf
}
