package gpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParticleVertexLayout(t *testing.T) {
	l := ParticleVertexLayout()
	assert.Equal(t, uint64(32), l.ArrayStride)
	assert.Equal(t, wgpu.VertexStepModeInstance, l.StepMode)
	require.Len(t, l.Attributes, 3)

	byLocation := map[uint32]wgpu.VertexAttribute{}
	for _, a := range l.Attributes {
		byLocation[a.ShaderLocation] = a
	}
	assert.Equal(t, uint64(0), byLocation[0].Offset)
	assert.Equal(t, wgpu.VertexFormatFloat32x3, byLocation[0].Format)
	assert.Equal(t, uint64(12), byLocation[1].Offset)
	assert.Equal(t, wgpu.VertexFormatFloat32, byLocation[1].Format)
	assert.Equal(t, uint64(28), byLocation[2].Offset)
	assert.Equal(t, wgpu.VertexFormatFloat32, byLocation[2].Format)
}

func TestCameraBytesColumnMajor(t *testing.T) {
	m := mgl32.Translate3D(1, 2, 3)
	data := CameraBytes(m)
	require.Len(t, data, CameraUniformSize)

	at := func(i int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])) }
	// translation lives in the fourth column
	assert.Equal(t, float32(1), at(12))
	assert.Equal(t, float32(2), at(13))
	assert.Equal(t, float32(3), at(14))
	assert.Equal(t, float32(1), at(15))

	// the result is a copy, not an alias of the matrix
	data[0] = 0xff
	assert.Equal(t, float32(1), m[0])
}

func TestRenderStyle(t *testing.T) {
	cfg := core.DefaultConfig()
	s := RenderStyleFromConfig(cfg, 1600, 900)
	assert.InDelta(t, 1600.0/900.0, s.Aspect, 1e-6)
	assert.Equal(t, cfg.PointSize, s.PointSize)

	data := s.Bytes()
	require.Len(t, data, StyleUniformSize)
	assert.Equal(t, cfg.AnchorSize, math.Float32frombits(binary.LittleEndian.Uint32(data[8:12])))

	assert.Equal(t, float32(1), RenderStyleFromConfig(cfg, 1600, 0).Aspect)
}

func TestAccelBufferSize(t *testing.T) {
	assert.Equal(t, uint64(2500*16), AccelBufferSize(2500))
}
