package gpu

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	CameraUniformSize = 64 // mat4x4<f32>
	StyleUniformSize  = 16
	accelStride       = 16 // vec4<f32>
)

// ParticleVertexLayout exposes the particle store as a per-instance vertex
// source for billboard.wgsl.
func ParticleVertexLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: uint64(core.ParticleSize),
		StepMode:    wgpu.VertexStepModeInstance,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0}, // position
			{Format: wgpu.VertexFormatFloat32, Offset: 12, ShaderLocation: 1},  // hidden
			{Format: wgpu.VertexFormatFloat32, Offset: 28, ShaderLocation: 2},  // mass
		},
	}
}

// RenderStyle matches struct Style in billboard.wgsl.
type RenderStyle struct {
	Aspect        float32
	PointSize     float32
	AnchorSize    float32
	MassThreshold float32
}

func RenderStyleFromConfig(cfg core.Config, width, height uint32) RenderStyle {
	aspect := float32(1)
	if width > 0 && height > 0 {
		aspect = float32(width) / float32(height)
	}
	return RenderStyle{
		Aspect:        aspect,
		PointSize:     cfg.PointSize,
		AnchorSize:    cfg.AnchorSize,
		MassThreshold: cfg.MassThreshold,
	}
}

func (s RenderStyle) Bytes() []byte {
	data := make([]byte, StyleUniformSize)
	binary.LittleEndian.PutUint32(data[0:4], math.Float32bits(s.Aspect))
	binary.LittleEndian.PutUint32(data[4:8], math.Float32bits(s.PointSize))
	binary.LittleEndian.PutUint32(data[8:12], math.Float32bits(s.AnchorSize))
	binary.LittleEndian.PutUint32(data[12:16], math.Float32bits(s.MassThreshold))
	return data
}

// CameraBytes returns the column-major matrix bytes WGSL expects for mat4x4<f32>.
func CameraBytes(viewProj mgl32.Mat4) []byte {
	out := make([]byte, CameraUniformSize)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(&viewProj[0])), CameraUniformSize))
	return out
}

func AccelBufferSize(count int) uint64 {
	return uint64(count) * accelStride
}
