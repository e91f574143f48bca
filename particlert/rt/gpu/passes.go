package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/gekko3d/particles/particlert/rt/sim"
	"github.com/go-gl/mathgl/mgl32"
)

// VerticesPerParticle is the billboard quad: two triangles generated in vs_main.
const VerticesPerParticle = 6

// WriteCamera replaces the whole view-projection uniform.
func (r *ParticleResources) WriteCamera(viewProj mgl32.Mat4) error {
	return r.Queue.WriteBuffer(r.CameraBuf, 0, CameraBytes(viewProj))
}

func (r *ParticleResources) WriteStyle(style RenderStyle) error {
	return r.Queue.WriteBuffer(r.StyleBuf, 0, style.Bytes())
}

// UploadParticles overwrites the GPU store from the CPU copy. Only the CPU
// compute backend uses it.
func (r *ParticleResources) UploadParticles(store *core.ParticleStore) error {
	if uint32(store.Len()) != r.Count {
		return fmt.Errorf("particle store has %d particles, GPU buffer holds %d", store.Len(), r.Count)
	}
	return r.Queue.WriteBuffer(r.ParticleBuf, 0, store.Bytes())
}

// EncodeCompute records one simulation tick: accumulate then integrate, each
// over the fixed workgroup grid.
func (r *ParticleResources) EncodeCompute(encoder *wgpu.CommandEncoder) error {
	pass := encoder.BeginComputePass(nil)

	pass.SetPipeline(r.AccumulatePipeline)
	pass.SetBindGroup(0, r.ComputeBindGroup, nil)
	pass.DispatchWorkgroups(sim.WorkgroupCount, 1, 1)

	// same pipeline layout, so group 0 stays bound
	pass.SetPipeline(r.IntegratePipeline)
	pass.DispatchWorkgroups(sim.WorkgroupCount, 1, 1)

	if err := pass.End(); err != nil {
		return fmt.Errorf("simulate pass end failed: %w", err)
	}
	return nil
}

// Draw records the billboard draw. The particle buffer is bound read-only as
// an instance source.
func (r *ParticleResources) Draw(pass *wgpu.RenderPassEncoder) {
	pass.SetPipeline(r.RenderPipeline)
	pass.SetBindGroup(0, r.RenderBindGroup, nil)
	pass.SetVertexBuffer(0, r.ParticleBuf, 0, wgpu.WholeSize)
	pass.Draw(VerticesPerParticle, r.Count, 0, 0)
}
