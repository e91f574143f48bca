package sim

import (
	"encoding/binary"
	"math"

	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// Dispatch shape of simulate.wgsl. The workgroup count is fixed, so each
// invocation strides over the store by GridSize.
const (
	WorkgroupCount = 256
	WorkgroupSize  = 64
	GridSize       = WorkgroupCount * WorkgroupSize
)

// ParamsSize is the byte size of the SimParams uniform in simulate.wgsl.
const ParamsSize = 32

// Kernel is the per-dispatch physics rule: softened all-pairs gravity followed
// by a semi-implicit Euler step. Particles leaving BoundRadius become hidden.
type Kernel struct {
	Gravity     float32
	Softening   float32
	TimeStep    float32
	BoundRadius float32
}

func KernelFromConfig(cfg core.Config) Kernel {
	return Kernel{
		Gravity:     cfg.Gravity,
		Softening:   cfg.Softening,
		TimeStep:    cfg.TimeStep,
		BoundRadius: cfg.BoundRadius,
	}
}

// Params encodes the SimParams uniform:
// struct SimParams { count: u32, gravity: f32, softening: f32, dt: f32, bound_radius: f32 }
// padded to 32 bytes.
func (k Kernel) Params(count int) []byte {
	data := make([]byte, ParamsSize)
	binary.LittleEndian.PutUint32(data[0:4], uint32(count))
	binary.LittleEndian.PutUint32(data[4:8], math.Float32bits(k.Gravity))
	binary.LittleEndian.PutUint32(data[8:12], math.Float32bits(k.Softening))
	binary.LittleEndian.PutUint32(data[12:16], math.Float32bits(k.TimeStep))
	binary.LittleEndian.PutUint32(data[16:20], math.Float32bits(k.BoundRadius))
	return data
}

// Acceleration sums the pull on particle i from every other visible particle.
// Only positions and masses are read.
func (k Kernel) Acceleration(particles []core.Particle, i int) mgl32.Vec3 {
	self := &particles[i]
	if self.IsHidden() {
		return mgl32.Vec3{}
	}
	pi := mgl32.Vec3(self.Position)
	eps2 := k.Softening * k.Softening

	var acc mgl32.Vec3
	for j := range particles {
		other := &particles[j]
		if j == i || other.IsHidden() {
			continue
		}
		d := mgl32.Vec3(other.Position).Sub(pi)
		r2 := d.Dot(d) + eps2
		invR3 := 1 / (r2 * float32(math.Sqrt(float64(r2))))
		m := float32(math.Abs(float64(other.Mass)))
		acc = acc.Add(d.Mul(k.Gravity * m * invR3))
	}
	return acc
}

// Integrate advances one particle in place. It touches nothing but p.
func (k Kernel) Integrate(p *core.Particle, acc mgl32.Vec3) {
	if p.IsHidden() {
		return
	}
	v := mgl32.Vec3(p.Velocity).Add(acc.Mul(k.TimeStep))
	pos := mgl32.Vec3(p.Position).Add(v.Mul(k.TimeStep))
	p.Velocity = v
	p.Position = pos
	if pos.Len() > k.BoundRadius {
		p.Hidden = 1
	}
}

// InvocationIndices lists the particle slots owned by one global invocation
// of a fixed-size dispatch.
func InvocationIndices(invocation, count int) []int {
	var out []int
	for i := invocation; i < count; i += GridSize {
		out = append(out, i)
	}
	return out
}
