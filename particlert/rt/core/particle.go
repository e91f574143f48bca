package core

import (
	"fmt"
	"math/rand"
	"unsafe"
)

// AnchorCount is the number of heavy stationary attractors at the start of the store.
const AnchorCount = 2

// ParticleSize is the byte stride of one Particle, shared by the storage binding
// and the instance vertex buffer.
const ParticleSize = int(unsafe.Sizeof(Particle{}))

// Particle matches WGSL layout in simulate.wgsl and billboard.wgsl
// struct Particle { vec3 position; f32 hidden; vec3 velocity; f32 mass; }
type Particle struct {
	Position [3]float32
	Hidden   float32
	Velocity [3]float32
	Mass     float32
}

func (p *Particle) IsHidden() bool { return p.Hidden != 0 }

// ParticleStore is the authoritative particle state. Its length is fixed at
// construction; Hidden is the only way a particle leaves the simulation.
type ParticleStore struct {
	Particles []Particle
}

// NewParticleStore seeds cfg.ParticleCount particles from rng and then pins the
// anchors to AnchorMass with zero velocity, keeping their seeded positions.
func NewParticleStore(cfg Config, rng *rand.Rand) (*ParticleStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	box := cfg.InitialBoxSize
	speed := cfg.InitialMaxSpeedComponent
	particles := make([]Particle, cfg.ParticleCount)
	for i := range particles {
		p := &particles[i]
		for a := 0; a < 3; a++ {
			p.Position[a] = (rng.Float32() - 0.5) * box * 2
		}
		for a := 0; a < 3; a++ {
			p.Velocity[a] = (rng.Float32() - 0.5) * speed * 2
		}
		// (0, MaxSeedMass]: Float32 is in [0,1) so 1-f is never zero
		p.Mass = cfg.MaxSeedMass * (1 - rng.Float32())
		p.Hidden = 0
	}

	for i := 0; i < AnchorCount; i++ {
		particles[i].Mass = cfg.AnchorMass
		particles[i].Velocity = [3]float32{0, 0, 0}
	}

	return &ParticleStore{Particles: particles}, nil
}

func (s *ParticleStore) Len() int { return len(s.Particles) }

// At panics on an out-of-range index; there is no recoverable path for it.
func (s *ParticleStore) At(i int) *Particle {
	if i < 0 || i >= len(s.Particles) {
		panic(fmt.Sprintf("particle index %d out of range [0,%d)", i, len(s.Particles)))
	}
	return &s.Particles[i]
}

func (s *ParticleStore) VisibleCount() int {
	n := 0
	for i := range s.Particles {
		if !s.Particles[i].IsHidden() {
			n++
		}
	}
	return n
}

// Bytes aliases the store memory for Queue.WriteBuffer; it is not a copy.
func (s *ParticleStore) Bytes() []byte {
	if len(s.Particles) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s.Particles[0])), len(s.Particles)*ParticleSize)
}

func (s *ParticleStore) ByteSize() uint64 {
	return uint64(len(s.Particles) * ParticleSize)
}
