package core

import (
	"math"
	"math/rand"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParticleLayout(t *testing.T) {
	var p Particle
	assert.Equal(t, 32, ParticleSize)
	assert.Equal(t, uintptr(0), unsafe.Offsetof(p.Position))
	assert.Equal(t, uintptr(12), unsafe.Offsetof(p.Hidden))
	assert.Equal(t, uintptr(16), unsafe.Offsetof(p.Velocity))
	assert.Equal(t, uintptr(28), unsafe.Offsetof(p.Mass))
}

func TestNewParticleStoreSeedBounds(t *testing.T) {
	cfg := DefaultConfig()
	for _, seed := range []int64{1, 2, 42, 1234567} {
		store, err := NewParticleStore(cfg, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		require.Equal(t, cfg.ParticleCount, store.Len())

		for i := AnchorCount; i < store.Len(); i++ {
			p := store.Particles[i]
			for a := 0; a < 3; a++ {
				if math.Abs(float64(p.Position[a])) > 2 {
					t.Fatalf("seed %d particle %d position[%d] = %f out of [-2,2]", seed, i, a, p.Position[a])
				}
				if math.Abs(float64(p.Velocity[a])) > 2 {
					t.Fatalf("seed %d particle %d velocity[%d] = %f out of [-2,2]", seed, i, a, p.Velocity[a])
				}
			}
			if !(p.Mass > 0 && p.Mass <= 0.05) {
				t.Fatalf("seed %d particle %d mass = %f out of (0,0.05]", seed, i, p.Mass)
			}
			assert.False(t, p.IsHidden())
		}
	}
}

func TestNewParticleStoreAnchors(t *testing.T) {
	cfg := DefaultConfig()
	store, err := NewParticleStore(cfg, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	for i := 0; i < AnchorCount; i++ {
		p := store.Particles[i]
		assert.Equal(t, float32(1000), p.Mass)
		assert.Equal(t, [3]float32{0, 0, 0}, p.Velocity)
		assert.Equal(t, float32(0), p.Hidden)
	}

	// anchors keep the positions drawn for them
	ref := rand.New(rand.NewSource(7))
	var want [3]float32
	for a := 0; a < 3; a++ {
		want[a] = (ref.Float32() - 0.5) * cfg.InitialBoxSize * 2
	}
	assert.Equal(t, want, store.Particles[0].Position)
}

func TestNewParticleStoreRejectsTooFewParticles(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ParticleCount = 1
	_, err := NewParticleStore(cfg, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParticleStoreBytesAliasesMemory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ParticleCount = 4
	store, err := NewParticleStore(cfg, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	b := store.Bytes()
	require.Len(t, b, 4*ParticleSize)
	assert.Equal(t, uint64(128), store.ByteSize())

	store.Particles[1].Hidden = 1
	hidden := *(*float32)(unsafe.Pointer(&b[ParticleSize+12]))
	assert.Equal(t, float32(1), hidden)
	assert.Equal(t, 3, store.VisibleCount())
}

func TestParticleStoreAtPanicsOutOfRange(t *testing.T) {
	store := &ParticleStore{Particles: make([]Particle, 3)}
	assert.NotPanics(t, func() { store.At(2) })
	assert.Panics(t, func() { store.At(3) })
	assert.Panics(t, func() { store.At(-1) })
}
