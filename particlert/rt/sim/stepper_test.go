package sim

import (
	"context"
	"encoding/binary"
	"math"
	"math/rand"
	"testing"

	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKernel() Kernel {
	return KernelFromConfig(core.DefaultConfig())
}

func seededStore(t *testing.T, count int, seed int64) *core.ParticleStore {
	t.Helper()
	cfg := core.DefaultConfig()
	cfg.ParticleCount = count
	store, err := core.NewParticleStore(cfg, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return store
}

func TestAnchorsOnlyTwoBodyTick(t *testing.T) {
	store := seededStore(t, 2500, 11)
	for i := core.AnchorCount; i < store.Len(); i++ {
		store.Particles[i].Hidden = 1
	}
	store.Particles[0].Position = [3]float32{-1.5, 0, 0}
	store.Particles[1].Position = [3]float32{1.5, 0, 0}

	require.NoError(t, NewStepper(testKernel(), 4).Step(context.Background(), store))

	// dt*G*M*r/(r^2+eps^2)^1.5 is about 5.5e-4 at r=3
	const tolerance = 1e-3
	a0 := mgl32.Vec3(store.Particles[0].Velocity)
	a1 := mgl32.Vec3(store.Particles[1].Velocity)
	assert.Less(t, a0.Len(), float32(tolerance))
	assert.Less(t, a1.Len(), float32(tolerance))

	// equal masses pull each other equally and oppositely
	assert.InDelta(t, a0.X(), -a1.X(), 1e-9)
	assert.Greater(t, a0.X(), float32(0))
}

func TestFreeBodiesFallTowardAnchor(t *testing.T) {
	cfg := core.DefaultConfig()
	store := &core.ParticleStore{Particles: []core.Particle{
		{Position: [3]float32{0, 0, 0}, Mass: cfg.AnchorMass},
		{Position: [3]float32{0, 0, 0}, Mass: cfg.AnchorMass},
		{Position: [3]float32{1, 0, 0}, Mass: 0.01},
		{Position: [3]float32{-1, 0, 0}, Mass: 0.01},
	}}

	require.NoError(t, NewStepper(testKernel(), 2).Step(context.Background(), store))

	for _, i := range []int{2, 3} {
		v := mgl32.Vec3(store.Particles[i].Velocity)
		disp := mgl32.Vec3{1, 0, 0}
		if i == 3 {
			disp = mgl32.Vec3{-1, 0, 0}
		}
		require.Greater(t, v.Len(), float32(0))
		dir := v.Normalize()
		assert.InDelta(t, -1, dir.Dot(disp), 1e-6, "particle %d velocity %v should point at the anchor", i, v)
	}

	v2 := mgl32.Vec3(store.Particles[2].Velocity)
	v3 := mgl32.Vec3(store.Particles[3].Velocity)
	assert.InDelta(t, v2.Len(), v3.Len(), 1e-7)

	// co-located anchors exert no force on each other
	assert.Equal(t, [3]float32{0, 0, 0}, store.Particles[0].Velocity)
	assert.Equal(t, [3]float32{0, 0, 0}, store.Particles[1].Velocity)
}

func TestStepMatchesClosedForm(t *testing.T) {
	k := testKernel()
	store := &core.ParticleStore{Particles: []core.Particle{
		{Position: [3]float32{0, 0, 0}, Mass: 1000},
		{Position: [3]float32{0, 2, 0}, Mass: 0.02},
	}}

	require.NoError(t, NewStepper(k, 1).Step(context.Background(), store))

	r2 := float64(4 + k.Softening*k.Softening)
	accel := float64(k.Gravity) * 1000 * 2 / (r2 * math.Sqrt(r2))
	wantV := -accel * float64(k.TimeStep)
	p := store.Particles[1]
	assert.InDelta(t, wantV, p.Velocity[1], 1e-6)
	assert.InDelta(t, 2+wantV*float64(k.TimeStep), p.Position[1], 1e-6)
}

func TestNegativeMassStillAttracts(t *testing.T) {
	k := testKernel()
	particles := []core.Particle{
		{Position: [3]float32{0, 0, 0}, Mass: -1000},
		{Position: [3]float32{1, 0, 0}, Mass: 0.01},
	}
	acc := k.Acceleration(particles, 1)
	assert.Less(t, acc.X(), float32(0))
}

func TestHiddenPolicy(t *testing.T) {
	k := testKernel()
	store := &core.ParticleStore{Particles: []core.Particle{
		{Position: [3]float32{0, 0, 0}, Mass: 1000},
		{Position: [3]float32{0, 0, 0}, Mass: 1000, Hidden: 1},
		{Position: [3]float32{k.BoundRadius - 0.001, 0, 0}, Velocity: [3]float32{10, 0, 0}, Mass: 0.01},
		{Position: [3]float32{3, 0, 0}, Velocity: [3]float32{1, 1, 1}, Mass: 0.01, Hidden: 1},
	}}

	require.NoError(t, NewStepper(k, 3).Step(context.Background(), store))

	assert.True(t, store.Particles[2].IsHidden(), "particle leaving the bound radius should be hidden")
	// hidden particles are frozen
	assert.Equal(t, [3]float32{3, 0, 0}, store.Particles[3].Position)
	assert.Equal(t, [3]float32{1, 1, 1}, store.Particles[3].Velocity)
	assert.Equal(t, [3]float32{0, 0, 0}, store.Particles[1].Velocity)

	// and exert no pull: every other particle is hidden now
	acc := k.Acceleration(store.Particles, 0)
	assert.Equal(t, mgl32.Vec3{}, acc)
	assert.Equal(t, 1, store.VisibleCount())
}

func TestStepIsIndependentOfWorkerCount(t *testing.T) {
	serial := seededStore(t, 517, 99)
	parallel := &core.ParticleStore{Particles: append([]core.Particle(nil), serial.Particles...)}

	s1 := NewStepper(testKernel(), 1)
	s8 := NewStepper(testKernel(), 8)
	for tick := 0; tick < 3; tick++ {
		require.NoError(t, s1.Step(context.Background(), serial))
		require.NoError(t, s8.Step(context.Background(), parallel))
	}
	assert.Equal(t, serial.Particles, parallel.Particles)
}

func TestStepReadsConsistentSnapshot(t *testing.T) {
	k := testKernel()
	store := seededStore(t, 64, 5)
	before := append([]core.Particle(nil), store.Particles...)

	want := make([]core.Particle, len(before))
	copy(want, before)
	for i := range want {
		k.Integrate(&want[i], k.Acceleration(before, i))
	}

	require.NoError(t, NewStepper(k, 4).Step(context.Background(), store))
	assert.Equal(t, want, store.Particles)
}

func TestStepHonorsCancellation(t *testing.T) {
	store := seededStore(t, 32, 1)
	before := append([]core.Particle(nil), store.Particles...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewStepper(testKernel(), 2).Step(ctx, store)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, before, store.Particles)
}

func TestPartition(t *testing.T) {
	for _, tc := range []struct{ n, parts, wantRanges int }{
		{0, 4, 0},
		{1, 4, 1},
		{10, 3, 3},
		{2500, 16, 16},
		{7, 0, 1},
	} {
		ranges := Partition(tc.n, tc.parts)
		require.Len(t, ranges, tc.wantRanges)
		next := 0
		for _, r := range ranges {
			assert.Equal(t, next, r[0])
			assert.Greater(t, r[1], r[0])
			next = r[1]
		}
		assert.Equal(t, tc.n, next)
	}
}

func TestInvocationIndicesCoverStoreOnce(t *testing.T) {
	for _, count := range []int{1, 63, 64, 2500, GridSize, GridSize + 1, 3*GridSize + 17} {
		seen := make([]int, count)
		for inv := 0; inv < GridSize; inv++ {
			for _, i := range InvocationIndices(inv, count) {
				require.Less(t, i, count)
				seen[i]++
			}
		}
		for i, c := range seen {
			if c != 1 {
				t.Fatalf("count %d: index %d owned by %d invocations", count, i, c)
			}
		}
	}
}

func TestParamsEncoding(t *testing.T) {
	k := testKernel()
	data := k.Params(2500)
	require.Len(t, data, ParamsSize)
	assert.Equal(t, uint32(2500), binary.LittleEndian.Uint32(data[0:4]))
	assert.Equal(t, k.Gravity, math.Float32frombits(binary.LittleEndian.Uint32(data[4:8])))
	assert.Equal(t, k.Softening, math.Float32frombits(binary.LittleEndian.Uint32(data[8:12])))
	assert.Equal(t, k.TimeStep, math.Float32frombits(binary.LittleEndian.Uint32(data[12:16])))
	assert.Equal(t, k.BoundRadius, math.Float32frombits(binary.LittleEndian.Uint32(data[16:20])))
	assert.Equal(t, make([]byte, 12), data[20:])
}
