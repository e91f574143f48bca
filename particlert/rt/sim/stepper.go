package sim

import (
	"context"
	"runtime"

	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"
)

// Stepper runs Kernel on the CPU. Each worker owns a contiguous index range
// for writes and may read the whole store.
type Stepper struct {
	Kernel  Kernel
	Workers int

	accel []mgl32.Vec3
}

func NewStepper(k Kernel, workers int) *Stepper {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Stepper{Kernel: k, Workers: workers}
}

// Step advances the store by one TimeStep. Accelerations are computed from a
// full read of the current state before any particle is moved.
func (s *Stepper) Step(ctx context.Context, store *core.ParticleStore) error {
	n := store.Len()
	if cap(s.accel) < n {
		s.accel = make([]mgl32.Vec3, n)
	}
	s.accel = s.accel[:n]
	particles := store.Particles

	err := s.forRanges(ctx, n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			s.accel[i] = s.Kernel.Acceleration(particles, i)
		}
	})
	if err != nil {
		return err
	}

	return s.forRanges(ctx, n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			s.Kernel.Integrate(&particles[i], s.accel[i])
		}
	})
}

func (s *Stepper) forRanges(ctx context.Context, n int, fn func(lo, hi int)) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range Partition(n, s.Workers) {
		lo, hi := r[0], r[1]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(lo, hi)
			return nil
		})
	}
	return g.Wait()
}

// Partition splits [0,n) into at most parts contiguous, non-empty half-open ranges.
func Partition(n, parts int) [][2]int {
	if n <= 0 {
		return nil
	}
	if parts <= 0 {
		parts = 1
	}
	if parts > n {
		parts = n
	}
	ranges := make([][2]int, 0, parts)
	chunk := n / parts
	rem := n % parts
	lo := 0
	for p := 0; p < parts; p++ {
		size := chunk
		if p < rem {
			size++
		}
		ranges = append(ranges, [2]int{lo, lo + size})
		lo += size
	}
	return ranges
}
