package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// steppedClock advances by the next step after every reading.
func steppedClock(steps ...time.Duration) func() time.Time {
	cur := time.Unix(0, 0)
	return func() time.Time {
		t := cur
		if len(steps) > 0 {
			cur = cur.Add(steps[0])
			steps = steps[1:]
		}
		return t
	}
}

func TestProfilerScopesAndCounts(t *testing.T) {
	p := NewProfiler()
	p.now = steppedClock(1500*time.Microsecond, 0, 250*time.Microsecond, 0)

	p.BeginScope("compute")
	p.EndScope("compute")
	p.BeginScope("draw")
	p.EndScope("draw")
	p.SetCount("visible", 2498)
	p.SetCount("skipped", 0)

	assert.Equal(t, 1500*time.Microsecond, p.Last("compute"))
	assert.Equal(t, 250*time.Microsecond, p.Last("draw"))
	assert.Equal(t, "timings: compute=1.50ms draw=0.25ms counts: skipped=0 visible=2498", p.String())
}

func TestProfilerKeepsOrderAcrossReset(t *testing.T) {
	p := NewProfiler()
	for _, name := range []string{"camera", "submit", "camera"} {
		p.BeginScope(name)
		p.EndScope(name)
	}

	p.Reset()

	assert.Equal(t, []string{"camera", "submit"}, p.Names())
	assert.Zero(t, p.Last("camera"))
	assert.Equal(t, "timings: camera=0.00ms submit=0.00ms", p.String())
}

func TestProfilerUnmatchedEnd(t *testing.T) {
	p := NewProfiler()
	p.now = steppedClock(time.Millisecond, time.Millisecond, time.Millisecond)

	p.EndScope("missing")
	assert.Empty(t, p.Names())

	p.BeginScope("draw")
	p.EndScope("draw")
	p.EndScope("draw")
	assert.Equal(t, time.Millisecond, p.Last("draw"))
	assert.Zero(t, p.Last("missing"))
}
