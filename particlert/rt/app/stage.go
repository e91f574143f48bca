package app

import "fmt"

// Stage says which pass currently owns the particle buffer within a tick.
type Stage int

const (
	StageIdle Stage = iota
	StageComputing
	StageRendering
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageComputing:
		return "computing"
	case StageRendering:
		return "rendering"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Computing -> Idle covers a tick whose draw was skipped or whose encoding failed.
var stageTransitions = map[Stage][]Stage{
	StageIdle:      {StageComputing},
	StageComputing: {StageRendering, StageIdle},
	StageRendering: {StageIdle},
}

type stageTracker struct {
	current Stage
}

func (t *stageTracker) Current() Stage { return t.current }

// enter panics on a transition the frame cycle never makes.
func (t *stageTracker) enter(next Stage) {
	for _, s := range stageTransitions[t.current] {
		if s == next {
			t.current = next
			return
		}
	}
	panic(fmt.Sprintf("illegal stage transition %s -> %s", t.current, next))
}

// finish returns to Idle from whichever stage the tick reached.
func (t *stageTracker) finish() {
	if t.current != StageIdle {
		t.enter(StageIdle)
	}
}
