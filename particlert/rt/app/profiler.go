package app

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type profileScope struct {
	name    string
	started time.Time
	running bool
	last    time.Duration
}

// Profiler records the most recent duration of each named frame scope and a
// set of counters. Scopes are reported in the order they were first opened.
type Profiler struct {
	scopes []*profileScope
	byName map[string]*profileScope
	counts map[string]int

	now func() time.Time
}

func NewProfiler() *Profiler {
	return &Profiler{
		byName: make(map[string]*profileScope),
		counts: make(map[string]int),
		now:    time.Now,
	}
}

func (p *Profiler) BeginScope(name string) {
	s, ok := p.byName[name]
	if !ok {
		s = &profileScope{name: name}
		p.byName[name] = s
		p.scopes = append(p.scopes, s)
	}
	s.started = p.now()
	s.running = true
}

func (p *Profiler) EndScope(name string) {
	s, ok := p.byName[name]
	if !ok || !s.running {
		return
	}
	s.last = p.now().Sub(s.started)
	s.running = false
}

// Last is the duration of the most recently closed run of name.
func (p *Profiler) Last(name string) time.Duration {
	if s, ok := p.byName[name]; ok {
		return s.last
	}
	return 0
}

func (p *Profiler) Names() []string {
	names := make([]string, len(p.scopes))
	for i, s := range p.scopes {
		names[i] = s.name
	}
	return names
}

func (p *Profiler) SetCount(name string, count int) {
	p.counts[name] = count
}

// Reset zeroes durations but keeps scope order and counters.
func (p *Profiler) Reset() {
	for _, s := range p.scopes {
		s.last = 0
	}
}

func (p *Profiler) String() string {
	var sb strings.Builder
	sb.WriteString("timings:")
	for _, s := range p.scopes {
		fmt.Fprintf(&sb, " %s=%.2fms", s.name, float64(s.last.Microseconds())/1000)
	}

	if len(p.counts) == 0 {
		return sb.String()
	}
	keys := make([]string, 0, len(p.counts))
	for k := range p.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	sb.WriteString(" counts:")
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%d", k, p.counts[k])
	}
	return sb.String()
}
