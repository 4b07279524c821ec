package transition

import (
	"time"

	"rrtimeline/internal/scene"
)

// DefaultDuration is the length of every update animation.
const DefaultDuration = 500 * time.Millisecond

// Clock supplies the time base shared by all transitions.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
var SystemClock Clock = systemClock{}

type tween struct {
	from     map[string]float64
	to       map[string]float64
	start    time.Time
	duration time.Duration
}

// Scheduler interpolates numeric node attributes linearly over time. Each
// node has at most one tween; animating a node that is mid-transition
// retargets it from its current position.
//
// Scheduler is not safe for concurrent use. The owner serialises access.
type Scheduler struct {
	clock  Clock
	tweens map[*scene.Node]*tween
	order  []*scene.Node
}

// NewScheduler returns a scheduler reading time from clock. A nil clock
// means the wall clock.
func NewScheduler(clock Clock) *Scheduler {
	if clock == nil {
		clock = SystemClock
	}
	return &Scheduler{clock: clock, tweens: make(map[*scene.Node]*tween)}
}

// Animate starts moving node's attributes toward targets. It never blocks.
func (s *Scheduler) Animate(node *scene.Node, targets map[string]float64, duration time.Duration) {
	now := s.clock.Now()
	merged := make(map[string]float64, len(targets))

	prev, existed := s.tweens[node]
	if existed {
		// Land the interrupted tween where it is and carry its targets over.
		apply(node, prev, now)
		for name, v := range prev.to {
			merged[name] = v
		}
	}
	for name, v := range targets {
		merged[name] = v
	}

	if duration <= 0 {
		for name, v := range merged {
			node.SetNum(name, v)
		}
		s.drop(node)
		return
	}

	from := make(map[string]float64, len(merged))
	for name := range merged {
		from[name] = node.Num(name)
	}
	if !existed {
		s.order = append(s.order, node)
	}
	s.tweens[node] = &tween{from: from, to: merged, start: now, duration: duration}
}

// Tick applies every tween at the current clock time and drops finished
// ones. It returns the number of tweens still running.
func (s *Scheduler) Tick() int {
	now := s.clock.Now()
	for _, node := range s.Nodes() {
		if apply(node, s.tweens[node], now) {
			s.drop(node)
		}
	}
	return len(s.tweens)
}

// Finish jumps every tween to its target.
func (s *Scheduler) Finish() {
	for _, node := range s.Nodes() {
		for name, v := range s.tweens[node].to {
			node.SetNum(name, v)
		}
		s.drop(node)
	}
}

// Cancel drops the tween on node, leaving its attributes where they are.
func (s *Scheduler) Cancel(node *scene.Node) {
	s.drop(node)
}

// Active reports the number of running tweens.
func (s *Scheduler) Active() int {
	return len(s.tweens)
}

// Animating reports whether node has a running tween.
func (s *Scheduler) Animating(node *scene.Node) bool {
	_, ok := s.tweens[node]
	return ok
}

// Target returns the value attribute name is heading toward.
func (s *Scheduler) Target(node *scene.Node, name string) (float64, bool) {
	tw, ok := s.tweens[node]
	if !ok {
		return 0, false
	}
	v, ok := tw.to[name]
	return v, ok
}

// Nodes returns the animated nodes in the order their tweens started.
func (s *Scheduler) Nodes() []*scene.Node {
	out := make([]*scene.Node, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Scheduler) drop(node *scene.Node) {
	if _, ok := s.tweens[node]; !ok {
		return
	}
	delete(s.tweens, node)
	for i, n := range s.order {
		if n == node {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
}

// apply writes the interpolated values and reports whether the tween is done.
func apply(node *scene.Node, tw *tween, now time.Time) bool {
	t := 1.0
	if tw.duration > 0 {
		t = float64(now.Sub(tw.start)) / float64(tw.duration)
	}
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	for name, to := range tw.to {
		from := tw.from[name]
		node.SetNum(name, from+(to-from)*t)
	}
	return t >= 1
}
