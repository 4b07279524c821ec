package stream

import "sync"

// Subject is a synchronous observable. Values passed to Next are delivered to
// every subscriber in subscription order before Next returns. Deliveries are
// serialised, so subscribers never observe two emissions concurrently.
//
// A subscriber must not call Next or Subscribe on the same subject from
// inside its callback.
type Subject[T any] struct {
	emitMu sync.Mutex

	mu     sync.Mutex
	value  T
	has    bool
	replay bool
	nextID uint64
	subs   []subscriber[T]
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// NewSubject returns a subject that only delivers values emitted after
// subscription.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

// NewBehaviorSubject returns a subject that replays its current value to
// every new subscriber, starting with initial.
func NewBehaviorSubject[T any](initial T) *Subject[T] {
	return &Subject[T]{value: initial, has: true, replay: true}
}

// Subscribe registers fn and returns a function that removes it again.
func (s *Subject[T]) Subscribe(fn func(T)) (cancel func()) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber[T]{id: id, fn: fn})
	value, replay := s.value, s.replay && s.has
	s.mu.Unlock()

	if replay {
		fn(value)
	}

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

// Next records v as the current value and delivers it.
func (s *Subject[T]) Next(v T) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	s.value = v
	s.has = true
	subs := make([]subscriber[T], len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(v)
	}
}

// Value returns the latest emitted value.
func (s *Subject[T]) Value() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.has
}

// Len reports the number of active subscribers.
func (s *Subject[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Subject[T]) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return
		}
	}
}
