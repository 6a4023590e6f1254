package events

import "sync"

// Token identifies one registered observer for later disconnection.
type Token uint64

// Signal is a multicast broadcast channel for one payload type. Observers are
// invoked synchronously, in registration order, every time Emit is called.
//
// Each Signal instance is private to its owner; there is no ambient global
// registry, so independent managers never share observers.
type Signal[T any] struct {
	mu     sync.Mutex
	next   Token
	order  []Token
	slots  map[Token]func(T)
	emitMu sync.Mutex
}

// NewSignal creates an empty signal.
func NewSignal[T any]() *Signal[T] {
	return &Signal[T]{slots: make(map[Token]func(T))}
}

// Connect registers an observer and returns a token for Disconnect.
func (s *Signal[T]) Connect(fn func(T)) Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	tok := s.next
	s.slots[tok] = fn
	s.order = append(s.order, tok)
	return tok
}

// Disconnect removes a previously registered observer. Unknown tokens are
// ignored.
func (s *Signal[T]) Disconnect(tok Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.slots[tok]; !ok {
		return
	}
	delete(s.slots, tok)
	for i, t := range s.order {
		if t == tok {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Emit invokes all currently registered observers with the payload.
// Emissions on one signal are serialized, so observers see payloads in the
// order their triggering mutations committed.
func (s *Signal[T]) Emit(payload T) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	fns := make([]func(T), 0, len(s.order))
	for _, tok := range s.order {
		fns = append(fns, s.slots[tok])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(payload)
	}
}

// Len returns the number of registered observers.
func (s *Signal[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}

// Clear disconnects all observers.
func (s *Signal[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots = make(map[Token]func(T))
	s.order = nil
}
