// Package action implements the busy/result/error state shared by every
// network-triggered dashboard action.
//
// A Slot is not safe for concurrent use; it is owned by the UI loop, and
// request goroutines hand their outcome back to that loop for Finish.
package action

// Ticket identifies one Begin call.
type Ticket struct {
	gen uint64
}

// Generation returns the ticket's sequence number.
func (t Ticket) Generation() uint64 { return t.gen }

// Slot tracks one action's busy flag, last result, and user-facing error.
// Only the most recently begun request may commit; outcomes of superseded
// requests are dropped.
type Slot[T any] struct {
	// FailureMessage is stored in Err when a request fails. The underlying
	// error is never shown to the user.
	FailureMessage string

	busy   bool
	result T
	err    string
	gen    uint64
}

// NewSlot creates a slot with the given generic failure message.
func NewSlot[T any](failureMessage string) *Slot[T] {
	return &Slot[T]{FailureMessage: failureMessage}
}

// Begin marks the slot busy and clears the previous result and error.
func (s *Slot[T]) Begin() Ticket {
	var zero T
	s.gen++
	s.busy = true
	s.result = zero
	s.err = ""
	return Ticket{gen: s.gen}
}

// Finish records the outcome of the request identified by t. It returns
// false, leaving the slot untouched, when a newer request has begun since.
func (s *Slot[T]) Finish(t Ticket, result T, err error) bool {
	if t.gen != s.gen {
		return false
	}
	var zero T
	s.busy = false
	if err != nil {
		s.result = zero
		s.err = s.FailureMessage
		return true
	}
	s.result = result
	s.err = ""
	return true
}

// Current reports whether t is still the latest request.
func (s *Slot[T]) Current(t Ticket) bool { return t.gen == s.gen }

// Busy reports whether the latest request is in flight.
func (s *Slot[T]) Busy() bool { return s.busy }

// Result returns the last committed result.
func (s *Slot[T]) Result() T { return s.result }

// Err returns the user-facing failure message, or "".
func (s *Slot[T]) Err() string { return s.err }

// Reset clears result and error without touching the generation, so an
// in-flight request can still commit.
func (s *Slot[T]) Reset() {
	var zero T
	s.result = zero
	s.err = ""
}
