package gallery

import (
	"context"
	"encoding/json"
	"sync"
)

// Status is the phase of a channel's current state.
type Status int

const (
	StatusInitial Status = iota
	StatusPending
	StatusAccepted
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusInitial:
		return "initial"
	case StatusPending:
		return "pending"
	case StatusAccepted:
		return "accepted"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText renders the status name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// State is one value of a channel. Value is set when Status is
// StatusAccepted and Err when it is StatusError. Seq is the request that
// produced the state; the initial state has Seq 0.
type State[T any] struct {
	Status Status
	Value  T
	Err    error
	Seq    uint64
}

// Terminal reports whether the state ends a request.
func (s State[T]) Terminal() bool {
	return s.Status == StatusAccepted || s.Status == StatusError
}

type stateError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type stateJSON[T any] struct {
	Status Status      `json:"status"`
	Seq    uint64      `json:"seq"`
	Value  *T          `json:"value,omitempty"`
	Error  *stateError `json:"error,omitempty"`
}

// MarshalJSON encodes the state as {"status", "seq", "value"|"error"}.
func (s State[T]) MarshalJSON() ([]byte, error) {
	out := stateJSON[T]{Status: s.Status, Seq: s.Seq}
	switch s.Status {
	case StatusAccepted:
		out.Value = &s.Value
	case StatusError:
		kind := "unknown"
		if k, ok := KindOf(s.Err); ok {
			kind = k.String()
		}
		msg := ""
		if s.Err != nil {
			msg = s.Err.Error()
		}
		out.Error = &stateError{Kind: kind, Message: msg}
	}
	return json.Marshal(out)
}

type subscriber[T any] struct {
	ch   chan State[T]
	stop func() bool
}

// Broadcast holds the current state of one channel and fans it out to
// subscribers. Every subscriber has a buffer of one: it always sees the
// newest state and never blocks a publisher.
type Broadcast[T any] struct {
	mu      sync.Mutex
	current State[T]
	latest  uint64
	subs    map[*subscriber[T]]struct{}
	closed  bool
}

// NewBroadcast returns a holder in the initial state.
func NewBroadcast[T any]() *Broadcast[T] {
	return &Broadcast[T]{subs: make(map[*subscriber[T]]struct{})}
}

// Current returns the state last published.
func (b *Broadcast[T]) Current() State[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Subscribe returns a channel primed with the current state. The channel is
// closed when ctx is done or the holder is closed.
func (b *Broadcast[T]) Subscribe(ctx context.Context) <-chan State[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscriber[T]{ch: make(chan State[T], 1)}
	if b.closed {
		sub.ch <- b.current
		close(sub.ch)
		return sub.ch
	}

	sub.ch <- b.current
	b.subs[sub] = struct{}{}
	sub.stop = context.AfterFunc(ctx, func() { b.unsubscribe(sub) })
	return sub.ch
}

// Subscribers returns the number of active subscriptions.
func (b *Broadcast[T]) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Broadcast[T]) unsubscribe(sub *subscriber[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.ch)
	}
}

// begin starts a new request: it publishes Pending under a fresh sequence
// number and returns that number.
func (b *Broadcast[T]) begin() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latest++
	b.publishLocked(State[T]{Status: StatusPending, Seq: b.latest})
	return b.latest
}

// finish publishes the outcome of request seq. It returns false and
// publishes nothing when a newer request has started since.
func (b *Broadcast[T]) finish(seq uint64, value T, err error) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if seq != b.latest {
		return false
	}
	state := State[T]{Status: StatusAccepted, Value: value, Seq: seq}
	if err != nil {
		state = State[T]{Status: StatusError, Err: err, Seq: seq}
	}
	b.publishLocked(state)
	return true
}

func (b *Broadcast[T]) publishLocked(state State[T]) {
	b.current = state
	for sub := range b.subs {
		// Replace a value the subscriber has not read yet.
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- state
	}
}

// close ends every subscription. Later states still become current and are
// replayed to subscribers, whose channels are closed right after.
func (b *Broadcast[T]) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		sub.stop()
		close(sub.ch)
		delete(b.subs, sub)
	}
}
