package reservation

import (
	"context"
	"sync"

	"ms-reservation/internal/models"
)

type State int

const (
	StateIdle State = iota
	StateValidating
	StateSubmitting
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Flow is the life of one submission form:
// Idle -> Validating -> Submitting -> Success | Failed.
// Failed behaves like Idle, so a corrected retry is allowed. Success is final.
type Flow struct {
	mu        sync.Mutex
	state     State
	closed    bool
	lastErr   error
	onSuccess func([]models.Ticket)
}

func NewFlow(onSuccess func([]models.Ticket)) *Flow {
	return &Flow{onSuccess: onSuccess}
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) LastError() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Close marks the form as gone. A submission already on the wire completes,
// but onSuccess is no longer called and further runs are refused.
func (f *Flow) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *Flow) enter(next State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case f.state == StateValidating || f.state == StateSubmitting:
		return ErrSubmissionInFlight
	case f.state == StateSuccess:
		return ErrFlowCompleted
	case f.closed:
		return ErrFlowClosed
	}
	f.state = next
	return nil
}

func (f *Flow) set(state State, err error) {
	f.mu.Lock()
	f.state = state
	f.lastErr = err
	f.mu.Unlock()
}

// Run validates through prepare and sends the resulting submission. The send
// is detached from ctx cancellation.
func (f *Flow) Run(ctx context.Context, prepare func(context.Context) (Submission, error)) ([]models.Ticket, error) {
	if err := f.enter(StateValidating); err != nil {
		return nil, err
	}

	send, err := prepare(ctx)
	if err != nil {
		f.set(StateFailed, err)
		return nil, err
	}

	f.set(StateSubmitting, nil)
	tickets, err := send(context.WithoutCancel(ctx))
	if err != nil {
		f.set(StateFailed, err)
		return nil, err
	}

	f.mu.Lock()
	f.state = StateSuccess
	f.lastErr = nil
	notify := f.onSuccess
	if f.closed {
		notify = nil
	}
	f.mu.Unlock()

	if notify != nil {
		notify(tickets)
	}
	return tickets, nil
}

// Guard tracks one Flow per form key so a double click on the same form is
// refused while the first submission is outstanding.
type Guard struct {
	mu    sync.Mutex
	flows map[string]*Flow
}

func NewGuard() *Guard {
	return &Guard{flows: make(map[string]*Flow)}
}

// Run executes prepare through a fresh Flow for key, refusing with
// ErrSubmissionInFlight while another run for the same key is active.
func (g *Guard) Run(ctx context.Context, key string, prepare func(context.Context) (Submission, error), onSuccess func([]models.Ticket)) ([]models.Ticket, error) {
	g.mu.Lock()
	if _, busy := g.flows[key]; busy {
		g.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	flow := NewFlow(onSuccess)
	g.flows[key] = flow
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.flows, key)
		g.mu.Unlock()
	}()
	return flow.Run(ctx, prepare)
}

func (g *Guard) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.flows)
}
