package oracle

import (
	"context"
	"sync"
)

// Call records one request made to a Mock.
type Call struct {
	System     string
	User       string
	Structured bool
}

// Mock is a scripted Oracle for tests. Replies are keyed by system prompt
// and consumed in order; the last reply for a prompt repeats. Structured
// calls decode the reply text, so a script can exercise malformed output.
type Mock struct {
	mu       sync.Mutex
	replies  map[string][]string
	next     map[string]int
	errs     map[string]error
	fallback string
	calls    []Call
}

// NewMock returns a Mock that answers unscripted prompts with fallback.
func NewMock(fallback string) *Mock {
	return &Mock{
		replies:  make(map[string][]string),
		next:     make(map[string]int),
		errs:     make(map[string]error),
		fallback: fallback,
	}
}

// On scripts the replies for a system prompt.
func (m *Mock) On(system string, replies ...string) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies[system] = append([]string(nil), replies...)
	m.next[system] = 0
	return m
}

// Fail makes every call with the system prompt return err.
func (m *Mock) Fail(system string, err error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[system] = err
	return m
}

// Calls returns a copy of the recorded calls in order.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallCount returns how many calls used the system prompt.
func (m *Mock) CallCount(system string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.System == system {
			n++
		}
	}
	return n
}

// Complete implements Oracle.
func (m *Mock) Complete(ctx context.Context, system, user string) (string, error) {
	return m.answer(ctx, Call{System: system, User: user})
}

// CompleteStructured implements Oracle.
func (m *Mock) CompleteStructured(ctx context.Context, system, user string, out Structured) error {
	text, err := m.answer(ctx, Call{System: system, User: user, Structured: true})
	if err != nil {
		return err
	}
	return DecodeStructured(text, out)
}

func (m *Mock) answer(ctx context.Context, call Call) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)

	if err, ok := m.errs[call.System]; ok {
		return "", err
	}
	replies := m.replies[call.System]
	if len(replies) == 0 {
		return m.fallback, nil
	}
	i := m.next[call.System]
	if i < len(replies)-1 {
		m.next[call.System] = i + 1
	}
	return replies[i], nil
}
