// Package session is the entry point front ends use to run research tasks.
//
// A session is a session id plus the full orchestrator state after its
// latest run. Every run ends with a snapshot saved to a checkpoint.Store;
// resuming loads that snapshot, replaces the task and re-enters the
// orchestrator at the top, so earlier content acts as memory.
//
// Runs on different sessions proceed in parallel. Runs on the same
// session are serialised so each store holds one writer per session id.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/researchflow/pkg/flowgraph"
	"github.com/randalmurphal/researchflow/pkg/flowgraph/checkpoint"
	"github.com/randalmurphal/researchflow/pkg/flowgraph/observability"
	"github.com/randalmurphal/researchflow/pkg/research/agents"
)

// ErrSessionNotFound is returned when resuming or inspecting an id that
// has no stored snapshot.
var ErrSessionNotFound = errors.New("session not found")

// Runner executes one task against a state. *agents.Assistant and
// *flowgraph.CompiledGraph satisfy it.
type Runner interface {
	Run(ctx flowgraph.Context, state flowgraph.State, opts ...flowgraph.RunOption) (flowgraph.State, error)
	Schema() *flowgraph.Schema
}

// Result is what a caller reads after a run.
type Result struct {
	SessionID   string          `json:"session_id"`
	FinalOutput []string        `json:"final_output"`
	Reflection  string          `json:"reflection"`
	State       flowgraph.State `json:"-"`
}

// Snapshot is the decoded latest state of a session with its history.
type Snapshot struct {
	SessionID string            `json:"session_id"`
	Task      string            `json:"task"`
	Timestamp time.Time         `json:"timestamp"`
	State     flowgraph.State   `json:"state"`
	Versions  []checkpoint.Info `json:"versions"`
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger for runs and checkpoint events.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics records run and checkpoint metrics.
func WithMetrics(metrics observability.MetricsRecorder) Option {
	return func(m *Manager) {
		if metrics != nil {
			m.metrics = metrics
		}
	}
}

// WithTracing emits spans for runs.
func WithTracing(spans observability.SpanManager) Option {
	return func(m *Manager) {
		if spans != nil {
			m.spans = spans
		}
	}
}

// WithRunOptions applies run options, such as a step hook, to every run.
func WithRunOptions(opts ...flowgraph.RunOption) Option {
	return func(m *Manager) {
		m.runOpts = append(m.runOpts, opts...)
	}
}

// Manager runs tasks and persists their sessions.
// It is safe for concurrent use.
type Manager struct {
	runner  Runner
	store   checkpoint.Store
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	runOpts []flowgraph.RunOption
	locks   *keyedMutex
}

// NewManager creates a Manager. The store is borrowed: closing it stays
// with the caller.
//
// Panics if runner or store is nil.
func NewManager(runner Runner, store checkpoint.Store, opts ...Option) *Manager {
	if runner == nil {
		panic("session: runner cannot be nil")
	}
	if store == nil {
		panic("session: store cannot be nil")
	}
	m := &Manager{
		runner:  runner,
		store:   store,
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
		locks:   newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RunNew starts a session with a fresh state and a generated id.
func (m *Manager) RunNew(ctx context.Context, task string) (Result, error) {
	id := uuid.NewString()
	unlock := m.locks.Lock(id)
	defer unlock()

	return m.run(ctx, id, flowgraph.State{agents.FieldTask: task})
}

// RunResumed runs task on the stored state of an existing session.
// The task replaces the stored one and the previous routing label is
// cleared; every other field, content included, carries forward.
//
// Returns ErrSessionNotFound if the id has no snapshot. It never creates
// a session.
func (m *Manager) RunResumed(ctx context.Context, sessionID, task string) (Result, error) {
	unlock := m.locks.Lock(sessionID)
	defer unlock()

	snap, err := m.load(ctx, sessionID)
	if err != nil {
		return Result{}, err
	}
	state, err := m.runner.Schema().Unmarshal(snap.State)
	if err != nil {
		return Result{}, fmt.Errorf("session %s: decode state: %w", sessionID, err)
	}
	state[agents.FieldTask] = task
	state[agents.FieldNextNode] = ""

	return m.run(ctx, sessionID, state)
}

// GetState returns the latest stored state of a session and the metadata
// of every saved version.
func (m *Manager) GetState(ctx context.Context, sessionID string) (*Snapshot, error) {
	snap, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	state, err := m.runner.Schema().Unmarshal(snap.State)
	if err != nil {
		return nil, fmt.Errorf("session %s: decode state: %w", sessionID, err)
	}
	versions, err := m.store.List(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: list versions: %w", sessionID, err)
	}
	return &Snapshot{
		SessionID: snap.SessionID,
		Task:      snap.Task,
		Timestamp: snap.Timestamp,
		State:     state,
		Versions:  versions,
	}, nil
}

func (m *Manager) run(ctx context.Context, sessionID string, input flowgraph.State) (Result, error) {
	logger := m.logger.With(slog.String("session_id", sessionID))
	fctx := flowgraph.NewContext(ctx,
		flowgraph.WithLogger(logger),
		flowgraph.WithMetrics(m.metrics),
		flowgraph.WithTracing(m.spans),
	)

	out, err := m.runner.Run(fctx, input, m.runOpts...)
	if err != nil {
		return Result{}, fmt.Errorf("session %s: %w", sessionID, err)
	}
	if err := m.save(ctx, logger, sessionID, out); err != nil {
		return Result{}, err
	}

	return Result{
		SessionID:   sessionID,
		FinalOutput: out.Strings(agents.FieldFinalOutput),
		Reflection:  out.String(agents.FieldReflection),
		State:       out,
	}, nil
}

func (m *Manager) save(ctx context.Context, logger *slog.Logger, sessionID string, state flowgraph.State) error {
	encoded, err := m.runner.Schema().Marshal(state)
	if err != nil {
		observability.LogCheckpointError(logger, sessionID, "encode", err)
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	data, err := checkpoint.New(sessionID, state.String(agents.FieldTask), encoded).Marshal()
	if err != nil {
		observability.LogCheckpointError(logger, sessionID, "encode", err)
		return fmt.Errorf("session %s: encode snapshot: %w", sessionID, err)
	}
	if err := m.store.Save(ctx, sessionID, data); err != nil {
		observability.LogCheckpointError(logger, sessionID, "save", err)
		return fmt.Errorf("session %s: save snapshot: %w", sessionID, err)
	}

	observability.LogCheckpoint(logger, sessionID, len(data))
	m.metrics.RecordCheckpoint(ctx, int64(len(data)))
	return nil
}

func (m *Manager) load(ctx context.Context, sessionID string) (*checkpoint.Snapshot, error) {
	data, err := m.store.Load(ctx, sessionID)
	if errors.Is(err, checkpoint.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		observability.LogCheckpointError(m.logger, sessionID, "load", err)
		return nil, fmt.Errorf("session %s: load snapshot: %w", sessionID, err)
	}
	snap, err := checkpoint.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	return snap, nil
}
