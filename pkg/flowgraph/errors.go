package flowgraph

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for graph building and compilation.
var (
	// ErrNoEntryPoint indicates SetEntry() was not called before Compile().
	ErrNoEntryPoint = errors.New("entry point not set")

	// ErrEntryNotFound indicates the entry point references a non-existent node.
	ErrEntryNotFound = errors.New("entry point node not found")

	// ErrDuplicateNode indicates a node id (or a conditional edge source) was registered twice.
	ErrDuplicateNode = errors.New("duplicate node")

	// ErrNodeNotFound indicates an edge, route or destination references a non-existent node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrConflictingEdges indicates a node has more than one way to pick its
	// successor: a conditional and an unconditional edge, or two unconditional edges.
	ErrConflictingEdges = errors.New("conflicting outgoing edges")

	// ErrNoOutgoingEdge indicates a node has no edge and no declared goto destination.
	ErrNoOutgoingEdge = errors.New("no outgoing edge")

	// ErrOrphanNode indicates a node cannot be reached from the entry point.
	ErrOrphanNode = errors.New("node unreachable from entry")

	// ErrNoPathToEnd indicates a reachable node has no path to END.
	ErrNoPathToEnd = errors.New("no path to END")

	// ErrEmptyRoutes indicates a conditional edge was added with an empty route table.
	ErrEmptyRoutes = errors.New("conditional edge has no routes")
)

// Sentinel errors for state handling.
var (
	// ErrUndeclaredField indicates a state key outside the graph's schema.
	ErrUndeclaredField = errors.New("undeclared state field")

	// ErrFieldType indicates a value whose type differs from the field's declared type.
	ErrFieldType = errors.New("state field type mismatch")

	// ErrSerializeState indicates state serialization failed.
	ErrSerializeState = errors.New("failed to serialize state")

	// ErrDeserializeState indicates state deserialization failed.
	ErrDeserializeState = errors.New("failed to deserialize state")
)

// Sentinel errors for execution.
var (
	// ErrMaxIterations indicates the execution loop exceeded the configured limit.
	ErrMaxIterations = errors.New("exceeded maximum iterations")

	// ErrNilContext indicates Run() was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrUnknownLabel indicates a decision function returned a label missing from its route table.
	ErrUnknownLabel = errors.New("decision label not in route table")

	// ErrInvalidGoto indicates a node jumped to an unknown or undeclared target.
	ErrInvalidGoto = errors.New("invalid goto target")
)

// GraphDefinitionError reports every problem Compile found in a graph.
// errors.Is matches any of the wrapped sentinels.
type GraphDefinitionError struct {
	// Graph is the name of the graph being compiled.
	Graph string
	// Problems holds one error per defect, each wrapping a sentinel.
	Problems []error
}

// Error implements the error interface.
func (e *GraphDefinitionError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return fmt.Sprintf("graph %s: invalid definition: %s", e.Graph, strings.Join(msgs, "; "))
}

// Unwrap returns the individual problems for errors.Is/As support.
func (e *GraphDefinitionError) Unwrap() []error {
	return e.Problems
}

// NodeExecutionError wraps an error with node context.
// It is returned when a node fails, panics or its update cannot be merged.
type NodeExecutionError struct {
	// Graph is the name of the graph the node belongs to.
	Graph string
	// NodeID is the identifier of the node that failed.
	NodeID string
	// Op is the operation that failed ("execute", "merge" or "panic").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("graph %s: node %s: %s: %v", e.Graph, e.NodeID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *NodeExecutionError) Unwrap() error {
	return e.Err
}

// PanicError captures panic information from node execution.
// It includes the stack trace for debugging.
type PanicError struct {
	// NodeID is the identifier of the node that panicked.
	NodeID string
	// Value is the value passed to panic().
	Value any
	// Stack is the full stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("node %s panicked: %v", e.NodeID, e.Value)
}

// RoutingFault reports a transition the graph cannot take: a decision label
// missing from the route table, or a goto to a target the node did not declare.
type RoutingFault struct {
	// Graph is the name of the graph being run.
	Graph string
	// FromNode is the node whose successor could not be resolved.
	FromNode string
	// Target is the offending label or goto target.
	Target string
	// Err is ErrUnknownLabel or ErrInvalidGoto.
	Err error
}

// Error implements the error interface.
func (e *RoutingFault) Error() string {
	return fmt.Sprintf("graph %s: routing from %s to %q: %v", e.Graph, e.FromNode, e.Target, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *RoutingFault) Unwrap() error {
	return e.Err
}

// CancellationError reports that the caller's context ended between steps.
type CancellationError struct {
	// NodeID is the node that was about to execute.
	NodeID string
	// Cause is the underlying cancellation cause (context.Canceled or context.DeadlineExceeded).
	Cause error
}

// Error implements the error interface.
func (e *CancellationError) Error() string {
	return fmt.Sprintf("cancelled before node %s: %v", e.NodeID, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CancellationError) Unwrap() error {
	return e.Cause
}

// MaxIterationsError provides context when the loop limit is exceeded.
type MaxIterationsError struct {
	// Max is the configured iteration limit.
	Max int
	// LastNodeID is the node that would have executed next.
	LastNodeID string
}

// Error implements the error interface.
func (e *MaxIterationsError) Error() string {
	return fmt.Sprintf("exceeded maximum iterations (%d) at node %s", e.Max, e.LastNodeID)
}

// Unwrap returns ErrMaxIterations for errors.Is support.
func (e *MaxIterationsError) Unwrap() error {
	return ErrMaxIterations
}
