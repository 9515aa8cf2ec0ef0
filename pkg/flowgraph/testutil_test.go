package flowgraph

import (
	"context"
)

// Test schemas used across tests

// counterSchema has a single accumulating counter.
func counterSchema() *Schema {
	return NewSchema(Field{Name: "count", Default: 0, Reducer: AddInt})
}

// pipelineSchema covers the common field kinds.
func pipelineSchema() *Schema {
	return NewSchema(
		Field{Name: "input", Default: ""},
		Field{Name: "output", Default: ""},
		Field{Name: "progress", Default: []string{}},
		Field{Name: "step", Default: 0},
		Field{Name: "count", Default: 0, Reducer: AddInt},
		Field{Name: "done", Default: false},
	)
}

// Helper node functions

// increment is a node that adds one to count.
func increment(_ Context, _ State) (Command, error) {
	return Update(State{"count": 1}), nil
}

// passthrough returns no update.
func passthrough(_ Context, _ State) (Command, error) {
	return Command{}, nil
}

// makeTrackingNode creates a node that records its execution.
func makeTrackingNode(name string, tracker *[]string) NodeFunc {
	return func(_ Context, s State) (Command, error) {
		*tracker = append(*tracker, name)
		progress := append(s.Strings("progress"), name)
		return Update(State{"progress": progress}), nil
	}
}

// makeFailingNode creates a node that returns the given error.
func makeFailingNode(err error) NodeFunc {
	return func(_ Context, _ State) (Command, error) {
		return Command{}, err
	}
}

// makePanicNode creates a node that panics with the given value.
func makePanicNode(value any) NodeFunc {
	return func(_ Context, _ State) (Command, error) {
		panic(value)
	}
}

// always returns a decision function that always picks label.
func always(label string) DecisionFunc {
	return func(_ Context, _ State) string {
		return label
	}
}

// testCtx creates a simple test context.
func testCtx() Context {
	return NewContext(context.Background())
}
