package flowgraph

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/randalmurphal/researchflow/pkg/flowgraph/observability"
)

// Run executes the graph with the given input and returns the terminal state.
//
// The input seeds the state: declared fields missing from it take their
// schema defaults. Each step then:
//  1. Checks the caller's context for cancellation
//  2. Executes the current node
//  3. Merges its update into the state through the schema's reducers
//  4. Picks the successor: the node's Goto if set, else the conditional
//     edge's decision on the updated state, else the unconditional edge
//
// until END is reached. On error the partial state is discarded and Run
// returns nil with one of *NodeExecutionError, *RoutingFault,
// *MaxIterationsError or *CancellationError. A panicking node surfaces as a
// *NodeExecutionError with Op "panic" wrapping a *PanicError; a panicking
// decision function returns the bare *PanicError.
//
// Example:
//
//	ctx := flowgraph.NewContext(context.Background())
//	result, err := compiled.Run(ctx, flowgraph.State{"task": "hello"})
func (cg *CompiledGraph) Run(ctx Context, input State, opts ...RunOption) (result State, runErr error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	parent := asExecutionContext(ctx)
	spanCtx, runSpan := parent.spans.StartRunSpan(parent, cg.name, parent.runID)
	ec := parent.forGraph(spanCtx, cg.name)
	defer func() {
		ec.spans.EndSpanWithError(runSpan, runErr)
	}()

	state, err := cg.schema.New(input)
	if err != nil {
		return nil, fmt.Errorf("graph %s: initial state: %w", cg.name, err)
	}

	startTime := time.Now()
	observability.LogRunStart(ec.base, cg.name, ec.runID)

	state, nodeCount, lastNode, runErr := cg.loop(ec, state, &cfg)

	duration := time.Since(startTime)
	ec.metrics.RecordGraphRun(ec, cg.name, runErr == nil, duration)

	if runErr != nil {
		observability.LogRunError(ec.base, cg.name, ec.runID, runErr, float64(duration.Milliseconds()), lastNode)
		return nil, runErr
	}
	observability.LogRunComplete(ec.base, cg.name, ec.runID, float64(duration.Milliseconds()), nodeCount)
	return state, nil
}

// loop drives the step sequence. Returns the terminal state, the number of
// nodes executed and the last node visited.
func (cg *CompiledGraph) loop(ec *executionContext, state State, cfg *runConfig) (State, int, string, error) {
	current := cg.entryPoint
	nodeCount := 0

	for current != END {
		if nodeCount >= cfg.maxIterations {
			return nil, nodeCount, current, &MaxIterationsError{
				Max:        cfg.maxIterations,
				LastNodeID: current,
			}
		}

		// Check for cancellation before executing node
		if err := ec.Err(); err != nil {
			return nil, nodeCount, current, &CancellationError{
				NodeID: current,
				Cause:  err,
			}
		}

		next, label, merged, err := cg.step(ec, current, state)
		if err != nil {
			return nil, nodeCount, current, err
		}
		nodeCount++

		if cfg.stepHook != nil {
			cfg.stepHook(Step{
				Graph:     cg.name,
				Iteration: nodeCount,
				NodeID:    current,
				Label:     label,
				Next:      next,
				State:     merged,
			})
		}

		state = merged
		current = next
	}

	return state, nodeCount, current, nil
}

// step executes one node, merges its update and resolves the successor.
func (cg *CompiledGraph) step(ec *executionContext, nodeID string, state State) (next, label string, merged State, err error) {
	node := cg.nodes[nodeID]

	observability.LogNodeStart(ec.logger, nodeID)
	spanCtx, nodeSpan := ec.spans.StartNodeSpan(ec, cg.name, nodeID)
	nodeCtx := ec.withNodeID(spanCtx, nodeID)
	defer func() {
		ec.spans.EndSpanWithError(nodeSpan, err)
	}()

	nodeStart := time.Now()
	cmd, err := cg.executeNode(nodeCtx, nodeID, node.fn, state)
	nodeDuration := time.Since(nodeStart)
	ec.metrics.RecordNodeExecution(nodeCtx, cg.name, nodeID, nodeDuration, err)

	if err != nil {
		observability.LogNodeError(ec.logger, nodeID, err)
		return "", "", nil, err
	}
	observability.LogNodeComplete(ec.logger, nodeID, float64(nodeDuration.Milliseconds()))

	merged, err = cg.schema.Apply(state, cmd.Update)
	if err != nil {
		err = &NodeExecutionError{Graph: cg.name, NodeID: nodeID, Op: "merge", Err: err}
		observability.LogNodeError(ec.logger, nodeID, err)
		return "", "", nil, err
	}

	next, label, err = cg.resolveNext(nodeCtx, nodeID, node, cmd, merged)
	if err != nil {
		return "", "", nil, err
	}

	ec.metrics.RecordRoutingDecision(nodeCtx, cg.name, nodeID, label, next)
	observability.LogRouting(ec.logger, nodeID, label, next)
	return next, label, merged, nil
}

// executeNode executes a single node with panic recovery.
func (cg *CompiledGraph) executeNode(ctx Context, nodeID string, fn NodeFunc, state State) (cmd Command, err error) {
	defer func() {
		if r := recover(); r != nil {
			cmd = Command{}
			err = &NodeExecutionError{
				Graph:  cg.name,
				NodeID: nodeID,
				Op:     "panic",
				Err: &PanicError{
					NodeID: nodeID,
					Value:  r,
					Stack:  string(debug.Stack()),
				},
			}
		}
	}()

	cmd, err = fn(ctx, state.Clone())
	if err != nil {
		return Command{}, &NodeExecutionError{
			Graph:  cg.name,
			NodeID: nodeID,
			Op:     "execute",
			Err:    err,
		}
	}
	return cmd, nil
}

// resolveNext determines the next node to execute.
// An explicit goto wins, then the conditional edge, then the unconditional edge.
func (cg *CompiledGraph) resolveNext(ctx Context, nodeID string, node compiledNode, cmd Command, state State) (next, label string, err error) {
	if cmd.Goto != "" {
		if !node.destinations[cmd.Goto] {
			return "", "", &RoutingFault{Graph: cg.name, FromNode: nodeID, Target: cmd.Goto, Err: ErrInvalidGoto}
		}
		return cmd.Goto, "", nil
	}

	if cond, ok := cg.conditionalEdges[nodeID]; ok {
		label, err := cg.decide(ctx, nodeID, cond.decide, state)
		if err != nil {
			return "", "", err
		}
		target, ok := cond.routes[label]
		if !ok {
			return "", label, &RoutingFault{Graph: cg.name, FromNode: nodeID, Target: label, Err: ErrUnknownLabel}
		}
		return target, label, nil
	}

	// Compile guarantees every node without a conditional edge or goto
	// destinations has exactly one unconditional edge.
	if next, ok := cg.edges[nodeID]; ok {
		return next, "", nil
	}
	return "", "", &RoutingFault{Graph: cg.name, FromNode: nodeID, Err: ErrInvalidGoto}
}

// decide calls a decision function with panic recovery.
func (cg *CompiledGraph) decide(ctx Context, nodeID string, fn DecisionFunc, state State) (label string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{
				NodeID: nodeID,
				Value:  r,
				Stack:  string(debug.Stack()),
			}
		}
	}()
	return fn(ctx, state.Clone()), nil
}
