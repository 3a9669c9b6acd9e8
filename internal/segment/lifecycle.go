package segment

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Lifecycle states.
const (
	StateConstructed = "constructed"
	StateExecuted    = "executed"
	StateSkipped     = "skipped"
)

const (
	eventRun   = "run"
	eventSkip  = "skip"
	eventReset = "reset"
)

type lifecycleContext struct {
	SegmentID int
}

// lifecycle tracks where a segment is between construction and its latest
// execution.
type lifecycle struct {
	interpreter *statekit.Interpreter[lifecycleContext]
}

func newLifecycle(initial string, segmentID int) (*lifecycle, error) {
	switch initial {
	case StateConstructed, StateExecuted, StateSkipped:
	default:
		return nil, fmt.Errorf("unknown segment state %q", initial)
	}

	builder := statekit.NewMachine[lifecycleContext]("segment").
		WithInitial(statekit.StateID(initial)).
		WithContext(lifecycleContext{SegmentID: segmentID})

	builder.State(StateConstructed).
		On(eventRun).Target(StateExecuted).
		On(eventSkip).Target(StateSkipped).
		Done()

	builder.State(StateExecuted).
		On(eventRun).Target(StateExecuted).
		On(eventSkip).Target(StateSkipped).
		On(eventReset).Target(StateConstructed).
		Done()

	builder.State(StateSkipped).
		On(eventRun).Target(StateExecuted).
		On(eventSkip).Target(StateSkipped).
		On(eventReset).Target(StateConstructed).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build segment lifecycle: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()
	return &lifecycle{interpreter: interpreter}, nil
}

func (l *lifecycle) fire(event string) {
	l.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
}

func (l *lifecycle) current() string {
	return string(l.interpreter.State().Value)
}
