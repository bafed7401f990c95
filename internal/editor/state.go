package editor

import (
	"context"
	"slices"

	"github.com/rendis/flowedit/internal/events"
	"github.com/rendis/flowedit/pkg/schema"
)

// State is the lifecycle state of an editing session.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateSaving  State = "saving"
	StateError   State = "error"
)

// ValidTransitions defines the allowed session state transitions. Error is
// terminal: a session that failed to fetch its workflow is discarded.
var ValidTransitions = map[State][]State{
	StateLoading: {StateReady, StateError},
	StateReady:   {StateSaving},
	StateSaving:  {StateReady},
	StateError:   {},
}

func isValidTransition(from, to State) bool {
	return slices.Contains(ValidTransitions[from], to)
}

// transition moves the session to state to and publishes the change.
func (s *Session) transition(ctx context.Context, to State) error {
	from := s.state
	if !isValidTransition(from, to) {
		return schema.NewErrorf(schema.ErrCodeInvalidTransition,
			"invalid session transition: %s -> %s", from, to).
			WithDetails(map[string]any{"session_id": s.id, "from": string(from), "to": string(to)})
	}
	s.state = to
	s.log(ctx).DebugContext(ctx, "session state changed", "from", from, "to", to)
	s.publish(ctx, events.Event{
		Type:    events.TypeStateChanged,
		Payload: map[string]string{"from": string(from), "to": string(to)},
	})
	return nil
}

// requireReady fails unless the session is ready for edits.
func (s *Session) requireReady(op string) error {
	if s.state == StateReady {
		return nil
	}
	return schema.NewErrorf(schema.ErrCodeInvalidTransition,
		"%s: session is %s, not ready", op, s.state).
		WithDetails(map[string]any{"session_id": s.id, "state": string(s.state)})
}
