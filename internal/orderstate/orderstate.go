// Package orderstate holds the order lifecycle transition table.
package orderstate

import (
	"errors"
	"fmt"

	"github.com/typica-pos/api/internal/enum"
)

// Action is a workflow operation that moves an order between states.
type Action string

const (
	ActionCreate  Action = "create"
	ActionEdit    Action = "edit"
	ActionCancel  Action = "cancel"
	ActionRedo    Action = "redo"
	ActionRestore Action = "restore"
	ActionReject  Action = "reject"
	ActionPay     Action = "pay"
	ActionUnpay   Action = "unpay"
	ActionKitchen Action = "kitchen"
	ActionSet     Action = "set"
)

// None is the pseudo-state of an order that does not exist yet.
const None int16 = 0

// ErrInvalidTransition is matched by every *TransitionError.
var ErrInvalidTransition = errors.New("invalid order state transition")

// TransitionError reports an action that is not allowed from a state.
type TransitionError struct {
	Action Action
	From   int16
	To     int16
}

func (e *TransitionError) Error() string {
	if e.To != None {
		return fmt.Sprintf("%s: %q → %q not allowed", e.Action, enum.EstadoNombre(e.From), enum.EstadoNombre(e.To))
	}
	return fmt.Sprintf("%s not allowed from %q", e.Action, enum.EstadoNombre(e.From))
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// Transition is one allowed edge of the lifecycle.
type Transition struct {
	From   int16
	Action Action
	To     int16
}

var (
	// Active states can still be worked on by the kitchen and edited.
	activeStates  = []int16{enum.EstadoPendiente, enum.EstadoModificado, enum.EstadoEnPreparacion, enum.EstadoListoParaServir}
	kitchenValues = []int16{enum.EstadoEnPreparacion, enum.EstadoListoParaServir, enum.EstadoEntregado}
)

// transitions is the authoritative lifecycle definition. ActionSet is not
// listed: an administrator may force any state.
var transitions = func() []Transition {
	t := []Transition{
		{From: None, Action: ActionCreate, To: enum.EstadoPendiente},
		{From: enum.EstadoCancelado, Action: ActionRedo, To: enum.EstadoPendiente},
		{From: enum.EstadoRechazado, Action: ActionRestore, To: enum.EstadoPendiente},
		{From: enum.EstadoPagado, Action: ActionUnpay, To: enum.EstadoModificado},
	}
	for _, from := range activeStates {
		t = append(t, Transition{From: from, Action: ActionEdit, To: enum.EstadoModificado})
		for _, to := range kitchenValues {
			if to != from {
				t = append(t, Transition{From: from, Action: ActionKitchen, To: to})
			}
		}
	}
	for _, from := range enum.Estados {
		if from != enum.EstadoCancelado && from != enum.EstadoPagado {
			t = append(t, Transition{From: from, Action: ActionCancel, To: enum.EstadoCancelado})
		}
		if from != enum.EstadoRechazado {
			t = append(t, Transition{From: from, Action: ActionReject, To: enum.EstadoRechazado})
		}
		if from != enum.EstadoPagado {
			t = append(t, Transition{From: from, Action: ActionPay, To: enum.EstadoPagado})
		}
	}
	return t
}()

type transitionKey struct {
	From   int16
	Action Action
}

// next maps (from, action) to the target for single-target actions.
var next = func() map[transitionKey]int16 {
	m := make(map[transitionKey]int16)
	for _, t := range transitions {
		if t.Action == ActionKitchen {
			continue
		}
		m[transitionKey{t.From, t.Action}] = t.To
	}
	return m
}()

var kitchen = func() map[[2]int16]bool {
	m := make(map[[2]int16]bool)
	for _, t := range transitions {
		if t.Action == ActionKitchen {
			m[[2]int16{t.From, t.To}] = true
		}
	}
	return m
}()

// Next returns the state an order in from reaches by applying action.
// ActionKitchen and ActionSet take an explicit target; use CanKitchenMove
// or ValidState for those.
func Next(action Action, from int16) (int16, error) {
	to, ok := next[transitionKey{from, action}]
	if !ok {
		return None, &TransitionError{Action: action, From: from}
	}
	return to, nil
}

// CanKitchenMove reports whether the kitchen may move an order from one state to another.
func CanKitchenMove(from, to int16) error {
	if kitchen[[2]int16{from, to}] {
		return nil
	}
	return &TransitionError{Action: ActionKitchen, From: from, To: to}
}

// IsEditable reports whether an order in state s accepts line edits.
func IsEditable(s int16) bool {
	_, ok := next[transitionKey{s, ActionEdit}]
	return ok
}

// IsKitchenTarget reports whether the kitchen may set state s.
func IsKitchenTarget(s int16) bool {
	for _, v := range kitchenValues {
		if v == s {
			return true
		}
	}
	return false
}

// ValidState reports whether s is a known order state.
func ValidState(s int16) bool {
	return enum.EstadoNombre(s) != ""
}

// ValidActionsFrom returns the actions allowed from a state, in table order.
func ValidActionsFrom(from int16) []Action {
	var actions []Action
	seen := map[Action]bool{}
	for _, t := range transitions {
		if t.From == from && !seen[t.Action] {
			actions = append(actions, t.Action)
			seen[t.Action] = true
		}
	}
	if from != None {
		actions = append(actions, ActionSet)
	}
	return actions
}
