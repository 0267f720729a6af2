// Package view tracks which editor screen is showing as a non-empty stack.
//
// The head of the stack is the current screen. Pop never removes the last
// screen, so CurrentScreen is always defined.
package view

import (
	"github.com/roach88/exprstate/internal/opt"
)

// ScreenKind names a screen.
type ScreenKind string

const (
	Scratch       ScreenKind = "scratch"
	Edit          ScreenKind = "edit"
	NewExpression ScreenKind = "new-expression"
	NewTest       ScreenKind = "new-test"
	TypeSearch    ScreenKind = "typeSearch"
	NewType       ScreenKind = "new-type"
)

// Screen is one entry of the view stack. BindingName is set only for Edit.
type Screen struct {
	Kind        ScreenKind `json:"type"`
	BindingName string     `json:"bindingName,omitempty"`
	Code        string     `json:"code,omitempty"`
}

// State is the view stack, head first.
type State struct {
	stack []Screen
}

// NewState returns a stack holding only initial.
func NewState(initial Screen) State {
	return State{stack: []Screen{initial}}
}

// Restore rebuilds a State from a stack previously returned by Stack.
// An empty stack yields a lone scratch screen.
func Restore(stack []Screen) State {
	if len(stack) == 0 {
		return NewState(Screen{Kind: Scratch})
	}
	return State{stack: append([]Screen(nil), stack...)}
}

// ParseScreenKind returns the kind named s.
func ParseScreenKind(s string) (ScreenKind, bool) {
	switch k := ScreenKind(s); k {
	case Scratch, Edit, NewExpression, NewTest, TypeSearch, NewType:
		return k, true
	}
	return "", false
}

// Stack returns a copy of the stack, head first.
func (s State) Stack() []Screen {
	return append([]Screen(nil), s.stack...)
}

// Action type names.
const (
	ActionSetScreen     = "SetScreen"
	ActionPushScreen    = "PushScreen"
	ActionReplaceScreen = "ReplaceScreen"
	ActionPopScreen     = "PopScreen"
)

// SetScreen discards the stack and shows Screen alone.
type SetScreen struct{ Screen Screen }

// PushScreen shows Screen on top of the current one.
type PushScreen struct{ Screen Screen }

// ReplaceScreen swaps the current screen for Screen.
type ReplaceScreen struct{ Screen Screen }

// PopScreen returns to the previous screen, if there is one.
type PopScreen struct{}

func (SetScreen) ActionType() string     { return ActionSetScreen }
func (PushScreen) ActionType() string    { return ActionPushScreen }
func (ReplaceScreen) ActionType() string { return ActionReplaceScreen }
func (PopScreen) ActionType() string     { return ActionPopScreen }

// Reduce applies a view action. Other actions leave the state unchanged.
// View transitions emit no events.
func Reduce(s State, action any) State {
	switch a := action.(type) {
	case SetScreen:
		return NewState(a.Screen)
	case PushScreen:
		next := make([]Screen, 0, len(s.stack)+1)
		next = append(next, a.Screen)
		return State{stack: append(next, s.stack...)}
	case ReplaceScreen:
		if len(s.stack) == 0 {
			return NewState(a.Screen)
		}
		next := append([]Screen(nil), s.stack...)
		next[0] = a.Screen
		return State{stack: next}
	case PopScreen:
		if len(s.stack) <= 1 {
			return s
		}
		return State{stack: append([]Screen(nil), s.stack[1:]...)}
	default:
		return s
	}
}

// CurrentScreen returns the head of the stack. A zero State reports a
// scratch screen.
func CurrentScreen(s State) Screen {
	if len(s.stack) == 0 {
		return Screen{Kind: Scratch}
	}
	return s.stack[0]
}

// LastScreen returns the screen below the current one, if any.
func LastScreen(s State) opt.Option[Screen] {
	if len(s.stack) < 2 {
		return opt.None[Screen]()
	}
	return opt.Some(s.stack[1])
}
