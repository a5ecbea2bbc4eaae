// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"sync/atomic"
)

var (
	// ErrInvalidTransition is returned for a state change the engine does
	// not allow.
	ErrInvalidTransition = errors.New("audio: invalid state transition")

	// ErrBusy is returned by Play and Record while a session is running.
	ErrBusy = errors.New("audio: engine busy")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("audio: engine closed")
)

// State is the engine's session state.
type State int32

const (
	Idle State = iota
	Playing
	Recording
	Stopped // Stopped by the user, resources not yet released.
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Recording:
		return "recording"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Active reports whether a stream is running.
func (s State) Active() bool {
	return s == Playing || s == Recording
}

// CanTransition reports whether s -> to is allowed.
func (s State) CanTransition(to State) bool {
	switch s {
	case Idle:
		return to == Playing || to == Recording
	case Playing:
		return to == Stopped || to == Idle
	case Recording:
		return to == Stopped
	case Stopped:
		return to == Idle
	default:
		return false
	}
}

type stateMachine struct {
	v atomic.Int32
}

func (m *stateMachine) Load() State {
	return State(m.v.Load())
}

// transition moves from -> to if the machine is still in from.
func (m *stateMachine) transition(from, to State) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if !m.v.CompareAndSwap(int32(from), int32(to)) {
		return fmt.Errorf("%w: %s -> %s while %s", ErrInvalidTransition, from, to, m.Load())
	}
	return nil
}
