package models

import (
	"errors"
	"fmt"
)

var (
	ErrSignalNotFound     = errors.New("signal not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrContainerNotFound  = errors.New("container not found")
)

// UnknownStateError reports a value outside one of the closed enumerations
// (container state, signal status, assignment status, signal category).
type UnknownStateError struct {
	Kind  string
	Value string
}

func (e *UnknownStateError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Kind, e.Value)
}

// InvalidTransitionError names the current and the requested status of a rejected change.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s status transition from %q to %q", e.Entity, e.From, e.To)
}

type EditNotPermittedError struct {
	SignalID string
	Action   string
}

func (e *EditNotPermittedError) Error() string {
	if e.SignalID == "" {
		return fmt.Sprintf("%s is not permitted", e.Action)
	}
	return fmt.Sprintf("%s is not permitted for signal %s", e.Action, e.SignalID)
}

type PhotoNotFoundError struct {
	PhotoID string
}

func (e *PhotoNotFoundError) Error() string {
	return fmt.Sprintf("photo %q not found", e.PhotoID)
}

type InvalidAssignmentError struct {
	Reason string
}

func (e *InvalidAssignmentError) Error() string {
	return "invalid assignment: " + e.Reason
}

// ValidationError covers field checks that are not part of the state vocabulary,
// such as an empty title.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
