package models

import (
	"strings"
	"time"
)

type AssignmentStatus string

const (
	AssignmentStatusPending    AssignmentStatus = "pending"
	AssignmentStatusInProgress AssignmentStatus = "in-progress"
	AssignmentStatusCompleted  AssignmentStatus = "completed"
	AssignmentStatusCancelled  AssignmentStatus = "cancelled"
)

var assignmentTransitions = map[AssignmentStatus][]AssignmentStatus{
	AssignmentStatusPending:    {AssignmentStatusInProgress, AssignmentStatusCancelled},
	AssignmentStatusInProgress: {AssignmentStatusCompleted, AssignmentStatusCancelled},
	AssignmentStatusCompleted:  nil,
	AssignmentStatusCancelled:  nil,
}

func ParseAssignmentStatus(value string) (AssignmentStatus, error) {
	status := AssignmentStatus(strings.TrimSpace(value))
	if _, ok := assignmentTransitions[status]; !ok {
		return "", &UnknownStateError{Kind: "assignment status", Value: value}
	}
	return status, nil
}

func (s AssignmentStatus) String() string {
	return string(s)
}

func (s AssignmentStatus) CanTransitionTo(to AssignmentStatus) bool {
	for _, next := range assignmentTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s AssignmentStatus) IsTerminal() bool {
	next, ok := assignmentTransitions[s]
	return ok && len(next) == 0
}

type Assignment struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Containers  []string         `json:"containers"`
	AssignedTo  string           `json:"assigned_to"`
	Activities  StateSet         `json:"activities"`
	Status      AssignmentStatus `json:"status"`
	DueDate     *time.Time       `json:"due_date,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

type AssignmentInput struct {
	Title       string
	Description string
	Containers  []string
	AssignedTo  string
	Activities  StateSet
	Status      AssignmentStatus
	DueDate     *time.Time
}

// NewAssignment validates the dispatcher input. Container ids keep their first
// appearance order and duplicates collapse.
func NewAssignment(id string, in AssignmentInput, now time.Time) (Assignment, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Assignment{}, &InvalidAssignmentError{Reason: "title is required"}
	}
	if in.Activities.IsEmpty() {
		return Assignment{}, &InvalidAssignmentError{Reason: "activities must not be empty"}
	}
	containers, err := normalizeContainers(in.Containers)
	if err != nil {
		return Assignment{}, err
	}
	assignee := strings.TrimSpace(in.AssignedTo)
	if assignee == "" {
		return Assignment{}, &InvalidAssignmentError{Reason: "assigned_to is required"}
	}

	status := in.Status
	if status == "" {
		status = AssignmentStatusPending
	}
	if status != AssignmentStatusPending && status != AssignmentStatusInProgress {
		if _, err := ParseAssignmentStatus(string(status)); err != nil {
			return Assignment{}, err
		}
		return Assignment{}, &InvalidAssignmentError{Reason: "initial status must be pending or in-progress"}
	}

	a := Assignment{
		ID:          id,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Containers:  containers,
		AssignedTo:  assignee,
		Activities:  in.Activities,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.DueDate != nil {
		due := *in.DueDate
		a.DueDate = &due
	}
	return a, nil
}

func normalizeContainers(ids []string) ([]string, error) {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			return nil, &InvalidAssignmentError{Reason: "container id must not be empty"}
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, &InvalidAssignmentError{Reason: "containers must not be empty"}
	}
	return out, nil
}

func (a Assignment) clone() Assignment {
	out := a
	out.Containers = make([]string, len(a.Containers))
	copy(out.Containers, a.Containers)
	if a.DueDate != nil {
		due := *a.DueDate
		out.DueDate = &due
	}
	if a.CompletedAt != nil {
		done := *a.CompletedAt
		out.CompletedAt = &done
	}
	return out
}

// Transition moves the assignment to the requested status. Completion stamps CompletedAt.
func (a Assignment) Transition(to AssignmentStatus, now time.Time) (Assignment, error) {
	if _, err := ParseAssignmentStatus(string(to)); err != nil {
		return a, err
	}
	if !a.Status.CanTransitionTo(to) {
		return a, &InvalidTransitionError{Entity: "assignment", From: string(a.Status), To: string(to)}
	}
	out := a.clone()
	out.Status = to
	out.UpdatedAt = now
	if to == AssignmentStatusCompleted {
		done := now
		out.CompletedAt = &done
	}
	return out, nil
}

func (a Assignment) HasContainer(id string) bool {
	for _, c := range a.Containers {
		if c == id {
			return true
		}
	}
	return false
}
