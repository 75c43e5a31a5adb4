package models

const (
	RoutingSignalCreated          = "signal.created"
	RoutingSignalStatusChanged    = "signal.status_changed"
	RoutingAssignmentStatus       = "assignment.status_changed"
	RoutingContainerStatesUpdated = "container.states_updated"
	RoutingProgressUpdated        = "assignment.progress_updated"
)

type SignalCreatedEvent struct {
	SignalID       string   `json:"signal_id"`
	Category       string   `json:"category"`
	ContainerState []string `json:"container_state"`
	ReporterID     string   `json:"reporter_id"`
	Timestamp      int64    `json:"timestamp"`
}

type SignalStatusChangedEvent struct {
	SignalID  string `json:"signal_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Timestamp int64  `json:"timestamp"`
}

type AssignmentStatusChangedEvent struct {
	AssignmentID string `json:"assignment_id"`
	From         string `json:"from"`
	To           string `json:"to"`
	Timestamp    int64  `json:"timestamp"`
}

type ContainerStatesUpdatedEvent struct {
	ContainerID string   `json:"container_id"`
	States      []string `json:"states"`
	Timestamp   int64    `json:"timestamp"`
}

type ProgressUpdatedEvent struct {
	AssignmentID        string `json:"assignment_id"`
	TotalContainers     int    `json:"total_containers"`
	CompletedContainers int    `json:"completed_containers"`
	PercentageComplete  int    `json:"percentage_complete"`
	Timestamp           int64  `json:"timestamp"`
}
