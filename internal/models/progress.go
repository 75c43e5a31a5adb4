package models

// ContainerProgress is the derived completion of one container within an assignment.
type ContainerProgress struct {
	ContainerID         string   `json:"container_id"`
	PublicNumber        string   `json:"public_number,omitempty"`
	IsComplete          bool     `json:"is_complete"`
	CompletedActivities StateSet `json:"completed_activities"`
	PendingActivities   StateSet `json:"pending_activities"`
}

// AssignmentProgress is a view computed on demand; it is never stored.
type AssignmentProgress struct {
	AssignmentID        string              `json:"assignment_id"`
	TotalContainers     int                 `json:"total_containers"`
	CompletedContainers int                 `json:"completed_containers"`
	PercentageComplete  int                 `json:"percentage_complete"`
	ContainerStatuses   []ContainerProgress `json:"container_statuses"`
}
