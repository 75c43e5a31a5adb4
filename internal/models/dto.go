package models

import "time"

// Data Transfer Objects

type CreateSignalRequest struct {
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Category       string      `json:"category"`
	ContainerState []string    `json:"container_state"`
	CityObject     *CityObject `json:"city_object,omitempty"`
	Location       *Location   `json:"location,omitempty"`
}

// ToInput validates untyped request values against the closed enumerations.
func (r *CreateSignalRequest) ToInput(reporterID string) (SignalInput, error) {
	category, err := ParseSignalCategory(r.Category)
	if err != nil {
		return SignalInput{}, err
	}
	states, err := ParseStateSet(r.ContainerState)
	if err != nil {
		return SignalInput{}, err
	}
	return SignalInput{
		Title:          r.Title,
		Description:    r.Description,
		Category:       category,
		ContainerState: states,
		CityObject:     r.CityObject,
		Location:       r.Location,
		ReporterID:     reporterID,
	}, nil
}

type UpdateSignalRequest struct {
	Title          *string   `json:"title,omitempty"`
	Description    *string   `json:"description,omitempty"`
	ContainerState *[]string `json:"container_state,omitempty"`
}

func (r *UpdateSignalRequest) ToEdit() (SignalEdit, error) {
	edit := SignalEdit{Title: r.Title, Description: r.Description}
	if r.ContainerState != nil {
		states, err := ParseStateSet(*r.ContainerState)
		if err != nil {
			return SignalEdit{}, err
		}
		edit.ContainerState = &states
	}
	return edit, nil
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type AdminNotesRequest struct {
	AdminNotes string `json:"admin_notes"`
}

type CreateAssignmentRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Containers  []string   `json:"containers"`
	AssignedTo  string     `json:"assigned_to"`
	Activities  []string   `json:"activities"`
	Status      string     `json:"status,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

func (r *CreateAssignmentRequest) ToInput() (AssignmentInput, error) {
	activities, err := ParseStateSet(r.Activities)
	if err != nil {
		return AssignmentInput{}, err
	}
	var status AssignmentStatus
	if r.Status != "" {
		status, err = ParseAssignmentStatus(r.Status)
		if err != nil {
			return AssignmentInput{}, err
		}
	}
	return AssignmentInput{
		Title:       r.Title,
		Description: r.Description,
		Containers:  r.Containers,
		AssignedTo:  r.AssignedTo,
		Activities:  activities,
		Status:      status,
		DueDate:     r.DueDate,
	}, nil
}

type UpdateContainerStatesRequest struct {
	States []string `json:"states"`
}

type CatalogEntry struct {
	State    ContainerState `json:"state"`
	Color    string         `json:"color"`
	Priority int            `json:"priority"`
}

// Catalog lists every container state with its color, in display order.
func Catalog() []CatalogEntry {
	entries := make([]CatalogEntry, len(catalog))
	for i, entry := range catalog {
		entries[i] = CatalogEntry{State: entry.state, Color: entry.color, Priority: i}
	}
	return entries
}

type SignalFilter struct {
	Status     SignalStatus
	ReporterID string
}

type SignalsResponse struct {
	Signals []Signal `json:"signals"`
	Total   int      `json:"total"`
	Page    int      `json:"page"`
	Limit   int      `json:"limit"`
}

type AssignmentsResponse struct {
	Assignments []Assignment `json:"assignments"`
	Total       int          `json:"total"`
	Page        int          `json:"page"`
	Limit       int          `json:"limit"`
}

type AssignmentFilter struct {
	Status     AssignmentStatus
	AssignedTo string
}

type ContainersResponse struct {
	Containers []WasteContainer `json:"containers"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
}
