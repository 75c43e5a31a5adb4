package models

import (
	"strings"
	"time"
)

type SignalStatus string

const (
	SignalStatusPending    SignalStatus = "pending"
	SignalStatusInProgress SignalStatus = "in-progress"
	SignalStatusResolved   SignalStatus = "resolved"
	SignalStatusRejected   SignalStatus = "rejected"
)

// Resolved and rejected have no outgoing edges; reopening is handled outside this service.
var signalTransitions = map[SignalStatus][]SignalStatus{
	SignalStatusPending:    {SignalStatusInProgress, SignalStatusResolved, SignalStatusRejected},
	SignalStatusInProgress: {SignalStatusResolved, SignalStatusRejected},
	SignalStatusResolved:   nil,
	SignalStatusRejected:   nil,
}

func ParseSignalStatus(value string) (SignalStatus, error) {
	status := SignalStatus(strings.TrimSpace(value))
	if _, ok := signalTransitions[status]; !ok {
		return "", &UnknownStateError{Kind: "signal status", Value: value}
	}
	return status, nil
}

func (s SignalStatus) String() string {
	return string(s)
}

func (s SignalStatus) CanTransitionTo(to SignalStatus) bool {
	for _, next := range signalTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s SignalStatus) IsTerminal() bool {
	next, ok := signalTransitions[s]
	return ok && len(next) == 0
}

type SignalCategory string

const (
	CategoryWasteContainer SignalCategory = "waste-container"
	CategoryStreetLighting SignalCategory = "street-lighting"
	CategoryRoadDamage     SignalCategory = "road-damage"
	CategoryGreenSpaces    SignalCategory = "green-spaces"
	CategoryOther          SignalCategory = "other"
)

func ParseSignalCategory(value string) (SignalCategory, error) {
	category := SignalCategory(strings.TrimSpace(value))
	switch category {
	case CategoryWasteContainer, CategoryStreetLighting, CategoryRoadDamage, CategoryGreenSpaces, CategoryOther:
		return category, nil
	default:
		return "", &UnknownStateError{Kind: "signal category", Value: value}
	}
}

type CityObject struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type Location struct {
	Address   string   `json:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

type Signal struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	Category       SignalCategory `json:"category"`
	ContainerState StateSet       `json:"container_state"`
	Status         SignalStatus   `json:"status"`
	Photos         []Photo        `json:"photos"`
	CityObject     *CityObject    `json:"city_object,omitempty"`
	Location       *Location      `json:"location,omitempty"`
	AdminNotes     string         `json:"admin_notes,omitempty"`
	ReporterID     string         `json:"reporter_id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// SignalInput is the validated content of a citizen submission.
type SignalInput struct {
	Title          string
	Description    string
	Category       SignalCategory
	ContainerState StateSet
	Photos         []Photo
	CityObject     *CityObject
	Location       *Location
	ReporterID     string
}

// NewSignal creates a pending signal.
func NewSignal(id string, in SignalInput, now time.Time) (Signal, error) {
	if _, err := ParseSignalCategory(string(in.Category)); err != nil {
		return Signal{}, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Signal{}, &ValidationError{Field: "title", Reason: "is required"}
	}
	if err := checkStatesAllowed(in.Category, in.ContainerState); err != nil {
		return Signal{}, err
	}

	s := Signal{
		ID:             id,
		Title:          title,
		Description:    strings.TrimSpace(in.Description),
		Category:       in.Category,
		ContainerState: in.ContainerState,
		Status:         SignalStatusPending,
		ReporterID:     in.ReporterID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.CityObject != nil {
		obj := *in.CityObject
		s.CityObject = &obj
	}
	if in.Location != nil {
		loc := *in.Location
		s.Location = &loc
	}
	for _, p := range in.Photos {
		if err := checkPhotoAddable(s.Photos, p); err != nil {
			return Signal{}, err
		}
		s.Photos = append(s.Photos, p)
	}
	return s, nil
}

func checkStatesAllowed(category SignalCategory, states StateSet) error {
	if category != CategoryWasteContainer && !states.IsEmpty() {
		return &ValidationError{Field: "container_state", Reason: "allowed only for waste-container signals"}
	}
	return nil
}

func checkPhotoAddable(photos []Photo, p Photo) error {
	if id, ok := p.ID(); ok {
		for _, existing := range photos {
			if other, ok := existing.ID(); ok && other == id {
				return &ValidationError{Field: "photos", Reason: "duplicate photo id " + id}
			}
		}
		return nil
	}
	key, _ := p.LocalKey()
	if key == "" {
		return &ValidationError{Field: "photos", Reason: "new photo requires a local key"}
	}
	for _, existing := range photos {
		if other, ok := existing.LocalKey(); ok && other == key {
			return &ValidationError{Field: "photos", Reason: "duplicate local key " + key}
		}
	}
	return nil
}

// CanEdit is the citizen edit precondition: the actor is the owner of record
// and the signal has not left pending.
func CanEdit(s Signal, actorID string) bool {
	return actorID != "" && s.ReporterID == actorID && s.Status == SignalStatusPending
}

// SignalEdit carries the citizen-editable fields; nil means unchanged.
type SignalEdit struct {
	Title          *string
	Description    *string
	ContainerState *StateSet
}

func (s Signal) clone() Signal {
	out := s
	if s.Photos != nil {
		out.Photos = make([]Photo, len(s.Photos))
		copy(out.Photos, s.Photos)
	}
	return out
}

func (s Signal) refuse(action string) error {
	return &EditNotPermittedError{SignalID: s.ID, Action: action}
}

func (s Signal) Edit(canEdit bool, edit SignalEdit, now time.Time) (Signal, error) {
	if !canEdit {
		return s, s.refuse("edit")
	}
	out := s.clone()
	if edit.Title != nil {
		title := strings.TrimSpace(*edit.Title)
		if title == "" {
			return s, &ValidationError{Field: "title", Reason: "is required"}
		}
		out.Title = title
	}
	if edit.Description != nil {
		out.Description = strings.TrimSpace(*edit.Description)
	}
	if edit.ContainerState != nil {
		if err := checkStatesAllowed(s.Category, *edit.ContainerState); err != nil {
			return s, err
		}
		out.ContainerState = *edit.ContainerState
	}
	out.UpdatedAt = now
	return out, nil
}

func (s Signal) AddPhoto(canEdit bool, p Photo, now time.Time) (Signal, error) {
	if !canEdit {
		return s, s.refuse("adding a photo")
	}
	if err := checkPhotoAddable(s.Photos, p); err != nil {
		return s, err
	}
	out := s.clone()
	out.Photos = append(out.Photos, p)
	out.UpdatedAt = now
	return out, nil
}

// RemovePhoto removes a persisted photo by its store id.
func (s Signal) RemovePhoto(canEdit bool, photoID string, now time.Time) (Signal, error) {
	if !canEdit {
		return s, s.refuse("removing a photo")
	}
	return s.removeWhere(photoID, now, func(p Photo) bool {
		id, ok := p.ID()
		return ok && id == photoID
	})
}

// RemovePendingPhoto removes a not yet uploaded photo by its local key.
func (s Signal) RemovePendingPhoto(canEdit bool, localKey string, now time.Time) (Signal, error) {
	if !canEdit {
		return s, s.refuse("removing a photo")
	}
	return s.removeWhere(localKey, now, func(p Photo) bool {
		key, ok := p.LocalKey()
		return ok && key == localKey
	})
}

func (s Signal) removeWhere(ref string, now time.Time, match func(Photo) bool) (Signal, error) {
	for i, p := range s.Photos {
		if !match(p) {
			continue
		}
		out := s.clone()
		out.Photos = append(out.Photos[:i], out.Photos[i+1:]...)
		out.UpdatedAt = now
		return out, nil
	}
	return s, &PhotoNotFoundError{PhotoID: ref}
}

// ResolvePhoto swaps a pending photo for its persisted form once the photo store returned an id.
func (s Signal) ResolvePhoto(localKey, id, url string, now time.Time) (Signal, error) {
	if id == "" {
		return s, &ValidationError{Field: "photos", Reason: "persisted photo id is empty"}
	}
	for i, p := range s.Photos {
		if key, ok := p.LocalKey(); ok && key == localKey {
			out := s.clone()
			out.Photos[i] = ExistingPhoto(id, url)
			out.UpdatedAt = now
			return out, nil
		}
	}
	return s, &PhotoNotFoundError{PhotoID: localKey}
}

// PendingPhotos returns the photos still waiting for upload, in order.
func (s Signal) PendingPhotos() []Photo {
	var out []Photo
	for _, p := range s.Photos {
		if p.IsNew() {
			out = append(out, p)
		}
	}
	return out
}

func (s Signal) TransitionStatus(operator bool, to SignalStatus, now time.Time) (Signal, error) {
	if !operator {
		return s, s.refuse("status change")
	}
	if _, err := ParseSignalStatus(string(to)); err != nil {
		return s, err
	}
	if !s.Status.CanTransitionTo(to) {
		return s, &InvalidTransitionError{Entity: "signal", From: string(s.Status), To: string(to)}
	}
	out := s.clone()
	out.Status = to
	out.UpdatedAt = now
	return out, nil
}

func (s Signal) SetAdminNotes(operator bool, notes string, now time.Time) (Signal, error) {
	if !operator {
		return s, s.refuse("setting admin notes")
	}
	out := s.clone()
	out.AdminNotes = strings.TrimSpace(notes)
	out.UpdatedAt = now
	return out, nil
}
