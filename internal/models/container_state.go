package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// ContainerState is a reported problem on a waste container.
type ContainerState string

const (
	StateOverflowing ContainerState = "overflowing"
	StateBulkyWaste  ContainerState = "bulky-waste"
	StateDamaged     ContainerState = "damaged"
	StateFallen      ContainerState = "fallen"
	StateDirty       ContainerState = "dirty"
	StateLeaves      ContainerState = "leaves"
	StateMaintenance ContainerState = "maintenance"
)

const containerStateKind = "container state"

// catalog order is the display and priority order; index 0 wins ties.
var catalog = []struct {
	state ContainerState
	color string
}{
	{StateOverflowing, "#DC2626"},
	{StateBulkyWaste, "#EA580C"},
	{StateDamaged, "#7C3AED"},
	{StateFallen, "#DB2777"},
	{StateDirty, "#CA8A04"},
	{StateLeaves, "#16A34A"},
	{StateMaintenance, "#2563EB"},
}

var catalogIndex = func() map[ContainerState]int {
	idx := make(map[ContainerState]int, len(catalog))
	for i, entry := range catalog {
		idx[entry.state] = i
	}
	return idx
}()

// AllStates returns the catalog in display order. The slice is a fresh copy.
func AllStates() []ContainerState {
	states := make([]ContainerState, len(catalog))
	for i, entry := range catalog {
		states[i] = entry.state
	}
	return states
}

func ParseContainerState(value string) (ContainerState, error) {
	state := ContainerState(strings.TrimSpace(value))
	if _, ok := catalogIndex[state]; !ok {
		return "", &UnknownStateError{Kind: containerStateKind, Value: value}
	}
	return state, nil
}

func (s ContainerState) IsValid() bool {
	_, ok := catalogIndex[s]
	return ok
}

func (s ContainerState) String() string {
	return string(s)
}

// ColorOf returns the display color of a catalog state.
func ColorOf(s ContainerState) (string, error) {
	i, ok := catalogIndex[s]
	if !ok {
		return "", &UnknownStateError{Kind: containerStateKind, Value: string(s)}
	}
	return catalog[i].color, nil
}

// Priority returns the catalog position of s, lower is more urgent.
func Priority(s ContainerState) (int, error) {
	i, ok := catalogIndex[s]
	if !ok {
		return 0, &UnknownStateError{Kind: containerStateKind, Value: string(s)}
	}
	return i, nil
}

func (s *ContainerState) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseContainerState(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// StateSet is a set of container states kept in catalog order without duplicates.
// The zero value is the empty set. Methods never modify the receiver.
type StateSet struct {
	states []ContainerState
}

// NewStateSet builds a set from known states, collapsing duplicates.
func NewStateSet(states ...ContainerState) (StateSet, error) {
	seen := make([]bool, len(catalog))
	for _, s := range states {
		i, ok := catalogIndex[s]
		if !ok {
			return StateSet{}, &UnknownStateError{Kind: containerStateKind, Value: string(s)}
		}
		seen[i] = true
	}
	return fromMask(seen), nil
}

// MustStateSet is NewStateSet for literals known to be valid.
func MustStateSet(states ...ContainerState) StateSet {
	set, err := NewStateSet(states...)
	if err != nil {
		panic(err)
	}
	return set
}

// ParseStateSet validates untyped tags from a deserialization boundary.
func ParseStateSet(values []string) (StateSet, error) {
	states := make([]ContainerState, 0, len(values))
	for _, v := range values {
		s, err := ParseContainerState(v)
		if err != nil {
			return StateSet{}, err
		}
		states = append(states, s)
	}
	return NewStateSet(states...)
}

func fromMask(seen []bool) StateSet {
	var out []ContainerState
	for i, ok := range seen {
		if ok {
			out = append(out, catalog[i].state)
		}
	}
	return StateSet{states: out}
}

func (s StateSet) mask() []bool {
	seen := make([]bool, len(catalog))
	for _, st := range s.states {
		seen[catalogIndex[st]] = true
	}
	return seen
}

func (s StateSet) Len() int {
	return len(s.states)
}

func (s StateSet) IsEmpty() bool {
	return len(s.states) == 0
}

func (s StateSet) Contains(state ContainerState) bool {
	i, ok := catalogIndex[state]
	if !ok {
		return false
	}
	return s.mask()[i]
}

// States returns the members in catalog order as a fresh slice.
func (s StateSet) States() []ContainerState {
	out := make([]ContainerState, len(s.states))
	copy(out, s.states)
	return out
}

func (s StateSet) Strings() []string {
	out := make([]string, len(s.states))
	for i, st := range s.states {
		out[i] = string(st)
	}
	return out
}

func (s StateSet) Equal(other StateSet) bool {
	if len(s.states) != len(other.states) {
		return false
	}
	for i := range s.states {
		if s.states[i] != other.states[i] {
			return false
		}
	}
	return true
}

// Difference returns s ∖ other.
func (s StateSet) Difference(other StateSet) StateSet {
	a, b := s.mask(), other.mask()
	for i := range a {
		a[i] = a[i] && !b[i]
	}
	return fromMask(a)
}

// Intersect returns s ∩ other.
func (s StateSet) Intersect(other StateSet) StateSet {
	a, b := s.mask(), other.mask()
	for i := range a {
		a[i] = a[i] && b[i]
	}
	return fromMask(a)
}

func (s StateSet) Union(other StateSet) StateSet {
	a, b := s.mask(), other.mask()
	for i := range a {
		a[i] = a[i] || b[i]
	}
	return fromMask(a)
}

// Primary returns the most urgent member, false for the empty set.
func (s StateSet) Primary() (ContainerState, bool) {
	if len(s.states) == 0 {
		return "", false
	}
	return s.states[0], true
}

func (s StateSet) String() string {
	return "{" + strings.Join(s.Strings(), ", ") + "}"
}

func (s StateSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

func (s *StateSet) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStateSet(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value stores the set as a Postgres text[].
func (s StateSet) Value() (driver.Value, error) {
	return pq.StringArray(s.Strings()).Value()
}

func (s *StateSet) Scan(src interface{}) error {
	var raw pq.StringArray
	if err := raw.Scan(src); err != nil {
		return fmt.Errorf("failed to scan container states: %w", err)
	}
	parsed, err := ParseStateSet(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
