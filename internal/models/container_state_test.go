package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestColorOfCoversCatalog(t *testing.T) {
	for _, state := range AllStates() {
		color, err := ColorOf(state)
		if err != nil {
			t.Fatalf("expected color for %q, got error %v", state, err)
		}
		if len(color) != 7 || color[0] != '#' {
			t.Fatalf("unexpected color %q for %q", color, state)
		}
	}
}

func TestColorOfRejectsUnknownState(t *testing.T) {
	_, err := ColorOf(ContainerState("on-fire"))
	var unknown *UnknownStateError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownStateError, got %v", err)
	}
	if unknown.Value != "on-fire" {
		t.Fatalf("expected value on-fire, got %q", unknown.Value)
	}
}

func TestAllStatesIsStableCopy(t *testing.T) {
	first := AllStates()
	first[0] = "mutated"
	second := AllStates()
	if second[0] != StateOverflowing {
		t.Fatalf("catalog order leaked a mutable slice: %v", second)
	}
	for i, state := range second {
		p, err := Priority(state)
		if err != nil || p != i {
			t.Fatalf("expected priority %d for %q, got %d (%v)", i, state, p, err)
		}
	}
}

func TestNewStateSetCollapsesDuplicatesInCatalogOrder(t *testing.T) {
	set, err := NewStateSet(StateDirty, StateOverflowing, StateDirty)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := set.Strings()
	if len(got) != 2 || got[0] != "overflowing" || got[1] != "dirty" {
		t.Fatalf("unexpected set %v", got)
	}
	if !set.Equal(MustStateSet(StateOverflowing, StateDirty)) {
		t.Fatalf("sets with equal membership must be equal")
	}
	if primary, ok := set.Primary(); !ok || primary != StateOverflowing {
		t.Fatalf("expected overflowing as primary, got %q", primary)
	}
}

func TestParseStateSetRejectsUnknownTag(t *testing.T) {
	_, err := ParseStateSet([]string{"damaged", "graffiti"})
	var unknown *UnknownStateError
	if !errors.As(err, &unknown) || unknown.Value != "graffiti" {
		t.Fatalf("expected UnknownStateError for graffiti, got %v", err)
	}
}

func TestStateSetOperations(t *testing.T) {
	a := MustStateSet(StateOverflowing, StateDamaged, StateDirty)
	b := MustStateSet(StateDamaged, StateLeaves)

	if got := a.Difference(b); !got.Equal(MustStateSet(StateOverflowing, StateDirty)) {
		t.Fatalf("unexpected difference %s", got)
	}
	if got := a.Intersect(b); !got.Equal(MustStateSet(StateDamaged)) {
		t.Fatalf("unexpected intersection %s", got)
	}
	if got := a.Union(b); got.Len() != 4 {
		t.Fatalf("unexpected union %s", got)
	}
	if a.Len() != 3 || b.Len() != 2 {
		t.Fatalf("operands changed: %s %s", a, b)
	}
	if !a.Contains(StateDirty) || a.Contains(StateLeaves) || a.Contains("bogus") {
		t.Fatalf("unexpected membership for %s", a)
	}
}

func TestStateSetJSON(t *testing.T) {
	var set StateSet
	if err := json.Unmarshal([]byte(`["dirty","overflowing","dirty"]`), &set); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `["overflowing","dirty"]` {
		t.Fatalf("unexpected encoding %s", raw)
	}

	empty, _ := json.Marshal(StateSet{})
	if string(empty) != `[]` {
		t.Fatalf("expected empty array, got %s", empty)
	}

	err = json.Unmarshal([]byte(`["overflowing","smelly"]`), &set)
	var unknown *UnknownStateError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownStateError, got %v", err)
	}
}

func TestStateSetSQLRoundTrip(t *testing.T) {
	value, err := MustStateSet(StateLeaves, StateBulkyWaste).Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != `{"bulky-waste","leaves"}` {
		t.Fatalf("unexpected array literal %v", value)
	}

	var scanned StateSet
	if err := scanned.Scan([]byte(`{leaves,bulky-waste}`)); err != nil {
		t.Fatalf("unexpected scan error: %v", err)
	}
	if !scanned.Equal(MustStateSet(StateBulkyWaste, StateLeaves)) {
		t.Fatalf("unexpected scanned set %s", scanned)
	}
	if err := scanned.Scan([]byte(`{leaves,unknown}`)); err == nil {
		t.Fatalf("expected scan to reject unknown tag")
	}
}
