package service

import (
	"context"
	"testing"

	"github.com/quantum-grit/your-sofia/signal-service/internal/models"
)

func roundAssignment(t *testing.T, id string) models.Assignment {
	t.Helper()
	a, err := models.NewAssignment(id, models.AssignmentInput{
		Title:      "Mladost 1 round",
		Containers: []string{"A", "B"},
		AssignedTo: crew.ID,
		Activities: models.MustStateSet(models.StateOverflowing, models.StateDamaged),
	}, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return a
}

type progressFixture struct {
	containers  *fakeContainerRepo
	cache       *fakeCache
	assignments *fakeAssignmentRepo
	publisher   *recordingPublisher
	containerSv ContainerService
	progressSv  ProgressService
}

func newProgressFixture(t *testing.T, assignments ...models.Assignment) *progressFixture {
	t.Helper()
	f := &progressFixture{
		containers: newFakeContainerRepo(
			models.WasteContainer{ID: "A", PublicNumber: "SO-101", States: models.MustStateSet(models.StateOverflowing)},
			models.WasteContainer{ID: "B", PublicNumber: "SO-102", States: models.MustStateSet()},
		),
		cache:       newFakeCache(),
		assignments: newFakeAssignmentRepo(assignments...),
		publisher:   &recordingPublisher{},
	}
	f.containerSv = NewContainerService(f.containers, f.cache, f.publisher, testLogger)
	f.containerSv.(*containerService).now = fixedClock
	f.progressSv = NewProgressService(f.assignments, f.containerSv, f.publisher, testLogger)
	f.progressSv.(*progressService).now = fixedClock
	return f
}

func TestProgressHalfThenFull(t *testing.T) {
	f := newProgressFixture(t, roundAssignment(t, "as-1"))

	got, err := f.progressSv.GetProgress(context.Background(), "as-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.CompletedContainers != 1 || got.TotalContainers != 2 || got.PercentageComplete != 50 {
		t.Fatalf("expected 1/2 = 50%%, got %+v", got)
	}
	first := got.ContainerStatuses[0]
	if first.PublicNumber != "SO-101" || first.IsComplete {
		t.Fatalf("unexpected container A progress %+v", first)
	}
	if !first.CompletedActivities.Equal(models.MustStateSet(models.StateDamaged)) {
		t.Fatalf("unexpected completed activities %s", first.CompletedActivities)
	}

	if _, err := f.containerSv.UpdateStates(context.Background(), operator, "A", &models.UpdateContainerStatesRequest{States: []string{}}); err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}

	got, err = f.progressSv.GetProgress(context.Background(), "as-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.CompletedContainers != 2 || got.PercentageComplete != 100 {
		t.Fatalf("expected full completion, got %+v", got)
	}
}

func TestProgressTreatsUnreadableContainersAsNotReported(t *testing.T) {
	f := newProgressFixture(t, roundAssignment(t, "as-1"))
	f.containers.failIDs = true

	got, err := f.progressSv.GetProgress(context.Background(), "as-1")
	if err != nil {
		t.Fatalf("lookup failures must not fail progress: %v", err)
	}
	if got.PercentageComplete != 100 {
		t.Fatalf("containers without states count as complete, got %+v", got)
	}
}

func TestProgressUnknownAssignment(t *testing.T) {
	f := newProgressFixture(t)
	if _, err := f.progressSv.GetProgress(context.Background(), "nope"); err != models.ErrAssignmentNotFound {
		t.Fatalf("expected ErrAssignmentNotFound, got %v", err)
	}
}

func TestRecomputeForContainerSkipsClosedAssignments(t *testing.T) {
	open := roundAssignment(t, "as-open")
	closed := roundAssignment(t, "as-closed")
	closed.Status = models.AssignmentStatusCancelled
	f := newProgressFixture(t, open, closed)

	f.cache.entries["A"] = models.WasteContainer{ID: "A", States: models.MustStateSet()}

	results, err := f.progressSv.RecomputeForContainer(context.Background(), "A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].AssignmentID != "as-open" {
		t.Fatalf("expected only the open assignment, got %+v", results)
	}
	if results[0].PercentageComplete != 50 {
		t.Fatalf("stale cache entry must be dropped before recomputing, got %+v", results[0])
	}
	if len(f.cache.invalidated) == 0 || f.cache.invalidated[0] != "A" {
		t.Fatalf("expected A to be invalidated, got %v", f.cache.invalidated)
	}
	if keys := f.publisher.keys(); len(keys) != 1 || keys[0] != models.RoutingProgressUpdated {
		t.Fatalf("expected a progress event, got %v", keys)
	}
}
