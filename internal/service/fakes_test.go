package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/quantum-grit/your-sofia/signal-service/internal/models"
	"github.com/rs/zerolog"
)

var (
	testNow    = time.Date(2024, 6, 3, 7, 30, 0, 0, time.UTC)
	testLogger = zerolog.Nop()
	errStore   = errors.New("store unavailable")
)

func fixedClock() time.Time { return testNow }

type fakeSignalRepo struct {
	mu        sync.Mutex
	signals   map[string]models.Signal
	updateErr error
	updates   int
}

func newFakeSignalRepo(signals ...models.Signal) *fakeSignalRepo {
	repo := &fakeSignalRepo{signals: map[string]models.Signal{}}
	for _, s := range signals {
		repo.signals[s.ID] = s
	}
	return repo
}

func (r *fakeSignalRepo) Create(_ context.Context, signal *models.Signal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals[signal.ID] = *signal
	return nil
}

func (r *fakeSignalRepo) GetByID(_ context.Context, id string) (*models.Signal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.signals[id]
	if !ok {
		return nil, models.ErrSignalNotFound
	}
	return &s, nil
}

func (r *fakeSignalRepo) List(_ context.Context, filter models.SignalFilter, limit, offset int) ([]models.Signal, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Signal
	for _, s := range r.signals {
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		if filter.ReporterID != "" && s.ReporterID != filter.ReporterID {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (r *fakeSignalRepo) Update(_ context.Context, signal *models.Signal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.signals[signal.ID]; !ok {
		return models.ErrSignalNotFound
	}
	r.signals[signal.ID] = *signal
	r.updates++
	return nil
}

type fakeAssignmentRepo struct {
	mu          sync.Mutex
	assignments map[string]models.Assignment
	order       []string
}

func newFakeAssignmentRepo(assignments ...models.Assignment) *fakeAssignmentRepo {
	repo := &fakeAssignmentRepo{assignments: map[string]models.Assignment{}}
	for _, a := range assignments {
		a := a
		_ = repo.Create(context.Background(), &a)
	}
	return repo
}

func (r *fakeAssignmentRepo) Create(_ context.Context, a *models.Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assignments[a.ID] = *a
	r.order = append(r.order, a.ID)
	return nil
}

func (r *fakeAssignmentRepo) GetByID(_ context.Context, id string) (*models.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assignments[id]
	if !ok {
		return nil, models.ErrAssignmentNotFound
	}
	return &a, nil
}

func (r *fakeAssignmentRepo) List(_ context.Context, filter models.AssignmentFilter, limit, offset int) ([]models.Assignment, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Assignment
	for _, id := range r.order {
		a := r.assignments[id]
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.AssignedTo != "" && a.AssignedTo != filter.AssignedTo {
			continue
		}
		out = append(out, a)
	}
	total := len(out)
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (r *fakeAssignmentRepo) Update(_ context.Context, a *models.Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.assignments[a.ID]; !ok {
		return models.ErrAssignmentNotFound
	}
	r.assignments[a.ID] = *a
	return nil
}

func (r *fakeAssignmentRepo) ListActiveByContainer(_ context.Context, containerID string) ([]models.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Assignment
	for _, id := range r.order {
		a := r.assignments[id]
		if !a.Status.IsTerminal() && a.HasContainer(containerID) {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeContainerRepo struct {
	mu         sync.Mutex
	containers map[string]models.WasteContainer
	failIDs    bool
	loads      int
}

func newFakeContainerRepo(containers ...models.WasteContainer) *fakeContainerRepo {
	repo := &fakeContainerRepo{containers: map[string]models.WasteContainer{}}
	for _, c := range containers {
		repo.containers[c.ID] = c
	}
	return repo
}

func (r *fakeContainerRepo) GetByID(_ context.Context, id string) (*models.WasteContainer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.containers[id]
	if !ok {
		return nil, models.ErrContainerNotFound
	}
	return &c, nil
}

func (r *fakeContainerRepo) GetByIDs(_ context.Context, ids []string) (map[string]models.WasteContainer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads++
	if r.failIDs {
		return nil, errStore
	}
	out := map[string]models.WasteContainer{}
	for _, id := range ids {
		if c, ok := r.containers[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (r *fakeContainerRepo) List(_ context.Context, limit, offset int) ([]models.WasteContainer, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.WasteContainer
	for _, c := range r.containers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r *fakeContainerRepo) UpsertStates(_ context.Context, id string, states models.StateSet, updatedAt time.Time) (*models.WasteContainer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.containers[id]
	c.ID = id
	c.States = states
	c.UpdatedAt = updatedAt
	r.containers[id] = c
	return &c, nil
}

type fakeCache struct {
	mu          sync.Mutex
	entries     map[string]models.WasteContainer
	invalidated []string
	fail        bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]models.WasteContainer{}}
}

func (c *fakeCache) GetMany(_ context.Context, ids []string) (map[string]models.WasteContainer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return nil, errStore
	}
	out := map[string]models.WasteContainer{}
	for _, id := range ids {
		if e, ok := c.entries[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

func (c *fakeCache) Set(_ context.Context, container models.WasteContainer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[container.ID] = container
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, ids ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.entries, id)
		c.invalidated = append(c.invalidated, id)
	}
	return nil
}

func (c *fakeCache) Close() error { return nil }

type fakePhotoStore struct {
	mu      sync.Mutex
	saved   map[string]models.PhotoPayload
	deleted []string
	saveErr error
	next    int
}

func newFakePhotoStore() *fakePhotoStore {
	return &fakePhotoStore{saved: map[string]models.PhotoPayload{}}
}

func (s *fakePhotoStore) SavePhoto(_ context.Context, payload models.PhotoPayload) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return "", "", s.saveErr
	}
	s.next++
	id := fmt.Sprintf("photo-%d", s.next)
	s.saved[id] = payload
	return id, "http://photos.test/" + id, nil
}

func (s *fakePhotoStore) DeletePhoto(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saved, id)
	s.deleted = append(s.deleted, id)
	return nil
}

type publishedEvent struct {
	routingKey string
	event      interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{routingKey: routingKey, event: event})
	return nil
}

func (p *recordingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, len(p.events))
	for i, e := range p.events {
		keys[i] = e.routingKey
	}
	return keys
}
