package httpd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/quantum-grit/your-sofia/signal-service/internal/middleware"
	"github.com/quantum-grit/your-sofia/signal-service/internal/models"
	"github.com/rs/zerolog"
)

const (
	signalID     = "5b7d2f4e-8a61-4c1e-9f3a-2d6b8c0e1a47"
	assignmentID = "9c0a1b2d-3e4f-4a5b-8c6d-7e8f9a0b1c2d"
)

type stubSignals struct {
	err         error
	lastActor   models.Actor
	lastFilter  models.SignalFilter
	lastPayload models.PhotoPayload
}

func (s *stubSignals) result(actor models.Actor) (*models.Signal, error) {
	s.lastActor = actor
	if s.err != nil {
		return nil, s.err
	}
	return &models.Signal{ID: signalID, Title: "Overflowing bin", Status: models.SignalStatusPending}, nil
}

func (s *stubSignals) CreateSignal(_ context.Context, actor models.Actor, _ *models.CreateSignalRequest) (*models.Signal, error) {
	return s.result(actor)
}

func (s *stubSignals) GetSignal(context.Context, string) (*models.Signal, error) {
	return s.result(models.Actor{})
}

func (s *stubSignals) ListSignals(_ context.Context, filter models.SignalFilter, page, limit int) (*models.SignalsResponse, error) {
	s.lastFilter = filter
	if s.err != nil {
		return nil, s.err
	}
	return &models.SignalsResponse{Signals: []models.Signal{}, Page: page, Limit: limit}, nil
}

func (s *stubSignals) UpdateSignal(_ context.Context, actor models.Actor, _ string, _ *models.UpdateSignalRequest) (*models.Signal, error) {
	return s.result(actor)
}

func (s *stubSignals) AddPhoto(_ context.Context, actor models.Actor, _ string, payload models.PhotoPayload) (*models.Signal, error) {
	s.lastPayload = payload
	return s.result(actor)
}

func (s *stubSignals) RemovePhoto(_ context.Context, actor models.Actor, _, _ string) (*models.Signal, error) {
	return s.result(actor)
}

func (s *stubSignals) UpdateStatus(_ context.Context, actor models.Actor, _ string, _ *models.UpdateStatusRequest) (*models.Signal, error) {
	return s.result(actor)
}

func (s *stubSignals) SetAdminNotes(_ context.Context, actor models.Actor, _ string, _ *models.AdminNotesRequest) (*models.Signal, error) {
	return s.result(actor)
}

type stubAssignments struct {
	err        error
	lastFilter models.AssignmentFilter
}

func (s *stubAssignments) result() (*models.Assignment, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Assignment{ID: assignmentID, Status: models.AssignmentStatusPending}, nil
}

func (s *stubAssignments) CreateAssignment(context.Context, models.Actor, *models.CreateAssignmentRequest) (*models.Assignment, error) {
	return s.result()
}

func (s *stubAssignments) GetAssignment(context.Context, string) (*models.Assignment, error) {
	return s.result()
}

func (s *stubAssignments) ListAssignments(_ context.Context, filter models.AssignmentFilter, page, limit int) (*models.AssignmentsResponse, error) {
	s.lastFilter = filter
	return &models.AssignmentsResponse{Assignments: []models.Assignment{}, Page: page, Limit: limit}, s.err
}

func (s *stubAssignments) UpdateStatus(context.Context, models.Actor, string, *models.UpdateStatusRequest) (*models.Assignment, error) {
	return s.result()
}

type stubContainers struct {
	err    error
	states []string
}

func (s *stubContainers) Lookup(context.Context, []string) map[string]models.WasteContainer {
	return nil
}

func (s *stubContainers) Invalidate(context.Context, ...string) {}

func (s *stubContainers) GetContainer(_ context.Context, id string) (*models.WasteContainer, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.WasteContainer{ID: id, PublicNumber: "SO-" + id}, nil
}

func (s *stubContainers) ListContainers(_ context.Context, page, limit int) (*models.ContainersResponse, error) {
	return &models.ContainersResponse{Containers: []models.WasteContainer{}, Page: page, Limit: limit}, s.err
}

func (s *stubContainers) UpdateStates(_ context.Context, _ models.Actor, id string, req *models.UpdateContainerStatesRequest) (*models.WasteContainer, error) {
	s.states = req.States
	return s.GetContainer(context.Background(), id)
}

type stubProgress struct {
	err error
}

func (s *stubProgress) GetProgress(_ context.Context, id string) (*models.AssignmentProgress, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.AssignmentProgress{AssignmentID: id, TotalContainers: 2, CompletedContainers: 1, PercentageComplete: 50}, nil
}

func (s *stubProgress) ForAssignment(_ context.Context, a models.Assignment) models.AssignmentProgress {
	return models.AssignmentProgress{AssignmentID: a.ID}
}

func (s *stubProgress) RecomputeForContainer(context.Context, string) ([]models.AssignmentProgress, error) {
	return nil, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type fixture struct {
	signals     *stubSignals
	assignments *stubAssignments
	containers  *stubContainers
	progress    *stubProgress
	router      chi.Router
}

func newFixture(db Pinger) *fixture {
	f := &fixture{
		signals:     &stubSignals{},
		assignments: &stubAssignments{},
		containers:  &stubContainers{},
		progress:    &stubProgress{},
	}
	h := NewHandler(f.signals, f.assignments, f.containers, f.progress, db, 1<<10, zerolog.Nop())
	f.router = chi.NewRouter()
	f.router.Use(middleware.Actor)
	h.RegisterRoutes(f.router)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, rec.Body.String())
	}
	return body
}

func TestHealthCheck(t *testing.T) {
	rec := newFixture(stubPinger{}).do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK || decodeBody(t, rec)["status"] != "healthy" {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}

	rec = newFixture(stubPinger{err: errors.New("down")}).do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusServiceUnavailable || decodeBody(t, rec)["status"] != "degraded" {
		t.Fatalf("unexpected degraded response %d %s", rec.Code, rec.Body.String())
	}
}

func TestGetCatalogListsEveryState(t *testing.T) {
	rec := newFixture(nil).do(t, http.MethodGet, "/api/v1/catalog/container-states", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Success bool                  `json:"success"`
		Data    []models.CatalogEntry `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || len(body.Data) != len(models.AllStates()) {
		t.Fatalf("unexpected catalog %+v", body)
	}
}

func TestCreateSignalPassesActorAndAnswersCreated(t *testing.T) {
	f := newFixture(nil)
	rec := f.do(t, http.MethodPost, "/api/v1/signals/", `{"title":"Overflowing bin","category":"waste-container"}`, map[string]string{
		middleware.HeaderUserID:   "citizen-1",
		middleware.HeaderUserRole: "citizen",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	if f.signals.lastActor.ID != "citizen-1" || f.signals.lastActor.Role != models.RoleCitizen {
		t.Fatalf("actor not forwarded: %+v", f.signals.lastActor)
	}
	if decodeBody(t, rec)["success"] != true {
		t.Fatalf("expected success envelope")
	}
}

func TestCreateSignalRejectsUnknownFields(t *testing.T) {
	rec := newFixture(nil).do(t, http.MethodPost, "/api/v1/signals/", `{"title":"x","priority":1}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListSignalsParsesFilter(t *testing.T) {
	f := newFixture(nil)
	rec := f.do(t, http.MethodGet, "/api/v1/signals/?status=in-progress&reporter_id=citizen-1&page=2&limit=5", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if f.signals.lastFilter.Status != models.SignalStatusInProgress || f.signals.lastFilter.ReporterID != "citizen-1" {
		t.Fatalf("unexpected filter %+v", f.signals.lastFilter)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/signals/?status=archived", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rec.Code)
	}
}

func TestSignalRoutesRejectMalformedIDs(t *testing.T) {
	f := newFixture(nil)
	for _, path := range []string{"/api/v1/signals/not-a-uuid", "/api/v1/assignments/42/progress"} {
		rec := f.do(t, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, rec.Code)
		}
	}
}

func TestServiceErrorsMapToStatuses(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"unknown state", &models.UnknownStateError{Kind: "container state", Value: "burning"}, http.StatusBadRequest},
		{"validation", &models.ValidationError{Field: "title", Reason: "required"}, http.StatusBadRequest},
		{"invalid assignment", &models.InvalidAssignmentError{Reason: "no containers"}, http.StatusBadRequest},
		{"not permitted", &models.EditNotPermittedError{SignalID: signalID, Action: "edit"}, http.StatusForbidden},
		{"not found", models.ErrSignalNotFound, http.StatusNotFound},
		{"photo not found", &models.PhotoNotFoundError{PhotoID: "p-1"}, http.StatusNotFound},
		{"transition", &models.InvalidTransitionError{Entity: "signal", From: "resolved", To: "pending"}, http.StatusConflict},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		f := newFixture(nil)
		f.signals.err = tc.err
		rec := f.do(t, http.MethodPut, "/api/v1/signals/"+signalID+"/status", `{"status":"resolved"}`, nil)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
		body := decodeBody(t, rec)
		if body["error"] != http.StatusText(tc.want) {
			t.Fatalf("%s: unexpected error body %v", tc.name, body)
		}
		if tc.want == http.StatusInternalServerError && strings.Contains(rec.Body.String(), "connection reset") {
			t.Fatalf("internal error details leaked")
		}
	}
}

func multipartPhoto(t *testing.T, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("local_key", "local-1"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	part, err := writer.CreateFormFile("file", "bin.jpg")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write(content)
	writer.Close()
	return &buf, writer.FormDataContentType()
}

func TestUploadPhoto(t *testing.T) {
	f := newFixture(nil)
	body, contentType := multipartPhoto(t, []byte("\xff\xd8\xff\xe0 jpeg bytes"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/signals/"+signalID+"/photos", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(middleware.HeaderUserID, "citizen-1")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	payload := f.signals.lastPayload
	if payload.LocalKey != "local-1" || payload.FileName != "bin.jpg" || len(payload.Content) == 0 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestUploadPhotoLimits(t *testing.T) {
	f := newFixture(nil)

	rec := f.do(t, http.MethodPost, "/api/v1/signals/"+signalID+"/photos", `{"file":"x"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-multipart body, got %d", rec.Code)
	}

	body, contentType := multipartPhoto(t, bytes.Repeat([]byte("a"), 4<<10))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/signals/"+signalID+"/photos", body)
	req.Header.Set("Content-Type", contentType)
	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d %s", recorder.Code, recorder.Body.String())
	}
}

func TestListAssignmentsParsesFilter(t *testing.T) {
	f := newFixture(nil)
	rec := f.do(t, http.MethodGet, "/api/v1/assignments/?status=pending&assigned_to=worker-7", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if f.assignments.lastFilter.Status != models.AssignmentStatusPending || f.assignments.lastFilter.AssignedTo != "worker-7" {
		t.Fatalf("unexpected filter %+v", f.assignments.lastFilter)
	}
}

func TestGetAssignmentProgress(t *testing.T) {
	f := newFixture(nil)
	rec := f.do(t, http.MethodGet, "/api/v1/assignments/"+assignmentID+"/progress", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Data models.AssignmentProgress `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.AssignmentID != assignmentID || body.Data.PercentageComplete != 50 {
		t.Fatalf("unexpected progress %+v", body.Data)
	}

	f.progress.err = models.ErrAssignmentNotFound
	if rec := f.do(t, http.MethodGet, "/api/v1/assignments/"+assignmentID+"/progress", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestContainerStates(t *testing.T) {
	f := newFixture(nil)
	rec := f.do(t, http.MethodPut, "/api/v1/containers/c-1/states", `{"states":["overflowing","dirty"]}`, map[string]string{
		middleware.HeaderUserID:   "op-1",
		middleware.HeaderUserRole: "operator",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	if len(f.containers.states) != 2 {
		t.Fatalf("states not forwarded: %v", f.containers.states)
	}

	f.containers.err = models.ErrContainerNotFound
	if rec := f.do(t, http.MethodGet, "/api/v1/containers/c-404/states", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestUnknownRoleRejected(t *testing.T) {
	rec := newFixture(nil).do(t, http.MethodGet, "/api/v1/signals/", "", map[string]string{
		middleware.HeaderUserRole: "mayor",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

