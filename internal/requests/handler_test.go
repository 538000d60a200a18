package requests

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ashbyfield/ward/pkg/pagination"
	"github.com/ashbyfield/ward/workflow"
)

// fakeSystem is an in-memory System for handler tests.
type fakeSystem struct {
	mu   sync.Mutex
	rows map[uuid.UUID]Request
}

func newFakeSystem(rows ...Request) *fakeSystem {
	s := &fakeSystem{rows: make(map[uuid.UUID]Request, len(rows))}
	for _, r := range rows {
		s.rows[r.ID] = r
	}
	return s
}

func (s *fakeSystem) List(context.Context, pagination.PageRequest, Filters) (*pagination.PageResult[Request], error) {
	result := pagination.NewPageResult([]Request{}, 0, 1, 10)
	return &result, nil
}

func (s *fakeSystem) Find(_ context.Context, id uuid.UUID) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &row, nil
}

func (s *fakeSystem) Create(_ context.Context, cmd SubmitCommand) (*Request, error) {
	row := Request{
		ID:          uuid.New(),
		Domain:      cmd.Domain,
		Urgency:     cmd.Urgency,
		Subject:     cmd.Subject,
		Status:      StatusQueued,
		SubmittedAt: time.Now(),
	}

	s.mu.Lock()
	s.rows[row.ID] = row
	s.mu.Unlock()
	return &row, nil
}

func (s *fakeSystem) Resolve(_ context.Context, id uuid.UUID, status, reason string) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	row.Status = status
	row.FailureReason = reason
	s.rows[id] = row
	return &row, nil
}

func (s *fakeSystem) ResolveQueued(_ context.Context, id uuid.UUID, status, reason string) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	if row.Status != StatusQueued {
		return &row, nil
	}
	row.Status = status
	row.FailureReason = reason
	s.rows[id] = row
	return &row, nil
}

func (s *fakeSystem) status(id uuid.UUID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[id].Status
}

// fakeDispatcher scripts the agent service's cancel outcome. onCancel runs
// before the result is returned, mirroring state changes that land while
// the cancel attempt is in flight.
type fakeDispatcher struct {
	cancelResult bool
	onCancel     func()
}

func (d *fakeDispatcher) Submit(workflow.AllocationRequest) error { return nil }

func (d *fakeDispatcher) Cancel(uuid.UUID) bool {
	if d.onCancel != nil {
		d.onCancel()
	}
	return d.cancelResult
}

func queuedRequest() Request {
	return Request{
		ID:          uuid.New(),
		Domain:      workflow.DomainBed,
		Urgency:     workflow.UrgencyRoutine,
		Subject:     "patient-1",
		Status:      StatusQueued,
		SubmittedAt: time.Now(),
	}
}

func cancelRequest(t *testing.T, h *Handler, id uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/requests/"+id.String()+"/cancel", nil)
	req.SetPathValue("id", id.String())

	rec := httptest.NewRecorder()
	h.Cancel(rec, req)
	return rec
}

func testHandler(sys System, dispatcher Dispatcher) *Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(sys, dispatcher, logger, pagination.Config{DefaultPageSize: 10, MaxPageSize: 100})
}

func TestCancelQueuedRequestResolvesCancelled(t *testing.T) {
	row := queuedRequest()
	sys := newFakeSystem(row)
	h := testHandler(sys, &fakeDispatcher{cancelResult: false})

	rec := cancelRequest(t, h, row.ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := sys.status(row.ID); got != StatusCancelled {
		t.Errorf("request status = %s, want %s", got, StatusCancelled)
	}
}

func TestCancelKeepsRunOutcomeWhenRunFinishesFirst(t *testing.T) {
	// The run reaches a terminal state between the handler's active check
	// and the dispatcher's cancel attempt. The completion hook's outcome
	// must stand: a request with committed assignments can never end up
	// marked cancelled.
	row := queuedRequest()
	sys := newFakeSystem(row)

	dispatcher := &fakeDispatcher{
		cancelResult: false,
		onCancel: func() {
			if _, err := sys.Resolve(context.Background(), row.ID, StatusCompleted, ""); err != nil {
				t.Errorf("Resolve: %v", err)
			}
		},
	}

	h := testHandler(sys, dispatcher)
	rec := cancelRequest(t, h, row.ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body Request
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Status != StatusCompleted {
		t.Errorf("response status = %s, want %s", body.Status, StatusCompleted)
	}
	if got := sys.status(row.ID); got != StatusCompleted {
		t.Errorf("request status = %s, want %s", got, StatusCompleted)
	}
}

func TestCancelInFlightRunDelegatesToDispatcher(t *testing.T) {
	row := queuedRequest()
	sys := newFakeSystem(row)
	h := testHandler(sys, &fakeDispatcher{cancelResult: true})

	rec := cancelRequest(t, h, row.ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	// The engine owns resolution of an in-flight run; the handler must not
	// resolve the row itself.
	if got := sys.status(row.ID); got != StatusQueued {
		t.Errorf("request status = %s, want %s", got, StatusQueued)
	}
}

func TestCancelTerminalRequestConflicts(t *testing.T) {
	row := queuedRequest()
	row.Status = StatusCompleted
	sys := newFakeSystem(row)
	h := testHandler(sys, &fakeDispatcher{cancelResult: false})

	rec := cancelRequest(t, h, row.ID)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}
