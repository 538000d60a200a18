package agents

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ashbyfield/ward/internal/coordinator"
	"github.com/ashbyfield/ward/pkg/lifecycle"
	"github.com/ashbyfield/ward/workflow"
)

const defaultMaxConcurrentRuns = 16

// Service owns one workflow engine per registered domain profile and runs
// allocations against them. Submitted requests execute asynchronously on a
// bounded run group; every in-flight run is cancellable by request ID.
type Service struct {
	engines map[workflow.Domain]*workflow.Engine
	logger  *slog.Logger

	// OnComplete, when set before Start, is invoked after each
	// asynchronous run reaches a terminal state.
	OnComplete func(req workflow.AllocationRequest, run *workflow.Run)

	mu     sync.Mutex
	active map[uuid.UUID]context.CancelFunc
	base   context.Context
	group  *errgroup.Group
}

// NewService builds an engine for each profile against the shared runtime.
func NewService(cfg workflow.Config, rt workflow.Runtime, logger *slog.Logger, profiles ...workflow.Profile) (*Service, error) {
	if len(profiles) == 0 {
		return nil, fmt.Errorf("at least one domain profile is required")
	}

	engines := make(map[workflow.Domain]*workflow.Engine, len(profiles))
	for _, p := range profiles {
		if _, exists := engines[p.Domain()]; exists {
			return nil, fmt.Errorf("duplicate profile for domain %s", p.Domain())
		}

		engine, err := workflow.New(p, cfg, rt)
		if err != nil {
			return nil, fmt.Errorf("engine for %s: %w", p.Domain(), err)
		}
		engines[p.Domain()] = engine
	}

	return &Service{
		engines: engines,
		logger:  logger.With("system", "agents"),
		active:  make(map[uuid.UUID]context.CancelFunc),
	}, nil
}

// Domains returns the domains this service can allocate for.
func (s *Service) Domains() []workflow.Domain {
	domains := make([]workflow.Domain, 0, len(s.engines))
	for d := range s.engines {
		domains = append(domains, d)
	}
	return domains
}

// Start binds the service to the application lifecycle. Asynchronous runs
// execute on an error group capped at maxConcurrent; shutdown waits for
// in-flight runs after cancelling them.
func (s *Service) Start(lc *lifecycle.Coordinator, maxConcurrent int) {
	if maxConcurrent < 1 {
		maxConcurrent = defaultMaxConcurrentRuns
	}

	group, ctx := errgroup.WithContext(lc.Context())
	group.SetLimit(maxConcurrent)

	s.mu.Lock()
	s.base = ctx
	s.group = group
	s.mu.Unlock()

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		if err := group.Wait(); err != nil {
			s.logger.Error("run group error", "error", err)
		}
		s.logger.Info("agent service stopped")
	})

	s.logger.Info("agent service started", "domains", len(s.engines), "max_concurrent", maxConcurrent)
}

// Execute runs an allocation synchronously to its terminal state.
func (s *Service) Execute(ctx context.Context, req workflow.AllocationRequest) (*workflow.Run, error) {
	engine, ok := s.engines[req.Domain]
	if !ok {
		return nil, fmt.Errorf("no agent registered for domain %s", req.Domain)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.register(req.ID, cancel)
	defer s.unregister(req.ID)

	return engine.Execute(runCtx, req)
}

// Submit schedules an allocation for asynchronous execution. The run's
// terminal outcome reaches the caller through OnComplete and the audit log.
func (s *Service) Submit(req workflow.AllocationRequest) error {
	if _, ok := s.engines[req.Domain]; !ok {
		return fmt.Errorf("no agent registered for domain %s", req.Domain)
	}

	s.mu.Lock()
	group, base := s.group, s.base
	s.mu.Unlock()
	if group == nil {
		return fmt.Errorf("agent service not started")
	}

	group.Go(func() error {
		runCtx, cancel := context.WithCancel(base)
		s.register(req.ID, cancel)
		defer s.unregister(req.ID)

		run, err := s.engines[req.Domain].Execute(runCtx, req)
		if err != nil {
			s.logger.Error("allocation run error", "request_id", req.ID, "error", err)
			return nil
		}
		if s.OnComplete != nil {
			s.OnComplete(req, run)
		}
		return nil
	})
	return nil
}

// Cancel aborts an in-flight run. It reports whether a run was active for
// the request; the cancelled run fails with reason "cancelled" and rolls
// back partial commits on its own.
func (s *Service) Cancel(requestID uuid.UUID) bool {
	s.mu.Lock()
	cancel, ok := s.active[requestID]
	s.mu.Unlock()

	if ok {
		cancel()
		s.logger.Info("allocation run cancelled", "request_id", requestID)
	}
	return ok
}

// Active returns the number of in-flight runs.
func (s *Service) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Inbox returns the coordination handler for a domain: inbound requests
// from peer agents are acknowledged in the activity log. Actionable
// follow-ups become ordinary allocation requests submitted by operators.
func (s *Service) Inbox(domain workflow.Domain) coordinator.HandlerFunc {
	logger := s.logger.With("domain", domain)
	return func(_ context.Context, req workflow.CoordinationRequest) {
		logger.Info(
			"coordination request received",
			"id", req.ID,
			"from", req.From,
			"action", req.Action,
			"detail", req.Detail,
		)
	}
}

func (s *Service) register(requestID uuid.UUID, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[requestID] = cancel
}

func (s *Service) unregister(requestID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, requestID)
}
