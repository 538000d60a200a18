package api

import (
	"context"
	"fmt"
	"time"

	"github.com/ashbyfield/ward/internal/agents"
	"github.com/ashbyfield/ward/internal/config"
	"github.com/ashbyfield/ward/internal/coordinator"
	"github.com/ashbyfield/ward/internal/notify"
	"github.com/ashbyfield/ward/internal/requests"
	"github.com/ashbyfield/ward/internal/resources"
	"github.com/ashbyfield/ward/internal/review"
	"github.com/ashbyfield/ward/internal/runs"
	"github.com/ashbyfield/ward/workflow"
)

const resolveTimeout = 10 * time.Second

// Domain holds all domain systems that comprise the API: the persistence
// systems, the domain agents, and the coordinator that links them.
type Domain struct {
	Resources   resources.System
	Requests    requests.System
	Runs        runs.System
	Agents      *agents.Service
	Coordinator *coordinator.Coordinator

	maxConcurrentRuns int
}

// NewDomain creates all domain systems from the API runtime and wires the
// three domain agents to a shared engine runtime.
func NewDomain(cfg *config.Config, runtime *Runtime) (*Domain, error) {
	db := runtime.Database.Connection()
	logger := runtime.Logger

	resourcesSys := resources.New(db, logger, runtime.Pagination)
	requestsSys := requests.New(db, logger, runtime.Pagination)
	runsSys := runs.New(db, logger, runtime.Pagination)

	coord := coordinator.New(logger)

	rt := workflow.Runtime{
		Resources:   resourcesSys,
		Reviewer:    review.NewAutoApprover(logger),
		Notifier:    notify.NewLog(logger),
		Auditor:     runsSys,
		Coordinator: coord,
		Logger:      logger,
	}

	profiles, err := loadProfiles(cfg.Agents.PolicyDir)
	if err != nil {
		return nil, err
	}

	svc, err := agents.NewService(cfg.Engine, rt, logger, profiles...)
	if err != nil {
		return nil, fmt.Errorf("agent service: %w", err)
	}

	// Each terminal run resolves its originating request record.
	svc.OnComplete = func(req workflow.AllocationRequest, run *workflow.Run) {
		ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
		defer cancel()

		if _, err := requestsSys.Resolve(ctx, req.ID, requestStatus(run), run.FailureReason); err != nil {
			logger.Error("request resolve failed", "request_id", req.ID, "error", err)
		}
	}

	for _, domain := range svc.Domains() {
		if err := coord.Register(domain, svc.Inbox(domain)); err != nil {
			return nil, fmt.Errorf("register %s inbox: %w", domain, err)
		}
	}

	return &Domain{
		Resources:         resourcesSys,
		Requests:          requestsSys,
		Runs:              runsSys,
		Agents:            svc,
		Coordinator:       coord,
		maxConcurrentRuns: cfg.Agents.MaxConcurrentRuns,
	}, nil
}

// Start binds the agent service and coordinator to the application lifecycle.
func (d *Domain) Start(runtime *Runtime) error {
	d.Agents.Start(runtime.Lifecycle, d.maxConcurrentRuns)
	return d.Coordinator.Start(runtime.Lifecycle)
}

func loadProfiles(policyDir string) ([]workflow.Profile, error) {
	build := []struct {
		domain workflow.Domain
		make   func(agents.Policy) workflow.Profile
	}{
		{workflow.DomainBed, agents.NewBedProfile},
		{workflow.DomainStaff, agents.NewStaffProfile},
		{workflow.DomainSupply, agents.NewSupplyProfile},
	}

	profiles := make([]workflow.Profile, 0, len(build))
	for _, b := range build {
		policy, err := agents.LoadPolicy(policyDir, b.domain)
		if err != nil {
			return nil, fmt.Errorf("%s policy: %w", b.domain, err)
		}
		profiles = append(profiles, b.make(policy))
	}
	return profiles, nil
}

func requestStatus(run *workflow.Run) string {
	switch {
	case run.Status == workflow.RunCompleted:
		return requests.StatusCompleted
	case run.FailureReason == "cancelled":
		return requests.StatusCancelled
	default:
		return requests.StatusFailed
	}
}
