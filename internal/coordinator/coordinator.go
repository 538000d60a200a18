// Package coordinator routes cross-agent coordination requests between
// independent workflow engines. Submission is fire-and-acknowledge: the
// ack confirms queuing, never completion, so an issuing engine can always
// proceed to its terminal state with coordination still pending.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ashbyfield/ward/pkg/lifecycle"
	"github.com/ashbyfield/ward/workflow"
)

const defaultQueueSize = 64

// HandlerFunc consumes one inbound coordination request for a domain agent.
type HandlerFunc func(ctx context.Context, req workflow.CoordinationRequest)

// Coordinator implements workflow.Coordinator. Each registered domain gets
// a bounded inbound queue drained by its own dispatch worker.
type Coordinator struct {
	mu          sync.Mutex
	queues      map[workflow.Domain]chan workflow.CoordinationRequest
	handlers    map[workflow.Domain]HandlerFunc
	outstanding map[uuid.UUID]workflow.CoordinationRequest
	logger      *slog.Logger
	queueSize   int
}

// New creates a Coordinator with no registered domains.
func New(logger *slog.Logger) *Coordinator {
	return &Coordinator{
		queues:      make(map[workflow.Domain]chan workflow.CoordinationRequest),
		handlers:    make(map[workflow.Domain]HandlerFunc),
		outstanding: make(map[uuid.UUID]workflow.CoordinationRequest),
		logger:      logger.With("system", "coordinator"),
		queueSize:   defaultQueueSize,
	}
}

// Register attaches a domain agent's inbound handler. Must be called
// before Start; requests targeting unregistered domains are undeliverable.
func (c *Coordinator) Register(domain workflow.Domain, handler HandlerFunc) error {
	if !domain.Valid() {
		return fmt.Errorf("invalid domain: %s", domain)
	}
	if handler == nil {
		return fmt.Errorf("handler is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.queues[domain]; exists {
		return fmt.Errorf("domain already registered: %s", domain)
	}
	c.queues[domain] = make(chan workflow.CoordinationRequest, c.queueSize)
	c.handlers[domain] = handler
	return nil
}

// Submit queues a coordination request for its target domain. It never
// blocks the caller: an unregistered target or a full queue yields an
// undeliverable ack, which issuing workflows log as a warning and ignore.
func (c *Coordinator) Submit(ctx context.Context, req workflow.CoordinationRequest) (workflow.CoordinationAck, error) {
	if err := ctx.Err(); err != nil {
		return workflow.CoordinationAck{RequestID: req.ID, Status: workflow.AckUndeliverable}, err
	}

	c.mu.Lock()
	queue, ok := c.queues[req.To]
	c.mu.Unlock()

	if !ok {
		c.logger.Warn("coordination target unavailable", "to", req.To, "action", req.Action)
		return workflow.CoordinationAck{RequestID: req.ID, Status: workflow.AckUndeliverable}, nil
	}

	select {
	case queue <- req:
		c.track(req)
		c.logger.Info("coordination request queued", "id", req.ID, "from", req.From, "to", req.To, "action", req.Action)
		return workflow.CoordinationAck{RequestID: req.ID, Status: workflow.AckQueued}, nil
	default:
		c.logger.Warn("coordination queue full", "to", req.To, "action", req.Action)
		return workflow.CoordinationAck{RequestID: req.ID, Status: workflow.AckUndeliverable}, nil
	}
}

// Outstanding returns the number of queued requests not yet handled.
func (c *Coordinator) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.outstanding)
}

// Pending returns a snapshot of unhandled requests for observability.
func (c *Coordinator) Pending() []workflow.CoordinationRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	pending := make([]workflow.CoordinationRequest, 0, len(c.outstanding))
	for _, req := range c.outstanding {
		pending = append(pending, req)
	}
	return pending
}

// Start launches one dispatch worker per registered domain, coordinated
// with the application lifecycle: workers drain until shutdown.
func (c *Coordinator) Start(lc *lifecycle.Coordinator) error {
	c.mu.Lock()
	domains := make([]workflow.Domain, 0, len(c.queues))
	for domain := range c.queues {
		domains = append(domains, domain)
	}
	c.mu.Unlock()

	g, ctx := errgroup.WithContext(lc.Context())
	for _, domain := range domains {
		g.Go(func() error {
			c.dispatch(ctx, domain)
			return nil
		})
	}

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		if err := g.Wait(); err != nil {
			c.logger.Error("coordinator dispatch error", "error", err)
		}
		c.logger.Info("coordinator stopped", "outstanding", c.Outstanding())
	})

	c.logger.Info("coordinator started", "domains", len(domains))
	return nil
}

func (c *Coordinator) dispatch(ctx context.Context, domain workflow.Domain) {
	c.mu.Lock()
	queue := c.queues[domain]
	handler := c.handlers[domain]
	c.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-queue:
			handler(ctx, req)
			c.resolve(req.ID)
			c.logger.Info("coordination request handled", "id", req.ID, "to", domain, "action", req.Action)
		}
	}
}

func (c *Coordinator) track(req workflow.CoordinationRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outstanding[req.ID] = req
}

func (c *Coordinator) resolve(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.outstanding, id)
}
