package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/careline/message-dispatch/internal/config"
	"github.com/careline/message-dispatch/internal/model"
	"github.com/careline/message-dispatch/internal/queue"
	"github.com/careline/message-dispatch/pkg/logger"
	"github.com/careline/message-dispatch/pkg/prom"
	"github.com/careline/message-dispatch/pkg/redis"
	"github.com/careline/message-dispatch/pkg/worker"
)

const ProcessingTimeout = 30 * time.Second
const HealthInterval = 30 * time.Second
const ShutdownTimeout = time.Minute

// Authenticator establishes a tenant identity for event handling.
type Authenticator interface {
	AuthenticateForOrganisation(ctx context.Context, organisationID int64) (context.Context, error)
}

// MessagingHooks is the slice of the messaging service the event pipeline
// drives.
type MessagingHooks interface {
	OnEntitySave(ctx context.Context, entityID, entityTypeID int64, entityType model.EntityType, subjectID, userID int64) error
	OnEntityDelete(ctx context.Context, entityID int64, entityType model.EntityType, receiverID int64) error
}

// Processor consumes entity lifecycle events from the redis stream and
// drives the messaging hooks. Events fan out over a worker pool; each event
// is acknowledged only after its hook ran, so a crash replays it.
type Processor struct {
	adapter   redis.RedisAdapter
	queue     *queue.Queue
	auth      Authenticator
	messaging MessagingHooks
	worker    *worker.WorkerManager
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewProcessor(adapter redis.RedisAdapter, auth Authenticator, messaging MessagingHooks) *Processor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Processor{
		adapter:   adapter,
		auth:      auth,
		messaging: messaging,
		worker:    worker.NewWorkerManager(1000, 10, nil),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (p *Processor) Start() error {
	logger.Info("Starting entity event processor...")

	p.worker.SetWorker(p.workerHandler)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.worker.Start(); err != nil {
			logger.Error("Worker manager stopped", "error", err)
		}
	}()

	q, err := queue.New(p.adapter, queue.Config{
		Name:              config.Get().EventStreamName,
		ConsumerGroup:     config.Get().EventConsumerGroup,
		ConsumerName:      config.Get().EventConsumerName,
		MaxRetries:        config.Get().EventMaxRetries,
		VisibilityTimeout: config.Get().EventVisibilityTimeout,
		PollInterval:      config.Get().EventPollInterval,
		BatchSize:         config.Get().EventBatchSize,
		MaxLen:            config.Get().EventMaxLen,
		EnableDLQ:         config.Get().EventEnableDLQ,
	})
	if err != nil {
		return fmt.Errorf("failed to create event queue: %w", err)
	}
	p.queue = q

	if err := q.Consume(p.messageHandler); err != nil {
		return fmt.Errorf("failed to start event consumer: %w", err)
	}

	p.wg.Add(1)
	go p.healthChecker()

	logger.Info("Entity event processor started", "stream", config.Get().EventStreamName)
	return nil
}

type job struct {
	msg        *queue.Message
	resultChan chan error
	ctx        context.Context
}

// messageHandler bridges the queue to the worker pool, blocking until the
// event is processed so the queue's ack decision follows the real outcome.
func (p *Processor) messageHandler(ctx context.Context, msg *queue.Message) error {
	resultChan := make(chan error, 1)

	msgCtx, cancel := context.WithTimeout(ctx, ProcessingTimeout)
	defer cancel()

	p.worker.Enqueue(&job{msg: msg, resultChan: resultChan, ctx: msgCtx})

	select {
	case err := <-resultChan:
		return err
	case <-msgCtx.Done():
		return fmt.Errorf("timeout waiting for worker to process event: %w", msgCtx.Err())
	}
}

func (p *Processor) workerHandler(workerIndex int, j interface{}) {
	jb, ok := j.(*job)
	if !ok {
		return
	}
	jb.resultChan <- p.process(jb.ctx, jb.msg)
}

// process decodes and dispatches one event. Malformed payloads are
// acknowledged (returning nil), a redelivery cannot fix them; transient
// service failures are returned so the event is retried.
func (p *Processor) process(ctx context.Context, msg *queue.Message) error {
	var event model.EntityEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		logger.Error("Dropping malformed entity event", "error", err, "message_id", msg.ID)
		prom.IncEventsProcessed("unknown", "malformed")
		return nil
	}
	if err := event.Validate(); err != nil {
		logger.Error("Dropping invalid entity event", "error", err, "message_id", msg.ID)
		prom.IncEventsProcessed(string(event.Op), "invalid")
		return nil
	}

	tenantCtx, err := p.auth.AuthenticateForOrganisation(ctx, event.OrganisationID)
	if err != nil {
		prom.IncEventsProcessed(string(event.Op), "auth_error")
		return fmt.Errorf("authenticate for organisation %d: %w", event.OrganisationID, err)
	}

	switch event.Op {
	case model.EntityEventSave:
		err = p.messaging.OnEntitySave(tenantCtx, event.EntityID, event.EntityTypeID, event.EntityType, event.SubjectID, event.UserID)
	case model.EntityEventDelete:
		err = p.messaging.OnEntityDelete(tenantCtx, event.EntityID, event.EntityType, event.ReceiverID)
	}
	if err != nil {
		prom.IncEventsProcessed(string(event.Op), "error")
		return fmt.Errorf("handle %s event for entity %d: %w", event.Op, event.EntityID, err)
	}

	prom.IncEventsProcessed(string(event.Op), "ok")
	return nil
}

func (p *Processor) healthChecker() {
	defer p.wg.Done()

	ticker := time.NewTicker(HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.performHealthCheck()
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Processor) performHealthCheck() {
	if err := p.adapter.Client().Ping(context.Background()).Err(); err != nil {
		logger.Error("HEALTH CHECK FAILED: Redis connection error", "error", err)
		return
	}

	if stats, err := p.queue.GetStats(); err == nil {
		if stats.PendingMessages > 10000 {
			logger.Warn("HEALTH CHECK WARNING: event stream has high lag", "pending_messages", stats.PendingMessages)
		}
	}
}

// Stop drains in-flight events and shuts the consumer down.
func (p *Processor) Stop() {
	logger.Info("Shutting down entity event processor...")

	p.cancel()

	if p.queue != nil {
		if err := p.queue.Stop(ShutdownTimeout); err != nil {
			logger.Error("Error stopping event queue", "error", err)
		}
	}

	p.worker.Exit()
	p.wg.Wait()

	logger.Info("Entity event processor stopped")
}
