package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/careline/message-dispatch/internal/errortrack"
	"github.com/careline/message-dispatch/internal/model"
	"github.com/careline/message-dispatch/pkg/logger"
	"github.com/careline/message-dispatch/pkg/prom"
)

// Authenticator builds the explicit identities the job runs under.
type Authenticator interface {
	AuthenticateAdmin(ctx context.Context) (context.Context, error)
	AuthenticateForOrganisation(ctx context.Context, organisationID int64) (context.Context, error)
}

type OrganisationConfigRepository interface {
	FindAllWithMessagingEnabled(ctx context.Context) ([]*model.OrganisationConfig, error)
}

// Sender drains one tenant's due requests.
type Sender interface {
	SendMessages(ctx context.Context) error
}

// Dispatcher is the periodic dispatch job. Each tick it walks every tenant
// with messaging enabled, switches to that tenant's system user and drains
// its due requests. A tenant failure is reported and swallowed so the
// remaining tenants still run.
type Dispatcher struct {
	auth      Authenticator
	orgRepo   OrganisationConfigRepository
	sender    Sender
	errorSink errortrack.Sink
	interval  time.Duration
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewDispatcher(auth Authenticator, orgRepo OrganisationConfigRepository, sender Sender, errorSink errortrack.Sink, interval time.Duration) *Dispatcher {
	if interval <= 0 {
		interval = time.Minute
	}
	if errorSink == nil {
		errorSink = errortrack.Noop{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		auth:      auth,
		orgRepo:   orgRepo,
		sender:    sender,
		errorSink: errorSink,
		interval:  interval,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
	logger.Info("Dispatch job started", "interval", d.interval)
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.Tick(d.ctx)
		}
	}
}

// Tick runs one dispatch cycle across all tenants.
func (d *Dispatcher) Tick(ctx context.Context) {
	started := time.Now()
	defer func() {
		prom.ObserveTickDuration(time.Since(started).Seconds())
	}()

	adminCtx, err := d.auth.AuthenticateAdmin(ctx)
	if err != nil {
		logger.Error("Dispatch tick aborted, admin authentication failed", "error", err)
		d.errorSink.Notify(ctx, err)
		return
	}

	organisations, err := d.orgRepo.FindAllWithMessagingEnabled(adminCtx)
	if err != nil {
		logger.Error("Dispatch tick aborted, failed to list organisations", "error", err)
		d.errorSink.Notify(ctx, err)
		return
	}

	for _, org := range organisations {
		d.dispatchOrganisation(adminCtx, org)

		// Re-establish the admin identity between tenants so one
		// tenant's context never leaks into the next.
		adminCtx, err = d.auth.AuthenticateAdmin(ctx)
		if err != nil {
			logger.Error("Dispatch tick aborted, admin re-authentication failed", "error", err)
			d.errorSink.Notify(ctx, err)
			return
		}
	}
}

func (d *Dispatcher) dispatchOrganisation(ctx context.Context, org *model.OrganisationConfig) {
	tenantCtx, err := d.auth.AuthenticateForOrganisation(ctx, org.OrganisationID)
	if err != nil {
		logger.Error("Skipping organisation, authentication failed",
			"error", err, "organisation_id", org.OrganisationID)
		d.errorSink.Notify(ctx, err)
		return
	}

	if err := d.sender.SendMessages(tenantCtx); err != nil {
		logger.Error("Failed to dispatch messages for organisation",
			"error", err, "organisation_id", org.OrganisationID, "organisation", org.OrganisationName)
		d.errorSink.Notify(ctx, err)
	}
}

// Stop halts the ticker and waits for an in-flight tick to finish.
func (d *Dispatcher) Stop() {
	d.cancel()
	d.wg.Wait()
	logger.Info("Dispatch job stopped")
}
