package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/studyhall-app/studyhall/internal/services"
	"github.com/studyhall-app/studyhall/pkg/logger"
)

const defaultSweepSpec = "@hourly"

// Cleaner coordinates background maintenance: deactivating expired invite
// codes and pruning attachment rows whose backing file has disappeared.
type Cleaner struct {
	invites     *services.InviteService
	attachments *services.AttachmentService
	cron        *cron.Cron
	now         func() time.Time
	log         *zap.Logger
	enabled     bool

	sweepSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for scheduling comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithSweepSchedule overrides the cron specification for the maintenance sweep.
func WithSweepSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.sweepSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency
// results in the corresponding cleanup job being skipped.
func NewCleaner(invites *services.InviteService, attachments *services.AttachmentService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		invites:       invites,
		attachments:   attachments,
		now:           time.Now,
		sweepSchedule: defaultSweepSpec,
		log:           logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	cleaner.enabled = cleaner.invites != nil || cleaner.attachments != nil

	return cleaner
}

// Start registers the sweep with the cron scheduler and launches it if at
// least one cleanup is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled {
		return nil
	}

	if _, err := c.cron.AddFunc(c.sweepSchedule, func() {
		if err := c.RunOnce(context.Background()); err != nil {
			c.log.Warn("maintenance sweep failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily
// used in tests and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.invites != nil {
		deactivated, err := c.invites.DeactivateExpired(ctx)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else if deactivated > 0 {
			c.log.Info("deactivated expired invites", zap.Int64("count", deactivated))
		}
	}

	if c.attachments != nil {
		pruned, err := c.attachments.PruneOrphans(ctx)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else if pruned > 0 {
			c.log.Info("pruned orphaned attachments", zap.Int64("count", pruned))
		}
	}

	return errs
}
