package relay

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// Pruner is the slice of MailerService the cleaner drives.
type Pruner interface {
	PruneFinalized(ctx context.Context, retention time.Duration) (int64, error)
}

type CleanerOptions struct {
	Enabled   bool
	Interval  time.Duration
	Retention time.Duration

	Logger *logrus.Entry
}

func (o *CleanerOptions) setDefaults() {
	if o.Interval == 0 {
		o.Interval = time.Hour
	}
	if o.Retention == 0 {
		o.Retention = 30 * 24 * time.Hour
	}
	if o.Logger == nil {
		o.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
}

// Cleaner periodically removes finalized messages past retention so the
// outbox table does not grow without bound.
type Cleaner struct {
	pruner Pruner
	opts   CleanerOptions
	m      *metrics
}

func NewCleaner(pruner Pruner, opts CleanerOptions) (*Cleaner, error) {
	if pruner == nil {
		return nil, errors.New("cleaner: pruner is required")
	}
	opts.setDefaults()
	return &Cleaner{pruner: pruner, opts: opts, m: getMetrics()}, nil
}

func (c *Cleaner) Run(ctx context.Context) error {
	if !c.opts.Enabled {
		return nil
	}

	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		removed, err := c.pruner.PruneFinalized(ctx, c.opts.Retention)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			c.opts.Logger.WithError(err).Warn("outbox: cleaner tick failed")
			continue
		}
		if removed > 0 {
			c.m.prunedTotal.Add(float64(removed))
			c.opts.Logger.WithField("removed", removed).Info("outbox: pruned finalized messages")
		}
	}
}
