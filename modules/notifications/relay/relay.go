package relay

import (
	"context"
	"errors"
	"hash/fnv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/sampledesk/sampledesk/modules/notifications/domain/message"
)

// Mailer is the slice of MailerService the relay drives.
type Mailer interface {
	RetryPending(ctx context.Context, limit int) (int, error)
	ReclaimStale(ctx context.Context, olderThan time.Duration) (int64, error)
	CountByStatus(ctx context.Context, status string) (int64, error)
}

type Options struct {
	PollInterval time.Duration
	BatchSize    int
	SingleActive bool

	// StaleAfter bounds how long a message may sit in retrying before the
	// relay treats its attempt as abandoned and reclaims it.
	StaleAfter time.Duration

	ObserveQueueDepthEvery time.Duration

	Logger *logrus.Entry
}

func (o *Options) setDefaults() {
	if o.PollInterval == 0 {
		o.PollInterval = 5 * time.Second
	}
	if o.BatchSize == 0 {
		o.BatchSize = 50
	}
	if o.StaleAfter == 0 {
		o.StaleAfter = 5 * time.Minute
	}
	if o.ObserveQueueDepthEvery == 0 {
		o.ObserveQueueDepthEvery = 10 * time.Second
	}
	if o.Logger == nil {
		o.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
}

// Relay drives the outbox drain loop on an interval. In single-active mode a
// Postgres advisory lock elects one leader across replicas; followers poll
// for the lock and take over when the leader's connection drops.
type Relay struct {
	pool    *pgxpool.Pool
	mailer  Mailer
	opts    Options
	m       *metrics
	lockKey int64
}

func New(pool *pgxpool.Pool, mailer Mailer, opts Options) (*Relay, error) {
	if mailer == nil {
		return nil, errors.New("relay: mailer is required")
	}
	if opts.SingleActive && pool == nil {
		return nil, errors.New("relay: single-active mode requires a pool")
	}
	opts.setDefaults()
	return &Relay{
		pool:    pool,
		mailer:  mailer,
		opts:    opts,
		m:       getMetrics(),
		lockKey: advisoryLockKey("outbox:messages"),
	}, nil
}

func (r *Relay) Run(ctx context.Context) error {
	if r.opts.SingleActive {
		return r.runSingleActive(ctx)
	}
	r.m.leader.Set(1)
	return r.runLoop(ctx)
}

func (r *Relay) runSingleActive(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conn, err := r.pool.Acquire(ctx)
		if err != nil {
			r.opts.Logger.WithError(err).Warn("outbox: failed to acquire connection for single-active relay")
			if err := r.sleep(ctx); err != nil {
				return err
			}
			continue
		}

		var leader bool
		if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1::bigint)`, r.lockKey).Scan(&leader); err != nil {
			conn.Release()
			r.opts.Logger.WithError(err).Warn("outbox: failed to attempt advisory lock")
			if err := r.sleep(ctx); err != nil {
				return err
			}
			continue
		}

		if !leader {
			r.m.leader.Set(0)
			conn.Release()
			if err := r.sleep(ctx); err != nil {
				return err
			}
			continue
		}

		r.m.leader.Set(1)
		r.opts.Logger.Info("outbox: relay became leader")

		err = r.runLoop(ctx)
		var released bool
		_ = conn.QueryRow(context.Background(), `SELECT pg_advisory_unlock($1::bigint)`, r.lockKey).Scan(&released)
		conn.Release()
		return err
	}
}

func (r *Relay) runLoop(ctx context.Context) error {
	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	nextDepthAt := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if time.Now().After(nextDepthAt) {
			r.observeQueueDepth(ctx)
			nextDepthAt = time.Now().Add(r.opts.ObserveQueueDepthEvery)
		}

		if reclaimed, err := r.mailer.ReclaimStale(ctx, r.opts.StaleAfter); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			r.opts.Logger.WithError(err).Warn("outbox: stale reclaim failed")
		} else if reclaimed > 0 {
			r.m.reclaimedTotal.Add(float64(reclaimed))
			r.opts.Logger.WithField("count", reclaimed).Warn("outbox: reclaimed messages stranded in retrying")
		}

		start := time.Now()
		sent, err := r.mailer.RetryPending(ctx, r.opts.BatchSize)
		r.m.drainLatency.Observe(time.Since(start).Seconds())
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			r.m.drainTotal.WithLabelValues("failure").Inc()
			r.opts.Logger.WithError(err).Warn("outbox: drain tick failed")
			continue
		}
		r.m.drainTotal.WithLabelValues("success").Inc()
		r.m.sentTotal.Add(float64(sent))
	}
}

func (r *Relay) observeQueueDepth(ctx context.Context) {
	pending, err := r.mailer.CountByStatus(ctx, message.StatusPending)
	if err != nil {
		r.opts.Logger.WithError(err).Debug("outbox: observe queue depth failed")
		return
	}
	failed, err := r.mailer.CountByStatus(ctx, message.StatusFailed)
	if err != nil {
		r.opts.Logger.WithError(err).Debug("outbox: observe queue depth failed")
		return
	}
	r.m.pending.Set(float64(pending))
	r.m.failed.Set(float64(failed))
}

func (r *Relay) sleep(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(r.opts.PollInterval):
		return nil
	}
}

func advisoryLockKey(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}
