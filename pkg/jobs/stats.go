package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/platinummonkey/civicbase/pkg/crud"
	"github.com/platinummonkey/civicbase/pkg/observability"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

// DefaultSchedule refreshes the statistics every five minutes.
const DefaultSchedule = "*/5 * * * *"

// DefaultWorkers bounds the number of concurrent count queries.
const DefaultWorkers = 4

// StatusCounter reports the number of user accounts per status.
type StatusCounter interface {
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// StatsCollector periodically publishes record counts and pool statistics
// as Prometheus gauges.
type StatsCollector struct {
	db       *sql.DB
	descs    []*crud.Descriptor
	statuses StatusCounter
	metrics  *observability.Metrics
	log      *observability.Logger
	workers  int
	timeout  time.Duration
	now      func() time.Time

	mu     sync.Mutex
	cron   *cron.Cron
	passes sync.WaitGroup
}

// NewStatsCollector creates a collector counting the rows of every
// collection in descs. statuses may be nil.
func NewStatsCollector(db *sql.DB, descs []*crud.Descriptor, statuses StatusCounter, metrics *observability.Metrics, log *observability.Logger) *StatsCollector {
	return &StatsCollector{
		db:       db,
		descs:    descs,
		statuses: statuses,
		metrics:  metrics,
		log:      log,
		workers:  DefaultWorkers,
		timeout:  time.Minute,
		now:      time.Now,
	}
}

// Collect runs one collection pass. Gauges of collections that could not
// be counted keep their previous value.
func (c *StatsCollector) Collect(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = observability.MustRecover(r)
		}
	}()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.workers)

	var (
		mu     sync.Mutex
		failed []error
	)
	for _, desc := range c.descs {
		collection := desc.Collection
		eg.Go(func() error {
			n, err := c.count(egCtx, collection)
			if err != nil {
				mu.Lock()
				failed = append(failed, err)
				mu.Unlock()
				return nil
			}
			c.metrics.RecordsTotal.WithLabelValues(collection).Set(float64(n))
			return nil
		})
	}
	if c.statuses != nil {
		eg.Go(func() error {
			counts, err := c.statuses.CountByStatus(egCtx)
			if err != nil {
				mu.Lock()
				failed = append(failed, err)
				mu.Unlock()
				return nil
			}
			c.metrics.UsersByStatus.Reset()
			for status, n := range counts {
				c.metrics.UsersByStatus.WithLabelValues(status).Set(float64(n))
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	c.metrics.RecordDBStats(c.db.Stats())
	c.metrics.StatsLastRun.Set(float64(c.now().Unix()))
	return errors.Join(failed...)
}

func (c *StatsCollector) count(ctx context.Context, collection string) (int64, error) {
	var n int64
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+collection).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

// Start schedules Collect on a cron expression and runs a first pass
// immediately.
func (c *StatsCollector) Start(schedule string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return errors.New("stats collector already started")
	}

	sched := cron.New()
	if _, err := sched.AddFunc(schedule, c.run); err != nil {
		return fmt.Errorf("invalid stats schedule %q: %w", schedule, err)
	}
	sched.Start()
	c.cron = sched

	c.passes.Add(1)
	go func() {
		defer c.passes.Done()
		c.run()
	}()
	return nil
}

// Stop stops the schedule and waits, until ctx expires, for every running
// pass, the first one included.
func (c *StatsCollector) Stop(ctx context.Context) error {
	c.mu.Lock()
	sched := c.cron
	c.cron = nil
	c.mu.Unlock()
	if sched == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		<-sched.Stop().Done()
		c.passes.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *StatsCollector) run() {
	defer observability.RecoverPanic(c.log, "stats collector")

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	start := c.now()
	if err := c.Collect(ctx); err != nil {
		c.log.WithError(err).Warn("stats collection incomplete")
		return
	}
	c.log.WithField("duration_ms", c.now().Sub(start).Milliseconds()).Debug("stats collected")
}
