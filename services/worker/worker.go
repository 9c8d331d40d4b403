// Package worker drives the periodic scan, publish and notify cycle.
package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/robfig/cron/v3"

	"pokewatch/stockworker/internal/descriptor"
	"pokewatch/stockworker/internal/detect"
	"pokewatch/stockworker/internal/scan"
	"pokewatch/stockworker/logger"
	errs "pokewatch/stockworker/pkg/errors"
	"pokewatch/stockworker/services/notifier"
	"pokewatch/stockworker/services/publisher"
	"pokewatch/stockworker/services/store"
)

// Runner runs scan batches. Satisfied by *scan.Scanner.
type Runner interface {
	Run(ctx context.Context, targets []scan.Target, limit int) (*scan.BatchResult, error)
	RunDiscovery(ctx context.Context, sellers []string, query string, limit int) (*scan.BatchResult, error)
}

// Worker schedules scans over the monitored catalog and fans results out
// to the publisher and notifier.
type Worker struct {
	store       store.Store
	runner      Runner
	registry    *descriptor.Registry
	pub         publisher.Publisher
	notif       notifier.Notifier
	interval    time.Duration
	concurrency int

	discoveryCron  string
	discoveryQuery string
	cron           *cron.Cron

	log *logger.Logger
}

// Options configures a Worker. Publisher and Notifier may be nil, the
// worker then skips those stages.
type Options struct {
	Store          store.Store
	Runner         Runner
	Registry       *descriptor.Registry
	Publisher      publisher.Publisher
	Notifier       notifier.Notifier
	Interval       time.Duration
	Concurrency    int
	DiscoveryCron  string
	DiscoveryQuery string
	Logger         *logger.Logger
}

// NewWorker creates a new worker
func NewWorker(opts Options) *Worker {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = logger.ForWorker()
	}

	return &Worker{
		store:          opts.Store,
		runner:         opts.Runner,
		registry:       opts.Registry,
		pub:            opts.Publisher,
		notif:          opts.Notifier,
		interval:       opts.Interval,
		concurrency:    opts.Concurrency,
		discoveryCron:  opts.DiscoveryCron,
		discoveryQuery: opts.DiscoveryQuery,
		log:            opts.Logger,
	}
}

// Start runs scan passes until the context is cancelled. The first pass
// starts immediately. A failed pass is logged and retried on the next tick.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.startDiscovery(ctx); err != nil {
		return err
	}
	defer w.stopDiscovery()

	if _, err := w.RunOnce(ctx); err != nil {
		w.log.Error().Err(err).Msg("Scan pass failed")
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.log.Error().Err(err).Msg("Scan pass failed")
			}
		}
	}
}

// RunOnce scans every active item once and fans out the resulting events.
// An unreachable store or a failed batch raises to the caller; an empty
// catalog is just a quiet pass.
func (w *Worker) RunOnce(ctx context.Context) (*scan.BatchResult, error) {
	start := time.Now()

	targets, err := w.loadTargets(ctx)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		w.log.Debug().Msg("No active items to scan")
		return &scan.BatchResult{}, nil
	}

	batch, err := w.runner.Run(ctx, targets, w.concurrency)
	if err != nil {
		return nil, err
	}

	w.publishEvents(ctx, batch.Events)
	w.notifyEvents(ctx, batch.Events)

	if w.pub != nil {
		if err := w.pub.TrimStreams(ctx); err != nil {
			w.log.Error().Err(err).Msg("Failed to trim streams")
		}
	}

	w.log.Info().
		Int("targets", len(targets)).
		Int("events", len(batch.Events)).
		Dur("elapsed", time.Since(start)).
		Msg("Scan pass finished")

	return batch, nil
}

// RunDiscoveryOnce sweeps the sellers' listings for products that are not
// yet monitored, adds them, and announces them.
func (w *Worker) RunDiscoveryOnce(ctx context.Context) (*scan.BatchResult, error) {
	if w.registry == nil {
		return nil, errs.NewConfiguration("discovery needs a seller registry", nil)
	}

	batch, err := w.runner.RunDiscovery(ctx, w.registry.Sellers(), w.discoveryQuery, w.concurrency)
	if err != nil {
		return nil, err
	}

	for i := range batch.Discovered {
		rec := &batch.Discovered[i]
		_, err := w.store.AddItem(ctx, &store.MonitoredItem{
			SKU:      rec.Key,
			SellerID: rec.SellerID,
			Name:     rec.Name,
			URL:      rec.URL,
		})
		if err != nil {
			w.log.Error().Err(err).
				Str("seller", rec.SellerID).
				Str("sku", rec.Key).
				Msg("Failed to add discovered product")
		}
	}

	if w.notif != nil && len(batch.Discovered) > 0 {
		if err := w.notif.NotifyDiscoveries(ctx, batch.Discovered); err != nil {
			w.log.Error().Err(err).Msg("Failed to announce discoveries")
		}
	}

	return batch, nil
}

func (w *Worker) loadTargets(ctx context.Context) ([]scan.Target, error) {
	items, err := w.store.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	targets := make([]scan.Target, 0, len(items))
	for _, item := range items {
		targets = append(targets, scan.Target{
			SKU:      item.SKU,
			SellerID: item.SellerID,
			URL:      item.URL,
			Name:     item.Name,
		})
	}
	return targets, nil
}

func (w *Worker) publishEvents(ctx context.Context, events []detect.ChangeEvent) {
	if w.pub == nil {
		return
	}

	for i := range events {
		event := &events[i]
		data, err := json.Marshal(event)
		if err != nil {
			w.log.Error().Err(err).Str("sku", event.SKU).Msg("Failed to marshal change event")
			continue
		}

		if err := w.pub.Publish(ctx, event.SellerID, data); err != nil {
			pubErr := errs.NewPublisher(event.SellerID, "failed to publish change event", err)
			w.log.Error().Err(pubErr).Str("sku", event.SKU).Msg("Publish failed")
		}
	}
}

func (w *Worker) notifyEvents(ctx context.Context, events []detect.ChangeEvent) {
	if w.notif == nil || len(events) == 0 {
		return
	}
	if err := w.notif.NotifyChanges(ctx, events); err != nil {
		w.log.Error().Err(err).Msg("Failed to send stock alerts")
	}
}

func (w *Worker) startDiscovery(ctx context.Context) error {
	if w.discoveryCron == "" {
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(w.discoveryCron, func() {
		if _, err := w.RunDiscoveryOnce(ctx); err != nil {
			w.log.Error().Err(err).Msg("Discovery pass failed")
		}
	})
	if err != nil {
		return errs.NewConfiguration("invalid discovery cron expression", err)
	}

	c.Start()
	w.cron = c

	w.log.Info().Str("schedule", w.discoveryCron).Msg("Discovery schedule armed")
	return nil
}

func (w *Worker) stopDiscovery() {
	if w.cron != nil {
		w.cron.Stop()
	}
}
