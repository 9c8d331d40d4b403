package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pokewatch/stockworker/internal/descriptor"
	"pokewatch/stockworker/internal/detect"
	"pokewatch/stockworker/internal/extract"
	"pokewatch/stockworker/internal/fetch"
	"pokewatch/stockworker/logger"
	errs "pokewatch/stockworker/pkg/errors"
)

var (
	// ErrNoTargets is returned by Run when there is nothing to scan.
	ErrNoTargets = errors.New("no targets to scan")

	// ErrNoSellers is returned by RunDiscovery when no sellers are given.
	ErrNoSellers = errors.New("no sellers to sweep")
)

// FetchFunc retrieves one URL for a seller. The default implementation
// goes through the fetch pool.
type FetchFunc func(ctx context.Context, d descriptor.StoreDescriptor, url string) *fetch.Result

// Scanner runs scan batches over monitored targets with bounded
// concurrency.
type Scanner struct {
	registry  *descriptor.Registry
	pool      *fetch.Pool
	detector  *detect.Detector
	pacing    time.Duration
	budget    int
	log       *logger.Logger
	fetchFunc FetchFunc
}

// ScannerOption customizes a Scanner.
type ScannerOption func(*Scanner)

// WithPacing sets the delay a worker slot is held after each unit.
func WithPacing(d time.Duration) ScannerOption {
	return func(s *Scanner) { s.pacing = d }
}

// WithAttemptBudget sets the fetch attempt budget per unit.
func WithAttemptBudget(n int) ScannerOption {
	return func(s *Scanner) { s.budget = n }
}

// WithFetchFunc replaces page fetching, for tests.
func WithFetchFunc(fn FetchFunc) ScannerOption {
	return func(s *Scanner) { s.fetchFunc = fn }
}

// NewScanner creates a scanner over the given registry, fetch pool and
// detector.
func NewScanner(registry *descriptor.Registry, pool *fetch.Pool, detector *detect.Detector, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		registry: registry,
		pool:     pool,
		detector: detector,
		budget:   3,
		log:      logger.ForScanner(),
	}
	if pool != nil {
		s.budget = pool.Retries()
	}
	s.fetchFunc = s.poolFetch

	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scanner) poolFetch(ctx context.Context, d descriptor.StoreDescriptor, url string) *fetch.Result {
	return s.pool.ClientFor(d).Fetch(ctx, url, s.budget)
}

// Run scans the targets with at most limit units in flight. Every target
// produces exactly one outcome, unit failures never cut a batch short.
// Only caller mistakes raise an error: an empty target set or a scanner
// built without its registry or detector.
func (s *Scanner) Run(ctx context.Context, targets []Target, limit int) (*BatchResult, error) {
	if s.registry == nil || s.detector == nil {
		return nil, errs.NewConfiguration("scanner needs a registry and a detector", nil)
	}
	targets = dedupe(targets)
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}
	if limit < 1 {
		limit = 1
	}

	started := time.Now()
	batch := &BatchResult{Started: started}
	sem := make(chan struct{}, limit)
	results := make(chan UnitResult, len(targets))

	var wg sync.WaitGroup
	for _, target := range targets {
		wg.Add(1)
		go func(t Target) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results <- s.runUnit(ctx, t)

			// pacing holds the slot so the next unit starts later
			if s.pacing > 0 {
				pause := time.NewTimer(s.pacing)
				select {
				case <-ctx.Done():
					pause.Stop()
				case <-pause.C:
				}
			}
		}(target)
	}

	wg.Wait()
	close(results)

	for result := range results {
		batch.Outcomes = append(batch.Outcomes, result)
		if result.Event != nil {
			batch.Events = append(batch.Events, *result.Event)
		}
	}
	batch.Elapsed = time.Since(started)

	s.log.Info().
		Int("targets", len(targets)).
		Int("events", len(batch.Events)).
		Dur("elapsed", batch.Elapsed).
		Msg("Scan batch complete")
	return batch, nil
}

// runUnit walks one target through fetch, extract and detect. It always
// returns an outcome, panics surface as unit errors.
func (s *Scanner) runUnit(ctx context.Context, t Target) (result UnitResult) {
	began := time.Now()
	result = UnitResult{Target: t, State: StatePending}
	defer func() {
		if r := recover(); r != nil {
			result.Kind = OutcomeUnitError
			result.Detail = fmt.Sprintf("panic: %v", r)
		}
		result.Duration = time.Since(began)
	}()

	if ctx.Err() != nil {
		result.Kind = OutcomeCancelled
		result.Detail = "batch cancelled before fetch"
		return result
	}

	desc, err := s.registry.Resolve(t.SellerID)
	if err != nil {
		result.Kind = OutcomeUnitError
		result.Detail = err.Error()
		return result
	}

	url := unitURL(t, desc)
	if url == "" {
		result.Kind = OutcomeUnitError
		result.Detail = "no URL for target"
		return result
	}

	result.State = StateFetching
	fetched := s.fetchFunc(ctx, desc, url)
	if !fetched.OK() {
		if ctx.Err() != nil {
			result.Kind = OutcomeCancelled
			result.Detail = "batch cancelled during fetch"
			return result
		}
		result.State = StateFetchFailed
		result.Kind = OutcomeFetchFailed
		result.FailureKind = fetched.Failure.Kind
		result.Detail = fetched.Failure.Error()
		return result
	}
	result.State = StateFetched

	if ctx.Err() != nil {
		result.Kind = OutcomeCancelled
		result.Detail = "batch cancelled after fetch"
		return result
	}

	result.State = StateExtracting
	records := extract.Extract(fetched.Content, desc)
	if len(records) == 0 {
		result.State = StateExtractionEmpty
		result.Kind = OutcomeExtractionEmpty
		return result
	}
	result.State = StateExtracted

	record, ok := matchTarget(records, t, fetched.FinalURL)
	if !ok {
		result.State = StateExtractionEmpty
		result.Kind = OutcomeExtractionEmpty
		result.Detail = "no record matched the target"
		return result
	}

	// a cancelled unit must not persist a partial observation
	if ctx.Err() != nil {
		result.Kind = OutcomeCancelled
		result.Detail = "batch cancelled before detection"
		return result
	}

	result.State = StateDetecting
	event, err := s.detector.Detect(ctx, record)
	if err != nil {
		result.Kind = OutcomeUnitError
		result.Detail = err.Error()
		return result
	}

	result.State = StateDone
	if event != nil {
		result.Kind = OutcomeChanged
		result.Event = event
	} else {
		result.Kind = OutcomeNoChange
	}
	return result
}

// RunDiscovery fetches seller search or feed pages and collects records for
// products never seen before. Known products are left to regular scans.
// Like Run it errors only on caller mistakes.
func (s *Scanner) RunDiscovery(ctx context.Context, sellers []string, query string, limit int) (*BatchResult, error) {
	if s.registry == nil || s.detector == nil {
		return nil, errs.NewConfiguration("scanner needs a registry and a detector", nil)
	}
	if len(sellers) == 0 {
		return nil, ErrNoSellers
	}
	if limit < 1 {
		limit = 1
	}

	started := time.Now()
	batch := &BatchResult{Started: started}
	sem := make(chan struct{}, limit)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, sellerID := range sellers {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			records := s.discoverSeller(ctx, id, query)
			if len(records) == 0 {
				return
			}
			mu.Lock()
			batch.Discovered = append(batch.Discovered, records...)
			mu.Unlock()
		}(sellerID)
	}
	wg.Wait()
	batch.Elapsed = time.Since(started)

	s.log.Info().
		Int("sellers", len(sellers)).
		Int("discovered", len(batch.Discovered)).
		Dur("elapsed", batch.Elapsed).
		Msg("Discovery complete")
	return batch, nil
}

func (s *Scanner) discoverSeller(ctx context.Context, sellerID, query string) []extract.ProductRecord {
	desc, err := s.registry.Resolve(sellerID)
	if err != nil {
		s.log.Warn().Err(err).Str("seller", sellerID).Msg("Skipping unknown seller in discovery")
		return nil
	}

	url := desc.FeedURL
	if desc.Fetch != descriptor.FetchFeed {
		url = desc.SearchURLFor(query)
	}
	if url == "" {
		return nil
	}

	fetched := s.fetchFunc(ctx, desc, url)
	if !fetched.OK() {
		s.log.Warn().
			Str("seller", sellerID).
			Str("reason", fetched.Failure.Error()).
			Msg("Discovery fetch failed")
		return nil
	}

	var fresh []extract.ProductRecord
	for _, record := range extract.Extract(fetched.Content, desc) {
		isNew, err := s.detector.IsNew(ctx, record)
		if err != nil {
			s.log.Warn().Err(err).Str("seller", sellerID).Msg("Discovery lookup failed")
			continue
		}
		if isNew {
			fresh = append(fresh, record)
		}
	}
	return fresh
}

// unitURL picks the page to fetch for a target, preferring an explicit URL
// over the seller's URL pattern.
func unitURL(t Target, desc descriptor.StoreDescriptor) string {
	if t.URL != "" {
		return t.URL
	}
	if desc.Fetch == descriptor.FetchFeed {
		return desc.FeedURL
	}
	return desc.ProductURLFor(t.SKU)
}

// matchTarget picks the record belonging to the target. A lone record from
// a product page is adopted as the target itself.
func matchTarget(records []extract.ProductRecord, t Target, finalURL string) (extract.ProductRecord, bool) {
	for _, r := range records {
		if r.Key == t.SKU {
			return withTargetDefaults(r, t, finalURL), true
		}
	}
	if len(records) == 1 && !records[0].FromFeed {
		r := records[0]
		r.Key = t.SKU
		return withTargetDefaults(r, t, finalURL), true
	}
	for _, r := range records {
		if t.URL != "" && r.URL == t.URL {
			return withTargetDefaults(r, t, finalURL), true
		}
	}
	return extract.ProductRecord{}, false
}

func withTargetDefaults(r extract.ProductRecord, t Target, finalURL string) extract.ProductRecord {
	if r.URL == "" {
		r.URL = t.URL
	}
	if r.URL == "" {
		r.URL = finalURL
	}
	if r.Name == "" {
		r.Name = t.Name
	}
	return r
}

// dedupe drops duplicate (SKU, seller) targets, keeping the first.
func dedupe(targets []Target) []Target {
	seen := make(map[string]struct{}, len(targets))
	out := make([]Target, 0, len(targets))
	for _, t := range targets {
		key := t.SellerID + "|" + t.SKU
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
