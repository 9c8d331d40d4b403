package scan

import (
	"time"

	"pokewatch/stockworker/internal/detect"
	"pokewatch/stockworker/internal/extract"
	"pokewatch/stockworker/internal/fetch"
)

// Target names one monitored product to scan.
type Target struct {
	SKU      string
	SellerID string
	URL      string
	Name     string
}

// UnitState tracks a scan unit through its lifecycle.
type UnitState string

const (
	StatePending         UnitState = "pending"
	StateFetching        UnitState = "fetching"
	StateFetched         UnitState = "fetched"
	StateFetchFailed     UnitState = "fetch_failed"
	StateExtracting      UnitState = "extracting"
	StateExtracted       UnitState = "extracted"
	StateExtractionEmpty UnitState = "extraction_empty"
	StateDetecting       UnitState = "detecting"
	StateDone            UnitState = "done"
)

// OutcomeKind classifies how a scan unit ended.
type OutcomeKind string

const (
	// OutcomeChanged means the unit produced a change event
	OutcomeChanged OutcomeKind = "changed"
	// OutcomeNoChange means the product was observed with no status change
	OutcomeNoChange OutcomeKind = "no_change"
	// OutcomeExtractionEmpty means the page yielded no usable records
	OutcomeExtractionEmpty OutcomeKind = "extraction_empty"
	// OutcomeFetchFailed means the page could not be retrieved
	OutcomeFetchFailed OutcomeKind = "fetch_failed"
	// OutcomeUnitError means the unit itself failed
	OutcomeUnitError OutcomeKind = "unit_error"
	// OutcomeCancelled means the batch context ended before the unit finished
	OutcomeCancelled OutcomeKind = "cancelled"
)

// UnitResult is the outcome of scanning a single target.
type UnitResult struct {
	Target      Target
	Kind        OutcomeKind
	State       UnitState
	FailureKind fetch.FailureKind
	Detail      string
	Event       *detect.ChangeEvent
	Duration    time.Duration
}

// BatchResult aggregates one scan run.
type BatchResult struct {
	Outcomes   []UnitResult
	Events     []detect.ChangeEvent
	Discovered []extract.ProductRecord
	Started    time.Time
	Elapsed    time.Duration
}
