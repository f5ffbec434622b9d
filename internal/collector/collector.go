package collector

import (
	"context"
	"time"

	"github.com/saltmarsh-systems/driftwatch/internal/drift"
)

// Source is the surface being collected. Extract probes the current state
// of the surface and returns the items currently visible; it may return
// items from earlier passes, which the collector tolerates. Advance
// reveals more content (the next page, a wider window, a scroll).
type Source interface {
	Extract(ctx context.Context) ([]drift.Item, error)
	Advance(ctx context.Context) error
}

// Default termination settings, applied when Config leaves the
// corresponding field at zero.
const (
	DefaultMaxPasses      = 100
	DefaultStallThreshold = 3
	DefaultPassDelay      = 2 * time.Second
)

// Config holds the termination policy for a collection run.
type Config struct {
	// MaxPasses caps the number of extract/advance cycles.
	MaxPasses int

	// StallThreshold is the number of consecutive passes yielding zero
	// new items (including failed passes) after which the run stops.
	StallThreshold int

	// PassDelay is how long the loop sleeps between passes. The sleep is
	// interruptible by context cancellation.
	PassDelay time.Duration

	// MaxItems stops the run once the accumulator holds this many items.
	// Zero means unbounded.
	MaxItems int
}

// withDefaults returns a copy of cfg with zero fields filled in.
func (cfg Config) withDefaults() Config {
	if cfg.MaxPasses <= 0 {
		cfg.MaxPasses = DefaultMaxPasses
	}
	if cfg.StallThreshold <= 0 {
		cfg.StallThreshold = DefaultStallThreshold
	}
	if cfg.PassDelay <= 0 {
		cfg.PassDelay = DefaultPassDelay
	}
	return cfg
}

// Reason identifies which termination path ended a run. Every reason is a
// normal, successful termination; none of them is an error.
type Reason string

const (
	// ReasonStalled means StallThreshold consecutive passes yielded no
	// new items.
	ReasonStalled Reason = "stalled"

	// ReasonMaxPasses means the pass cap was reached.
	ReasonMaxPasses Reason = "max_passes"

	// ReasonMaxItems means the accumulator reached the item cap.
	ReasonMaxItems Reason = "max_items"

	// ReasonCanceled means the context was canceled between passes.
	ReasonCanceled Reason = "canceled"
)

// Result is the outcome of a collection run. Items is valid and complete
// for whatever was gathered on every termination path, including
// cancellation.
type Result struct {
	Items      *drift.Set
	Passes     int
	PassErrors int
	Reason     Reason
	Duration   time.Duration
}

// PassStats describes one completed pass, for progress reporting.
type PassStats struct {
	Pass     int
	NewItems int
	Total    int
	Err      error
}

// Option configures a Collector.
type Option func(*Collector)

// WithPassHook registers a callback invoked after every pass. Used by the
// CLI for progress output; the hook must not block.
func WithPassHook(fn func(PassStats)) Option {
	return func(c *Collector) { c.onPass = fn }
}

// Collector accumulates unique items from a Source until its termination
// policy says to stop. A Collector is single-use per Run call and assumes
// no other collector is driving the same surface concurrently.
type Collector struct {
	source Source
	cfg    Config
	onPass func(PassStats)
}

// New creates a Collector for the given source and policy.
func New(source Source, cfg Config, opts ...Option) *Collector {
	c := &Collector{
		source: source,
		cfg:    cfg.withDefaults(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes the collection loop until a termination condition is met.
// The returned error is always nil today; the signature leaves room for
// setup failures. Extraction and advance failures are absorbed into the
// stall budget and reported via Result.PassErrors.
func (c *Collector) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	acc := drift.NewSet()
	res := &Result{Items: acc}
	stall := 0

	defer func() { res.Duration = time.Since(start) }()

	for {
		// Cancellation is checked at the top of every pass so a caller
		// can stop a long run between passes.
		if ctx.Err() != nil {
			res.Reason = ReasonCanceled
			return res, nil
		}

		res.Passes++

		newCount, capped, passErr := c.extractAndMerge(ctx, acc)
		if passErr != nil {
			res.PassErrors++
		}

		if newCount > 0 {
			stall = 0
		} else {
			stall++
		}

		if c.onPass != nil {
			c.onPass(PassStats{
				Pass:     res.Passes,
				NewItems: newCount,
				Total:    acc.Len(),
				Err:      passErr,
			})
		}

		if capped {
			res.Reason = ReasonMaxItems
			return res, nil
		}
		if stall >= c.cfg.StallThreshold {
			res.Reason = ReasonStalled
			return res, nil
		}
		if res.Passes >= c.cfg.MaxPasses {
			res.Reason = ReasonMaxPasses
			return res, nil
		}

		// Advance failures get the same treatment as a stalled pass: a
		// surface that can no longer be paged will stop yielding new
		// items and drain the stall budget.
		if err := c.advance(ctx); err != nil {
			res.PassErrors++
			stall++
			if stall >= c.cfg.StallThreshold {
				res.Reason = ReasonStalled
				return res, nil
			}
		}

		select {
		case <-ctx.Done():
			res.Reason = ReasonCanceled
			return res, nil
		case <-time.After(c.cfg.PassDelay):
		}
	}
}

// extractAndMerge runs one extraction and folds the results into the
// accumulator, honoring the item cap. It reports how many items were
// genuinely new, whether the cap was reached, and any extraction error
// (recovered, never fatal).
func (c *Collector) extractAndMerge(ctx context.Context, acc *drift.Set) (newCount int, capped bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ExtractionError{Cause: recoveredError(r)}
		}
	}()

	items, err := c.source.Extract(ctx)
	if err != nil {
		return 0, false, &ExtractionError{Cause: err}
	}

	for _, it := range items {
		if c.cfg.MaxItems > 0 && acc.Len() >= c.cfg.MaxItems {
			return newCount, true, nil
		}
		if acc.Add(it) {
			newCount++
		}
	}

	if c.cfg.MaxItems > 0 && acc.Len() >= c.cfg.MaxItems {
		return newCount, true, nil
	}
	return newCount, false, nil
}

// advance pages the surface forward, converting panics and errors into a
// recoverable AdvanceError.
func (c *Collector) advance(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &AdvanceError{Cause: recoveredError(r)}
		}
	}()

	if err := c.source.Advance(ctx); err != nil {
		return &AdvanceError{Cause: err}
	}
	return nil
}
