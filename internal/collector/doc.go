// Package collector drives repeated extraction passes over a surface that
// reveals more items as it is paged, deduplicates the results by ID, and
// decides when to stop.
//
// A pass runs Extract, merges any genuinely new items into the
// accumulator, then Advance, then sleeps the configured delay. The run
// ends when too many consecutive passes produce nothing new (a stall),
// when the pass or item cap is hit, or when the context is canceled.
// All of those are normal terminations: the collector always returns
// whatever it accumulated as a valid result.
//
// Extraction and advance failures are tolerated per pass. A flaky read
// counts as a stalled pass and the loop keeps going; it never aborts the
// run. Surfaces that fail on every pass therefore drain the stall budget
// and terminate cleanly.
//
// Example usage:
//
//	c := collector.New(src, collector.Config{
//		MaxPasses:      50,
//		StallThreshold: 3,
//		PassDelay:      2 * time.Second,
//	})
//	res, err := c.Run(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("collected %d items in %d passes (%s)\n",
//		res.Items.Len(), res.Passes, res.Reason)
package collector
