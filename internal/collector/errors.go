package collector

import "fmt"

// ExtractionError wraps a failure inside Source.Extract. It is recovered
// per pass and counted against the stall budget, never returned from Run.
type ExtractionError struct {
	Cause error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed: %v", e.Cause)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// AdvanceError wraps a failure inside Source.Advance, with the same
// recovery treatment as ExtractionError.
type AdvanceError struct {
	Cause error
}

func (e *AdvanceError) Error() string {
	return fmt.Sprintf("advance failed: %v", e.Cause)
}

func (e *AdvanceError) Unwrap() error { return e.Cause }

// recoveredError normalizes a recovered panic value into an error.
func recoveredError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}
