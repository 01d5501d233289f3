package estimate

import "fmt"

// DegenerateSubsampleError reports a regression stage whose filtered rows
// carry no usable variation: an empty subsample, a one-sided outcome, or a
// rank-deficient design matrix. Fatal to the run: the estimator's
// comparative statics assume every stage fits under non-degenerate data.
type DegenerateSubsampleError struct {
	// Stage names the sub-model that failed ("college", "graduation",
	// "log-effort", "schooling").
	Stage string

	// Filter describes the row restriction that produced the subsample.
	Filter string

	// Reason says what variation was missing.
	Reason string
}

func (e *DegenerateSubsampleError) Error() string {
	return fmt.Sprintf("degenerate subsample in %s stage (filter %q): %s", e.Stage, e.Filter, e.Reason)
}

// ConstraintMismatchError reports that a pinned-coefficient fit could not
// honor its structural constraints. The pinned values are binding model
// assumptions, not starting values, so this is fatal.
type ConstraintMismatchError struct {
	Stage  string
	Reason string
}

func (e *ConstraintMismatchError) Error() string {
	return fmt.Sprintf("constraint mismatch in %s stage: %s", e.Stage, e.Reason)
}
