package qa

import "errors"

// Sentinel error kinds for the QC pipeline. Wrap with fmt.Errorf("...: %w")
// so callers can classify failures with errors.Is.
var (
	// ErrMissingInput means an expected upstream artifact is absent
	// (no volume, no motion parameter table, no scan info). Fatal to the
	// scan run; never retried.
	ErrMissingInput = errors.New("missing input artifact")

	// ErrInvalidInput means an input is present but structurally unusable,
	// such as a time series too short to aggregate.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDegenerateInput means the volume carries no usable signal, e.g.
	// the mask threshold evaluated to a non-positive value.
	ErrDegenerateInput = errors.New("degenerate input")

	// ErrBadConfig means a required configuration field is unset or out of
	// range. Fatal before any stage runs.
	ErrBadConfig = errors.New("bad configuration")
)
