package model

import "fmt"

// Outcome is what happened to one candidate source block.
type Outcome int

const (
	// OutcomeConverted means the block was replaced by a dual view.
	OutcomeConverted Outcome = iota

	// OutcomeFailed means the transformer rejected the source
	// (a compilation error). The block is left untouched.
	OutcomeFailed

	// OutcomeErrored means the transformer could not run at all, for
	// example a missing binary or a timeout. The block is left untouched.
	OutcomeErrored
)

// String returns a human-readable representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeConverted:
		return "converted"
	case OutcomeFailed:
		return "failed"
	case OutcomeErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// MarshalText encodes the outcome as its name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText decodes an outcome name.
func (o *Outcome) UnmarshalText(text []byte) error {
	switch string(text) {
	case "converted":
		*o = OutcomeConverted
	case "failed":
		*o = OutcomeFailed
	case "errored":
		*o = OutcomeErrored
	default:
		return fmt.Errorf("unknown outcome %q", text)
	}
	return nil
}
