package acquire

import "fmt"

// AcquisitionFailure reports that one acquisition engine failed. Recoverable:
// the cascade catches it and escalates to the next tier.
type AcquisitionFailure struct {
	Method string
	Err    error
}

func (e *AcquisitionFailure) Error() string {
	return fmt.Sprintf("acquisition via %s failed: %v", e.Method, e.Err)
}

func (e *AcquisitionFailure) Unwrap() error { return e.Err }

// NoUsableText reports that every acquisition tier was exhausted without
// producing usable text. Fatal for the document, not the batch; the cascade
// still synthesizes a minimal-confidence fallback attempt so downstream
// stages receive a well-formed result.
type NoUsableText struct {
	Filename string
	Failures []AcquisitionFailure
}

func (e *NoUsableText) Error() string {
	return fmt.Sprintf("no usable text extracted from %s after %d tiers", e.Filename, len(e.Failures))
}
