package locate

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFailureEvidence means a job has no failing step or the failing
	// step produced no log output.
	ErrNoFailureEvidence = errors.New("no failure evidence")

	ErrUnrecognizedBuildKind = errors.New("unrecognized build kind")
)

type NoFailureEvidenceError struct {
	JobID   int64
	JobName string
	Reason  string
}

func (e *NoFailureEvidenceError) Error() string {
	return fmt.Sprintf("job %d (%s): %s: %s", e.JobID, e.JobName, ErrNoFailureEvidence, e.Reason)
}

func (e *NoFailureEvidenceError) Unwrap() error { return ErrNoFailureEvidence }
