package aligner

import "fmt"

// MalformedKind distinguishes the two ways a reply can fail validation. The
// checks run in strict order: parseability first, then the fragment key.
type MalformedKind string

const (
	// KindUnparsable means the reply was not valid JSON (or its fragment
	// list had the wrong shape).
	KindUnparsable MalformedKind = "unparsable"
	// KindMissingFragments means the reply parsed but lacked the
	// text_fragments key.
	KindMissingFragments MalformedKind = "missing_fragments"
)

// MalformedError reports a single invalid reply. It is absorbed by the retry
// loop and only surfaces inside an ExhaustedError.
type MalformedError struct {
	Kind  MalformedKind
	Cause error
}

func (e *MalformedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed alignment response (%s): %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("malformed alignment response (%s)", e.Kind)
}

func (e *MalformedError) Unwrap() error { return e.Cause }

// ExhaustedError means the retry budget was spent without one valid reply.
// LastRaw carries the final raw reply verbatim for operator diagnosis; it is
// empty when the last attempt failed in transport rather than validation.
type ExhaustedError struct {
	PageNumber int
	Attempts   int
	LastRaw    string
	Cause      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("alignment exhausted for page %d after %d attempts: %v", e.PageNumber, e.Attempts, e.Cause)
}

func (e *ExhaustedError) Unwrap() error { return e.Cause }
