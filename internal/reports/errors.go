package reports

import "errors"

var (
	// ErrNotFound is returned when no report matches the lookup.
	ErrNotFound = errors.New("report not found")
	// ErrAlreadyFinalized is returned when a finalize races a prior one.
	// The first transition out of processing wins; later ones are no-ops.
	ErrAlreadyFinalized = errors.New("report already finalized")
	// ErrShareExpired is returned when a share link exists but has lapsed.
	ErrShareExpired = errors.New("share link expired")
)
