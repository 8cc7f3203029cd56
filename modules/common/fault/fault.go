package fault

import "errors"

// Sentinel errors shared across modules. Handlers map these onto HTTP
// status codes; services wrap them with %w and context.
var (
	// ErrInvalidSelection - a referenced top/bottom id does not exist or
	// has the wrong kind. Surfaced to the caller, never retried.
	ErrInvalidSelection = errors.New("invalid_selection")

	// ErrNotFound - delete of an unknown item/reference id.
	ErrNotFound = errors.New("not_found")

	// ErrProviderFailure - the image provider rejected or failed the call.
	// Recovered locally by the fallback path; kept for observability.
	ErrProviderFailure = errors.New("provider_failure")

	// ErrStorageFault - I/O error on metadata, cache index or artifacts.
	// Fatal to the current request.
	ErrStorageFault = errors.New("storage_fault")

	// ErrNoCandidates - auto-pick has zero items of a required kind.
	ErrNoCandidates = errors.New("no_candidates")
)
