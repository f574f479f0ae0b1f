package registry

import "errors"

// Error kinds the daemon loop uses to decide between retry and dead-letter.
var (
	// ErrUnregisteredAction marks dispatch to a tag with no bound handler.
	// Permanent: retrying cannot fix a missing handler.
	ErrUnregisteredAction = errors.New("unregistered action type")

	// ErrConfigMissing marks a production dispatch whose external dependency
	// is not configured. Permanent: a retry loop against a permanently
	// broken handler only obscures the diagnosis.
	ErrConfigMissing = errors.New("handler configuration missing")
)

// IsPermanent reports whether an error must not be retried. Everything else
// (network and store hiccups, handler deadline exceeded) is transient and
// retry-eligible.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrUnregisteredAction) || errors.Is(err, ErrConfigMissing)
}
