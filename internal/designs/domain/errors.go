package domain

import (
	"errors"
	"fmt"
)

// Fault taxonomy for the generation pipeline. Handlers map these to HTTP
// statuses and user-facing messages; everything else is wrapped with %w so
// errors.Is still classifies it.
var (
	// ErrInputInvalid means the prompt was empty or whitespace-only.
	ErrInputInvalid = errors.New("prompt is required")

	// ErrConfiguration means a required provider credential is missing.
	// Checked before the provider is ever called; never retried.
	ErrConfiguration = errors.New("provider credential missing")

	// ErrProviderTimeout is the only retryable fault: the provider took
	// too long to produce a result.
	ErrProviderTimeout = errors.New("provider timed out")

	// ErrProviderValidation means the provider rejected the parameters.
	ErrProviderValidation = errors.New("provider rejected parameters")

	// ErrConnectTimeout is the transport-level flavor of ErrProviderTimeout:
	// the connection itself timed out before the provider answered. It
	// unwraps to ErrProviderTimeout, so it stays in the retryable class,
	// but handlers can map it to its own HTTP status.
	ErrConnectTimeout = fmt.Errorf("connection timed out: %w", ErrProviderTimeout)

	// ErrProvider covers any other provider-side failure, including an
	// empty or missing result.
	ErrProvider = errors.New("provider error")

	// ErrFetch means the ephemeral image could not be downloaded.
	ErrFetch = errors.New("image fetch failed")

	// ErrSizeExceeded means the fetched image exceeds the 5 MiB cap.
	ErrSizeExceeded = errors.New("image exceeds size limit")

	// ErrTypeInvalid means the fetched bytes are not an image.
	ErrTypeInvalid = errors.New("file is not an image")

	// ErrStorageUnauthorized means the object store rejected the caller's
	// credentials for the target path.
	ErrStorageUnauthorized = errors.New("not authorized for storage path")

	// ErrStorage covers any other object-store failure.
	ErrStorage = errors.New("storage error")

	// ErrRecordWrite means the metadata insert failed after a successful
	// blob upload. The blob is left orphaned; see DesignService.Save.
	ErrRecordWrite = errors.New("design record write failed")

	// ErrNotFound means no design record exists for the given id, or the
	// record belongs to another user.
	ErrNotFound = errors.New("design not found")
)

// Retryable reports whether the retry controller may attempt the
// operation again. Only the gateway-timeout class qualifies.
func Retryable(err error) bool {
	return errors.Is(err, ErrProviderTimeout)
}
