package services

import (
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// Typed failures surfaced by the lifecycle, context, and generation services.
// Callers classify with errors.Is; everything carries wrapped detail.
var (
	// ErrUnknownModule: the module id is not in the catalog.
	ErrUnknownModule = errors.New("unknown module")

	// ErrNotFound: the per-user record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrWrongState: an illegal lifecycle transition was requested. Absorbed
	// locally into a nil result; exported for tests and internal checks.
	ErrWrongState = errors.New("wrong module state")

	// ErrStoreUnavailable: the record store failed in a way that may succeed
	// on retry. The in-memory working set is left untouched.
	ErrStoreUnavailable = errors.New("record store unavailable")

	// ErrNotProvisioned: the destination schema is absent (feature not yet
	// provisioned). Soft, non-fatal: callers degrade to empty results or
	// skipped writes.
	ErrNotProvisioned = errors.New("feature not provisioned")

	// ErrConnectivity: the generative-text provider could not be reached.
	ErrConnectivity = errors.New("provider connectivity failure")

	// ErrAuthentication: the provider rejected our credentials.
	ErrAuthentication = errors.New("provider authentication failure")

	// ErrMalformedResponse: the provider replied, but the payload could not
	// be used (bad request shape or unparseable structured output).
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrRetryExhausted: the retry budget ran out without a usable response.
	ErrRetryExhausted = errors.New("retry budget exhausted")
)

// isNotProvisioned interprets store errors that mean "this collection or
// namespace has not been created" as a soft provisioning gap rather than a
// hard failure. Module tracking and context persistence are enhancement
// layers; a missing namespace must not break the user's flow.
func isNotProvisioned(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotProvisioned) {
		return true
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		// 26 = NamespaceNotFound, 166 = CannotImplicitlyCreateCollection
		if cmdErr.Code == 26 || cmdErr.Code == 166 {
			return true
		}
	}
	return strings.Contains(err.Error(), "ns not found")
}
