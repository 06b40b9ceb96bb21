// Package extension implements the optional-capability system: a registry
// that resolves stable UUIDs against the installed extension configuration
// and binds them to statically registered capability implementations.
package extension

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/hyperion-engine/hyperion/version"
)

// Config is a typed per-extension configuration payload, passed at
// activation time. Each extension declares its own Config implementation;
// activating with a foreign payload fails.
type Config interface {
	extensionConfig()
}

// Extension is a native capability activated for the lifetime of one
// instance. An Extension is owned exclusively by the instance that
// activated it; activation and deactivation are not expected to race.
type Extension interface {
	// UUID returns the capability's stable identifier.
	UUID() uuid.UUID

	// Name returns the capability's self-reported name. Activation fails
	// if it differs from the name declared in the configuration record.
	Name() string

	// Version returns the extension's own version.
	Version() version.Version

	// Compatible returns the engine versions this extension supports.
	Compatible() version.Range

	// Activate configures the extension. cfg may be nil when the caller
	// supplied no payload.
	Activate(cfg Config) error

	// Deactivate releases the extension's resources and flushes anything
	// pending. Called exactly once, in reverse activation order.
	Deactivate()
}

// Factory constructs a fresh, inactive extension instance.
type Factory func() Extension

// NotFoundError reports an extension identifier that resolves to no known
// descriptor.
type NotFoundError struct {
	Identifier string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("extension %q not found", e.Identifier)
}

// ActivationError reports a failed extension activation.
type ActivationError struct {
	Identifier string
	Cause      error
}

func (e *ActivationError) Error() string {
	return fmt.Sprintf("activation of extension %q failed: %v", e.Identifier, e.Cause)
}

func (e *ActivationError) Unwrap() error {
	return e.Cause
}
