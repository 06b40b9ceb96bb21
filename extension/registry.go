package extension

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/hyperion-engine/hyperion/version"
)

// ---------------------------------------------------------------------------
// Registry: UUID to capability resolution
// ---------------------------------------------------------------------------

// Registry maps extension identifiers to descriptors from the installed
// configuration and binds descriptor UUIDs to capability factories. The
// resolution tables are immutable after construction, so resolution needs
// no locking.
type Registry struct {
	byUUID map[uuid.UUID]Descriptor
	byName map[string]Descriptor

	mu        sync.RWMutex
	factories map[uuid.UUID]Factory
}

// NewRegistry builds a registry from a configuration record. Duplicate
// UUIDs or names violate the record's uniqueness invariant and fail.
func NewRegistry(meta *MetaInfo) (*Registry, error) {
	r := &Registry{
		byUUID:    make(map[uuid.UUID]Descriptor, len(meta.Ext)),
		byName:    make(map[string]Descriptor, len(meta.Ext)),
		factories: make(map[uuid.UUID]Factory),
	}
	for _, desc := range meta.Ext {
		if _, dup := r.byUUID[desc.UUID]; dup {
			return nil, fmt.Errorf("duplicate extension uuid %s in configuration", desc.UUID)
		}
		if _, dup := r.byName[desc.Name]; dup {
			return nil, fmt.Errorf("duplicate extension name %q in configuration", desc.Name)
		}
		r.byUUID[desc.UUID] = desc
		r.byName[desc.Name] = desc
	}
	return r, nil
}

// Bind associates a capability factory with a descriptor UUID. Binding an
// unknown UUID is allowed; it only matters once an instance requests the
// extension.
func (r *Registry) Bind(id uuid.UUID, f Factory) {
	r.mu.Lock()
	r.factories[id] = f
	r.mu.Unlock()
}

// addBuiltin declares and binds a built-in capability. An entry from the
// configuration record with the same UUID takes precedence.
func (r *Registry) addBuiltin(desc Descriptor, f Factory) {
	if _, ok := r.byUUID[desc.UUID]; !ok {
		r.byUUID[desc.UUID] = desc
		r.byName[desc.Name] = desc
	}
	r.Bind(desc.UUID, f)
}

// Resolve maps an identifier (symbolic name or UUID string) to a
// descriptor from the installed configuration.
func (r *Registry) Resolve(identifier string) (Descriptor, error) {
	if desc, ok := r.byName[identifier]; ok {
		return desc, nil
	}
	if id, err := uuid.Parse(identifier); err == nil {
		if desc, ok := r.byUUID[id]; ok {
			return desc, nil
		}
	}
	return Descriptor{}, &NotFoundError{Identifier: identifier}
}

// Instantiate creates an inactive extension instance for a resolved
// descriptor and verifies the capability against the record: a configured
// path must exist, a factory must be bound, the self-reported name must
// match the declared name, and the capability must support the given
// engine version.
func (r *Registry) Instantiate(desc Descriptor, engine version.Version) (Extension, error) {
	if desc.Path != "" && ResolveExtPath(desc.Path) == "" {
		return nil, fmt.Errorf("capability %q: configured path %q does not exist", desc.Name, desc.Path)
	}

	r.mu.RLock()
	factory, ok := r.factories[desc.UUID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no capability bound for uuid %s", desc.UUID)
	}

	ext := factory()
	if ext.UUID() != desc.UUID {
		return nil, fmt.Errorf("capability reports uuid %s, configuration declares %s", ext.UUID(), desc.UUID)
	}
	if ext.Name() != desc.Name {
		return nil, fmt.Errorf("capability reports name %q, configuration declares %q", ext.Name(), desc.Name)
	}
	if !ext.Compatible().Contains(engine) {
		return nil, fmt.Errorf("capability %q requires engine %s, engine is %s", desc.Name, ext.Compatible(), engine)
	}
	return ext, nil
}

// ---------------------------------------------------------------------------
// Process-wide default registry
// ---------------------------------------------------------------------------

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
	defaultErr      error
)

// DefaultRegistry loads the configuration record from DefaultMetaPath once
// and returns the process-wide registry with the built-in capabilities
// bound. The record is read-only afterwards.
func DefaultRegistry() (*Registry, error) {
	defaultOnce.Do(func() {
		meta, err := LoadMeta(DefaultMetaPath())
		if err != nil {
			defaultErr = err
			return
		}
		defaultRegistry, defaultErr = NewRegistry(meta)
		if defaultErr == nil {
			defaultRegistry.addBuiltin(Descriptor{UUID: LogUUID, Name: LogName}, NewLogExtension)
		}
	})
	return defaultRegistry, defaultErr
}
