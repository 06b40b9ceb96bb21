// Package engine exposes the embeddable instance: extension negotiation at
// creation time and the module-compile entry point.
package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/hyperion-engine/hyperion/compiler"
	"github.com/hyperion-engine/hyperion/extension"
	"github.com/hyperion-engine/hyperion/version"
)

// EngineName is the engine's self-reported name.
const EngineName = "hyperion"

// EngineVersion is the version stamped into compiled module storage and
// checked against extension compatibility ranges.
var EngineVersion = version.New(0, 1, 0)

// StateError reports an operation against a destroyed instance.
type StateError struct {
	Op string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("hyperion: %s on destroyed instance", e.Op)
}

// ApplicationInfo identifies the embedding application.
type ApplicationInfo struct {
	ApplicationName    string
	ApplicationVersion version.Version
	EngineName         string
	EngineVersion      version.Version
}

func (a ApplicationInfo) validate() error {
	if a.ApplicationName == "" {
		return fmt.Errorf("application name must not be empty")
	}
	if a.EngineName == "" {
		return fmt.Errorf("engine name must not be empty")
	}
	return nil
}

// InstanceCreateInfo carries everything needed to create an instance:
// application metadata, the requested extensions in activation order, and
// their typed configuration payloads keyed by the same identifiers.
type InstanceCreateInfo struct {
	ApplicationInfo   ApplicationInfo
	EnabledExtensions []string
	ExtensionConfigs  map[string]extension.Config

	// Registry resolves extension identifiers. nil uses the process-wide
	// default registry loaded from the installed configuration record.
	Registry *extension.Registry

	// Compiler configures the compile pipeline. The diagnostic sink is
	// always replaced by the instance's own routing.
	Compiler compiler.Options

	// ModuleCache enables the on-disk compiled-module cache. CacheDir
	// overrides its location; empty means the default cache directory.
	ModuleCache bool
	CacheDir    string
}

// diagReceiver is implemented by extensions that consume diagnostics, such
// as the logging extension.
type diagReceiver interface {
	Receive(extension.LogMessage)
}

type activeExt struct {
	identifier string
	ext        extension.Extension
}

// Instance owns its activated extensions and exposes module compilation.
// Life-cycle calls on one Instance are single-threaded by contract;
// concurrent CompileModule calls are permitted only if the logging
// callback is thread-safe (see extension.LogCallback).
type Instance struct {
	version   version.Version
	appInfo   ApplicationInfo
	destroyed atomic.Bool

	exts      []activeExt
	receivers []diagReceiver

	opts  compiler.Options
	cache *ModuleCache
}

// CreateInstance validates the application info, resolves every requested
// extension and activates them in order. Activation is all-or-nothing: an
// unresolved identifier or a failed activation leaves no extension active.
func CreateInstance(info *InstanceCreateInfo) (*Instance, error) {
	if err := info.ApplicationInfo.validate(); err != nil {
		return nil, err
	}

	reg := info.Registry
	if reg == nil {
		var err error
		reg, err = extension.DefaultRegistry()
		if err != nil {
			return nil, err
		}
	}

	// Resolve everything before activating anything.
	descs := make([]extension.Descriptor, len(info.EnabledExtensions))
	for i, id := range info.EnabledExtensions {
		desc, err := reg.Resolve(id)
		if err != nil {
			return nil, err
		}
		descs[i] = desc
	}

	inst := &Instance{
		version: EngineVersion,
		appInfo: info.ApplicationInfo,
		opts:    info.Compiler,
	}

	for i, id := range info.EnabledExtensions {
		ext, err := reg.Instantiate(descs[i], inst.version)
		if err == nil {
			err = ext.Activate(info.ExtensionConfigs[id])
		}
		if err != nil {
			inst.deactivateAll()
			return nil, &extension.ActivationError{Identifier: id, Cause: err}
		}
		inst.exts = append(inst.exts, activeExt{identifier: id, ext: ext})
		if r, ok := ext.(diagReceiver); ok {
			inst.receivers = append(inst.receivers, r)
		}
	}

	if info.ModuleCache {
		dir := info.CacheDir
		if dir == "" {
			dir = DefaultCacheDir()
		}
		cache, err := OpenModuleCache(dir)
		if err != nil {
			inst.deactivateAll()
			return nil, fmt.Errorf("open module cache: %w", err)
		}
		inst.cache = cache
	}

	inst.emit(extension.LevelDebug, "instance",
		fmt.Sprintf("instance created for %s %s (%d extensions)",
			info.ApplicationInfo.ApplicationName, info.ApplicationInfo.ApplicationVersion, len(inst.exts)))

	return inst, nil
}

// Version returns the engine version of this instance.
func (in *Instance) Version() version.Version {
	return in.version
}

// ApplicationInfo returns the application metadata the instance was
// created with.
func (in *Instance) ApplicationInfo() ApplicationInfo {
	return in.appInfo
}

// Destroyed reports whether Destroy has been called.
func (in *Instance) Destroyed() bool {
	return in.destroyed.Load()
}

// Destroy deactivates the instance's extensions in reverse activation
// order and releases the module cache. Further compilation fails with a
// StateError. Destroy is idempotent; calling it concurrently with other
// methods on the same instance is undefined behavior.
func (in *Instance) Destroy() {
	if !in.destroyed.CompareAndSwap(false, true) {
		return
	}
	in.deactivateAll()
	in.receivers = nil
	if in.cache != nil {
		in.cache.Close()
		in.cache = nil
	}
}

func (in *Instance) deactivateAll() {
	for i := len(in.exts) - 1; i >= 0; i-- {
		in.exts[i].ext.Deactivate()
	}
	in.exts = nil
}
