package engine

import (
	"fmt"

	"github.com/hyperion-engine/hyperion/compiler"
	"github.com/hyperion-engine/hyperion/extension"
	"github.com/hyperion-engine/hyperion/ir"
	"github.com/hyperion-engine/hyperion/version"
)

// SourceType identifies the language a module source is written in.
type SourceType int

const (
	// SourceAssembly is the textual assembly form.
	SourceAssembly SourceType = iota
)

func (t SourceType) String() string {
	switch t {
	case SourceAssembly:
		return "assembly"
	default:
		return fmt.Sprintf("SourceType(%d)", int(t))
	}
}

// ModuleSourceInfo is one source unit of a module. Filename is a
// diagnostic label only; Data holds the full source text.
type ModuleSourceInfo struct {
	SourceType SourceType
	Filename   string
	Data       string
}

// ModuleCompileInfo names a module and lists its sources. Functions from
// all sources share one namespace.
type ModuleCompileInfo struct {
	Name    string
	Sources []ModuleSourceInfo
}

// CompiledModule is the result of a successful compile: the emitted
// module plus the provenance needed to encode it for storage.
type CompiledModule struct {
	module    *ir.Module
	filenames []string
	engine    version.Version
}

// IR returns the emitted module.
func (m *CompiledModule) IR() *ir.Module {
	return m.module
}

// Filenames returns the diagnostic labels of the sources the module was
// compiled from, in compile order.
func (m *CompiledModule) Filenames() []string {
	return m.filenames
}

// Encode serializes the module to its storage form.
func (m *CompiledModule) Encode() ([]byte, error) {
	s := &ir.Storage{Filenames: m.filenames, Module: *m.module}
	return s.Encode(m.engine)
}

// CompileModule runs the full pipeline over every source of info and
// returns the compiled module. Stage errors are returned unchanged, so
// the caller can inspect them with errors.As. With the module cache
// enabled, an identical compile is served from disk without re-running
// the pipeline.
func (in *Instance) CompileModule(info ModuleCompileInfo) (*CompiledModule, error) {
	if in.destroyed.Load() {
		return nil, &StateError{Op: "compile module"}
	}
	if info.Name == "" {
		return nil, fmt.Errorf("module name must not be empty")
	}

	var key string
	if in.cache != nil {
		key = cacheKey(in.version, info)
		if data, ok, err := in.cache.Get(key); err != nil {
			in.emit(extension.LevelWarn, "module_cache", fmt.Sprintf("lookup failed: %v", err))
		} else if ok {
			s, err := ir.DecodeStorage(data, in.version)
			if err == nil {
				in.emit(extension.LevelDebug, "module_cache",
					fmt.Sprintf("cache hit for module %q", info.Name))
				return &CompiledModule{module: &s.Module, filenames: s.Filenames, engine: in.version}, nil
			}
			in.emit(extension.LevelWarn, "module_cache",
				fmt.Sprintf("discarding stale entry for module %q: %v", info.Name, err))
		}
	}

	mod := &compiler.Module{Name: info.Name}
	filenames := make([]string, 0, len(info.Sources))
	for _, src := range info.Sources {
		if src.SourceType != SourceAssembly {
			return nil, fmt.Errorf("unsupported source type %s for %q", src.SourceType, src.Filename)
		}
		in.emit(extension.LevelTrace, "compiler",
			fmt.Sprintf("parsing %q into module %q", src.Filename, info.Name))

		fns, err := compiler.ParseSource(src.Filename, src.Data)
		if err != nil {
			return nil, err
		}
		for _, fn := range fns {
			if err := mod.AddFunction(fn); err != nil {
				return nil, err
			}
		}
		filenames = append(filenames, src.Filename)
	}

	opts := in.opts
	opts.Sink = instanceSink{in: in}

	irmod, err := compiler.Compile(mod, opts)
	if err != nil {
		return nil, err
	}

	cm := &CompiledModule{module: irmod, filenames: filenames, engine: in.version}

	if in.cache != nil {
		if data, err := cm.Encode(); err == nil {
			if err := in.cache.Put(key, info.Name, data); err != nil {
				in.emit(extension.LevelWarn, "module_cache", fmt.Sprintf("store failed: %v", err))
			}
		}
	}

	in.emit(extension.LevelInfo, "compiler",
		fmt.Sprintf("compiled module %q: %d functions, uuid %s",
			info.Name, len(irmod.Functions), irmod.UUID))

	return cm, nil
}
