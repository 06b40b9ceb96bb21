// hyc compiles assembly sources into a module file.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperion-engine/hyperion/engine"
	"github.com/hyperion-engine/hyperion/extension"
	"github.com/hyperion-engine/hyperion/version"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	out := flag.String("o", "", "Output file (default: <module>.hymod)")
	name := flag.String("n", "", "Module name (default: first input's base name)")
	logLevel := flag.String("log", "warn", "Log threshold: trace, debug, info, warn, error")
	quiet := flag.Bool("q", false, "Suppress all engine logging")
	batch := flag.Bool("batch", false, "Report every validation error instead of the first")
	strict := flag.Bool("strict", false, "Treat unreachable blocks as errors")
	useCache := flag.Bool("cache", false, "Use the compiled-module cache")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: hyc [options] <file.hyasm>...\n\n")
		fmt.Fprintf(os.Stderr, "Compiles assembly sources into a single module file.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  hyc pow.hyasm                  # Produces pow.hymod\n")
		fmt.Fprintf(os.Stderr, "  hyc -n math -o math.hymod a.hyasm b.hyasm\n")
		fmt.Fprintf(os.Stderr, "  hyc -batch -log debug bad.hyasm\n")
	}
	flag.Parse()

	inputs := flag.Args()
	if len(inputs) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	level, err := parseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hyc: %v\n", err)
		os.Exit(2)
	}

	moduleName := *name
	if moduleName == "" {
		base := filepath.Base(inputs[0])
		moduleName = strings.TrimSuffix(base, filepath.Ext(base))
	}

	info := &engine.InstanceCreateInfo{
		ApplicationInfo: engine.ApplicationInfo{
			ApplicationName:    "hyc",
			ApplicationVersion: version.New(0, 1, 0),
			EngineName:         engine.EngineName,
			EngineVersion:      engine.EngineVersion,
		},
		ModuleCache: *useCache,
	}
	info.Compiler.BatchDiagnostics = *batch
	info.Compiler.FailUnreachable = *strict

	if !*quiet {
		info.EnabledExtensions = []string{extension.LogName}
		info.ExtensionConfigs = map[string]extension.Config{
			extension.LogName: extension.LogConfig{
				Level: level,
				Callback: func(msg extension.LogMessage) {
					fmt.Fprintf(os.Stderr, "%s %s %s: %s\n",
						msg.Time.Format("15:04:05.000"), msg.Level, msg.Origin, msg.Text)
				},
			},
		}
	}

	inst, err := engine.CreateInstance(info)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hyc: %v\n", err)
		os.Exit(1)
	}
	defer inst.Destroy()

	compileInfo := engine.ModuleCompileInfo{Name: moduleName}
	for _, path := range inputs {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "hyc: %v\n", err)
			os.Exit(1)
		}
		compileInfo.Sources = append(compileInfo.Sources, engine.ModuleSourceInfo{
			SourceType: engine.SourceAssembly,
			Filename:   path,
			Data:       string(data),
		})
	}

	compiled, err := inst.CompileModule(compileInfo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hyc: %v\n", err)
		os.Exit(1)
	}

	encoded, err := compiled.Encode()
	if err != nil {
		fmt.Fprintf(os.Stderr, "hyc: %v\n", err)
		os.Exit(1)
	}

	outPath := *out
	if outPath == "" {
		outPath = moduleName + ".hymod"
	}
	if err := os.WriteFile(outPath, encoded, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "hyc: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s: %d functions, %d bytes, uuid %s\n",
		outPath, len(compiled.IR().Functions), len(encoded), compiled.IR().UUID)
}

func parseLevel(s string) (extension.LogLevel, error) {
	switch strings.ToLower(s) {
	case "trace":
		return extension.LevelTrace, nil
	case "debug":
		return extension.LevelDebug, nil
	case "info":
		return extension.LevelInfo, nil
	case "warn", "warning":
		return extension.LevelWarn, nil
	case "error":
		return extension.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
