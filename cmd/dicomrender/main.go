package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"dicomrender/internal/models"
	"dicomrender/pkg/config"
	"dicomrender/pkg/pipeline"
	"dicomrender/pkg/render"
	"dicomrender/pkg/store"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "dicomrender.yaml", "Path to YAML configuration file")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to -config and exit")
	outputDir := flag.String("output", "", "Directory for rendered images (overrides config)")
	numCores := flag.Int("cores", 0, "Number of files rendered concurrently (overrides config)")
	frameIndex := flag.Int("frame", -1, "Frame to render from multi-frame objects (overrides config)")
	center := flag.Float64("window-center", 0, "Window center override (requires -window-width)")
	width := flag.Float64("window-width", 0, "Window width override (requires -window-center)")
	thumbnail := flag.Int("thumbnail", -1, "Longest edge of preview images, 0 disables (overrides config)")
	verbose := flag.Bool("verbose", false, "Log per-file statistics")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <file.dcm|dir> ...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags set explicitly take precedence over the config file
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["output"] {
		cfg.Output.Dir = *outputDir
	}
	if set["cores"] {
		cfg.Processing.NumCores = *numCores
	}
	if set["frame"] {
		cfg.Processing.FrameIndex = *frameIndex
	}
	if set["thumbnail"] {
		cfg.Output.ThumbnailSize = *thumbnail
	}
	if set["verbose"] {
		cfg.Output.Verbose = *verbose
	}
	if set["window-center"] || set["window-width"] {
		if !set["window-center"] || !set["window-width"] {
			log.Fatalf("-window-center and -window-width must be given together")
		}
		cfg.Window.Center = center
		cfg.Window.Width = width
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	compression, err := render.ParseCompression(cfg.Output.Compression)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	params := &pipeline.Params{
		Inputs:        flag.Args(),
		OutputDir:     cfg.Output.Dir,
		NumCores:      cfg.Processing.NumCores,
		FrameIndex:    cfg.Processing.FrameIndex,
		Override:      cfg.WindowOverride(),
		Encoder:       render.Encoder{Compression: compression},
		Thumbnail:     cfg.Output.ThumbnailSize,
		WriteSidecars: cfg.Output.WriteSidecars,
		Verbose:       cfg.Output.Verbose,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	payloads := store.NewMemory[models.ImagePayload]()
	processor := pipeline.NewProcessor(params, payloads)

	fmt.Printf("Rendering with %d workers...\n", params.NumCores)
	if params.Override != nil {
		fmt.Printf("Window override: %v\n", *params.Override)
	}

	startTime := time.Now()
	report, err := processor.Process(ctx)
	if err != nil {
		log.Fatalf("Rendering failed: %v", err)
	}

	fmt.Printf("\nRendered %d file(s) in %.2f seconds\n", len(report.Rendered), time.Since(startTime).Seconds())
	if cfg.Output.Dir != "" {
		fmt.Printf("Output saved to: %s\n", cfg.Output.Dir)
	}

	if cfg.Output.Verbose {
		for _, id := range payloads.Keys() {
			payload, ok := payloads.Get(id)
			if !ok {
				continue
			}
			window := "auto-contrast"
			if payload.Window != nil {
				window = payload.Window.String()
			}
			fmt.Printf("- %s: %dx%d %s, %s\n", id, payload.Meta.Columns, payload.Meta.Rows,
				payload.Meta.Modality, window)
		}
	}

	if len(report.Failed) > 0 {
		fmt.Printf("\n%d file(s) failed:\n", len(report.Failed))
		for _, f := range report.Failed {
			fmt.Printf("- %s: %v\n", f.Path, f.Err)
		}
		os.Exit(2)
	}
}
