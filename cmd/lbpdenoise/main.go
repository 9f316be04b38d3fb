package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"lbpdenoise/internal/logging"
	"lbpdenoise/pkg/config"
	"lbpdenoise/pkg/denoise"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "lbpdenoise.yaml", "YAML configuration file (optional)")
	writeConfig := flag.Bool("write-config", false, "Write the effective configuration to -config and exit")
	inputPath := flag.String("input", "", "Noisy grayscale input image")
	outputPath := flag.String("output", "", "Path of the denoised image (.png, .jpg, .bmp, .tif)")
	referencePath := flag.String("reference", "", "Clean reference image for quality metrics")
	lambda := flag.Int("lambda", -1, "Smoothness weight")
	iterations := flag.Int("iterations", -1, "Number of message passing rounds")
	levels := flag.Int("levels", 0, "Number of gray levels")
	workers := flag.Int("workers", -1, "Goroutines per sweep (results are identical for any value)")
	snapshots := flag.Bool("snapshots", false, "Save the labeling of every iteration")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for per-iteration snapshots")
	energyPlot := flag.String("energy-plot", "", "Save a plot of energy per iteration (.png, .svg, .pdf)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	jsonLogs := flag.Bool("json-logs", false, "Log JSON lines instead of console output")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Flags override the configuration file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.IO.Input = *inputPath
		case "output":
			cfg.IO.Output = *outputPath
		case "reference":
			cfg.IO.Reference = *referencePath
		case "lambda":
			cfg.Solver.Lambda = *lambda
		case "iterations":
			cfg.Solver.Iterations = *iterations
		case "levels":
			cfg.Solver.Levels = *levels
		case "workers":
			cfg.Solver.Workers = *workers
		case "snapshots":
			cfg.Output.SaveSnapshots = *snapshots
		case "snapshot-dir":
			cfg.Output.SnapshotDir = *snapshotDir
		case "energy-plot":
			cfg.Output.EnergyPlot = *energyPlot
		case "verbose":
			cfg.Output.Verbose = *verbose
		case "json-logs":
			cfg.Output.JSONLogs = *jsonLogs
		}
	})

	logger := logging.New(os.Stderr, cfg.Output.Verbose, cfg.Output.JSONLogs)

	if *writeConfig {
		if err := config.SaveConfig(cfg, *configPath); err != nil {
			logger.Fatal().Err(err).Msg("Failed to write configuration")
		}
		logger.Info().Str("path", *configPath).Msg("Configuration written")
		return
	}

	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("Invalid configuration")
		flag.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	denoiser := denoise.NewDenoiser(denoise.ParamsFromConfig(cfg), logger)
	if err := denoiser.Process(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Denoising failed")
	}

	res := denoiser.Result()

	fmt.Println("Iter.\tEnergy")
	fmt.Println("--------------")
	for _, r := range res.Trace {
		fmt.Printf("%d\t%d\n", r.Iteration, r.Energy)
	}

	fmt.Printf("\nEnergy reduction: %.2f%% (min %d at iteration %d)\n",
		res.Energy.Reduction*100, res.Energy.Min, res.Energy.MinIteration)
	fmt.Printf("Quality against %s: RMSE %.3f, PSNR %.2f dB, SSIM %.4f, changed %.2f%%\n",
		res.QualityBaseline, res.Quality.RMSE, res.Quality.PSNR, res.Quality.SSIM, res.Quality.ChangedRatio*100)
	fmt.Printf("Output saved to: %s\n", cfg.IO.Output)
	fmt.Printf("\nRunning Time: %.3f ms\n", float64(res.Elapsed.Microseconds())/1000)
}
