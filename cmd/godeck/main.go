// Command godeck converts PowerPoint decks into a static JSON learning site.
//
//	godeck convert -in ./decks -out ./site
//	godeck serve -out ./site -addr :8080
//	godeck history -out ./site
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/brunobiangulo/godeck"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "convert":
		err = runConvert(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "history":
		err = runHistory(os.Args[2:])
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "godeck: unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: godeck <command> [flags]

Commands:
  convert   extract .pptx files into the JSON site
  serve     serve the generated site over HTTP
  history   print the catalog's latest record per source file
`)
}

// loadConfig layers flag values over an optional config file over defaults,
// then applies environment overrides.
func loadConfig(configPath string) (godeck.Config, error) {
	cfg := godeck.DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = godeck.LoadConfig(configPath)
		if err != nil {
			return cfg, err
		}
	}
	if v := os.Getenv("GODECK_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("GODECK_CATALOG_PATH"); v != "" {
		cfg.CatalogPath = v
	}
	if v := os.Getenv("GODECK_REPORT_PATH"); v != "" {
		cfg.ReportPath = v
	}
	return cfg, nil
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})))
}

func runConvert(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	in := fs.String("in", ".", "Input .pptx file or directory")
	out := fs.String("out", "", "Output directory (overrides config)")
	configPath := fs.String("config", "", "Path to config file (YAML or JSON)")
	reportPath := fs.String("report", "", "Write an XLSX batch report to this path")
	force := fs.Bool("force", false, "Re-extract files even when unchanged")
	concurrency := fs.Int("concurrency", 0, "Parallel file extractions (0 = config default)")
	verbose := fs.Bool("v", false, "Debug logging")
	fs.Parse(args)

	setupLogging(*verbose)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *out != "" {
		cfg.OutputDir = *out
	}
	if *reportPath != "" {
		cfg.ReportPath = *reportPath
	}
	if *concurrency > 0 {
		cfg.Concurrency = *concurrency
	}

	engine, err := godeck.New(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer engine.Close()

	var opts []godeck.ConvertOption
	if *force {
		opts = append(opts, godeck.WithForce())
	}

	batch, err := engine.Convert(context.Background(), *in, opts...)
	if err != nil {
		return err
	}

	fmt.Printf("run %s: %d converted, %d skipped, %d failed (%s)\n",
		batch.RunID, len(batch.Presentations), len(batch.Skipped), len(batch.Failed),
		batch.Elapsed.Round(time.Millisecond))
	for _, f := range batch.Failed {
		fmt.Printf("  failed: %s: %s\n", f.Path, f.Error)
	}
	return nil
}

func runHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	out := fs.String("out", "", "Output directory (overrides config)")
	configPath := fs.String("config", "", "Path to config file (YAML or JSON)")
	fs.Parse(args)

	setupLogging(false)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *out != "" {
		cfg.OutputDir = *out
	}

	engine, err := godeck.New(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer engine.Close()

	records, err := engine.History(context.Background())
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
