// Command bundlegen builds a result bundle from a source file and a math-OCR
// response, writing the finished ZIP to disk. It exists for offline use and
// for inspecting what a bundle of a given interaction would contain.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/wudi/mathbundle/convert"
	"github.com/wudi/mathbundle/data"
	"github.com/wudi/mathbundle/export"
	"github.com/wudi/mathbundle/manifest"
	"github.com/wudi/mathbundle/observability"
	"github.com/wudi/mathbundle/source"
)

type options struct {
	sourcePath   string
	responsePath string
	requestPath  string
	editPath     string
	regionsPath  string
	endpoint     string
	outDir       string
	verbose      bool
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "bundlegen: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "bundlegen: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: bundlegen -source <file> -response <json> [flags]\n")
		flag.PrintDefaults()
	}
	flag.StringVar(&opts.sourcePath, "source", "", "Source file that was processed (required)")
	flag.StringVar(&opts.responsePath, "response", "", "Raw API response JSON (required)")
	flag.StringVar(&opts.requestPath, "request", "", "API request JSON; credentials are stripped before archiving")
	flag.StringVar(&opts.editPath, "edit", "", "Edited Markdown; converted to HTML and archived")
	flag.StringVar(&opts.regionsPath, "regions", "", "YAML region rules overriding the built-in endpoint table")
	flag.StringVar(&opts.endpoint, "endpoint", "", "Processing endpoint recorded in the README")
	flag.StringVar(&opts.outDir, "out", ".", "Directory the bundle ZIP is written to")
	flag.BoolVar(&opts.verbose, "v", false, "Verbose logging")
	flag.Parse()

	if opts.sourcePath == "" || opts.responsePath == "" {
		return opts, fmt.Errorf("-source and -response are required")
	}
	return opts, nil
}

func run(opts options) error {
	fileData, err := os.ReadFile(opts.sourcePath)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}
	response, err := os.ReadFile(opts.responsePath)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	req := export.Request{
		Source: source.State{
			FileName: filepath.Base(opts.sourcePath),
			FileData: fileData,
		},
		Response: response,
	}

	if opts.requestPath != "" {
		raw, err := os.ReadFile(opts.requestPath)
		if err != nil {
			return fmt.Errorf("read request: %w", err)
		}
		var apiRequest map[string]interface{}
		if err := json.Unmarshal(raw, &apiRequest); err != nil {
			return fmt.Errorf("parse request: %w", err)
		}
		req.APIRequest = apiRequest
	}
	if opts.editPath != "" {
		edited, err := os.ReadFile(opts.editPath)
		if err != nil {
			return fmt.Errorf("read edit: %w", err)
		}
		req.Current = string(edited)
	}
	if opts.endpoint != "" {
		req.Debug = &data.DebugData{Endpoint: opts.endpoint}
	}

	exportOpts := []export.Option{
		export.WithConverter(convert.NewHTMLConverter()),
	}
	if opts.regionsPath != "" {
		raw, err := os.ReadFile(opts.regionsPath)
		if err != nil {
			return fmt.Errorf("read regions: %w", err)
		}
		regions, err := manifest.LoadRegions(raw)
		if err != nil {
			return err
		}
		exportOpts = append(exportOpts, export.WithRegions(regions))
	}
	if opts.verbose {
		logger := observability.NewTextLogger(os.Stderr)
		logger.MinLevel = observability.LevelDebug
		exportOpts = append(exportOpts, export.WithLogger(logger))
	}

	bundle, err := export.New(exportOpts...).Export(context.Background(), req)
	if err != nil {
		return err
	}
	path, err := bundle.WriteFile(opts.outDir)
	if err != nil {
		return err
	}

	totalFiles := bundle.Metadata.Formats.TotalFiles + len(bundle.DataFiles.Files) + len(bundle.Edits.Files) + len(bundle.Converted.Files)
	fmt.Printf("wrote %s (%s files, %s)\n",
		path,
		humanize.Comma(int64(totalFiles)),
		humanize.Bytes(uint64(len(bundle.Data))))
	for _, r := range []struct {
		name   string
		errors int
	}{
		{"source", len(bundle.Source.Errors)},
		{"results", len(bundle.Results.Errors)},
		{"data", len(bundle.DataFiles.Errors)},
		{"edits", len(bundle.Edits.Errors)},
		{"converted", len(bundle.Converted.Errors)},
	} {
		if r.errors > 0 {
			fmt.Printf("  %d %s collection warning(s); see README.txt inside the bundle\n", r.errors, r.name)
		}
	}
	return nil
}
