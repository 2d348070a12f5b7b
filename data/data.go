// Package data writes the bundle's data folder: the sanitised API request,
// the verbatim response, formatted debug telemetry and the computed
// metadata.json descriptor.
package data

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wudi/mathbundle/archive"
	"github.com/wudi/mathbundle/observability"
	"github.com/wudi/mathbundle/ocr"
)

// Artifact names inside the data folder.
const (
	RequestFilename  = "api-request.json"
	ResponseFilename = "api-response.json"
	DebugFilename    = "debug-info.md"
	MetadataFilename = "metadata.json"
)

// Input carries everything the data collector consumes.
type Input struct {
	Source  archive.CollectionResult
	Results archive.CollectionResult
	// Formats is the canonical response used for classification.
	Formats ocr.Formats
	// Request is the original API request; credentials are stripped before
	// archiving. A nil request is a warning, not a failure.
	Request map[string]interface{}
	Debug   *DebugData

	// Timestamp is the download timestamp; zero means now.
	Timestamp time.Time
	Started   time.Time
	Finished  time.Time
}

// Collector writes data artifacts into an archive folder.
type Collector struct {
	log observability.Logger
}

// Option configures a Collector.
type Option func(*Collector)

// WithLogger attaches a logger. The default is a no-op.
func WithLogger(log observability.Logger) Option {
	return func(c *Collector) {
		if log != nil {
			c.log = log
		}
	}
}

// NewCollector returns a data collector.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{log: observability.NopLogger{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BuildMetadata computes the metadata descriptor from the collected results
// and the canonical response. Deterministic for fixed timestamps.
func BuildMetadata(in Input) Metadata {
	ts := in.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	f := in.Formats

	var debugText string
	if in.Debug != nil {
		debugText = in.Debug.ConfidenceText
	}
	detected, hasTable := ClassifyContent(f)
	lineCount := len(f.Lines)
	if lineCount == 0 && in.Debug != nil {
		for _, p := range in.Debug.Pages {
			lineCount += p.LineCount
		}
	}

	sourceSizes := make(map[string]string, len(in.Source.Files))
	for _, e := range in.Source.Files {
		sourceSizes[e.Filename] = FormatFileSize(e.Size)
	}
	resultSizes := make(map[string]string, len(in.Results.Files))
	for _, e := range in.Results.Files {
		resultSizes[e.Filename] = FormatFileSize(e.Size)
	}
	totalSize := in.Source.TotalSize() + in.Results.TotalSize()

	var timing TimingInfo
	if !in.Started.IsZero() {
		timing.StartedAt = in.Started.UTC().Format(time.RFC3339)
	}
	if !in.Finished.IsZero() {
		timing.FinishedAt = in.Finished.UTC().Format(time.RFC3339)
		if !in.Started.IsZero() {
			timing.DurationMS = in.Finished.Sub(in.Started).Milliseconds()
		}
	}

	return Metadata{
		Download: DownloadInfo{
			Timestamp:  ts.UTC().Format(time.RFC3339),
			SourceType: in.Source.Type,
			APIType:    in.Results.Type,
		},
		Processing: ProcessingInfo{
			RequestID:      f.RequestID,
			Confidence:     ParseConfidence(debugText, f.Confidence),
			ConfidenceRate: f.ConfidenceRate,
			ProcessingMode: ClassifyMode(in.Source.Type, f),
			IsHandwritten:  f.IsHandwritten,
			IsPrinted:      f.IsPrinted,
		},
		Content: ContentInfo{
			DetectedType:       detected,
			LineCount:          lineCount,
			HasTable:           hasTable,
			HasMultipleFormats: len(in.Results.Files) > 1,
		},
		Formats: FormatStats{
			SourceCount:    len(in.Source.Files),
			ResultsCount:   len(in.Results.Files),
			TotalFiles:     len(in.Source.Files) + len(in.Results.Files),
			TotalSize:      totalSize,
			TotalSizeHuman: FormatFileSize(totalSize),
			SourceSizes:    sourceSizes,
			ResultSizes:    resultSizes,
		},
		Files: FileLists{
			Source:  in.Source.Files,
			Results: in.Results.Files,
		},
		Timing: timing,
	}
}

// Collect writes the data artifacts into folder and returns what was
// written. Failures are recorded in the result, never returned as errors.
func (c *Collector) Collect(ctx context.Context, in Input, folder *archive.Folder) archive.CollectionResult {
	result := archive.CollectionResult{Type: "data"}
	if err := ctx.Err(); err != nil {
		result.Fail("data", "context: %v", err)
		return result
	}
	ts := in.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	// Request: the sanitisation invariant. A missing request is only a
	// warning; the bundle proceeds without the file.
	if in.Request == nil {
		c.log.Warn("no API request supplied, skipping api-request.json")
	} else if sanitized, err := SanitizeRequest(in.Request, ts); err != nil {
		result.Fail("data", "sanitise request: %v", err)
	} else {
		c.writeJSON(folder, &result, "request", RequestFilename, sanitized)
	}

	// Response: serialised verbatim when present.
	if len(in.Formats.Raw) > 0 {
		if err := folder.Add(ResponseFilename, in.Formats.Raw); err != nil {
			result.Fail("data", "write response: %v", err)
		} else {
			result.Record(archive.Entry{
				Type:     "response",
				Filename: ResponseFilename,
				Size:     int64(len(in.Formats.Raw)),
				Format:   "application/json",
			})
		}
	}

	if md := in.Debug.Markdown(); md != "" {
		if err := folder.Add(DebugFilename, []byte(md)); err != nil {
			result.Fail("data", "write debug info: %v", err)
		} else {
			result.Record(archive.Entry{
				Type:     "debug",
				Filename: DebugFilename,
				Size:     int64(len(md)),
				Format:   "text/markdown",
			})
		}
	}

	c.writeJSON(folder, &result, "metadata", MetadataFilename, BuildMetadata(in))
	return result
}

func (c *Collector) writeJSON(folder *archive.Folder, result *archive.CollectionResult, tag, name string, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		result.Fail("data", "marshal %s: %v", tag, err)
		return
	}
	if err := folder.Add(name, data); err != nil {
		result.Fail("data", "write %s: %v", tag, err)
		return
	}
	result.Record(archive.Entry{
		Type:     tag,
		Filename: name,
		Size:     int64(len(data)),
		Format:   "application/json",
	})
}
