// Package export assembles one bundle: it runs the source, result and data
// collectors in sequence, carries forward edit history and converted
// documents, renders the README and finalises the in-memory archive into a
// downloadable blob. Stage-local failures are recorded inside the bundle;
// orchestration failures abort the build so a partial bundle is never
// delivered.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/wudi/mathbundle/archive"
	"github.com/wudi/mathbundle/convert"
	"github.com/wudi/mathbundle/data"
	"github.com/wudi/mathbundle/manifest"
	"github.com/wudi/mathbundle/observability"
	"github.com/wudi/mathbundle/ocr"
	"github.com/wudi/mathbundle/results"
	"github.com/wudi/mathbundle/source"
)

// Folder names inside the bundle.
const (
	FolderSource    = "source"
	FolderResults   = "results"
	FolderData      = "data"
	FolderEdits     = "edits"
	FolderConverted = "converted"

	readmeFilename = "README.txt"
	linesFilename  = "lines.json"
)

// ErrExportInProgress is returned when a build is requested while another is
// still running on the same Exporter.
var ErrExportInProgress = errors.New("export: bundle build already in progress")

// ErrMissingResponse is returned when neither canonical formats nor a raw
// response are supplied.
var ErrMissingResponse = errors.New("export: no OCR response to bundle")

// Edit is one carried-forward or checkpointed editor state.
type Edit struct {
	Filename string
	Content  string
}

// Request carries everything one bundle build consumes.
type Request struct {
	// Source is the capture state of the interaction.
	Source source.State

	// Formats is the canonical response; preferred when set.
	Formats *ocr.Formats
	// Response is the raw API response, used when Formats is nil.
	Response []byte

	// APIRequest is the original request; credentials are stripped before
	// archiving.
	APIRequest map[string]interface{}
	Debug      *data.DebugData

	// ExistingEdits are edits carried forward from a previous session,
	// written verbatim.
	ExistingEdits []Edit
	// Current and Original hold the editor's present and baseline content;
	// a new unsaved edit is archived only when they differ.
	Current  string
	Original string
	// Checkpoints are explicitly saved versions. A checkpoint is skipped
	// only on an exact filename collision, so intentional duplicate
	// contents are preserved.
	Checkpoints []Edit

	// Converted documents supplied by an external converter, written
	// verbatim. When a Converter is configured on the Exporter and Current
	// is non-empty, its output is appended too.
	Converted []convert.Document

	// Lines carries per-page recognition data, embedded as lines.json for
	// PDF responses only.
	Lines []ocr.Page

	// Timestamp overrides the download timestamp; zero means now.
	Timestamp time.Time
}

// Bundle is the finished build.
type Bundle struct {
	// ID correlates log entries of one build.
	ID string
	// Filename is the suggested download filename.
	Filename string
	// Data is the finished ZIP blob.
	Data []byte

	Source    archive.CollectionResult
	Results   archive.CollectionResult
	DataFiles archive.CollectionResult
	Edits     archive.CollectionResult
	Converted archive.CollectionResult
	Metadata  data.Metadata
}

// WriteFile writes the blob into dir under its suggested filename and
// returns the full path.
func (b *Bundle) WriteFile(dir string) (string, error) {
	path := filepath.Join(dir, b.Filename)
	if err := os.WriteFile(path, b.Data, 0o644); err != nil {
		return "", fmt.Errorf("write bundle: %w", err)
	}
	return path, nil
}

// Exporter builds bundles. One Exporter builds at most one bundle at a time;
// concurrent calls fail fast with ErrExportInProgress.
type Exporter struct {
	log       observability.Logger
	sources   *source.Collector
	results   *results.Collector
	datac     *data.Collector
	converter convert.Converter
	regions   *manifest.RegionTable
	now       func() time.Time

	busy atomic.Bool
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger attaches a logger to the exporter and all its collectors.
func WithLogger(log observability.Logger) Option {
	return func(e *Exporter) {
		if log == nil {
			return
		}
		e.log = log
		e.sources = source.NewCollector(source.WithLogger(log))
		e.results = results.NewCollector(results.WithLogger(log))
		e.datac = data.NewCollector(data.WithLogger(log))
	}
}

// WithConverter sets the converter applied to the current editor content.
func WithConverter(c convert.Converter) Option {
	return func(e *Exporter) { e.converter = c }
}

// WithRegions injects the endpoint-region table used in the README.
func WithRegions(t *manifest.RegionTable) Option {
	return func(e *Exporter) { e.regions = t }
}

// WithClock overrides the time source, for deterministic builds.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		if now != nil {
			e.now = now
		}
	}
}

// New returns an Exporter with no-op logging and the default region table.
func New(opts ...Option) *Exporter {
	e := &Exporter{
		log:     observability.NopLogger{},
		sources: source.NewCollector(),
		results: results.NewCollector(),
		datac:   data.NewCollector(),
		regions: manifest.DefaultRegions(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export builds one bundle. Any orchestration failure aborts the build and
// nothing is returned; recoverable collection failures are recorded inside
// the returned bundle's stage results.
func (e *Exporter) Export(ctx context.Context, req Request) (*Bundle, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return nil, ErrExportInProgress
	}
	defer e.busy.Store(false)

	started := e.now()
	ts := req.Timestamp
	if ts.IsZero() {
		ts = started
	}
	id := uuid.NewString()
	log := e.log.With(observability.String("bundle", id))

	formats, err := e.resolveFormats(req)
	if err != nil {
		log.Error("bundle build aborted", observability.Error(err))
		return nil, err
	}

	a := archive.New()
	srcFolder := a.Folder(FolderSource)
	resFolder := a.Folder(FolderResults)
	dataFolder := a.Folder(FolderData)
	editsFolder := a.Folder(FolderEdits)
	convFolder := a.Folder(FolderConverted)

	srcResult := e.sources.Collect(ctx, req.Source, srcFolder)
	base := e.baseFilename(req.Source, srcResult)
	resResult := e.results.Collect(ctx, formats, resFolder, base)

	editsResult := e.collectEdits(req, editsFolder, ts)
	convResult := e.collectConverted(ctx, req, convFolder, base)

	if formats.Kind == ocr.KindPDF && len(req.Lines) > 0 {
		if err := e.writeLines(dataFolder, req.Lines); err != nil {
			log.Error("bundle build aborted", observability.Error(err))
			return nil, err
		}
	}

	finished := e.now()
	dataInput := data.Input{
		Source:    srcResult,
		Results:   resResult,
		Formats:   formats,
		Request:   req.APIRequest,
		Debug:     req.Debug,
		Timestamp: ts,
		Started:   started,
		Finished:  finished,
	}
	dataResult := e.datac.Collect(ctx, dataInput, dataFolder)
	meta := data.BuildMetadata(dataInput)

	readme := manifest.Generate(manifest.Input{
		Source:    srcResult,
		Results:   resResult,
		Meta:      meta,
		Edits:     editsResult,
		Converted: convResult,
		Endpoint:  e.endpoint(req),
		Regions:   e.regions,
		Pages:     e.pages(req),
	})
	if err := a.AddRoot(readmeFilename, []byte(readme)); err != nil {
		return nil, fmt.Errorf("write readme: %w", err)
	}

	blob, err := a.Finalize()
	if err != nil {
		log.Error("bundle build aborted", observability.Error(err))
		return nil, fmt.Errorf("compress bundle: %w", err)
	}

	log.Info("bundle built",
		observability.Int(observability.MetricFileCount, a.TotalFiles()),
		observability.Int64(observability.MetricBundleBytes, int64(len(blob))),
		observability.Duration(observability.MetricCompressTime, e.now().Sub(started)))

	return &Bundle{
		ID:        id,
		Filename:  base + "-bundle.zip",
		Data:      blob,
		Source:    srcResult,
		Results:   resResult,
		DataFiles: dataResult,
		Edits:     editsResult,
		Converted: convResult,
		Metadata:  meta,
	}, nil
}

func (e *Exporter) resolveFormats(req Request) (ocr.Formats, error) {
	if req.Formats != nil {
		f := *req.Formats
		if !f.Kind.Valid() {
			f.Kind = ocr.KindText
		}
		return f, nil
	}
	if len(req.Response) > 0 {
		f, err := ocr.FromRaw(req.Response)
		if err != nil {
			return ocr.Formats{}, fmt.Errorf("decode response: %w", err)
		}
		return f, nil
	}
	return ocr.Formats{}, ErrMissingResponse
}

// baseFilename derives the descriptive filename stem: the sanitised upload
// name, or a fixed label per modality.
func (e *Exporter) baseFilename(state source.State, res archive.CollectionResult) string {
	if res.Type == string(source.ModalityUpload) && state.FileName != "" {
		return source.SanitizeFilename(state.FileName)
	}
	switch res.Type {
	case string(source.ModalityClipboard):
		return "clipboard-image"
	case string(source.ModalityCanvas):
		return "canvas-drawing"
	default:
		return "math-ocr"
	}
}

func (e *Exporter) collectEdits(req Request, folder *archive.Folder, ts time.Time) archive.CollectionResult {
	result := archive.CollectionResult{Type: "edits"}

	for i, edit := range req.ExistingEdits {
		name := edit.Filename
		if name == "" {
			name = fmt.Sprintf("edit-%d.mmd", i+1)
		}
		e.writeEdit(folder, &result, "edit", name, edit.Content)
	}

	// A new unsaved edit is archived only when the content actually
	// changed; the diff is plain string inequality.
	if req.Current != "" && req.Current != req.Original {
		name := fmt.Sprintf("edit-unsaved-%s.mmd", ts.UTC().Format("20060102-150405"))
		e.writeEdit(folder, &result, "edit-unsaved", name, req.Current)
	}

	for _, cp := range req.Checkpoints {
		if cp.Filename == "" {
			result.Fail("edits", "checkpoint without filename skipped")
			continue
		}
		if folder.Has(cp.Filename) {
			e.log.Debug("checkpoint filename collision, skipped",
				observability.String("filename", cp.Filename))
			continue
		}
		e.writeEdit(folder, &result, "checkpoint", cp.Filename, cp.Content)
	}
	return result
}

func (e *Exporter) writeEdit(folder *archive.Folder, result *archive.CollectionResult, tag, name, content string) {
	if err := folder.Add(name, []byte(content)); err != nil {
		result.Fail("edits", "write %s: %v", name, err)
		return
	}
	result.Record(archive.Entry{
		Type:     tag,
		Filename: name,
		Size:     int64(len(content)),
		Format:   "text/markdown",
	})
}

func (e *Exporter) collectConverted(ctx context.Context, req Request, folder *archive.Folder, base string) archive.CollectionResult {
	result := archive.CollectionResult{Type: "converted"}

	docs := req.Converted
	if e.converter != nil && req.Current != "" {
		generated, err := e.converter.Convert(ctx, req.Current, base)
		if err != nil {
			result.Fail("converted", "convert current content: %v", err)
		} else {
			docs = append(docs, generated...)
		}
	}

	for _, doc := range docs {
		if doc.Filename == "" || len(doc.Data) == 0 {
			result.Fail("converted", "converted document without filename or data skipped")
			continue
		}
		if err := folder.Add(doc.Filename, doc.Data); err != nil {
			result.Fail("converted", "write %s: %v", doc.Filename, err)
			continue
		}
		result.Record(archive.Entry{
			Type:     "converted",
			Filename: doc.Filename,
			Size:     int64(len(doc.Data)),
			Format:   doc.Format,
		})
	}
	return result
}

func (e *Exporter) writeLines(folder *archive.Folder, pages []ocr.Page) error {
	payload, err := marshalLines(pages)
	if err != nil {
		return err
	}
	if err := folder.Add(linesFilename, payload); err != nil {
		return fmt.Errorf("write lines: %w", err)
	}
	return nil
}

func (e *Exporter) endpoint(req Request) string {
	if req.Debug != nil {
		return req.Debug.Endpoint
	}
	return ""
}

func (e *Exporter) pages(req Request) []data.PageStats {
	if req.Debug != nil && len(req.Debug.Pages) > 0 {
		return req.Debug.Pages
	}
	if len(req.Lines) == 0 {
		return nil
	}
	stats := make([]data.PageStats, 0, len(req.Lines))
	for _, p := range req.Lines {
		var sum float64
		for _, l := range p.Lines {
			sum += l.Confidence
		}
		avg := 0.0
		if len(p.Lines) > 0 {
			avg = sum / float64(len(p.Lines)) * 100
		}
		stats = append(stats, data.PageStats{
			Page:          p.Page,
			LineCount:     len(p.Lines),
			AvgConfidence: avg,
		})
	}
	return stats
}
