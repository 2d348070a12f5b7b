// Package source normalises the three input modalities — uploaded file,
// clipboard image, handwriting canvas — into named file entries inside the
// bundle's source folder.
package source

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/wudi/mathbundle/archive"
	"github.com/wudi/mathbundle/canvas"
	"github.com/wudi/mathbundle/observability"
)

// Modality is one of the three input-capture methods.
type Modality string

const (
	ModalityUpload    Modality = "upload"
	ModalityClipboard Modality = "clipboard"
	ModalityCanvas    Modality = "canvas"
)

// Valid reports whether m is a documented modality.
func (m Modality) Valid() bool {
	return m == ModalityUpload || m == ModalityClipboard || m == ModalityCanvas
}

// Fixed artifact names for the non-upload modalities.
const (
	ClipboardFilename = "clipboard-image.jpg"
	CanvasFilename    = "canvas-drawing.png"
	StrokesFilename   = "canvas-strokes.json"
)

// State is the capture state of one interaction, as handed over by the UI.
// Exactly one modality should be populated; detection resolves conflicts by
// priority.
type State struct {
	// Type is the optional explicit modality tag. It wins over detection.
	Type Modality
	// FileName and FileData describe a validated uploaded file.
	FileName string
	FileData []byte
	// Clipboard is a base64 payload, with or without a data-URI prefix.
	Clipboard string
	// Canvas is the drawing surface for the canvas modality.
	Canvas *canvas.Canvas
}

// Collector writes source artifacts into an archive folder.
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

// NewCollector returns a source collector.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{log: observability.NopLogger{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Detect resolves the state to exactly one modality. Priority: explicit tag,
// file reference, clipboard payload, canvas, then upload as the default.
func (c *Collector) Detect(state State) Modality {
	switch {
	case state.Type.Valid():
		return state.Type
	case state.FileName != "" && len(state.FileData) > 0:
		return ModalityUpload
	case state.Clipboard != "":
		return ModalityClipboard
	case state.Canvas != nil:
		return ModalityCanvas
	default:
		c.log.Warn("no source modality detected, defaulting to upload")
		return ModalityUpload
	}
}

// Collect writes the state's artifacts into folder and returns what was
// written. Failures are recorded in the result, never returned as errors.
func (c *Collector) Collect(ctx context.Context, state State, folder *archive.Folder) archive.CollectionResult {
	modality := c.Detect(state)
	result := archive.CollectionResult{Type: string(modality)}

	if err := ctx.Err(); err != nil {
		result.Fail("source", "context: %v", err)
		return result
	}

	switch modality {
	case ModalityUpload:
		c.collectUpload(state, folder, &result)
	case ModalityClipboard:
		c.collectClipboard(state, folder, &result)
	case ModalityCanvas:
		c.collectCanvas(state, folder, &result)
	}
	return result
}

func (c *Collector) collectUpload(state State, folder *archive.Folder, result *archive.CollectionResult) {
	if state.FileName == "" || len(state.FileData) == 0 {
		result.Fail("source", "no uploaded file in state")
		return
	}
	ext := filepath.Ext(state.FileName)
	name := SanitizeFilename(state.FileName) + strings.ToLower(ext)
	format := mimetype.Detect(state.FileData).String()

	if err := folder.Add(name, state.FileData); err != nil {
		result.Fail("source", "write upload: %v", err)
		return
	}
	result.Record(archive.Entry{
		Type:     string(ModalityUpload),
		Filename: name,
		Size:     int64(len(state.FileData)),
		Format:   format,
		Binary:   true,
	})
	c.log.Debug("collected upload",
		observability.String("filename", name),
		observability.Int("bytes", len(state.FileData)))
}

var dataURIPrefix = regexp.MustCompile(`^data:[^,;]*(;base64)?,`)

func (c *Collector) collectClipboard(state State, folder *archive.Folder, result *archive.CollectionResult) {
	payload := dataURIPrefix.ReplaceAllString(strings.TrimSpace(state.Clipboard), "")
	data, err := decodeBase64(payload)
	if err != nil {
		result.Fail("source", "decode clipboard image: %v", err)
		return
	}

	// The archive always labels pasted images as JPEG regardless of the
	// pasted encoding; the sniffed type is only surfaced in logs.
	if sniffed := mimetype.Detect(data); !sniffed.Is("image/jpeg") {
		c.log.Debug("clipboard payload relabeled",
			observability.String("sniffed", sniffed.String()))
	}

	if err := folder.Add(ClipboardFilename, data); err != nil {
		result.Fail("source", "write clipboard image: %v", err)
		return
	}
	result.Record(archive.Entry{
		Type:     string(ModalityClipboard),
		Filename: ClipboardFilename,
		Size:     int64(len(data)),
		Format:   "image/jpeg",
		Binary:   true,
	})
}

func (c *Collector) collectCanvas(state State, folder *archive.Folder, result *archive.CollectionResult) {
	if state.Canvas == nil {
		result.Fail("source", "no canvas in state")
		return
	}

	img, err := state.Canvas.EncodePNG()
	if err != nil {
		result.Fail("source", "encode canvas: %v", err)
	} else if err := folder.Add(CanvasFilename, img); err != nil {
		result.Fail("source", "write canvas image: %v", err)
	} else {
		result.Record(archive.Entry{
			Type:     string(ModalityCanvas),
			Filename: CanvasFilename,
			Size:     int64(len(img)),
			Format:   "image/png",
			Binary:   true,
		})
	}

	if state.Canvas.IsEmpty() {
		return
	}
	strokes, err := state.Canvas.StrokesJSON()
	if err != nil {
		result.Fail("source", "serialise strokes: %v", err)
		return
	}
	if err := folder.Add(StrokesFilename, strokes); err != nil {
		result.Fail("source", "write strokes: %v", err)
		return
	}
	result.Record(archive.Entry{
		Type:     "strokes",
		Filename: StrokesFilename,
		Size:     int64(len(strokes)),
		Format:   "application/json",
	})
}

func decodeBase64(payload string) ([]byte, error) {
	payload = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' {
			return -1
		}
		return r
	}, payload)
	if data, err := base64.StdEncoding.DecodeString(payload); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(payload)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
var separatorRuns = regexp.MustCompile(`-{2,}`)

// SanitizeFilename strips the extension and replaces path-unsafe characters
// with hyphens, collapsing and trimming separator runs. It is idempotent:
// sanitising a sanitised name returns it unchanged.
func SanitizeFilename(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = unsafeChars.ReplaceAllString(base, "-")
	base = separatorRuns.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")
	if base == "" {
		return "untitled"
	}
	return base
}
