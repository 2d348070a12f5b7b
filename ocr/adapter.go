package ocr

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DetectKind classifies a decoded response payload. Detection order: explicit
// tag, PDF-specific keys, stroke/canvas keys, text keys, then KindText as the
// default.
func DetectKind(payload map[string]interface{}) Kind {
	if tag, ok := payload["kind"].(string); ok && Kind(tag).Valid() {
		return Kind(tag)
	}
	if tag, ok := payload["type"].(string); ok && Kind(tag).Valid() {
		return Kind(tag)
	}
	for _, key := range []string{"pdf_id", "num_pages", "conversion_status"} {
		if _, ok := payload[key]; ok {
			return KindPDF
		}
	}
	for _, key := range []string{"stroke_count", "canvas_width", "canvas_height", "strokes"} {
		if _, ok := payload[key]; ok {
			return KindStrokes
		}
	}
	for _, key := range []string{"text", "latex_styled", "latex"} {
		if _, ok := payload[key]; ok {
			return KindText
		}
	}
	return KindText
}

// DetectKindBytes decodes raw JSON and classifies it. Undecodable payloads
// default to KindText.
func DetectKindBytes(raw []byte) Kind {
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return KindText
	}
	return DetectKind(payload)
}

// FromRaw collapses a raw API response into the canonical Formats value. The
// original bytes are retained verbatim in Formats.Raw.
func FromRaw(raw []byte) (Formats, error) {
	var resp RawResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Formats{}, fmt.Errorf("decode raw response: %w", err)
	}
	f := fromRawResponse(resp)
	f.Kind = DetectKindBytes(raw)
	f.Raw = append(json.RawMessage(nil), raw...)
	return f, nil
}

func fromRawResponse(resp RawResponse) Formats {
	f := Formats{
		RequestID:      resp.RequestID,
		Confidence:     resp.Confidence,
		ConfidenceRate: resp.ConfidenceRate,
		IsHandwritten:  resp.IsHandwritten,
		IsPrinted:      resp.IsPrinted,
		Lines:          resp.LineData,
		StrokeCount:    resp.StrokeCount,
		CanvasWidth:    resp.CanvasWidth,
		CanvasHeight:   resp.CanvasHeight,
	}

	// latex_styled wins over the plain text rendering when both exist.
	f.LaTeX = strings.TrimSpace(resp.LaTeXStyled)
	if f.LaTeX == "" {
		f.LaTeX = strings.TrimSpace(resp.Text)
	}
	f.HTML = strings.TrimSpace(resp.HTML)

	for _, entry := range resp.Data {
		value := strings.TrimSpace(entry.Value)
		if value == "" {
			continue
		}
		switch entry.Type {
		case "mathml":
			f.MathML = value
		case "asciimath":
			f.AsciiMath = value
		case "latex":
			if f.LaTeX == "" {
				f.LaTeX = value
			}
		case "tsv":
			f.TableTSV = value
		case "html":
			if f.TableHTML == "" {
				f.TableHTML = value
			}
		case "markdown", "md":
			f.Markdown = value
		}
	}
	return f
}

// FromRenderer collapses pre-rendered renderer fields into the canonical
// Formats value.
func FromRenderer(r RendererShape) Formats {
	f := Formats{
		Kind:      r.Kind,
		LaTeX:     strings.TrimSpace(r.LaTeX),
		MathML:    strings.TrimSpace(r.MathML),
		AsciiMath: strings.TrimSpace(r.AsciiMath),
		HTML:      strings.TrimSpace(r.HTML),
		TableHTML: strings.TrimSpace(r.TableHTML),
		TableTSV:  strings.TrimSpace(r.TableTSV),
		Markdown:  strings.TrimSpace(r.Markdown),
	}
	if len(r.JSON) > 0 {
		f.Raw = append(json.RawMessage(nil), r.JSON...)
		if parsed, err := FromRaw(r.JSON); err == nil {
			f.RequestID = parsed.RequestID
			f.Confidence = parsed.Confidence
			f.ConfidenceRate = parsed.ConfidenceRate
			f.IsHandwritten = parsed.IsHandwritten
			f.IsPrinted = parsed.IsPrinted
			f.Lines = parsed.Lines
			if !f.Kind.Valid() {
				f.Kind = parsed.Kind
			}
		}
	}
	if !f.Kind.Valid() {
		f.Kind = KindText
	}
	return f
}
