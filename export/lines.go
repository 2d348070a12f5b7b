package export

import (
	"encoding/json"
	"fmt"

	"github.com/wudi/mathbundle/ocr"
)

// linesDocument is the JSON layout of data/lines.json.
type linesDocument struct {
	Pages []ocr.Page `json:"pages"`
}

func marshalLines(pages []ocr.Page) ([]byte, error) {
	payload, err := json.MarshalIndent(linesDocument{Pages: pages}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal lines: %w", err)
	}
	return payload, nil
}
