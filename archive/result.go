package archive

import "fmt"

// CollectionError is one recoverable failure recorded while a stage ran.
// Stage failures are values, not Go errors: a collector always returns its
// partial result and only the top-level assembler can abort a build.
type CollectionError struct {
	Stage   string `json:"stage,omitempty"`
	Message string `json:"error"`
}

func (e CollectionError) Error() string {
	if e.Stage == "" {
		return e.Message
	}
	return e.Stage + ": " + e.Message
}

// CollectionResult is the outcome of one collector stage. It is immutable
// once returned.
type CollectionResult struct {
	// Type tags the stage outcome: the source modality for the source
	// collector, the response kind for the result collector, or a stage name.
	Type string `json:"type"`
	// Files lists every artifact the stage wrote, in write order.
	Files []Entry `json:"filesCollected"`
	// Errors lists recoverable failures hit along the way.
	Errors []CollectionError `json:"errors,omitempty"`
}

// Record appends a file entry.
func (r *CollectionResult) Record(e Entry) {
	r.Files = append(r.Files, e)
}

// Fail records a recoverable failure.
func (r *CollectionResult) Fail(stage, format string, args ...interface{}) {
	r.Errors = append(r.Errors, CollectionError{
		Stage:   stage,
		Message: fmt.Sprintf(format, args...),
	})
}

// TotalSize sums the uncompressed sizes of all collected files.
func (r CollectionResult) TotalSize() int64 {
	var total int64
	for _, f := range r.Files {
		total += f.Size
	}
	return total
}

// Filenames returns the collected filenames in write order.
func (r CollectionResult) Filenames() []string {
	names := make([]string, len(r.Files))
	for i, f := range r.Files {
		names[i] = f.Filename
	}
	return names
}
