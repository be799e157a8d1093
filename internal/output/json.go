package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/codefox/internal/review"
)

// JSONWriter outputs the full report as JSON. HTML characters in the model
// answer are written as-is.
type JSONWriter struct{}

func (j *JSONWriter) Write(w io.Writer, report *review.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	return nil
}
