package qna

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	ExportFilename    = "qna_result.json"
	ExportContentType = "application/json; charset=utf-8"
)

// MarshalExport renders the downloadable file for a successful result: the
// QA list (or the ungrouped value) indented with non-ASCII text kept literal.
func MarshalExport(r Result) ([]byte, error) {
	if !r.OK() {
		return nil, fmt.Errorf("cannot export failed generation %s: %s", r.ID, r.Failure.Message)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r.Payload()); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
