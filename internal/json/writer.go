package json

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dgellow/finfront/internal/log"
)

// ErrorOutput is what -json mode prints when a command fails
type ErrorOutput struct {
	Error    string   `json:"error"`
	Kind     string   `json:"kind,omitempty"`
	Status   int      `json:"status,omitempty"`
	Messages []string `json:"messages,omitempty"`
}

// Write writes v as indented JSON followed by a newline
func Write(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.LogError("Failed to encode JSON output: %v", err)
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}

// WriteError writes a structured error document
func WriteError(w io.Writer, out ErrorOutput) error {
	return Write(w, out)
}
