package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// OutputJSON prints v to stdout as indented JSON, for --json command flags.
func OutputJSON(v any) error {
	return writeJSON(os.Stdout, v)
}

// OutputYAML prints v to stdout as YAML, for --yaml command flags.
func OutputYAML(v any) error {
	return writeYAML(os.Stdout, v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		enc.Close()
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return enc.Close()
}
