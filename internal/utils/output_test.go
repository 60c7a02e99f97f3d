package utils

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

type statsDoc struct {
	Entries     int    `json:"entries" yaml:"entries"`
	Collections int    `json:"collections" yaml:"collections"`
	Path        string `json:"path" yaml:"path"`
}

func TestWriteJSON(t *testing.T) {
	in := statsDoc{Entries: 12, Collections: 3, Path: "/tmp/board.db"}

	var buf bytes.Buffer
	if err := writeJSON(&buf, in); err != nil {
		t.Fatalf("writeJSON() failed: %v", err)
	}

	var out statsDoc
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if out != in {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("JSON output is not indented")
	}
}

func TestWriteJSONUnencodable(t *testing.T) {
	if err := writeJSON(&bytes.Buffer{}, make(chan int)); err == nil {
		t.Error("expected an error for an unencodable value")
	}
}

func TestWriteYAML(t *testing.T) {
	in := statsDoc{Entries: 7, Collections: 2, Path: "/tmp/board.db"}

	var buf bytes.Buffer
	if err := writeYAML(&buf, in); err != nil {
		t.Fatalf("writeYAML() failed: %v", err)
	}

	var out statsDoc
	if err := yaml.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if out != in {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}

func TestWriteYAMLList(t *testing.T) {
	in := []statsDoc{{Entries: 1}, {Entries: 2}}

	var buf bytes.Buffer
	if err := writeYAML(&buf, in); err != nil {
		t.Fatalf("writeYAML() failed: %v", err)
	}

	var out []statsDoc
	if err := yaml.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if len(out) != 2 || out[1].Entries != 2 {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}
