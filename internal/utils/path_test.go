package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		input string
		want  string
	}{
		{"~", home},
		{"~/.local/share/jtxboard/board.db", filepath.Join(home, ".local/share/jtxboard/board.db")},
		{"/var/lib/jtxboard", "/var/lib/jtxboard"},
		{"relative/attachments", "relative/attachments"},
		{"", ""},
		{"data/~/inner", "data/~/inner"},
	}

	for _, tt := range tests {
		got, err := ExpandPath(tt.input)
		if err != nil {
			t.Errorf("ExpandPath(%q) failed: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestExpandPathEnvironment(t *testing.T) {
	t.Setenv("JTXBOARD_TEST_DIR", "/srv/jtxboard")

	got, err := ExpandPath("$JTXBOARD_TEST_DIR/attachments")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/srv/jtxboard/attachments" {
		t.Errorf("ExpandPath() = %q, want /srv/jtxboard/attachments", got)
	}
}

func TestExpandPathEnvironmentThenTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv("JTXBOARD_TEST_SUB", "attachments")

	got, err := ExpandPath("~/$JTXBOARD_TEST_SUB")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, "attachments"); got != want {
		t.Errorf("ExpandPath() = %q, want %q", got, want)
	}
}
