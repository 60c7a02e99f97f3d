package utils

import (
	"bytes"
	"strings"
	"testing"
)

func TestPromptYesNo(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"yes", "y\n", true},
		{"yes word", "yes\n", true},
		{"uppercase yes", "Y\n", true},
		{"no", "n\n", false},
		{"uppercase no word", "NO\n", false},
		{"surrounding whitespace", "  yes  \n", true},
		{"empty answer defaults to no", "\n", false},
		{"garbage then yes", "maybe\ny\n", true},
		{"end of input counts as no", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got := promptYesNo(strings.NewReader(tt.input), &out, "Proceed?")
			if got != tt.want {
				t.Errorf("promptYesNo(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if !strings.Contains(out.String(), "Proceed? [y/N]: ") {
				t.Errorf("prompt output %q does not show the question", out.String())
			}
		})
	}
}

func TestPromptYesNoRepromptsUntilUsable(t *testing.T) {
	var out bytes.Buffer
	got := promptYesNo(strings.NewReader("what\nnope\nn\n"), &out, "Purge everything?")
	if got {
		t.Error("promptYesNo() = true, want false")
	}
	if prompts := strings.Count(out.String(), "[y/N]"); prompts != 3 {
		t.Errorf("asked %d times, want 3; output: %q", prompts, out.String())
	}
}
