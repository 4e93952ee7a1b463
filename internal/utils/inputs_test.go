package utils

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

// mockStdin replaces os.Stdin with a pipe containing test input
func mockStdin(t *testing.T, input string) func() {
	oldStdin := os.Stdin
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}

	os.Stdin = r

	go func() {
		defer w.Close()
		io.WriteString(w, input)
	}()

	return func() {
		os.Stdin = oldStdin
		r.Close()
	}
}

func TestPromptYesNoFrom(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    bool
		reasked bool
	}{
		{"y", "y\n", true, false},
		{"YES", "YES\n", true, false},
		{"n", "n\n", false, false},
		{"No with spaces", "  No  \n", false, false},
		{"invalid then yes", "maybe\ny\n", true, true},
		{"eof", "", false, false},
		{"invalid then eof", "what\n", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got := PromptYesNoFrom(strings.NewReader(tt.input), &out, "Continue?")
			if got != tt.want {
				t.Errorf("PromptYesNoFrom(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if !strings.Contains(out.String(), "Continue? (y/n)") {
				t.Errorf("Question not printed: %q", out.String())
			}
			if reasked := strings.Contains(out.String(), "Please enter y or n"); reasked != tt.reasked {
				t.Errorf("Re-ask = %v, want %v", reasked, tt.reasked)
			}
		})
	}
}

func TestPromptYesNo_Stdin(t *testing.T) {
	cleanup := mockStdin(t, "yes\n")
	defer cleanup()

	if !PromptYesNo("Import and replace all tasks?") {
		t.Error("PromptYesNo should read from stdin")
	}
}

func TestPromptSecret_Piped(t *testing.T) {
	cleanup := mockStdin(t, "  s3cret-token \n")
	defer cleanup()

	got, err := PromptSecret("Token: ")
	if err != nil {
		t.Fatalf("PromptSecret failed: %v", err)
	}
	if got != "s3cret-token" {
		t.Errorf("PromptSecret() = %q, want trimmed token", got)
	}
}
