package utils

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"
)

// mockStdout captures stdout output for testing
func mockStdout(t *testing.T) func() string {
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}

	os.Stdout = w

	outChan := make(chan string)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, r)
		outChan <- buf.String()
	}()

	return func() string {
		w.Close()
		os.Stdout = oldStdout
		return <-outChan
	}
}

type sample struct {
	ID    int64    `json:"id" yaml:"id"`
	Title string   `json:"title" yaml:"title"`
	Tags  []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"YAML", FormatYAML, false},
		{" yml ", FormatYAML, false},
		{"toml", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]Format{
		"backup.json":      FormatJSON,
		"backup.YAML":      FormatYAML,
		"/tmp/export.yml":  FormatYAML,
		"no-extension":     FormatJSON,
		"weird.snapshot.x": FormatJSON,
	}
	for path, want := range tests {
		if got := FormatFromPath(path); got != want {
			t.Errorf("FormatFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestWriteAndUnmarshal(t *testing.T) {
	in := sample{ID: 3, Title: "Write report", Tags: []string{"work"}}

	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Write(&buf, in, format); err != nil {
				t.Fatalf("Write failed: %v", err)
			}

			var out sample
			if err := Unmarshal(buf.Bytes(), format, &out); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if out.ID != in.ID || out.Title != in.Title || len(out.Tags) != 1 {
				t.Errorf("Decoded %+v, want %+v", out, in)
			}
		})
	}
}

func TestUnmarshal_Invalid(t *testing.T) {
	var out sample
	if err := Unmarshal([]byte("{not json"), FormatJSON, &out); err == nil || !strings.Contains(err.Error(), "JSON") {
		t.Errorf("Expected JSON parse error, got %v", err)
	}
	if err := Unmarshal([]byte("id: [unclosed"), FormatYAML, &out); err == nil || !strings.Contains(err.Error(), "YAML") {
		t.Errorf("Expected YAML parse error, got %v", err)
	}
}

func TestOutputJSON(t *testing.T) {
	restore := mockStdout(t)
	err := OutputJSON(sample{ID: 1, Title: "x"})
	output := restore()

	if err != nil {
		t.Fatalf("OutputJSON failed: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(output), &decoded); err != nil {
		t.Fatalf("Output is not valid JSON: %q", output)
	}
	if !strings.Contains(output, "\n  \"title\"") {
		t.Errorf("Expected indented JSON, got %q", output)
	}
}

func TestOutputYAML(t *testing.T) {
	restore := mockStdout(t)
	err := OutputYAML(sample{ID: 1, Title: "x"})
	output := restore()

	if err != nil {
		t.Fatalf("OutputYAML failed: %v", err)
	}
	if !strings.Contains(output, "title: x") {
		t.Errorf("Unexpected YAML output: %q", output)
	}
}

func TestMarshalJSON_Error(t *testing.T) {
	if _, err := MarshalJSON(make(chan int)); err == nil {
		t.Error("Expected error for unmarshalable value")
	}
}
