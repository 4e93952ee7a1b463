package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a structured output format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown format %q (want json or yaml)", s)
}

// FormatFromPath picks the format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// OutputJSON marshals the provided data as indented JSON and prints it to stdout.
func OutputJSON(data interface{}) error {
	return Write(os.Stdout, data, FormatJSON)
}

// OutputYAML marshals the provided data as YAML and prints it to stdout.
func OutputYAML(data interface{}) error {
	return Write(os.Stdout, data, FormatYAML)
}

// Write encodes data to w in the given format.
func Write(w io.Writer, data interface{}, format Format) error {
	out, err := Marshal(data, format)
	if err != nil {
		return err
	}
	if format == FormatJSON {
		out = append(out, '\n')
	}
	_, err = w.Write(out)
	return err
}

// Marshal encodes data in the given format.
func Marshal(data interface{}, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return MarshalYAML(data)
	default:
		return MarshalJSON(data)
	}
}

// Unmarshal decodes data in the given format into v.
func Unmarshal(data []byte, format Format, v interface{}) error {
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse JSON: %w", err)
		}
	}
	return nil
}

// MarshalJSON marshals the provided data as indented JSON.
func MarshalJSON(data interface{}) ([]byte, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return jsonData, nil
}

// MarshalYAML marshals the provided data as YAML.
func MarshalYAML(data interface{}) ([]byte, error) {
	yamlData, err := yaml.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return yamlData, nil
}
