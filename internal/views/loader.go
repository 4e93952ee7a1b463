package views

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Register custom validation for alphanum_underscore
	validate.RegisterValidation("alphanum_underscore", func(fl validator.FieldLevel) bool {
		str := fl.Field().String()
		for _, r := range str {
			if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
				return false
			}
		}
		return true
	})
}

// LoadView loads a view configuration from a YAML file
func LoadView(path string) (*View, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read view file %s: %w", path, err)
	}

	name := filepath.Base(path)
	name = strings.TrimSuffix(strings.TrimSuffix(name, ".yaml"), ".yml")

	view, err := LoadViewFromBytes(data, name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return view, nil
}

// LoadViewFromBytes parses and validates a view. name is used when the YAML
// does not set one.
func LoadViewFromBytes(data []byte, name string) (*View, error) {
	var view View
	if err := yaml.Unmarshal(data, &view); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if view.Name == "" {
		view.Name = name
	}
	if err := normalize(&view); err != nil {
		return nil, err
	}
	return &view, nil
}

// normalize validates v and fills in default formats.
func normalize(v *View) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validation failed: %w", formatValidationError(err))
	}

	for i, field := range v.Fields {
		if !ValidateFieldFormat(field.Name, field.Format) {
			def, _ := GetFieldDefinition(field.Name)
			return fmt.Errorf("invalid format '%s' for field '%s' (valid formats: %v)",
				field.Format, field.Name, def.Formats)
		}
		if field.Format == "" {
			v.Fields[i].Format = GetDefaultFormat(field.Name)
		}
	}

	// Fail early on a bad query rather than at list time
	if _, _, err := v.Build(1); err != nil {
		return fmt.Errorf("invalid query: %w", err)
	}

	if v.Display.DateFormat == "" {
		v.Display.DateFormat = "2006-01-02"
	}
	return nil
}

// formatValidationError converts validator errors to user-friendly messages
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, e := range validationErrs {
			switch e.Tag() {
			case "required":
				return fmt.Errorf("field '%s' is required", e.Field())
			case "min":
				return fmt.Errorf("field '%s' must have at least %s items/characters", e.Field(), e.Param())
			case "max":
				return fmt.Errorf("field '%s' must have at most %s items/characters", e.Field(), e.Param())
			case "oneof":
				return fmt.Errorf("field '%s' must be one of: %s", e.Field(), e.Param())
			case "alphanum_underscore":
				return fmt.Errorf("field '%s' must contain only letters, numbers, underscores, and hyphens", e.Field())
			}
		}
	}
	return err
}
