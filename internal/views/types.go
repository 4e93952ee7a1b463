package views

// View is a saved query plus a presentation for its results.
// Views are stored as YAML files in ~/.config/offlinetasks/views/
type View struct {
	// Name is the unique identifier for this view (filename without .yaml extension)
	Name string `yaml:"name" validate:"required,min=1,max=50,alphanum_underscore"`

	// Description provides a human-readable explanation of the view's purpose
	Description string `yaml:"description,omitempty"`

	// Query selects and orders the tasks the view shows
	Query ViewQuery `yaml:"query,omitempty"`

	// Fields defines which task fields to display and how to format them
	Fields []FieldConfig `yaml:"fields" validate:"required,min=1,dive"`

	// Display contains overall presentation options
	Display DisplayOptions `yaml:"display,omitempty"`
}

// ViewQuery is the filter part of a view. Where entries use the
// "field:op:value" syntax accepted by --where on the command line.
type ViewQuery struct {
	Status   []string `yaml:"status,omitempty"`
	Priority []string `yaml:"priority,omitempty"`
	Tags     []string `yaml:"tags,omitempty"`
	Text     string   `yaml:"text,omitempty"`
	Blocked  *bool    `yaml:"blocked,omitempty"`
	Where    []string `yaml:"where,omitempty"`

	// Sort is "field[:asc|desc],..." e.g. "priority:desc,created_at"
	Sort  string `yaml:"sort,omitempty"`
	Limit int    `yaml:"limit,omitempty" validate:"min=-1,max=1000"`
}

// FieldConfig specifies how to display a single task field
type FieldConfig struct {
	// Name is the field identifier (see FieldRegistry)
	Name string `yaml:"name" validate:"required,oneof=id status title description priority tags category complexity blocked created started completed sync"`

	// Format specifies the display format for this field
	Format string `yaml:"format,omitempty"`

	// Label is printed before the value
	Label string `yaml:"label,omitempty"`

	// Width specifies the maximum width for this field (0 = no limit)
	Width int `yaml:"width,omitempty" validate:"min=0,max=200"`

	// Color enables/disables color coding for this field
	Color bool `yaml:"color,omitempty"`
}

// DisplayOptions controls overall presentation behavior
type DisplayOptions struct {
	// ShowHeader prints the view name and result counts above the list
	ShowHeader bool `yaml:"show_header"`

	// CompactMode renders every field of a task on one line
	CompactMode bool `yaml:"compact_mode"`

	// DateFormat specifies the Go time format string for dates
	DateFormat string `yaml:"date_format,omitempty"`
}

// FieldDefinition describes a task field's available formats
type FieldDefinition struct {
	Name          string
	Description   string
	Formats       []string
	DefaultFormat string
}
