package views

import (
	"fmt"
	"strings"
	"time"

	"offlinetasks/backend"
	"offlinetasks/internal/views/formatters"

	"github.com/charmbracelet/lipgloss"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))

// ViewRenderer renders tasks according to view configuration
type ViewRenderer struct {
	view    *View
	ctx     *formatters.FormatContext
	fmtMap  map[string]formatters.FieldFormatter
	noColor bool
}

// NewViewRenderer creates a new view renderer. An empty dateFormat uses the view's.
func NewViewRenderer(view *View, dateFormat string, now time.Time) *ViewRenderer {
	if dateFormat == "" {
		dateFormat = view.Display.DateFormat
	}

	renderer := &ViewRenderer{
		view:   view,
		ctx:    formatters.NewFormatContext(dateFormat, now),
		fmtMap: make(map[string]formatters.FieldFormatter),
	}
	renderer.initializeFormatters()
	return renderer
}

// SetColor turns color output on or off regardless of the field settings.
func (r *ViewRenderer) SetColor(enabled bool) {
	r.noColor = !enabled
}

// initializeFormatters creates formatter instances for all fields in the view
func (r *ViewRenderer) initializeFormatters() {
	for _, field := range r.view.Fields {
		var formatter formatters.FieldFormatter

		switch field.Name {
		case "id":
			formatter = formatters.NewIDFormatter(r.ctx)
		case "status":
			formatter = formatters.NewStatusFormatter(r.ctx)
		case "title":
			formatter = formatters.NewTitleFormatter(r.ctx)
		case "description":
			formatter = formatters.NewDescriptionFormatter(r.ctx)
		case "priority":
			formatter = formatters.NewPriorityFormatter(r.ctx)
		case "tags":
			formatter = formatters.NewTagsFormatter(r.ctx)
		case "category", "complexity":
			formatter = formatters.NewCategoryFormatter(r.ctx, field.Name)
		case "blocked":
			formatter = formatters.NewBlockedFormatter(r.ctx)
		case "created", "started", "completed":
			formatter = formatters.NewDateFormatter(r.ctx, field.Name)
		case "sync":
			formatter = formatters.NewSyncFormatter(r.ctx)
		}

		if formatter != nil {
			r.fmtMap[field.Name] = formatter
		}
	}
}

// fieldOutputs formats every configured field in order, skipping empty values.
func (r *ViewRenderer) fieldOutputs(task backend.Task) []fieldOutput {
	var out []fieldOutput
	for _, field := range r.view.Fields {
		formatter := r.fmtMap[field.Name]
		if formatter == nil {
			continue
		}
		text := formatter.Format(task, field.Format, field.Width, field.Color && !r.noColor)
		if text == "" {
			continue
		}
		if field.Label != "" {
			text = field.Label + ": " + text
		}
		out = append(out, fieldOutput{name: field.Name, text: text})
	}
	return out
}

type fieldOutput struct {
	name string
	text string
}

// Fields that go on the first line in standard mode.
var mainLineFields = map[string]bool{"status": true, "id": true, "title": true, "sync": true}

// RenderTask renders a single task according to the view configuration
func (r *ViewRenderer) RenderTask(task backend.Task) string {
	outputs := r.fieldOutputs(task)

	var result strings.Builder
	if r.view.Display.CompactMode {
		parts := make([]string, 0, len(outputs))
		for _, o := range outputs {
			parts = append(parts, o.text)
		}
		result.WriteString("  " + strings.Join(parts, " ") + "\n")
		return result.String()
	}

	// Standard mode: main line, optional description line, metadata line
	var main, meta []string
	desc := ""
	for _, o := range outputs {
		switch {
		case mainLineFields[o.name]:
			main = append(main, o.text)
		case o.name == "description":
			desc = o.text
		default:
			meta = append(meta, o.text)
		}
	}
	result.WriteString("  " + strings.Join(main, " ") + "\n")
	if desc != "" {
		result.WriteString(fmt.Sprintf("     %s\n", desc))
	}
	if len(meta) > 0 {
		result.WriteString(fmt.Sprintf("     %s\n", strings.Join(meta, " | ")))
	}
	return result.String()
}

// RenderTasks renders multiple tasks
func (r *ViewRenderer) RenderTasks(tasks []backend.Task) string {
	var result strings.Builder
	for _, task := range tasks {
		result.WriteString(r.RenderTask(task))
	}
	return result.String()
}

// RenderPage renders a search result with the optional header and a page footer.
func (r *ViewRenderer) RenderPage(page *backend.Page) string {
	var result strings.Builder
	if r.view.Display.ShowHeader {
		header := fmt.Sprintf("%s (%d)", r.view.Name, page.Total)
		if !r.noColor {
			header = headerStyle.Render(header)
		}
		result.WriteString(header + "\n")
	}
	if len(page.Items) == 0 {
		result.WriteString("  No tasks.\n")
		return result.String()
	}
	result.WriteString(r.RenderTasks(page.Items))
	if page.TotalPages > 1 {
		result.WriteString(fmt.Sprintf("  page %d/%d", page.Page, page.TotalPages))
		if page.HasNext {
			result.WriteString(fmt.Sprintf(" (next: --page %d)", page.Page+1))
		}
		result.WriteString("\n")
	}
	return result.String()
}
