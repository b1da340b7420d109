// Package render provides output rendering for the ddmscope CLI.
//
// Format selection rules:
//   - If output is a TTY, default to table
//   - If output is not a TTY, default to json
//   - --format flag always overrides defaults
//   - Invalid formats are errors
//
// --no-color affects table output only.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// Format represents an output format.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a format string, returning an error for invalid formats.
// An empty string parses to the empty Format, leaving the default to the caller.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatJSONL, FormatTable, FormatYAML, "":
		return f, nil
	default:
		return "", fmt.Errorf("invalid format: %q (must be json, jsonl, table, or yaml)", s)
	}
}

// Renderer handles output formatting.
type Renderer struct {
	format Format
	styles styles
	out    io.Writer
}

// NewRenderer creates a renderer from CLI context, reading the format and
// no-color flags.
func NewRenderer(c *cli.Context) (*Renderer, error) {
	format, err := ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = FormatJSON
		if isTTY(os.Stdout) {
			format = FormatTable
		}
	}
	return NewRendererWithWriter(format, c.Bool("no-color"), c.App.Writer), nil
}

// NewRendererWithWriter creates a renderer writing to out.
func NewRendererWithWriter(format Format, noColor bool, out io.Writer) *Renderer {
	return &Renderer{
		format: format,
		styles: newStyles(noColor),
		out:    out,
	}
}

// Format returns the output format.
func (r *Renderer) Format() Format {
	return r.format
}

// Render outputs the data in the configured format.
func (r *Renderer) Render(data any) error {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatJSONL:
		return r.renderJSONL(data)
	case FormatTable:
		return r.renderTable(data)
	case FormatYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

// Title prints a styled heading above table output. Other formats ignore it.
func (r *Renderer) Title(text string) {
	if r.format == FormatTable {
		fmt.Fprintln(r.out, r.styles.title.Render(text))
	}
}

// renderJSONL writes one compact JSON document per slice element, or a
// single line for any other value.
func (r *Renderer) renderJSONL(data any) error {
	enc := json.NewEncoder(r.out)
	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Slice {
		return enc.Encode(data)
	}
	for i := range v.Len() {
		if err := enc.Encode(v.Index(i).Interface()); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) renderTable(data any) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	v := indirect(reflect.ValueOf(data))
	if v.Kind() == reflect.Slice {
		if v.Len() == 0 {
			fmt.Fprintln(w, r.styles.muted.Render("(no results)"))
			return nil
		}
		names, _ := columns(indirect(v.Index(0)))
		fmt.Fprintln(w, strings.Join(names, "\t"))
		for i := range v.Len() {
			row := indirect(v.Index(i))
			if row.Kind() == reflect.Map {
				fmt.Fprintln(w, strings.Join(mapRow(row, names), "\t"))
				continue
			}
			_, values := columns(row)
			fmt.Fprintln(w, strings.Join(values, "\t"))
		}
		return nil
	}

	names, values := columns(v)
	if names == nil {
		fmt.Fprintf(w, "%v\n", data)
		return nil
	}
	for i, name := range names {
		fmt.Fprintf(w, "%s:\t%s\n", name, values[i])
	}
	return nil
}

// columns returns the field names and formatted values of a struct, or the
// sorted keys and values of a map. Other kinds have no columns.
func columns(v reflect.Value) (names, values []string) {
	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			names = append(names, fieldName(f))
			values = append(values, formatValue(v.Field(i)))
		}
	case reflect.Map:
		keys := v.MapKeys()
		for _, k := range keys {
			names = append(names, fmt.Sprint(k.Interface()))
		}
		slices.Sort(names)
		values = mapRow(v, names)
	}
	return names, values
}

func mapRow(v reflect.Value, names []string) []string {
	values := make([]string, len(names))
	for _, k := range v.MapKeys() {
		if i := slices.Index(names, fmt.Sprint(k.Interface())); i >= 0 {
			values[i] = formatValue(v.MapIndex(k))
		}
	}
	return values
}

func fieldName(f reflect.StructField) string {
	if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name != "" && name != "-" {
		return name
	}
	return strings.ToLower(f.Name)
}

func formatValue(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	if (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && v.IsNil() {
		return ""
	}
	v = indirect(v)

	if t, ok := v.Interface().(time.Time); ok {
		return t.Format(time.RFC3339)
	}
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return "[]"
		}
		return fmt.Sprintf("[%d items]", v.Len())
	case reflect.Map:
		if v.Len() == 0 {
			return "{}"
		}
		return fmt.Sprintf("{%d keys}", v.Len())
	case reflect.Struct:
		return "{...}"
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

func indirect(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v
		}
		v = v.Elem()
	}
	return v
}

// isTTY returns true if the file is a terminal.
func isTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
