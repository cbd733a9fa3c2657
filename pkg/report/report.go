// Package report renders configured interactions and verification results as
// plain text, markdown or HTML using embedded pongo2 templates.
package report

import (
	"embed"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/goliatone/go-avrocontract/pkg/orchestrator"
)

//go:embed templates/*.tpl
var templateFiles embed.FS

// Format selects the report template.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// Formats lists the supported report formats.
func Formats() []Format {
	return []Format{FormatText, FormatMarkdown, FormatHTML}
}

// ParseFormat accepts a format name or a common alias ("md", "txt").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("report: unknown format %q", s)
}

// Entry is one rule or generator row.
type Entry struct {
	Category string `json:"category"`
	Path     string `json:"path"`
	Type     string `json:"type"`
	Params   string `json:"params,omitempty"`
}

// Problem is one verification mismatch row.
type Problem struct {
	Record   int    `json:"record"`
	Path     string `json:"path"`
	Rule     string `json:"rule"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
	Message  string `json:"message"`
}

// Report is the template view model.
type Report struct {
	Title       string    `json:"title"`
	Notes       string    `json:"notes,omitempty"`
	Record      string    `json:"record"`
	ContentType string    `json:"content_type,omitempty"`
	Hint        string    `json:"hint,omitempty"`
	Size        int       `json:"size"`
	Hexdump     string    `json:"hexdump,omitempty"`
	Values      []string  `json:"values"`
	Rules       []Entry   `json:"rules"`
	Generators  []Entry   `json:"generators"`
	Verified    bool      `json:"verified"`
	Problems    []Problem `json:"problems"`
}

// OK reports whether a verification report carries no problems.
func (r Report) OK() bool {
	return len(r.Problems) == 0
}

// FromInteraction builds a report for a configured interaction.
func FromInteraction(in orchestrator.Interaction) Report {
	r := Report{
		Title:       "Interaction " + in.Record,
		Record:      in.Record,
		ContentType: in.Contents.ContentType,
		Hint:        string(in.Contents.Hint),
		Size:        len(in.Contents.Payload),
		Hexdump:     strings.TrimRight(hex.Dump(in.Contents.Payload), "\n"),
		Values:      []string{in.Value.String()},
	}
	for _, category := range in.Rules.Categories() {
		idx := in.Rules.Category(category)
		for _, path := range idx.Paths() {
			for _, rule := range idx.Get(path) {
				r.Rules = append(r.Rules, Entry{Category: category, Path: path, Type: rule.Type, Params: params(rule.Values)})
			}
		}
	}
	for _, category := range in.Generators.Categories() {
		idx := in.Generators.Category(category)
		for _, path := range idx.Paths() {
			for _, gen := range idx.Get(path) {
				r.Generators = append(r.Generators, Entry{Category: category, Path: path, Type: gen.Type, Params: params(gen.Values)})
			}
		}
	}
	return r
}

// FromVerify builds a report for a verification result.
func FromVerify(record string, res orchestrator.VerifyResult) Report {
	r := Report{
		Title:    "Verification " + record,
		Record:   record,
		Verified: true,
	}
	for _, v := range res.Values {
		r.Values = append(r.Values, v.String())
	}
	for _, m := range res.Mismatches {
		r.Problems = append(r.Problems, Problem{
			Record:   m.Record,
			Path:     m.Path,
			Rule:     m.Rule,
			Expected: m.Expected,
			Actual:   m.Actual,
			Message:  m.Message,
		})
	}
	return r
}

func params(values map[string]any) string {
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		b, err := json.Marshal(values[k])
		if err != nil {
			b = []byte(fmt.Sprint(values[k]))
		}
		parts = append(parts, k+"="+string(b))
	}
	return strings.Join(parts, " ")
}

// TemplatesFS exposes the embedded report templates at the root of an fs.FS.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		return templateFiles
	}
	return sub
}

// Renderer renders reports with the embedded templates.
type Renderer struct {
	engine *Engine
}

// NewRenderer loads the embedded templates.
func NewRenderer() (*Renderer, error) {
	engine, err := NewEngine(TemplatesFS(), ".tpl")
	if err != nil {
		return nil, err
	}
	return &Renderer{engine: engine}, nil
}

// Render writes r to w in format and returns the rendered text.
func (rd *Renderer) Render(w io.Writer, format Format, r Report) (string, error) {
	name, err := templateName(format)
	if err != nil {
		return "", err
	}
	data := map[string]any{"report": r, "ok": r.OK()}
	if w == nil {
		return rd.engine.RenderTemplate(name, data)
	}
	return rd.engine.RenderTemplate(name, data, w)
}

func templateName(format Format) (string, error) {
	switch format {
	case FormatText:
		return "report.txt", nil
	case FormatMarkdown:
		return "report.md", nil
	case FormatHTML:
		return "report.html", nil
	}
	return "", fmt.Errorf("report: unknown format %q", format)
}
