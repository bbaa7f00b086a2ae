// Package templates renders the transactional emails. Every message is a
// triple of embedded files: <name>.subject.tmpl, <name>.text.tmpl and
// <name>.html.tmpl.
package templates

import (
	"embed"
	"fmt"
	htmpl "html/template"
	"io"
	"reflect"
	"strings"
	texttpl "text/template"
)

//go:embed *.tmpl
var FS embed.FS

// TaskReminder is the reminder sent for a task whose due date is near.
const TaskReminder = "task_reminder"

var funcs = map[string]any{
	"upper":   strings.ToUpper,
	"default": defaultFn,
}

// Parsed once; a broken embedded template is a build defect, so Must is fine.
var (
	textSet = texttpl.Must(texttpl.New("text").Funcs(funcs).ParseFS(FS, "*.subject.tmpl", "*.text.tmpl"))
	htmlSet = htmpl.Must(htmpl.New("html").Funcs(funcs).ParseFS(FS, "*.html.tmpl"))
)

// defaultFn supports pipe usage: {{ .Value | default "Fallback" }}
func defaultFn(fallback, value any) any {
	if s, ok := value.(string); ok {
		if strings.TrimSpace(s) == "" {
			return fallback
		}
		return s
	}
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || rv.IsZero() {
		return fallback
	}
	return value
}

type executor interface {
	Execute(w io.Writer, data any) error
}

func execute(name string, t executor, data any) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render %q: %w", name, err)
	}
	return sb.String(), nil
}

// Render produces the subject (trimmed to one line), text and HTML bodies of
// the named message.
func Render(name string, data any) (subject, text, html string, err error) {
	subjectTpl := textSet.Lookup(name + ".subject.tmpl")
	textTpl := textSet.Lookup(name + ".text.tmpl")
	htmlTpl := htmlSet.Lookup(name + ".html.tmpl")
	if subjectTpl == nil || textTpl == nil || htmlTpl == nil {
		return "", "", "", fmt.Errorf("unknown email template %q", name)
	}

	if subject, err = execute(subjectTpl.Name(), subjectTpl, data); err != nil {
		return "", "", "", err
	}
	if text, err = execute(textTpl.Name(), textTpl, data); err != nil {
		return "", "", "", err
	}
	if html, err = execute(htmlTpl.Name(), htmlTpl, data); err != nil {
		return "", "", "", err
	}
	subject, _, _ = strings.Cut(strings.TrimSpace(subject), "\n")
	return subject, text, html, nil
}
