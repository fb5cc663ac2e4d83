package notification

import (
	"bytes"
	htmltemplate "html/template"
	"log/slog"
	texttemplate "text/template"
)

// renderText executes a text template against data. Empty templates render empty.
func renderText(name, tmpl string, data map[string]string) (string, error) {
	if tmpl == "" {
		return "", nil
	}
	t, err := texttemplate.New(name).Parse(tmpl)
	if err != nil {
		slog.Error("Failed to parse text template", "template", name, "err", err)
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		slog.Error("Failed to execute text template", "template", name, "err", err)
		return "", err
	}
	return buf.String(), nil
}

// renderHTML executes an HTML template against data with contextual escaping.
func renderHTML(name, tmpl string, data map[string]string) (string, error) {
	if tmpl == "" {
		return "", nil
	}
	t, err := htmltemplate.New(name).Parse(tmpl)
	if err != nil {
		slog.Error("Failed to parse HTML template", "template", name, "err", err)
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		slog.Error("Failed to execute HTML template", "template", name, "err", err)
		return "", err
	}
	return buf.String(), nil
}
