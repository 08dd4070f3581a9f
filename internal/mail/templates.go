package mail

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"maps"
	texttemplate "text/template"
)

//go:embed templates/*
var templateFS embed.FS

// Templates holds the parsed HTML and plain text template of every notification.
type Templates struct {
	html  map[string]*htmltemplate.Template
	plain map[string]*texttemplate.Template
}

// LoadTemplates parses the embedded templates.
func LoadTemplates() (*Templates, error) {
	t := &Templates{
		html:  make(map[string]*htmltemplate.Template),
		plain: make(map[string]*texttemplate.Template),
	}

	for _, name := range []string{TemplateTaskAssigned, TemplateTaskStatusChanged, TemplateProjectStatusChanged} {
		html, err := htmltemplate.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s html template: %w", name, err)
		}
		t.html[name] = html.Lookup(name + ".html")

		plain, err := texttemplate.ParseFS(templateFS, "templates/"+name+".txt")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s text template: %w", name, err)
		}
		t.plain[name] = plain
	}

	return t, nil
}

// Render renders msg into its HTML and plain text bodies. Messages without a
// template render their Body as plain text only.
func (t *Templates) Render(msg *Message) (html, plain string, err error) {
	if msg.Template == "" {
		return "", msg.Body, nil
	}

	htmlTmpl, ok := t.html[msg.Template]
	if !ok {
		return "", "", fmt.Errorf("unknown template %q", msg.Template)
	}
	plainTmpl := t.plain[msg.Template]

	data := maps.Clone(msg.Data)
	if data == nil {
		data = make(map[string]any)
	}
	data["Subject"] = msg.Subject

	var htmlBuf, plainBuf bytes.Buffer
	if err := htmlTmpl.Execute(&htmlBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to render %s html: %w", msg.Template, err)
	}
	if err := plainTmpl.Execute(&plainBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to render %s text: %w", msg.Template, err)
	}

	return htmlBuf.String(), plainBuf.String(), nil
}
