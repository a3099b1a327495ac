package export

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"cdv/config"
)

// pageNameValues are the fields available to the page name template.
type pageNameValues struct {
	// deck name as it appears in the manifest
	Name string
	// slug path from the root, "/" separated
	Slug string
	// nesting depth of the deck under the root
	Depth int
}

// expandPageName expands the configured page name template for a deck and
// normalizes the result to a destination relative slash path.
func expandPageName(name config.TemplateFieldName, field string, values *pageNameValues) (string, error) {
	funcMap := sprig.FuncMap()

	tmpl, err := template.New(string(name)).Funcs(funcMap).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}

	out := filepath.ToSlash(buf.String())
	out = strings.TrimLeft(out, "/")
	if len(out) == 0 || strings.Contains(out, "..") {
		return "", fmt.Errorf("template field %s produced unusable page name %q", name, buf.String())
	}
	return out, nil
}

// relRoot returns the relative prefix leading from a page back to the export
// root ("" for a top level page, "../" per directory otherwise).
func relRoot(pageName string) string {
	return strings.Repeat("../", strings.Count(pageName, "/"))
}
