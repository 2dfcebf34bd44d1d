package queue

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/flosch/pongo2/v6"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer holds the compiled mail templates, keyed by file name without
// extension.
type Renderer struct {
	templates map[string]*pongo2.Template
}

// NewRenderer compiles every embedded template.
func NewRenderer() (*Renderer, error) {
	entries, err := fs.ReadDir(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	r := &Renderer{templates: make(map[string]*pongo2.Template, len(entries))}
	for _, e := range entries {
		b, err := templateFS.ReadFile(path.Join("templates", e.Name()))
		if err != nil {
			return nil, err
		}
		tpl, err := pongo2.FromBytes(b)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", e.Name(), err)
		}
		r.templates[strings.TrimSuffix(e.Name(), path.Ext(e.Name()))] = tpl
	}
	return r, nil
}

// Render executes the event's template. The recipient's name and email
// are available to templates as full_name and email next to Params.
func (r *Renderer) Render(ev NotificationEvent) (string, error) {
	tpl, ok := r.templates[ev.Template]
	if !ok {
		return "", fmt.Errorf("unknown template %q", ev.Template)
	}
	ctx := pongo2.Context{"full_name": ev.FullName, "email": ev.Email}
	for k, v := range ev.Params {
		ctx[k] = v
	}
	return tpl.Execute(ctx)
}
