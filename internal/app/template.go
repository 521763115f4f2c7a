package app

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/render"

	"github.com/simp-lee/escola/internal/format"
)

// TemplateRenderer is the gin HTML renderer for the page and fragment
// templates under templates/.
//
// Layouts (templates/layouts) and partials (templates/partials) form a base
// set that every page is parsed on top of, so a page defines "title" and
// "content" blocks and calls {{template "base" .}} (or "guardian"). A page
// that is only a fragment (an htmx swap target) simply never calls a layout.
//
// In debug mode the whole set is re-parsed on every render so edits show up
// without a restart; otherwise it is parsed once in NewTemplateRenderer.
type TemplateRenderer struct {
	fs      fs.FS
	funcMap template.FuncMap
	debug   bool

	mu    sync.RWMutex
	pages map[string]*template.Template
}

var _ render.HTMLRender = (*TemplateRenderer)(nil)

// NewTemplateRenderer parses the templates in fsys, which must hold a
// templates/ directory.
func NewTemplateRenderer(fsys fs.FS, debug bool) (*TemplateRenderer, error) {
	r := &TemplateRenderer{fs: fsys, funcMap: templateFuncMap(), debug: debug}
	pages, err := r.parse()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r.pages = pages
	return r, nil
}

// Instance implements render.HTMLRender. name is the page path relative to
// templates/, e.g. "records/list.html".
func (r *TemplateRenderer) Instance(name string, data any) render.Render {
	if r.debug {
		pages, err := r.parse()
		if err != nil {
			return &HTMLInstance{Name: name, err: err}
		}
		r.mu.Lock()
		r.pages = pages
		r.mu.Unlock()
	}
	r.mu.RLock()
	t := r.pages[name]
	r.mu.RUnlock()
	return &HTMLInstance{Template: t, Name: name, Data: data}
}

// Has reports whether a page named name was parsed.
func (r *TemplateRenderer) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.pages[name]
	return ok
}

func (r *TemplateRenderer) parse() (map[string]*template.Template, error) {
	base := template.New("").Funcs(r.funcMap)
	for _, dir := range []string{"layouts", "partials"} {
		files, err := fs.Glob(r.fs, "templates/"+dir+"/*.html")
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", dir, err)
		}
		for _, f := range files {
			if err := parseInto(base, r.fs, f, f); err != nil {
				return nil, err
			}
		}
	}

	pages := map[string]*template.Template{}
	err := fs.WalkDir(r.fs, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}
		name := strings.TrimPrefix(path, "templates/")
		if strings.HasPrefix(name, "layouts/") || strings.HasPrefix(name, "partials/") {
			return nil
		}
		page, err := base.Clone()
		if err != nil {
			return fmt.Errorf("clone base for %s: %w", name, err)
		}
		if err := parseInto(page, r.fs, path, name); err != nil {
			return err
		}
		pages[name] = page
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pages, nil
}

func parseInto(t *template.Template, fsys fs.FS, path, name string) error {
	content, err := fs.ReadFile(fsys, path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if _, err := t.New(name).Parse(string(content)); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func templateFuncMap() template.FuncMap {
	return template.FuncMap{
		"currency":  format.CurrencyOf,
		"amount":    format.Amount,
		"date":      format.Date,
		"dateInput": format.DateInput,
		"month":     format.Month,
		// json embeds v in a script or attribute context.
		"json": func(v any) template.JS {
			b, err := json.Marshal(v)
			if err != nil {
				return template.JS("null")
			}
			return template.JS(b)
		},
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
		"seq": func(start, end int) []int {
			if start > end {
				return nil
			}
			s := make([]int, 0, end-start+1)
			for i := start; i <= end; i++ {
				s = append(s, i)
			}
			return s
		},
		// dict builds a map for passing several values to a partial.
		"dict": func(kv ...any) (map[string]any, error) {
			if len(kv)%2 != 0 {
				return nil, fmt.Errorf("dict: odd number of arguments")
			}
			m := make(map[string]any, len(kv)/2)
			for i := 0; i < len(kv); i += 2 {
				k, ok := kv[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
				}
				m[k] = kv[i+1]
			}
			return m, nil
		},
		"hasPrefix": strings.HasPrefix,
	}
}

// HTMLInstance executes one page template.
type HTMLInstance struct {
	Template *template.Template
	Name     string
	Data     any
	err      error
}

const htmlContentType = "text/html; charset=utf-8"

// Render implements render.Render.
func (h *HTMLInstance) Render(w http.ResponseWriter) error {
	h.WriteContentType(w)
	if h.err != nil {
		return h.err
	}
	if h.Template == nil {
		return fmt.Errorf("template %q not found", h.Name)
	}
	return h.Template.ExecuteTemplate(w, h.Name, h.Data)
}

// WriteContentType implements render.Render.
func (h *HTMLInstance) WriteContentType(w http.ResponseWriter) {
	if len(w.Header()["Content-Type"]) == 0 {
		w.Header()["Content-Type"] = []string{htmlContentType}
	}
}
