package app

import (
	"html/template"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/simp-lee/escola/web"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"templates/layouts/base.html": &fstest.MapFile{
			Data: []byte(
				`{{ define "base" }}<html><title>{{ block "title" . }}Escola{{ end }}</title>` +
					`<body>{{ template "nav" . }}{{ block "content" . }}{{ end }}</body></html>{{ end }}`),
		},
		"templates/partials/nav.html": &fstest.MapFile{
			Data: []byte(`{{ define "nav" }}<nav>menu</nav>{{ end }}`),
		},
		"templates/records/list.html": &fstest.MapFile{
			Data: []byte(
				`{{ template "base" . }}` +
					`{{ define "title" }}Alunos{{ end }}` +
					`{{ define "content" }}<h1>{{ .Heading }}</h1>{{ end }}`),
		},
		"templates/records/table.html": &fstest.MapFile{
			Data: []byte(`<table>{{ range .Rows }}<tr><td>{{ . }}</td></tr>{{ end }}</table>`),
		},
		"templates/finance/dashboard.html": &fstest.MapFile{
			Data: []byte(
				`{{ template "base" . }}` +
					`{{ define "content" }}saldo:{{ currency .Saldo }}|mes:{{ month .Mes }}|` +
					`venc:{{ date .Vencimento }}|in:{{ dateInput .Vencimento }}|` +
					`pages:{{ range seq 1 3 }}{{ . }}{{ end }}|next:{{ add .Page 1 }}|prev:{{ sub .Page 1 }}` +
					`{{ with dict "Path" "/alunos" "Page" 2 }}|{{ .Path }}?page={{ .Page }}{{ end }}{{ end }}`),
		},
	}
}

func TestTemplateFuncMap(t *testing.T) {
	fm := templateFuncMap()

	t.Run("json", func(t *testing.T) {
		fn := fm["json"].(func(any) template.JS)
		if got := fn(map[string]string{"a": "b"}); got != `{"a":"b"}` {
			t.Errorf("json = %q", got)
		}
		if got := fn(make(chan int)); got != "null" {
			t.Errorf("json(chan) = %q, want null", got)
		}
	})

	t.Run("seq", func(t *testing.T) {
		fn := fm["seq"].(func(int, int) []int)
		if got := fn(2, 4); len(got) != 3 || got[0] != 2 || got[2] != 4 {
			t.Errorf("seq(2, 4) = %v", got)
		}
		if got := fn(3, 1); got != nil {
			t.Errorf("seq(3, 1) = %v, want nil", got)
		}
	})

	t.Run("dict", func(t *testing.T) {
		fn := fm["dict"].(func(...any) (map[string]any, error))
		m, err := fn("Page", 1, "Path", "/alunos")
		if err != nil || m["Page"] != 1 || m["Path"] != "/alunos" {
			t.Errorf("dict = %v, %v", m, err)
		}
		if _, err := fn("odd"); err == nil {
			t.Error("dict with odd arguments: want error")
		}
		if _, err := fn(1, 2); err == nil {
			t.Error("dict with non-string key: want error")
		}
	})

	for _, name := range []string{"currency", "amount", "date", "dateInput", "month", "add", "sub", "hasPrefix"} {
		if fm[name] == nil {
			t.Errorf("func %q missing", name)
		}
	}
}

func TestNewTemplateRenderer(t *testing.T) {
	for _, debug := range []bool{false, true} {
		r, err := NewTemplateRenderer(testFS(), debug)
		if err != nil {
			t.Fatalf("NewTemplateRenderer(debug=%v): %v", debug, err)
		}
		for _, page := range []string{"records/list.html", "records/table.html", "finance/dashboard.html"} {
			if !r.Has(page) {
				t.Errorf("debug=%v: page %q not parsed", debug, page)
			}
		}
		for _, notPage := range []string{"layouts/base.html", "partials/nav.html"} {
			if r.Has(notPage) {
				t.Errorf("debug=%v: %q registered as a page", debug, notPage)
			}
		}
	}
}

func TestNewTemplateRenderer_InvalidTemplate(t *testing.T) {
	fsys := testFS()
	fsys["templates/broken.html"] = &fstest.MapFile{Data: []byte(`{{ if }}`)}

	if _, err := NewTemplateRenderer(fsys, false); err == nil {
		t.Fatal("NewTemplateRenderer() error = nil, want parse error")
	}
}

func render(t *testing.T, r *TemplateRenderer, name string, data any) (string, error) {
	t.Helper()
	w := httptest.NewRecorder()
	err := r.Instance(name, data).Render(w)
	return w.Body.String(), err
}

func TestTemplateRenderer_Instance(t *testing.T) {
	r, err := NewTemplateRenderer(testFS(), false)
	if err != nil {
		t.Fatal(err)
	}

	body, err := render(t, r, "records/list.html", map[string]any{"Heading": "Alunos"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{"<title>Alunos</title>", "<nav>menu</nav>", "<h1>Alunos</h1>"} {
		if !strings.Contains(body, want) {
			t.Errorf("body %q missing %q", body, want)
		}
	}

	body, err = render(t, r, "records/table.html", map[string]any{"Rows": []string{"Ana"}})
	if err != nil {
		t.Fatalf("Render fragment: %v", err)
	}
	if body != "<table><tr><td>Ana</td></tr></table>" {
		t.Errorf("fragment = %q, want no layout", body)
	}
}

func TestTemplateRenderer_Instance_Funcs(t *testing.T) {
	r, err := NewTemplateRenderer(testFS(), false)
	if err != nil {
		t.Fatal(err)
	}

	body, err := render(t, r, "finance/dashboard.html", map[string]any{
		"Saldo":      1234.5,
		"Mes":        "2024-05",
		"Vencimento": "2024-05-10",
		"Page":       2,
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{
		"saldo:R$ 1.234,50", "mes:maio/2024", "venc:10/05/2024", "in:10/05/2024",
		"pages:123", "next:3", "prev:1", "|/alunos?page=2",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body %q missing %q", body, want)
		}
	}
}

func TestTemplateRenderer_Instance_NotFound(t *testing.T) {
	r, err := NewTemplateRenderer(testFS(), false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := render(t, r, "nope.html", nil); err == nil {
		t.Fatal("Render() error = nil, want missing template error")
	}
}

func TestTemplateRenderer_Debug_Reloads(t *testing.T) {
	fsys := testFS()
	r, err := NewTemplateRenderer(fsys, true)
	if err != nil {
		t.Fatal(err)
	}

	fsys["templates/records/table.html"] = &fstest.MapFile{Data: []byte(`editado`)}
	body, err := render(t, r, "records/table.html", nil)
	if err != nil || body != "editado" {
		t.Fatalf("debug render = %q, %v; want the edited template", body, err)
	}

	fsys["templates/records/table.html"] = &fstest.MapFile{Data: []byte(`{{ if }}`)}
	if _, err := render(t, r, "records/table.html", nil); err == nil {
		t.Fatal("debug render of broken template: want error")
	}
}

func TestTemplateRenderer_Release_ParsesOnce(t *testing.T) {
	fsys := testFS()
	r, err := NewTemplateRenderer(fsys, false)
	if err != nil {
		t.Fatal(err)
	}

	fsys["templates/records/table.html"] = &fstest.MapFile{Data: []byte(`editado`)}
	body, err := render(t, r, "records/table.html", map[string]any{"Rows": []string{"Ana"}})
	if err != nil || body == "editado" {
		t.Fatalf("release render = %q, %v; want the startup template", body, err)
	}
}

func TestHTMLInstance_WriteContentType(t *testing.T) {
	w := httptest.NewRecorder()
	(&HTMLInstance{}).WriteContentType(w)
	if ct := w.Header().Get("Content-Type"); ct != htmlContentType {
		t.Errorf("Content-Type = %q", ct)
	}

	w = httptest.NewRecorder()
	w.Header().Set("Content-Type", "text/plain")
	(&HTMLInstance{}).WriteContentType(w)
	if ct := w.Header().Get("Content-Type"); ct != "text/plain" {
		t.Errorf("Content-Type overwritten: %q", ct)
	}
}

func TestEmbeddedTemplates_Parse(t *testing.T) {
	r, err := NewTemplateRenderer(web.EmbeddedFS, false)
	if err != nil {
		t.Fatalf("embedded templates: %v", err)
	}
	for _, page := range []string{
		"auth/login.html",
		"records/list.html",
		"records/table.html",
		"records/form.html",
		"records/form_body.html",
		"finance/dashboard.html",
		"journal/view.html",
		"guardian/children.html",
		"guardian/children_rows.html",
		"guardian/child.html",
		"errors/400.html",
		"errors/403.html",
		"errors/404.html",
		"errors/500.html",
	} {
		if !r.Has(page) {
			t.Errorf("embedded page %q missing", page)
		}
	}

	body, err := render(t, r, "errors/404.html", map[string]any{"Status": 404, "Message": notFoundMessage})
	if err != nil {
		t.Fatalf("render 404: %v", err)
	}
	if !strings.Contains(body, notFoundMessage) {
		t.Errorf("404 page %q missing message", body)
	}
}
