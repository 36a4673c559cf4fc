package ui

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

//go:embed all:assets
var assetsFS embed.FS

// StaticFS returns the embedded static/ directory with its prefix stripped.
func StaticFS() (fs.FS, error) {
	return fs.Sub(assetsFS, "assets/static")
}

// StaticHandler serves the embedded scripts and stylesheets under /static/.
// Directory listings are not exposed; anything that is not a file is a 404.
func StaticHandler() (http.Handler, error) {
	sub, err := StaticFS()
	if err != nil {
		return nil, err
	}

	fileServer := http.StripPrefix("/static/", http.FileServerFS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := strings.TrimPrefix(path.Clean(r.URL.Path), "/static")
		p = strings.TrimPrefix(p, "/")

		info, err := fs.Stat(sub, p)
		if p == "" || err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Cache-Control", "public, max-age=3600")
		fileServer.ServeHTTP(w, r)
	}), nil
}

var funcs = template.FuncMap{
	"title": func(v any) string {
		s := fmt.Sprint(v)
		if s == "" {
			return ""
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
	"stars": func(r *int) string {
		if r == nil || *r == 0 {
			return "no rating"
		}
		n := min(max(*r, 0), 5)
		return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
	},
}

// Templates parses the embedded admin page templates.
func Templates() (*template.Template, error) {
	return template.New("admin").Funcs(funcs).ParseFS(assetsFS, "assets/templates/*.html")
}
