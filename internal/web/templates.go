package web

import (
	"embed"
	"html/template"
	"io/fs"
	"strings"
	"sync"
)

//go:embed templates/*.html
var pageTemplateFS embed.FS

//go:embed static
var staticFS embed.FS

var (
	pageTemplates *template.Template
	pageOnce      sync.Once
	pageErr       error
)

func executeTemplate(name string, data any) (string, error) {
	pageOnce.Do(func() {
		funcMap := template.FuncMap{
			"add": func(a, b int) int { return a + b },
		}
		tmpl := template.New("pages").Funcs(funcMap)
		pageTemplates, pageErr = tmpl.ParseFS(pageTemplateFS, "templates/*.html")
	})

	if pageErr != nil {
		return "", pageErr
	}

	var builder strings.Builder
	if err := pageTemplates.ExecuteTemplate(&builder, name, data); err != nil {
		return "", err
	}
	return builder.String(), nil
}

func staticFiles() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
