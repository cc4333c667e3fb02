package api

import (
	"embed"
	"html/template"
)

//go:embed templates/*
var templateFS embed.FS

// newTemplates creates and parses the HTML templates with custom functions.
func newTemplates() *template.Template {
	funcs := template.FuncMap{
		"head": func(row []string) string {
			if len(row) == 0 {
				return ""
			}
			return row[0]
		},
		"tail": func(row []string) []string {
			if len(row) == 0 {
				return nil
			}
			return row[1:]
		},
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}
