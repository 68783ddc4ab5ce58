// Package templates holds the server-rendered pages of the marketplace.
package templates

import (
	"embed"
	"html/template"
)

//go:embed *.html
var files embed.FS

// Parse loads every page and partial
func Parse() (*template.Template, error) {
	return template.New("").ParseFS(files, "*.html")
}

// MustParse is Parse for program startup and tests
func MustParse() *template.Template {
	return template.Must(Parse())
}
