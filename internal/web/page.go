// Package web renders the single game page.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// PageData is passed to the index template.
type PageData struct {
	Title       string
	MoveURL     string
	StartURL    string
	BoardWidth  int
	WinningTile int
}

// DefaultPageData returns the page settings used by the server.
func DefaultPageData() PageData {
	return PageData{
		Title:       "2048",
		MoveURL:     "/move",
		StartURL:    "/start",
		BoardWidth:  4,
		WinningTile: 2048,
	}
}

// Page is the pre-rendered game page.
type Page struct {
	body []byte
}

// NewPage renders the index template once.
func NewPage(data PageData) (*Page, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		return nil, fmt.Errorf("render index: %w", err)
	}
	return &Page{body: buf.Bytes()}, nil
}

// Body returns the rendered HTML.
func (p *Page) Body() []byte {
	return p.body
}

// Write sends the page with the given status code.
func (p *Page) Write(w http.ResponseWriter, status int) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write(p.body)
	return err
}
