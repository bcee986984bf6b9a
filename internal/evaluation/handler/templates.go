package handler

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type formPage struct {
	Title        string
	MaxUploadMiB int64
}

type resultPage struct {
	Title      string
	Name       string
	Status     string
	Reason     string
	TrustScore int
}

type errorPage struct {
	Title   string
	Message string
}
