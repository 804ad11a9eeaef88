// Package web embeds the HTML templates and static assets served by
// internal/http.
package web

import "embed"

// TemplatesFS holds the page and partial templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds css and js.
//
//go:embed static/*
var StaticFS embed.FS
