// Package web embeds the page templates and static assets.
package web

import "embed"

// TemplatesFS holds index.html and the "app" partial it includes.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds static assets (css/js).
//
//go:embed static/*
var StaticFS embed.FS
