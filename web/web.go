// Package web holds the browser side of the console.
package web

import "embed"

// Assets contains index.html, style.css and script.js under static/.
//
//go:embed static/index.html static/style.css static/script.js
var Assets embed.FS
