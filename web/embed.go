// Package web embeds the browser client served at the site root.
package web

import "embed"

// Static embeds the client shell and its assets.
//
//go:embed static
var Static embed.FS
