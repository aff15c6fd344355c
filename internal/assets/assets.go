// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package assets embeds the prebuilt client bundle: the registration
// form page, its script and its stylesheet.
package assets

import "embed"

//go:embed static
var FS embed.FS

// IndexPath is the form page inside FS, served for / and unmatched routes.
const IndexPath = "static/index.html"
