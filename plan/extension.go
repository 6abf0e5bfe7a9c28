package plan

import (
	"path/filepath"
	"strings"
)

var allowedExtensions = map[string]bool{
	"css":   true,
	"js":    true,
	"json":  true,
	"html":  true,
	"txt":   true,
	"md":    true,
	"jpg":   true,
	"jpeg":  true,
	"png":   true,
	"gif":   true,
	"map":   true,
	"svg":   true,
	"ttf":   true,
	"woff":  true,
	"woff2": true,
	"zip":   true,
}

// AllowedExtension reports whether the file at p may be uploaded.
func AllowedExtension(p string) bool {
	ext := strings.TrimPrefix(filepath.Ext(p), ".")
	return allowedExtensions[strings.ToLower(ext)]
}
