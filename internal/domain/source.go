package domain

import (
	"path"
	"strings"
)

// NormalizeFilename maps an uploaded file name to its source ID: the name
// without its final extension, trimmed and lower-cased. "Policy.PDF" and
// "policy.pdf" both become "policy".
func NormalizeFilename(filename string) string {
	base := filename
	if ext := splitExt(filename); ext != "" {
		base = strings.TrimSuffix(filename, ext)
	}
	return strings.ToLower(strings.TrimSpace(base))
}

// splitExt returns the extension of the last path element, treating leading
// dots as part of the name (".env" has no extension).
func splitExt(filename string) string {
	name := filename
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	trimmed := strings.TrimLeft(name, ".")
	if trimmed == "" {
		return ""
	}
	return path.Ext(trimmed)
}
