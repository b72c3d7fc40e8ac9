// Package contenttype maps file names to MIME types.
package contenttype

import (
	"mime"
	"path/filepath"
	"strings"
)

// Fallback for names with no or unknown extension.
const Fallback = "application/octet-stream"

// Archive and compression extensions the platform mime table often lacks.
var extra = map[string]string{
	".tgz":   "application/gzip",
	".zst":   "application/zstd",
	".jsonl": "application/x-ndjson",
	".log":   "text/plain",
}

// Detect returns the MIME type for name's extension. Pure; unknown
// extensions yield Fallback.
func Detect(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return Fallback
	}
	if t, ok := extra[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return Fallback
}
