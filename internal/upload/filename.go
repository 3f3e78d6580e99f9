package upload

import (
	"path"
	"strings"
)

// ProcessedPrefix is prepended to the base name of every processed output.
const ProcessedPrefix = "processed_"

// SanitizeBaseName reduces a client supplied file name to its final path
// element. Both '/' and '\' count as separators regardless of the host OS.
// The result never contains a separator and is never "." or "..";
// ok is false when nothing usable is left.
func SanitizeBaseName(name string) (base string, ok bool) {
	name = strings.ReplaceAll(name, `\`, "/")
	name = strings.TrimRight(name, "/")
	if name == "" {
		return "", false
	}
	base = path.Base(name)
	switch base {
	case "", ".", "..", "/":
		return "", false
	}
	return base, true
}

// ProcessedName is the file name the processor writes for an upload.
func ProcessedName(base string) string {
	return ProcessedPrefix + base
}
