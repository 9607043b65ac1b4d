// Package security guards the filenames that leave this host. Hunter files
// are uploaded under their base name; the name ends up in IPFS directory
// listings and API records, so traversal sequences and control characters
// must never survive.
package security

import (
	"path/filepath"
	"strings"
)

// SanitizeFilename strips path components and control characters from a
// filename and bounds its length. Returns "file" when nothing usable is
// left.
func SanitizeFilename(filename string) string {
	if filename == "" {
		return "file"
	}

	filename = filepath.Base(filename)

	filename = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, filename)

	filename = strings.ReplaceAll(filename, "..", "")

	if len(filename) > 255 {
		filename = filename[:255]
	}

	if filename == "" || filename == "." || filename == ".." {
		filename = "file"
	}
	return filename
}
