package blobstore

import (
	"fmt"
	"path"
	"strings"
)

// cleanPath normalizes a store path and rejects paths that escape the root.
func cleanPath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("empty blob path")
	}
	if strings.HasPrefix(p, "/") || strings.Contains(p, `\`) {
		return "", fmt.Errorf("blob path must be relative and slash-separated: %q", p)
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("blob path escapes store root: %q", p)
	}
	return cleaned, nil
}
