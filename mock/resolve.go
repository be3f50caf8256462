package mock

import (
	"os"
	"path/filepath"
	"strings"
)

// Resolve maps a request path to the mock group directory under mockRoot that should serve it.
//
// An existing directory matching the full path wins. Otherwise trailing segments are dropped one at a time
// and the first prefix holding a wildcard marker is used, so /users/__ serves /users/1 and /users/1/orders.
// When no marker is found the exact path is returned and the caller decides what a missing directory means.
//
// Unlike a bare upward walk, a wildcard marker never overrides an exact directory that exists: the walk
// only runs when the exact directory is absent.
func Resolve(requestPath, mockRoot string) string {
	segments := segmentsOf(requestPath)
	exact := join(mockRoot, segments)

	if len(segments) == 0 || isDir(exact) {
		return exact
	}

	for remaining := len(segments) - 1; remaining >= 0; remaining-- {
		marker := filepath.Join(join(mockRoot, segments[:remaining]), WildcardMarker)
		if _, err := os.Stat(marker); err == nil {
			return marker
		}
	}

	return exact
}

// File is the mock definition serving method within dir
func File(dir, method string) string {
	return filepath.Join(dir, strings.ToUpper(method)+Extension)
}

// segmentsOf drops the empty segments produced by leading, trailing or doubled slashes.
// Dot segments are dropped too, a request can never climb out of the mock root.
func segmentsOf(requestPath string) []string {
	var segments []string
	for _, segment := range strings.Split(requestPath, "/") {
		switch segment {
		case "", ".", "..":
			continue
		}
		segments = append(segments, segment)
	}

	return segments
}

func join(root string, segments []string) string {
	return filepath.Join(append([]string{root}, segments...)...)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
