// Package paths resolves local destinations for downloaded results.
package paths

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ResultFile is one result to be written below a destination directory.
type ResultFile struct {
	NotebookID string
	Name       string
	LocalPath  string
	Size       int64
}

// ResolveCollisions makes all LocalPaths of a batch unique. Files sharing a
// path get their notebook id inserted before the extension:
//
//	analysis.ipynb -> analysis_3f2a.ipynb
//
// It returns the slice (modified in place) and the number of renamed files.
func ResolveCollisions(files []ResultFile) ([]ResultFile, int) {
	if len(files) == 0 {
		return files, 0
	}

	byPath := make(map[string][]int)
	for i, f := range files {
		byPath[f.LocalPath] = append(byPath[f.LocalPath], i)
	}

	renamed := 0
	for path, indices := range byPath {
		if len(indices) <= 1 {
			continue
		}
		renamed += len(indices)
		ext := filepath.Ext(path)
		base := strings.TrimSuffix(path, ext)
		for _, idx := range indices {
			files[idx].LocalPath = fmt.Sprintf("%s_%s%s", base, files[idx].NotebookID, ext)
		}
	}
	return files, renamed
}

// UniquePath returns path, or the first of "name (1).ext", "name (2).ext", ...
// that does not exist yet.
func UniquePath(path string) (string, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return path, nil
	} else if err != nil {
		return "", err
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 1; i < 10000; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, i, ext)
		if _, err := os.Stat(candidate); errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		} else if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("no free file name for %s", path)
}

// SafeName strips directory components from a server supplied file name.
func SafeName(name string) string {
	name = filepath.Base(filepath.FromSlash(strings.ReplaceAll(name, `\`, "/")))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return ""
	}
	return name
}
