// Package files resolves file and folder paths into documents that can be
// attached to an assistant.
package files

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/snow-ghost/robotai/pkg/errdefs"
)

// EmptyFilePlaceholder replaces the content of empty files; vendors reject empty uploads
const EmptyFilePlaceholder = "# This is a placeholder for an empty file\n"

var allowedExtensions = map[string]struct{}{
	"c": {}, "cpp": {}, "css": {}, "csv": {}, "docx": {}, "gif": {}, "html": {}, "java": {},
	"jpeg": {}, "jpg": {}, "js": {}, "json": {}, "md": {}, "pdf": {}, "php": {}, "png": {},
	"pptx": {}, "py": {}, "rb": {}, "tar": {}, "tex": {}, "ts": {}, "txt": {}, "webp": {},
	"xlsx": {}, "xml": {}, "zip": {},
}

// AllowedExtensions returns the accepted extensions, sorted, without the leading dot
func AllowedExtensions() []string {
	exts := make([]string, 0, len(allowedExtensions))
	for ext := range allowedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// HasAllowedExtension reports whether path ends in an allow-listed extension
func HasAllowedExtension(path string) bool {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return false
	}
	_, ok := allowedExtensions[strings.ToLower(ext)]
	return ok
}

// File is one collected document
type File struct {
	Path    string
	Content []byte
}

// Name returns the base name used when uploading the file
func (f File) Name() string {
	return filepath.Base(f.Path)
}

// Collect expands paths into allow-listed files. Directories are walked recursively,
// files with other extensions are skipped, duplicates are dropped and the result is sorted by path.
func Collect(paths []string) ([]File, error) {
	seen := make(map[string]struct{})

	for _, path := range paths {
		if path == "" {
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}

		if !info.IsDir() {
			if HasAllowedExtension(path) {
				seen[filepath.Clean(path)] = struct{}{}
			}
			continue
		}

		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.Type().IsRegular() && HasAllowedExtension(p) {
				seen[filepath.Clean(p)] = struct{}{}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", path, err)
		}
	}

	if len(seen) == 0 {
		return nil, errdefs.NewValidationError(errdefs.Violation{
			Field:  "file_paths",
			Value:  strings.Join(paths, ", "),
			Reason: "No files with an allowed extension were found.",
		})
	}

	sorted := make([]string, 0, len(seen))
	for p := range seen {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)

	collected := make([]File, 0, len(sorted))
	for _, p := range sorted {
		content, err := readWithPlaceholder(p)
		if err != nil {
			return nil, err
		}
		collected = append(collected, File{Path: p, Content: content})
	}

	return collected, nil
}

func readWithPlaceholder(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(content) == 0 {
		return []byte(EmptyFilePlaceholder), nil
	}
	return content, nil
}

// Paths returns the paths of the collected files
func Paths(collected []File) []string {
	paths := make([]string, len(collected))
	for i, f := range collected {
		paths[i] = f.Path
	}
	return paths
}
