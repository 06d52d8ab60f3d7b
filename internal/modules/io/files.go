// Package io provides modules that read documents from the input directory
// and write them to the output directory.
package io

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	serrors "git.home.luguber.info/inful/sitepipe/internal/errors"
)

const (
	dirPerm  = 0o750
	filePerm = 0o644
)

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("at least one pattern is required")
	}
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		for _, variant := range expandDoubleStar(filepath.ToSlash(p)) {
			g, err := glob.Compile(variant, '/')
			if err != nil {
				return nil, fmt.Errorf("compile glob %q: %w", p, err)
			}
			globs = append(globs, g)
		}
	}
	return globs, nil
}

// expandDoubleStar adds the variants of pattern in which a "**" path segment
// matches zero directories, so "posts/**/*.md" also matches "posts/a.md".
func expandDoubleStar(pattern string) []string {
	variants := []string{pattern}
	collapsed := strings.ReplaceAll(pattern, "/**/", "/")
	collapsed = strings.TrimPrefix(collapsed, "**/")
	if collapsed != pattern {
		variants = append(variants, collapsed)
	}
	return variants
}

// matchFiles walks root and returns the slash-separated relative paths of
// regular files matching any glob, sorted. Hidden directories are skipped.
func matchFiles(root string, globs []glob.Glob) ([]string, error) {
	var matches []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		for _, g := range globs {
			if g.Match(rel) {
				matches = append(matches, rel)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, serrors.FileSystemError("walk", root, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// fileMetadata returns the file metadata set on documents read from root.
func fileMetadata(root, rel string) map[string]any {
	name := filepath.Base(rel)
	return map[string]any{
		document.KeySourceFilePath:   filepath.Join(root, filepath.FromSlash(rel)),
		document.KeyRelativeFilePath: rel,
		document.KeyFileName:         name,
		document.KeyFileExtension:    filepath.Ext(name),
	}
}

// resolveOutput joins rel onto root and rejects results outside root.
func resolveOutput(root, rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("empty output path")
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("output path %q must be relative", rel)
	}
	path := filepath.Join(root, filepath.FromSlash(rel))
	check, err := filepath.Rel(root, path)
	if err != nil || check == "." || check == ".." || strings.HasPrefix(check, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("output path %q escapes the output directory", rel)
	}
	return path, nil
}

// changeExt replaces the extension of rel. ext may omit the leading dot.
func changeExt(rel, ext string) string {
	if ext == "" {
		return rel
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return strings.TrimSuffix(rel, filepath.Ext(rel)) + ext
}
