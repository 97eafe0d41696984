package hcldoc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vk/rastergraph/internal/ctxlog"
)

// DocSuffix is the file suffix directory scans look for.
const DocSuffix = ".rg.hcl"

// ResolvePath turns a path into the ordered list of document files it
// names. A file path is returned as-is after an extension check; a
// directory is scanned recursively for *.rg.hcl files. The result is
// sorted so that multi-file documents always merge in the same order.
func ResolvePath(ctx context.Context, path string) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Resolving document path.", "path", path)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("document path not found: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("error accessing path %s: %w", path, err)
	}

	if info.IsDir() {
		logger.Debug("Path is a directory, scanning for document files.", "directory", path)
		return findDocFilesRecursive(path)
	}

	logger.Debug("Path is a single file.", "file", path)
	if filepath.Ext(path) != ".hcl" {
		return nil, fmt.Errorf("specified file is not an .hcl file: %s", path)
	}
	return []string{path}, nil
}

// findDocFilesRecursive scans a directory recursively for document files.
func findDocFilesRecursive(rootDir string) ([]string, error) {
	var files []string
	err := filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, DocSuffix) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
