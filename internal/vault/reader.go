// Package vault reads strategic context from and syncs tasks to an Obsidian
// vault on the local filesystem.
package vault

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Directories never scanned for context files.
var excludedDirs = map[string]bool{
	"venv":         true,
	".venv":        true,
	"node_modules": true,
	".git":         true,
	".gemini":      true,
	"data":         true,
}

// Filenames with high signal regardless of where they live in the vault.
var keyFilePatterns = []string{
	"README.md",
	"Identity.md",
	"*Fitness*.md",
	"*Health*.md",
}

// Reader collects the priority markdown files of a vault.
type Reader struct {
	vaultPath string
}

// NewReader validates the vault path and returns a Reader.
func NewReader(vaultPath string) (*Reader, error) {
	info, err := os.Stat(vaultPath)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("vault path does not exist: %s", vaultPath)
	}

	return &Reader{vaultPath: vaultPath}, nil
}

// PriorityFiles returns vault-relative paths of the files worth analyzing:
// everything under Job/ and Projects/, plus key filenames anywhere.
func (r *Reader) PriorityFiles() ([]string, error) {
	seen := map[string]bool{}

	err := filepath.WalkDir(r.vaultPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if excludedDirs[d.Name()] && path != r.vaultPath {
				return filepath.SkipDir
			}

			return nil
		}
		if !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}

		rel, err := filepath.Rel(r.vaultPath, path)
		if err != nil {
			return err
		}

		top := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]
		if top == "Job" || top == "Projects" {
			seen[rel] = true

			return nil
		}

		for _, pattern := range keyFilePatterns {
			if ok, _ := filepath.Match(pattern, d.Name()); ok {
				seen[rel] = true

				return nil
			}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning vault: %w", err)
	}

	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)

	return files, nil
}

// AllContextText aggregates every priority file into one string with
// per-file separators, ready to feed into the context prompt.
func (r *Reader) AllContextText() (string, error) {
	files, err := r.PriorityFiles()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, rel := range files {
		content, err := os.ReadFile(filepath.Join(r.vaultPath, rel))
		if err != nil {
			fmt.Fprintf(&b, "--- FILE: %s ---\nError reading %s: %v\n\n", rel, rel, err)

			continue
		}
		fmt.Fprintf(&b, "--- FILE: %s ---\n%s\n\n", rel, content)
	}

	return strings.TrimRight(b.String(), "\n"), nil
}
