// Package scanner enumerates the markdown files a run operates on. It walks
// the configured roots, applies include/exclude globs and optional .gitignore
// rules, and returns a deterministic, lexicographically ordered file list.
package scanner

import (
	"bufio"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	docerrors "git.home.luguber.info/inful/docnorm/internal/errors"
	"git.home.luguber.info/inful/docnorm/internal/logfields"
)

// File is a discovered document path.
type File struct {
	Path    string // absolute path
	Root    string // the configured root this file was found under
	RelPath string // slash-separated path relative to Root
}

// Options controls a scan.
type Options struct {
	// Include and Exclude are doublestar globs matched against RelPath.
	// Exclusion takes precedence. An empty include list matches nothing
	// useful, so callers should pass DefaultInclude-based config.
	Include []string
	Exclude []string

	// MaxDepth limits directory nesting below each root; 0 means unlimited.
	MaxDepth int

	// RespectGitignore loads `.gitignore` at each root and skips matches.
	RespectGitignore bool
}

// DefaultInclude matches the markdown extensions this tool understands.
var DefaultInclude = []string{"**/*.md", "**/*.markdown"}

// Scan walks the given roots in order and returns the matching files sorted
// lexicographically by absolute path. A missing or unreadable root is an
// error for that root only; files from the remaining roots are still
// returned, along with the per-root errors.
func Scan(roots []string, opts Options) ([]File, []error) {
	include := opts.Include
	if len(include) == 0 {
		include = DefaultInclude
	}

	var files []File
	var errs []error

	for _, root := range roots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			errs = append(errs, docerrors.Wrap(err, docerrors.CategoryFileSystem, docerrors.SeverityError,
				"failed to resolve root").WithContext("root", root))
			continue
		}

		var ignorer gitignore.Matcher
		if opts.RespectGitignore {
			ignorer = loadGitignore(absRoot)
		}

		walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path == absRoot {
				return nil
			}

			rel, relErr := filepath.Rel(absRoot, path)
			if relErr != nil {
				return relErr
			}
			rel = filepath.ToSlash(rel)

			if strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if d.IsDir() {
				if opts.MaxDepth > 0 && strings.Count(rel, "/")+1 >= opts.MaxDepth {
					return filepath.SkipDir
				}
				if ignorer != nil && ignorer.Match(strings.Split(rel, "/"), true) {
					return filepath.SkipDir
				}
				return nil
			}

			if ignorer != nil && ignorer.Match(strings.Split(rel, "/"), false) {
				return nil
			}
			if !matchesAny(include, rel) || matchesAny(opts.Exclude, rel) {
				return nil
			}

			files = append(files, File{Path: path, Root: absRoot, RelPath: rel})
			return nil
		})
		if walkErr != nil {
			errs = append(errs, docerrors.Wrap(walkErr, docerrors.CategoryFileSystem, docerrors.SeverityError,
				"failed to scan root").WithContext("root", root))
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, errs
}

func matchesAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// loadGitignore parses the root's .gitignore, if present. Nested .gitignore
// files are not consulted; documentation roots keep their rules at the top.
func loadGitignore(root string) gitignore.Matcher {
	f, err := os.Open(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	defer func() {
		_ = f.Close()
	}()

	var patterns []gitignore.Pattern
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	if err := sc.Err(); err != nil {
		slog.Warn("Failed to read .gitignore", logfields.Root(root), logfields.Error(err))
	}
	if len(patterns) == 0 {
		return nil
	}
	return gitignore.NewMatcher(patterns)
}
