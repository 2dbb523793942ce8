// Package walker enumerates the source files a workspace analysis run
// considers, honoring default excludes, .gitignore, and configured
// extra ignore-dir prefixes.
package walker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/dusk-indust/dimpact/internal/lang"
)

// defaultExcludeDirs are always skipped regardless of .gitignore
// contents: version-control metadata and common build-artifact
// directories.
var defaultExcludeDirs = []string{".git", ".hg", ".svn", "target", "node_modules", "dist", "build", "vendor"}

// Walker enumerates workspace files under Root, in language-analyzer
// scope, honoring excludes.
type Walker struct {
	Root       string
	IgnoreDirs []glob.Glob
	gitignore  *gitignore.GitIgnore
}

// New builds a Walker rooted at root. ignoreDirPrefixes are additional
// `--ignore-dir PREFIX` style path-prefix exclusions; a .gitignore file
// at the workspace root, if present, is also honored.
func New(root string, ignoreDirPrefixes []string) (*Walker, error) {
	w := &Walker{Root: root}
	for _, prefix := range ignoreDirPrefixes {
		g, err := glob.Compile(prefix + "*")
		if err != nil {
			return nil, fmt.Errorf("walker: compile ignore-dir pattern %q: %w", prefix, err)
		}
		w.IgnoreDirs = append(w.IgnoreDirs, g)
	}
	if gi, err := gitignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		w.gitignore = gi
	}
	return w, nil
}

// Walk returns every candidate file's repository-relative,
// forward-slash path, for which lang.LanguageForPath resolves to one of
// the five recognized languages.
func (w *Walker) Walk() ([]string, error) {
	var out []string
	err := filepath.Walk(w.Root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(w.Root, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if w.shouldSkipDir(rel, info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if w.shouldIgnoreFile(rel) {
			return nil
		}
		if lang.LanguageForPath(rel) == "" {
			return nil
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walker: walk %s: %w", w.Root, err)
	}
	return out, nil
}

func (w *Walker) shouldSkipDir(rel, name string) bool {
	if strings.HasPrefix(name, ".") && name != "." {
		return true
	}
	for _, d := range defaultExcludeDirs {
		if name == d {
			return true
		}
	}
	for _, g := range w.IgnoreDirs {
		if g.Match(rel) {
			return true
		}
	}
	if w.gitignore != nil && w.gitignore.MatchesPath(rel+"/") {
		return true
	}
	return false
}

func (w *Walker) shouldIgnoreFile(rel string) bool {
	if w.gitignore != nil && w.gitignore.MatchesPath(rel) {
		return true
	}
	return false
}
