// Package diffparse decodes a unified diff into per-file hunks with
// 1-based added/removed line numbers, the input to the mapping stage.
package diffparse

import (
	"fmt"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"

	"github.com/dusk-indust/dimpact/internal/errs"
)

// LineOp classifies one line of a hunk body.
type LineOp string

const (
	Context LineOp = "context"
	Added   LineOp = "added"
	Removed LineOp = "removed"
)

// Line is a single hunk body line, annotated with its coordinates in
// whichever of the old/new file it belongs to.
type Line struct {
	Op      LineOp
	OldLine int // 0 when Op == Added
	NewLine int // 0 when Op == Removed
	Text    string
}

// Hunk is one `@@ -l,s +l,s @@` block translated to 1-based line ops.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []Line
}

// FileChanges is the decoded per-file diff. OldPath/NewPath are nil for
// file creation/deletion respectively. A rename-plus-edit carries both,
// with NewPath the one used downstream.
type FileChanges struct {
	OldPath *string
	NewPath *string
	Binary  bool
	Hunks   []Hunk
}

// Path returns the path mapping consumes: the new path if present,
// otherwise the old path (a pure deletion).
func (f FileChanges) Path() string {
	if f.NewPath != nil {
		return *f.NewPath
	}
	if f.OldPath != nil {
		return *f.OldPath
	}
	return ""
}

// Parse decodes a unified-diff byte stream. A malformed hunk header
// aborts the whole run with errs.DiffFormat, discarding any files
// already converted earlier in the stream — the input is one diff, not
// a collection of independent ones, so a truncated or corrupt patch is
// treated as wholly untrustworthy rather than partially salvaged.
// Binary patches are recorded with Binary=true and no hunks, never as
// an error.
func Parse(input string) ([]FileChanges, error) {
	reader := strings.NewReader(input)
	fileDiffs, err := godiff.NewMultiFileDiffReader(reader).ReadAllFiles()
	if err != nil {
		return nil, errs.New(errs.DiffFormat, "diffparse.Parse", err)
	}

	var out []FileChanges
	for _, fd := range fileDiffs {
		fc, err := convertFile(fd)
		if err != nil {
			return nil, err
		}
		out = append(out, fc)
	}
	return out, nil
}

func convertFile(fd *godiff.FileDiff) (FileChanges, error) {
	fc := FileChanges{
		OldPath: normalizedPath(fd.OrigName),
		NewPath: normalizedPath(fd.NewName),
	}
	if len(fd.Hunks) == 0 && isBinaryMarker(fd.Extended) {
		fc.Binary = true
		return fc, nil
	}
	for _, h := range fd.Hunks {
		hunk, err := convertHunk(h)
		if err != nil {
			return FileChanges{}, err
		}
		fc.Hunks = append(fc.Hunks, hunk)
	}
	return fc, nil
}

func isBinaryMarker(extended []string) bool {
	for _, line := range extended {
		if strings.Contains(line, "Binary files") || strings.HasPrefix(line, "GIT binary patch") {
			return true
		}
	}
	return false
}

func normalizedPath(name string) *string {
	if name == "" || name == "/dev/null" {
		return nil
	}
	p := stripABPrefix(name)
	return &p
}

func stripABPrefix(path string) string {
	if stripped, ok := strings.CutPrefix(path, "a/"); ok {
		return stripped
	}
	if stripped, ok := strings.CutPrefix(path, "b/"); ok {
		return stripped
	}
	return path
}

func convertHunk(h *godiff.Hunk) (Hunk, error) {
	if h.OrigStartLine < 0 || h.NewStartLine < 0 {
		return Hunk{}, errs.New(errs.DiffFormat, "diffparse.convertHunk",
			fmt.Errorf("negative hunk start line"))
	}
	hunk := Hunk{
		OldStart: int(h.OrigStartLine),
		OldLines: int(h.OrigLines),
		NewStart: int(h.NewStartLine),
		NewLines: int(h.NewLines),
	}
	oldLn := hunk.OldStart
	newLn := hunk.NewStart
	body := strings.Split(strings.TrimSuffix(string(h.Body), "\n"), "\n")
	for _, raw := range body {
		switch {
		case strings.HasPrefix(raw, "\\"):
			// "\ No newline at end of file" — not a content line.
			continue
		case strings.HasPrefix(raw, "+"):
			hunk.Lines = append(hunk.Lines, Line{Op: Added, NewLine: newLn, Text: raw[1:]})
			newLn++
		case strings.HasPrefix(raw, "-"):
			hunk.Lines = append(hunk.Lines, Line{Op: Removed, OldLine: oldLn, Text: raw[1:]})
			oldLn++
		default:
			text := strings.TrimPrefix(raw, " ")
			hunk.Lines = append(hunk.Lines, Line{Op: Context, OldLine: oldLn, NewLine: newLn, Text: text})
			oldLn++
			newLn++
		}
	}
	return hunk, nil
}
