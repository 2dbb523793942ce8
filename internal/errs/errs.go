// Package errs gives the categorized error kinds the driver needs to
// decide between aborting, warning, or silently recovering.
package errs

import "fmt"

// Kind categorizes a failure the way the driver needs to react to it.
type Kind string

const (
	// DiffFormat: malformed diff; abort the run.
	DiffFormat Kind = "diff_format"
	// SeedParse: malformed seed string or JSON; abort.
	SeedParse Kind = "seed_parse"
	// MixedLanguage: seeds span multiple languages; abort.
	MixedLanguage Kind = "mixed_language"
	// IO: unreadable source file; skip the file, continue.
	IO Kind = "io"
	// ParseRecovered: analyzer produced a partial result; counted, not
	// surfaced unless diagnostics are requested.
	ParseRecovered Kind = "parse_recovered"
	// CacheCorrupt: schema mismatch or unreadable database; rebuild
	// fresh and warn.
	CacheCorrupt Kind = "cache_corrupt"
	// CacheIO: transient write failure; retry once, then continue in
	// cache-disabled mode and warn.
	CacheIO Kind = "cache_io"
	// TerminalInputRefused: stdin is a TTY and a diff is required.
	TerminalInputRefused Kind = "terminal_input_refused"
)

// Error wraps an underlying cause with the Kind the driver dispatches
// on. Use errors.As to recover it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error for op/kind wrapping err.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Abort reports whether errors of this kind must abort the run rather
// than be treated as a warning the driver recovers from.
func (k Kind) Abort() bool {
	switch k {
	case DiffFormat, SeedParse, MixedLanguage, TerminalInputRefused:
		return true
	default:
		return false
	}
}
