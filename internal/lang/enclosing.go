package lang

import "github.com/dusk-indust/dimpact/internal/symbol"

// enclosingStack tracks the declarations currently open during a
// depth-first tree walk. Its top is always the smallest-range
// declaration containing the cursor's current position, which is
// exactly the enclosing-Symbol tie-break the resolution policy
// requires: smallest range wins, ties break toward deeper nesting.
type enclosingStack struct {
	frames []symbol.ID
}

func (s *enclosingStack) push(id symbol.ID) {
	s.frames = append(s.frames, id)
}

func (s *enclosingStack) pop() {
	if len(s.frames) > 0 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

// top returns the innermost open declaration and whether one exists. A
// reference site with no open declaration (top-level script code) has
// no enclosing Symbol and is dropped by the caller.
func (s *enclosingStack) top() (symbol.ID, bool) {
	if len(s.frames) == 0 {
		return symbol.ID{}, false
	}
	return s.frames[len(s.frames)-1], true
}
