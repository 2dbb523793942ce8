package symbol

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dusk-indust/dimpact/internal/errs"
)

// seedJSON mirrors the object form of the JSON seed grammar:
// {lang, path, kind, name, line, container?}.
type seedJSON struct {
	Lang      string `json:"lang"`
	Path      string `json:"path"`
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Line      int    `json:"line"`
	Container string `json:"container,omitempty"`
}

// ParseSeeds accepts either a newline/comma-separated list of canonical
// seed strings or a JSON array of strings or seed objects. It rejects a
// mixed-language seed set.
func ParseSeeds(input string) ([]ID, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, errs.New(errs.SeedParse, "symbol.ParseSeeds", fmt.Errorf("empty seed input"))
	}

	var ids []ID
	if strings.HasPrefix(input, "[") {
		parsed, err := parseSeedJSON(input)
		if err != nil {
			return nil, err
		}
		ids = parsed
	} else {
		for _, field := range splitSeedList(input) {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			id, err := ParseID(field)
			if err != nil {
				return nil, errs.New(errs.SeedParse, "symbol.ParseSeeds", err)
			}
			ids = append(ids, id)
		}
	}

	if len(ids) == 0 {
		return nil, errs.New(errs.SeedParse, "symbol.ParseSeeds", fmt.Errorf("no seeds found"))
	}
	if err := requireSingleLanguage(ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func splitSeedList(input string) []string {
	return strings.FieldsFunc(input, func(r rune) bool {
		return r == '\n' || r == ','
	})
}

func parseSeedJSON(input string) ([]ID, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(input), &raw); err != nil {
		return nil, errs.New(errs.SeedParse, "symbol.parseSeedJSON", fmt.Errorf("invalid JSON array: %w", err))
	}
	ids := make([]ID, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			id, err := ParseID(s)
			if err != nil {
				return nil, errs.New(errs.SeedParse, "symbol.parseSeedJSON", err)
			}
			ids = append(ids, id)
			continue
		}
		var obj seedJSON
		if err := json.Unmarshal(item, &obj); err != nil {
			return nil, errs.New(errs.SeedParse, "symbol.parseSeedJSON",
				fmt.Errorf("entry is neither a string id nor a seed object: %w", err))
		}
		lang := Language(obj.Lang)
		if !lang.Valid() {
			return nil, errs.New(errs.SeedParse, "symbol.parseSeedJSON", fmt.Errorf("unknown language %q", obj.Lang))
		}
		if obj.Line < 1 {
			return nil, errs.New(errs.SeedParse, "symbol.parseSeedJSON",
				fmt.Errorf("line must be positive, got %d", obj.Line))
		}
		ids = append(ids, ID{
			Language:  lang,
			Path:      obj.Path,
			Kind:      Kind(obj.Kind),
			Name:      obj.Name,
			Line:      obj.Line,
			Container: obj.Container,
		})
	}
	return ids, nil
}

func requireSingleLanguage(ids []ID) error {
	lang := ids[0].Language
	for _, id := range ids[1:] {
		if id.Language != lang {
			return errs.New(errs.MixedLanguage, "symbol.requireSingleLanguage",
				fmt.Errorf("mixed languages %q and %q in one seed set", lang, id.Language))
		}
	}
	return nil
}
