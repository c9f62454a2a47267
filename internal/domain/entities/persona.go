package entities

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Persona is a synthetic respondent. Required fields are typed, everything
// else an upstream roster carries lands in Extra.
type Persona struct {
	ID         string         `json:"id" validate:"required"`
	Name       string         `json:"name" validate:"required"`
	Age        int            `json:"age,omitempty" validate:"omitempty,min=0,max=130"`
	Occupation string         `json:"occupation,omitempty"`
	Location   string         `json:"location,omitempty"`
	Interests  string         `json:"interests,omitempty"`
	Motivation string         `json:"motivation,omitempty"`
	Channels   string         `json:"channels,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

var personaKnownKeys = map[string]bool{
	"id": true, "name": true, "age": true, "occupation": true, "location": true,
	"interests": true, "motivation": true, "channels": true, "extra": true,
}

// UnmarshalJSON accepts loosely typed rosters: numeric ids, ages given as
// strings and list valued attributes. Unknown keys are kept in Extra.
func (p *Persona) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := Persona{Extra: map[string]any{}}
	out.ID = attrString(raw["id"])
	out.Name = attrString(raw["name"])
	if v, ok := raw["age"]; ok && v != nil {
		age, err := parseAge(v)
		if err != nil {
			return fmt.Errorf("persona %q: invalid age %v: %w", out.ID, v, err)
		}
		out.Age = age
	}
	out.Occupation = attrString(raw["occupation"])
	out.Location = attrString(raw["location"])
	out.Interests = attrString(raw["interests"])
	out.Motivation = attrString(raw["motivation"])
	out.Channels = attrString(raw["channels"])

	if nested, ok := raw["extra"].(map[string]any); ok {
		for k, v := range nested {
			out.Extra[k] = v
		}
	}
	for k, v := range raw {
		if !personaKnownKeys[k] {
			out.Extra[k] = v
		}
	}
	if len(out.Extra) == 0 {
		out.Extra = nil
	}

	*p = out
	return nil
}

// ExtraKeys returns the extension attribute names in sorted order
func (p Persona) ExtraKeys() []string {
	keys := make([]string, 0, len(p.Extra))
	for k := range p.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ExtraString renders an extension attribute as prompt text
func (p Persona) ExtraString(key string) string {
	return attrString(p.Extra[key])
}

func parseAge(v any) (int, error) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, nil
		}
		return strconv.Atoi(s)
	}
	return cast.ToIntE(v)
}

func attrString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := strings.TrimSpace(cast.ToString(item)); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(t, ", ")
	default:
		return strings.TrimSpace(cast.ToString(v))
	}
}

// PersonaFingerprint hashes the sorted persona id set. Two rosters of the
// same size but different members get different fingerprints.
func PersonaFingerprint(personas []Persona) string {
	ids := make([]string, 0, len(personas))
	for _, p := range personas {
		ids = append(ids, p.ID)
	}
	sort.Strings(ids)
	sum := sha256.Sum256([]byte(strings.Join(ids, "\x00")))
	return hex.EncodeToString(sum[:])
}

// ValidateRoster checks the fields every persona needs inside the pipeline:
// a non-blank id unique within the roster and a name.
func ValidateRoster(personas []Persona) error {
	seen := make(map[string]bool, len(personas))
	for i, p := range personas {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return fmt.Errorf("%w: persona at index %d has no id", ErrInvalidPersona, i)
		}
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: persona %q has no name", ErrInvalidPersona, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: %q", ErrDuplicatePerson, id)
		}
		seen[id] = true
	}
	return nil
}
