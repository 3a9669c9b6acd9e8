package segment

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/specialistvlad/gridmake/internal/env"
	"github.com/specialistvlad/gridmake/internal/library"
	"github.com/zclconf/go-cty/cty"
)

type record struct {
	ID           int             `json:"id"`
	Kind         string          `json:"kind"`
	Recipe       string          `json:"recipe,omitempty"`
	Script       string          `json:"script,omitempty"`
	Targets      []string        `json:"targets"`
	Dependencies []string        `json:"dependencies,omitempty"`
	Packages     []string        `json:"packages,omitempty"`
	Handle       json.RawMessage `json:"handle"`
	Force        bool            `json:"force,omitempty"`
	Executed     bool            `json:"executed"`
	Result       json.RawMessage `json:"result,omitempty"`
	Duration     *time.Duration  `json:"duration,omitempty"`
	Label        string          `json:"label,omitempty"`
	Note         string          `json:"note,omitempty"`
	State        string          `json:"state"`
}

// MarshalJSON implements json.Marshaler.
func (s *Segment) MarshalJSON() ([]byte, error) {
	handle, err := s.handle.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("segment %d: handle: %w", s.id, err)
	}
	rec := record{
		ID:           s.id,
		Kind:         s.payload.Kind(),
		Targets:      s.targets,
		Dependencies: s.dependencies,
		Packages:     s.packages,
		Handle:       handle,
		Force:        s.force,
		Executed:     s.executed,
		Duration:     s.duration,
		Label:        s.label,
		Note:         s.note,
		State:        s.State(),
	}
	switch p := s.payload.(type) {
	case *Recipe:
		rec.Recipe = p.source
	case *Script:
		rec.Script = p.path
	}
	if !s.result.IsNull() {
		rec.Result, err = env.MarshalValue(s.result)
		if err != nil {
			return nil, fmt.Errorf("segment %d: result: %w", s.id, err)
		}
	}
	return json.Marshal(rec)
}

// DecodeOptions controls how a persisted segment is restored.
type DecodeOptions struct {
	// Libraries re-resolves the segment's packages.
	Libraries library.Resolver
	// Parent is the environment restored handles fall through to. A handle
	// that was Parent itself, or a namespace bound in Parent, when saved is
	// restored as that environment.
	Parent *env.Env
}

// Decode restores a segment written by MarshalJSON. Unlike NewScript, it
// does not require the script file to exist.
func Decode(data []byte, opts DecodeOptions) (*Segment, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode segment: %w", err)
	}

	var payload Payload
	switch rec.Kind {
	case "recipe":
		r, err := ParseRecipe(rec.Recipe)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", rec.ID, err)
		}
		payload = r
	case "script":
		payload = &Script{path: rec.Script}
	default:
		return nil, fmt.Errorf("segment %d: unknown kind %q", rec.ID, rec.Kind)
	}

	handle, err := decodeHandle(rec.Handle, opts.Parent)
	if err != nil {
		return nil, fmt.Errorf("segment %d: handle: %w", rec.ID, err)
	}

	state := rec.State
	if state == "" {
		state = StateConstructed
	}
	s, err := build(Options{
		ID:           rec.ID,
		Targets:      rec.Targets,
		Dependencies: rec.Dependencies,
		Packages:     rec.Packages,
		Handle:       handle,
		Force:        rec.Force,
		Label:        rec.Label,
		Note:         rec.Note,
		Libraries:    opts.Libraries,
	}, payload, state)
	if err != nil {
		return nil, err
	}

	result := cty.NullVal(cty.DynamicPseudoType)
	if len(rec.Result) > 0 {
		result, err = env.UnmarshalValue(rec.Result)
		if err != nil {
			return nil, fmt.Errorf("segment %d: result: %w", rec.ID, err)
		}
	}
	s.UpdateResult(rec.Executed, rec.Duration, result)
	return s, nil
}

func decodeHandle(data json.RawMessage, parent *env.Env) (*env.Env, error) {
	handle := env.New("")
	if err := handle.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	if parent == nil {
		return handle, nil
	}
	if handle.Name() == parent.Name() {
		return parent, nil
	}
	if bound, ok := parent.Lookup(handle.Name()); ok {
		return bound, nil
	}
	handle.Reparent(parent)
	return handle, nil
}
