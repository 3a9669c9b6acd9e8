package pipeline

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/specialistvlad/gridmake/internal/segment"
)

type document struct {
	Root     json.RawMessage   `json:"root"`
	Segments []json.RawMessage `json:"segments"`
}

// Summary prints every segment's summary, separated by blank lines.
func (p *Pipeline) Summary(w io.Writer) error {
	for i, s := range p.segments {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := s.Print(w); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the root environment and every segment as JSON.
func (p *Pipeline) Save(w io.Writer) error {
	root, err := p.root.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode root environment: %w", err)
	}
	doc := document{Root: root, Segments: make([]json.RawMessage, 0, len(p.segments))}
	for _, s := range p.segments {
		data, err := json.Marshal(s)
		if err != nil {
			return err
		}
		doc.Segments = append(doc.Segments, data)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Load replaces the pipeline's contents with a document written by Save.
// The root environment keeps its functions and parent.
func (p *Pipeline) Load(r io.Reader) error {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode pipeline: %w", err)
	}
	if len(doc.Root) > 0 {
		if err := p.root.UnmarshalJSON(doc.Root); err != nil {
			return fmt.Errorf("failed to decode root environment: %w", err)
		}
	}

	segments := make([]*segment.Segment, 0, len(doc.Segments))
	nextID := 1
	for _, raw := range doc.Segments {
		s, err := segment.Decode(raw, segment.DecodeOptions{Libraries: p.libs, Parent: p.root})
		if err != nil {
			return err
		}
		segments = append(segments, s)
		if s.ID() >= nextID {
			nextID = s.ID() + 1
		}
	}
	p.segments = segments
	p.nextID = nextID
	return nil
}
