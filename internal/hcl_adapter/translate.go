package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/specialistvlad/gridmake/internal/config"
	"github.com/specialistvlad/gridmake/internal/ctxlog"
)

// translateSegment converts the HCL-specific segment schema into the agnostic model.
func (l *Loader) translateSegment(ctx context.Context, s *segmentBlock, file string, src []byte) (*config.SegmentDef, error) {
	ctx, logger := ctxlog.With(ctx, "segment_kind", s.Kind, "segment_name", s.Name)
	logger.Debug("Translating HCL segment to internal config model.")

	def := &config.SegmentDef{
		Kind:         s.Kind,
		Name:         s.Name,
		Targets:      s.Targets,
		Dependencies: s.Dependencies,
		Packages:     s.Packages,
		Force:        s.Force,
		Label:        s.Label,
		Note:         s.Note,
		Source:       s.Source,
		DefinedIn:    file,
	}
	if isExprDefined(ctx, s.Run, "run") {
		def.Recipe = sourceText(s.Run, src)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return def, nil
}

// translateVars converts every attribute of a vars block, in source order.
func (l *Loader) translateVars(v *varsBlock, file string) ([]*config.Variable, error) {
	attrs, diags := v.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode vars in %s: %w", file, diags)
	}
	var out []*config.Variable
	for _, a := range orderedAttributes(attrs) {
		out = append(out, &config.Variable{Name: a.Name, Expr: a.Expr})
	}
	return out, nil
}
