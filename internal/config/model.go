package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
)

// Segment kinds.
const (
	KindRecipe = "recipe"
	KindScript = "script"
)

// Model is the unified representation of a pipeline definition.
type Model struct {
	// Vars are bound into the root environment in declaration order.
	Vars []*Variable
	// Segments are declared in file order, then block order.
	Segments []*SegmentDef
	// Files lists every file the model was loaded from.
	Files []string
}

// Variable is a named value shared by every segment.
type Variable struct {
	Name string
	Expr hcl.Expression
}

// SegmentDef is the format-agnostic representation of one segment.
type SegmentDef struct {
	Kind         string
	Name         string
	Targets      []string
	Dependencies []string
	Packages     []string
	Force        bool
	Label        string
	Note         string
	// Recipe is the expression text of a recipe segment.
	Recipe string
	// Source is the script path of a script segment.
	Source string
	// DefinedIn is the file holding the definition.
	DefinedIn string
}

// Validate checks the parts of a definition that do not need the filesystem.
func (d *SegmentDef) Validate() error {
	switch d.Kind {
	case KindRecipe:
		if d.Recipe == "" {
			return fmt.Errorf("segment %q: recipe segments need a `run` expression", d.Name)
		}
		if d.Source != "" {
			return fmt.Errorf("segment %q: recipe segments cannot set `source`", d.Name)
		}
	case KindScript:
		if d.Source == "" {
			return fmt.Errorf("segment %q: script segments need a `source` path", d.Name)
		}
		if d.Recipe != "" {
			return fmt.Errorf("segment %q: script segments cannot set `run`", d.Name)
		}
	default:
		return fmt.Errorf("segment %q: unknown kind %q, expected %q or %q", d.Name, d.Kind, KindRecipe, KindScript)
	}
	if len(d.Targets) == 0 {
		return fmt.Errorf("segment %q: at least one target is required", d.Name)
	}
	return nil
}

// Title is the label, else the block name.
func (d *SegmentDef) Title() string {
	if d.Label != "" {
		return d.Label
	}
	return d.Name
}
