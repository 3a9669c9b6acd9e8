package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Vars     []*varsBlock    `hcl:"vars,block"`
	Segments []*segmentBlock `hcl:"segment,block"`
	Remain   hcl.Body        `hcl:",remain"`
}

type varsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

type segmentBlock struct {
	Kind         string         `hcl:"kind,label"`
	Name         string         `hcl:"name,label"`
	Targets      []string       `hcl:"targets"`
	Dependencies []string       `hcl:"dependencies,optional"`
	Packages     []string       `hcl:"packages,optional"`
	Force        bool           `hcl:"force,optional"`
	Label        string         `hcl:"label,optional"`
	Note         string         `hcl:"note,optional"`
	Run          hcl.Expression `hcl:"run,optional"`
	Source       string         `hcl:"source,optional"`
}
