// Package hcl_adapter loads pipeline definitions written in HCL into the
// format-agnostic config.Model.
//
// A definition file holds `vars` blocks, whose attributes become values in
// the root environment, and `segment` blocks labelled with their kind and
// name:
//
//	vars {
//	  raw = "data/raw.csv"
//	}
//
//	segment "recipe" "clean" {
//	  targets      = ["data/clean.csv"]
//	  dependencies = ["data/raw.csv"]
//	  run          = writefile("data/clean.csv", trimspace(file(raw)))
//	}
//
//	segment "script" "fit" {
//	  targets = ["model.txt"]
//	  source  = "scripts/fit.hcl"
//	}
//
// The `run` expression is kept as source text and evaluated when the
// segment executes.
package hcl_adapter
