// Package config defines the format-agnostic model of a pipeline definition
// and the Loader interface that format-specific loaders implement.
//
// The `config.Model` is the single source of truth for building a pipeline.
// Concrete loaders, such as the HCL one, live in separate packages.
package config
