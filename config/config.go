// Package config handles wasmjc.toml project configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/inetmodule/cw2wasm/wasmerr"
)

// Config is a parsed wasmjc.toml project manifest (SPEC_FULL.md §6.2).
type Config struct {
	Project Project `toml:"project"`
	Source  Source  `toml:"source"`
	Options Options `toml:"options"`

	// Dir is the directory containing the wasmjc.toml file (set at load time).
	Dir string `toml:"-"`
}

type Project struct {
	Name string `toml:"name"`
}

type Source struct {
	Libraries []string `toml:"libraries"`
	Output    string   `toml:"output"`
}

type Options struct {
	EnableEH bool `toml:"enable-eh"`
	EnableGC bool `toml:"enable-gc"`
}

// Load parses a wasmjc.toml file from the given directory and enforces
// its required shape directly (spec's CUE-free validation decision,
// see DESIGN.md): a [source] table must be present and name at least
// one library path.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, "wasmjc.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wasmerr.IOFailure{Detail: fmt.Sprintf("cannot read %s", path), Err: err}
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, wasmerr.ParseError{Detail: fmt.Sprintf("parse error in %s", path), Err: err}
	}

	if len(c.Source.Libraries) == 0 {
		return nil, wasmerr.AnnotationViolation{MethodName: "[source]", Detail: "wasmjc.toml must name at least one library path"}
	}
	if c.Source.Output == "" {
		c.Source.Output = "out/module.wasm"
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, wasmerr.IOFailure{Detail: "resolving " + dir, Err: err}
	}
	return &c, nil
}

// FindAndLoad walks up from startDir looking for a wasmjc.toml file,
// then loads it. Returns nil, nil if none is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		path := filepath.Join(dir, "wasmjc.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// LibraryPaths returns the configured library paths resolved relative
// to the manifest's directory.
func (c *Config) LibraryPaths() []string {
	out := make([]string, len(c.Source.Libraries))
	for i, lib := range c.Source.Libraries {
		if filepath.IsAbs(lib) {
			out[i] = lib
		} else {
			out[i] = filepath.Join(c.Dir, lib)
		}
	}
	return out
}

// OutputPath returns the configured output path resolved relative to
// the manifest's directory.
func (c *Config) OutputPath() string {
	if filepath.IsAbs(c.Source.Output) {
		return c.Source.Output
	}
	return filepath.Join(c.Dir, c.Source.Output)
}
