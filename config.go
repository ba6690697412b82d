// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds the settings of a Solver together with the tolerances of
// the solves it will run, as read from a configuration file.
type Config struct {
	// Solver is "cg" or "bicgstab".
	Solver Type `yaml:"solver" validate:"oneof=0 1"`
	// MaxIterations is the iteration limit.
	MaxIterations int `yaml:"max_iterations" validate:"gt=0"`
	// GhostWidth is the ghost width of the vectors passed to the
	// operator.
	GhostWidth int `yaml:"ghost_width" validate:"gte=0"`
	// Verbosity is the diagnostics level, see Solver.SetVerbosity.
	Verbosity int `yaml:"verbosity" validate:"gte=0"`
	// RelTol and AbsTol are the eps_rel and eps_abs arguments of
	// Solver.Solve.
	RelTol float64 `yaml:"rel_tol" validate:"gte=0"`
	AbsTol float64 `yaml:"abs_tol" validate:"gte=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// DefaultConfig returns the defaults of a new Solver with a relative
// tolerance suitable for a multigrid bottom solve.
func DefaultConfig() Config {
	return Config{
		Solver:        BiCGStab,
		MaxIterations: DefaultMaxIterations,
		RelTol:        1e-4,
	}
}

// Validate reports an error wrapping ErrInvalidConfig if a field of c is
// out of range.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// LoadConfig reads a YAML configuration file. Fields missing from the file
// keep their DefaultConfig values; unknown fields are an error.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("krylov: read config: %w", err)
	}
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NewFromConfig returns a Solver for op configured by cfg.
func NewFromConfig(op Operator, cfg Config, amrLevel, mgLevel int, opts ...Option) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := New(op, cfg.Solver, amrLevel, mgLevel, opts...)
	s.SetMaxIterations(cfg.MaxIterations)
	s.SetGhostWidth(cfg.GhostWidth)
	s.SetVerbosity(cfg.Verbosity)
	return s, nil
}
