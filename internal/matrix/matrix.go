// Package matrix models the CI job matrix: explicit jobs plus axis blocks
// that expand (os × interpreter × arch) into concrete job lanes, each with a
// fixed script sequence and an optional tag/event gate.
package matrix

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Gate restricts when a job runs. Empty fields match everything.
type Gate struct {
	Tag   string `yaml:"tag,omitempty"`   // regexp matched against the run's tag
	Event string `yaml:"event,omitempty"` // exact match against the run's event type
}

// Job is one lane of the matrix.
type Job struct {
	Name         string            `yaml:"name"`
	Stage        string            `yaml:"stage"`
	OS           string            `yaml:"os,omitempty"`
	Interpreter  string            `yaml:"interpreter,omitempty"`
	Arch         string            `yaml:"arch,omitempty"`
	Env          map[string]string `yaml:"env,omitempty"`
	Script       []string          `yaml:"script"`
	AllowFailure bool              `yaml:"allow_failure,omitempty"`
	Gate         *Gate             `yaml:"gate,omitempty"`
}

// Axis expands a job template across os/interpreter/arch value lists.
type Axis struct {
	Template    Job                 `yaml:"template"`
	NameFormat  string              `yaml:"name_format"`
	OS          []string            `yaml:"os,omitempty"`
	Interpreter []string            `yaml:"interpreter,omitempty"`
	Arch        []string            `yaml:"arch,omitempty"`
	Exclude     []map[string]string `yaml:"exclude,omitempty"`
}

// Matrix is the parsed CI definition.
type Matrix struct {
	Stages []string          `yaml:"stages"`
	Env    map[string]string `yaml:"env,omitempty"`
	Jobs   []Job             `yaml:"jobs,omitempty"`
	Axes   []Axis            `yaml:"axes,omitempty"`
}

// Load reads and validates a matrix file.
func Load(path string) (*Matrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read matrix file: %w", err)
	}
	var m Matrix
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal matrix file: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// StageOrder returns the position of a stage name, or -1 when unknown.
func (m *Matrix) StageOrder(stage string) int {
	for i, s := range m.Stages {
		if s == stage {
			return i
		}
	}
	return -1
}
