// Package policy loads scan policies from YAML files.
package policy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sonnylabs/sonnylabs-go/scan"
)

// Actions understood by the CLI. The scanner itself never acts on them.
const (
	ActionBlock = "block"
	ActionWarn  = "warn"
	ActionLog   = "log"
)

// File is the on-disk policy document.
//
//	version: "1"
//	threshold: 0.65
//	max_chunks_to_scan: 20
//	action: block
//	block_threshold: 0.85
//	review_threshold: 0.65
//	skip_query_scan: false
type File struct {
	Version     string `yaml:"version"`
	scan.Policy `yaml:",inline"`
}

// Load reads the policy at path. A missing file yields the default policy.
// Unknown keys are rejected so that typos do not silently fall back to
// defaults.
func Load(path string) (scan.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultPolicy(), nil
		}
		return scan.Policy{}, err
	}
	return Parse(data)
}

// Parse decodes and validates a policy document.
func Parse(data []byte) (scan.Policy, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return scan.Policy{}, fmt.Errorf("%w: %v", scan.ErrInvalidPolicy, err)
	}

	if f.Action == "" {
		f.Action = ActionBlock
	}
	switch f.Action {
	case ActionBlock, ActionWarn, ActionLog:
	default:
		return scan.Policy{}, fmt.Errorf("%w: unknown action %q", scan.ErrInvalidPolicy, f.Action)
	}

	return f.Policy.Effective()
}

// DefaultPolicy is the policy used when no file exists.
func DefaultPolicy() scan.Policy {
	p := scan.DefaultPolicy()
	p.Action = ActionBlock
	return p
}
