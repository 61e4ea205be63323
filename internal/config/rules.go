package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/frudas24/monlaunch/internal/affinity"
	"github.com/frudas24/monlaunch/internal/launch"
)

// ErrNoRules is returned when there is nothing to launch.
var ErrNoRules = errors.New("no rules configured")

// Rule pairs an affinity specification with the command to run.
type Rule struct {
	Name          string        `yaml:"name,omitempty"`
	Cmd           string        `yaml:"cmd"`
	Args          []string      `yaml:"args,omitempty"`
	Affinities    affinity.Spec `yaml:"affinities"`
	AllowMultiple bool          `yaml:"allow_multiple,omitempty"`
	Env           string        `yaml:"env,omitempty"`
	Placeholder   string        `yaml:"placeholder,omitempty"`
}

// File is the on-disk rules document.
type File struct {
	Rules []Rule `yaml:"rules"`
}

// Validate rejects rules the engine cannot run.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Cmd) == "" {
		return errors.New("cmd is required")
	}
	if err := r.Affinities.Validate(); err != nil {
		return err
	}
	if strings.ContainsRune(r.Env, '=') {
		return fmt.Errorf("env %q must not contain '='", r.Env)
	}
	return nil
}

// Template returns the launch template for the rule.
func (r Rule) Template() launch.Template {
	return launch.Template{
		Program:       r.Cmd,
		Args:          append([]string(nil), r.Args...),
		Placeholder:   r.Placeholder,
		EnvVar:        r.Env,
		AllowMultiple: r.AllowMultiple,
	}
}

// Label is the rule name, or its command when unnamed.
func (r Rule) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Cmd
}

// Key identifies the rule's full definition; two rules with the same key
// launch the same thing.
func (r Rule) Key() string {
	out, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Sprintf("%+v", r)
	}
	return string(out)
}

// LoadFile reads and validates a rules file.
func LoadFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rules, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// Parse decodes a rules document. Unknown keys are errors.
func Parse(data []byte) ([]Rule, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoRules
		}
		return nil, err
	}
	if len(f.Rules) == 0 {
		return nil, ErrNoRules
	}
	for i, r := range f.Rules {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i+1, r.Label(), err)
		}
	}
	return f.Rules, nil
}
