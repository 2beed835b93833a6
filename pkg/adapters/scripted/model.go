// Package scripted implements a deterministic ports.Model driven by a
// predefined script. It exists for replaying conversations, demos and
// tests; every Complete call plays the next scripted turn regardless of
// input.
package scripted

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/parleyhq/parley/pkg/domain"
)

// Call is one scripted function call request.
type Call struct {
	Name string         `yaml:"name" json:"name"`
	Args map[string]any `yaml:"args,omitempty" json:"args,omitempty"`
}

// Turn is one scripted model response, optionally annotated with the
// user utterance that provokes it so drivers can replay both sides.
type Turn struct {
	User  string `yaml:"user,omitempty" json:"user,omitempty"`
	Text  string `yaml:"text,omitempty" json:"text,omitempty"`
	Calls []Call `yaml:"calls,omitempty" json:"calls,omitempty"`
}

// Script is an ordered list of turns.
type Script struct {
	Name  string `yaml:"name,omitempty" json:"name,omitempty"`
	Turns []Turn `yaml:"turns" json:"turns"`
}

// Parse decodes a YAML script.
func Parse(data []byte) (Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Script{}, fmt.Errorf("parsing script: %w", err)
	}
	if len(s.Turns) == 0 {
		return Script{}, fmt.Errorf("script has no turns")
	}
	return s, nil
}

// LoadFile reads and parses a YAML script from disk.
func LoadFile(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("reading script %s: %w", path, err)
	}
	return Parse(data)
}

// Model plays a script one turn per Complete call. Safe for concurrent
// use, though a shared cursor makes interleaved sessions pointless; use
// one Model per session.
type Model struct {
	mu     sync.Mutex
	script Script
	cursor int
}

// New creates a scripted model.
func New(script Script) *Model {
	return &Model{script: script}
}

// Complete returns the next scripted turn. Past the end of the script it
// returns an empty output, which the engine treats as a no-op turn.
func (m *Model) Complete(ctx context.Context, _ domain.Prompt, _ []domain.Message) (domain.ModelOutput, error) {
	if err := ctx.Err(); err != nil {
		return domain.ModelOutput{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cursor >= len(m.script.Turns) {
		return domain.ModelOutput{}, nil
	}
	turn := m.script.Turns[m.cursor]
	m.cursor++

	out := domain.ModelOutput{Text: turn.Text}
	for _, c := range turn.Calls {
		out.Calls = append(out.Calls, domain.FunctionCall{Name: c.Name, Args: domain.Args(c.Args)})
	}
	return out, nil
}

// Script returns the underlying script, for drivers that replay the user
// side as well.
func (m *Model) Script() Script {
	return m.script
}

// Rewind resets the cursor to the first turn.
func (m *Model) Rewind() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursor = 0
}

// Exhausted reports whether every turn has been played.
func (m *Model) Exhausted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor >= len(m.script.Turns)
}
