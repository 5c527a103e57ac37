// Package workflowdef loads the authored workflow step definitions from
// YAML and validates them before they are seeded into the database.
package workflowdef

import (
	"fmt"
	"os"

	"internhub/internal/model"

	"gopkg.in/yaml.v3"
)

// Step is one authored step of a process
type Step struct {
	Key         string   `yaml:"key"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Required    bool     `yaml:"required"`
	DependsOn   []string `yaml:"depends_on"`
}

// Process groups the ordered steps of one process type
type Process struct {
	ProcessType string `yaml:"process_type"`
	Steps       []Step `yaml:"steps"`
}

// File is the root of a workflow definitions YAML document
type File struct {
	Processes []Process `yaml:"processes"`
}

// Load reads and validates a workflow definitions file
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow definitions: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse workflow definitions: %w", err)
	}

	if err := file.Validate(); err != nil {
		return nil, err
	}
	return &file, nil
}

// Validate checks process types, key uniqueness, dependency references and
// that the dependency graph of every process is acyclic.
func (f *File) Validate() error {
	seen := make(map[string]bool, len(f.Processes))
	for _, p := range f.Processes {
		if !model.ValidProcessType(p.ProcessType) {
			return fmt.Errorf("unknown process type %q", p.ProcessType)
		}
		if seen[p.ProcessType] {
			return fmt.Errorf("duplicate process type %q", p.ProcessType)
		}
		seen[p.ProcessType] = true

		if len(p.Steps) == 0 {
			return fmt.Errorf("process %q has no steps", p.ProcessType)
		}
		if err := p.validateSteps(); err != nil {
			return fmt.Errorf("process %q: %w", p.ProcessType, err)
		}
	}
	return nil
}

func (p *Process) validateSteps() error {
	keys := make(map[string]bool, len(p.Steps))
	for _, s := range p.Steps {
		if s.Key == "" {
			return fmt.Errorf("step with empty key")
		}
		if keys[s.Key] {
			return fmt.Errorf("duplicate step key %q", s.Key)
		}
		keys[s.Key] = true
	}

	for _, s := range p.Steps {
		for _, dep := range s.DependsOn {
			if !keys[dep] {
				return fmt.Errorf("step %q depends on unknown step %q", s.Key, dep)
			}
			if dep == s.Key {
				return fmt.Errorf("step %q depends on itself", s.Key)
			}
		}
	}

	return p.checkAcyclic()
}

// checkAcyclic runs Kahn's algorithm over the dependency edges; leftover
// nodes mean a cycle.
func (p *Process) checkAcyclic() error {
	indegree := make(map[string]int, len(p.Steps))
	dependents := make(map[string][]string, len(p.Steps))
	for _, s := range p.Steps {
		indegree[s.Key] = len(s.DependsOn)
		for _, dep := range s.DependsOn {
			dependents[dep] = append(dependents[dep], s.Key)
		}
	}

	var queue []string
	for key, deg := range indegree {
		if deg == 0 {
			queue = append(queue, key)
		}
	}

	resolved := 0
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		resolved++
		for _, next := range dependents[key] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if resolved != len(p.Steps) {
		return fmt.Errorf("dependency cycle detected")
	}
	return nil
}

// Definitions converts the file into persistable step definition rows,
// with step order taken from position in the YAML list.
func (f *File) Definitions() ([]model.WorkflowStepDefinition, error) {
	var defs []model.WorkflowStepDefinition
	for _, p := range f.Processes {
		for i, s := range p.Steps {
			def := model.WorkflowStepDefinition{
				ProcessType:         p.ProcessType,
				StepKey:             s.Key,
				StepOrder:           i + 1,
				Title:               s.Title,
				DescriptionTemplate: s.Description,
				Required:            s.Required,
			}
			if err := def.SetDependencyKeys(s.DependsOn); err != nil {
				return nil, fmt.Errorf("step %q: %w", s.Key, err)
			}
			defs = append(defs, def)
		}
	}
	return defs, nil
}
