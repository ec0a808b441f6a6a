package ensemble

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Directive is one rewriting instruction applied to a question to produce a
// variant.
type Directive struct {
	Name        string `yaml:"name" json:"name"`
	Instruction string `yaml:"instruction" json:"instruction"`
}

// DefaultDirectives rewrite the question for progressively older readers.
func DefaultDirectives() []Directive {
	return []Directive{
		{Name: "fifth-grader", Instruction: "Rewrite this like a 5th grader."},
		{Name: "middle-school", Instruction: "Rewrite this like a middle schooler."},
		{Name: "high-school", Instruction: "Rewrite this like a high school student."},
		{Name: "adult", Instruction: "Rewrite this like an educated adult."},
	}
}

type directiveFile struct {
	Directives []Directive `yaml:"directives"`
}

// LoadDirectives reads an ordered directive list from a YAML file of the form
//
//	directives:
//	  - name: plain
//	    instruction: Rewrite this in plain words.
func LoadDirectives(path string) ([]Directive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directives file %s: %w", path, err)
	}
	var f directiveFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse directives YAML: %w", err)
	}
	if err := validateDirectives(f.Directives); err != nil {
		return nil, fmt.Errorf("directives file %s: %w", path, err)
	}
	return f.Directives, nil
}

func validateDirectives(ds []Directive) error {
	if len(ds) == 0 {
		return errors.New("at least one directive is required")
	}
	for i, d := range ds {
		if strings.TrimSpace(d.Instruction) == "" {
			return fmt.Errorf("directive %d (%q) has no instruction", i, d.Name)
		}
	}
	return nil
}
