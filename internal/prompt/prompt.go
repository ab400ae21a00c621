// Package prompt asks the operator for missing input.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
)

// ErrAborted is returned when the operator cancels a prompt.
var ErrAborted = errors.New("aborted by user")

// Prompter collects interactive answers.
type Prompter interface {
	// Input asks for a line of text. def is returned for an empty answer.
	Input(title, def string) (string, error)
	// Confirm asks a yes/no question.
	Confirm(title string) (bool, error)
	// MultiSelect returns the 0-based indices of the chosen options.
	MultiSelect(title string, options []string) ([]int, error)
}

// Required asks for a value that must not be empty.
func Required(p Prompter, title, what string) (string, error) {
	v, err := p.Input(title, "")
	if err != nil {
		return "", err
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("%s is required", what)
	}
	return v, nil
}

// Huh prompts on the terminal.
type Huh struct{}

// Input implements Prompter
func (Huh) Input(title, def string) (string, error) {
	var v string
	input := huh.NewInput().Title(title).Value(&v)
	if def != "" {
		input = input.Placeholder(def)
	}
	if err := input.Run(); err != nil {
		return "", wrap(err)
	}
	if strings.TrimSpace(v) == "" {
		return def, nil
	}
	return v, nil
}

// Confirm implements Prompter
func (Huh) Confirm(title string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if err != nil {
		return false, wrap(err)
	}
	return ok, nil
}

// MultiSelect implements Prompter
func (Huh) MultiSelect(title string, options []string) ([]int, error) {
	opts := make([]huh.Option[int], len(options))
	for i, o := range options {
		opts[i] = huh.NewOption(fmt.Sprintf("%d. %s", i+1, o), i)
	}

	var selected []int
	err := huh.NewMultiSelect[int]().
		Title(title).
		Options(opts...).
		Value(&selected).
		Run()
	if err != nil {
		return nil, wrap(err)
	}
	return selected, nil
}

func wrap(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrAborted
	}
	return err
}

// Scripted answers prompts from fixed lists, in order. It is used for
// non-interactive runs and tests.
type Scripted struct {
	Inputs   []string
	Confirms []bool
	Selects  [][]int
}

// Input implements Prompter
func (s *Scripted) Input(title, def string) (string, error) {
	if len(s.Inputs) == 0 {
		return "", fmt.Errorf("no scripted answer for %q", title)
	}
	v := s.Inputs[0]
	s.Inputs = s.Inputs[1:]
	if strings.TrimSpace(v) == "" {
		return def, nil
	}
	return v, nil
}

// Confirm implements Prompter
func (s *Scripted) Confirm(title string) (bool, error) {
	if len(s.Confirms) == 0 {
		return false, fmt.Errorf("no scripted answer for %q", title)
	}
	v := s.Confirms[0]
	s.Confirms = s.Confirms[1:]
	return v, nil
}

// MultiSelect implements Prompter
func (s *Scripted) MultiSelect(title string, options []string) ([]int, error) {
	if len(s.Selects) == 0 {
		return nil, fmt.Errorf("no scripted answer for %q", title)
	}
	v := s.Selects[0]
	s.Selects = s.Selects[1:]
	for _, i := range v {
		if i < 0 || i >= len(options) {
			return nil, fmt.Errorf("option %d out of range", i)
		}
	}
	return v, nil
}
