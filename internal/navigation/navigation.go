package navigation

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownView = errors.New("unknown view")

// View is the page a session is looking at.
type View string

const (
	Home       View = "home"
	Prediction View = "prediction"
	Solution   View = "solution"
)

// Views lists every selectable view.
func Views() []View {
	return []View{Home, Prediction, Solution}
}

// ParseView accepts a view name in any case.
func ParseView(s string) (View, error) {
	v := View(strings.ToLower(strings.TrimSpace(s)))
	switch v {
	case Home, Prediction, Solution:
		return v, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
}

// State is a per-session view selector. Only Select moves it.
type State struct {
	current View
}

// New returns a State on Home.
func New() *State {
	return &State{current: Home}
}

// Current returns the active view.
func (s *State) Current() View {
	return s.current
}

// Select moves to target and reports whether the view changed. Selecting the
// current view is a no-op.
func (s *State) Select(target View) (bool, error) {
	if _, err := ParseView(string(target)); err != nil {
		return false, err
	}
	if target == s.current {
		return false, nil
	}
	s.current = target
	return true, nil
}
