package prompt

import (
	"fmt"
	"sync"
)

// Scripted answers questions from fixed queues, in order, and records every
// question asked. A question with no scripted answer fails.
type Scripted struct {
	mu         sync.Mutex
	Confirms   []bool
	Selections []int
	Paths      []string
	asked      []string
}

var _ Prompt = (*Scripted)(nil)

// Asked returns every question or title asked so far.
func (s *Scripted) Asked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.asked...)
}

// Confirm implements Prompt.
func (s *Scripted) Confirm(question string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asked = append(s.asked, question)
	if len(s.Confirms) == 0 {
		return false, fmt.Errorf("scripted prompt: no answer for %q: %w", question, ErrNonInteractive)
	}
	ans := s.Confirms[0]
	s.Confirms = s.Confirms[1:]
	return ans, nil
}

// Select implements Prompt.
func (s *Scripted) Select(title string, options []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asked = append(s.asked, title)
	if len(s.Selections) == 0 {
		return -1, fmt.Errorf("scripted prompt: no answer for %q: %w", title, ErrNonInteractive)
	}
	ans := s.Selections[0]
	s.Selections = s.Selections[1:]
	if ans < 0 || ans >= len(options) {
		return -1, fmt.Errorf("scripted prompt: choice %d out of range for %q", ans, title)
	}
	return ans, nil
}

// Path implements Prompt.
func (s *Scripted) Path(question string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asked = append(s.asked, question)
	if len(s.Paths) == 0 {
		return "", fmt.Errorf("scripted prompt: no answer for %q: %w", question, ErrNonInteractive)
	}
	ans := s.Paths[0]
	s.Paths = s.Paths[1:]
	return ans, nil
}
