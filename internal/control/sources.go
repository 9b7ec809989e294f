// ABOUTME: Source table mapping indices and names to input buses
// ABOUTME: Validates switch targets before they reach the audio callback
package control

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidSource is returned for an index out of range or an unknown name.
var ErrInvalidSource = errors.New("invalid source")

// reserved words cannot be used as source names.
var reserved = map[string]bool{
	"list":   true,
	"status": true,
	"help":   true,
	"quit":   true,
	"exit":   true,
}

// Sources is the immutable table of input buses known to the control plane.
type Sources struct {
	names  []string
	byName map[string]int
}

// NewSources builds a table for inputs buses. names may be shorter than
// inputs; unnamed buses are called in_<index>.
func NewSources(inputs int, names []string) (*Sources, error) {
	if inputs < 1 {
		return nil, fmt.Errorf("need at least one input, got %d", inputs)
	}
	if len(names) > inputs {
		return nil, fmt.Errorf("%d names given for %d inputs", len(names), inputs)
	}

	s := &Sources{
		names:  make([]string, inputs),
		byName: make(map[string]int, inputs),
	}

	for i := 0; i < inputs; i++ {
		name := fmt.Sprintf("in_%d", i)
		if i < len(names) && strings.TrimSpace(names[i]) != "" {
			name = strings.TrimSpace(names[i])
		}
		if err := checkName(name); err != nil {
			return nil, err
		}

		key := strings.ToLower(name)
		if prev, exists := s.byName[key]; exists {
			return nil, fmt.Errorf("source name %q used by inputs %d and %d", name, prev, i)
		}
		s.names[i] = name
		s.byName[key] = i
	}

	return s, nil
}

func checkName(name string) error {
	if _, err := strconv.Atoi(name); err == nil {
		return fmt.Errorf("source name %q must not be numeric", name)
	}
	if reserved[strings.ToLower(name)] {
		return fmt.Errorf("source name %q is a reserved command", name)
	}
	if strings.ContainsAny(name, " \t\r\n") {
		return fmt.Errorf("source name %q must not contain whitespace", name)
	}
	return nil
}

// Lookup resolves a bare decimal index or a case-insensitive name.
func (s *Sources) Lookup(token string) (int, error) {
	token = strings.TrimSpace(token)
	if idx, err := strconv.Atoi(token); err == nil {
		if idx < 0 || idx >= len(s.names) {
			return 0, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidSource, idx, len(s.names))
		}
		return idx, nil
	}

	if idx, ok := s.byName[strings.ToLower(token)]; ok {
		return idx, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidSource, token)
}

// Name returns the name of input idx.
func (s *Sources) Name(idx int) string {
	if idx < 0 || idx >= len(s.names) {
		return ""
	}
	return s.names[idx]
}

// Names returns a copy of all source names in index order.
func (s *Sources) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of inputs.
func (s *Sources) Len() int { return len(s.names) }
