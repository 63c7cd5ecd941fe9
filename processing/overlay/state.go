package overlay

import "sync"

// State holds the overlay decision for one camera session: either nothing
// or the label whose animation is shown. Only the poll loop writes it.
type State struct {
	mu    sync.Mutex
	label string
	shown bool

	onChange func(label string, shown bool)
}

// NewState creates an empty state. onChange, when set, runs after every
// transition, outside the lock.
func NewState(onChange func(label string, shown bool)) *State {
	return &State{onChange: onChange}
}

func (s *State) Show(label string) {
	s.set(label, true)
}

func (s *State) Clear() {
	s.set("", false)
}

func (s *State) Current() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.label, s.shown
}

func (s *State) set(label string, shown bool) {
	s.mu.Lock()
	changed := s.label != label || s.shown != shown
	s.label, s.shown = label, shown
	s.mu.Unlock()

	if changed && s.onChange != nil {
		s.onChange(label, shown)
	}
}
