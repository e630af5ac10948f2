package persona

import "errors"

var ErrNothingHighlighted = errors.New("no persona highlighted")

// Selector is the stateless chooser in front of the session bootstrapper.
// Its only state is the currently highlighted choice before confirmation;
// it never talks to the network.
type Selector struct {
	highlighted *Persona
}

func NewSelector() *Selector {
	return &Selector{}
}

// Highlight marks a catalog persona as the current choice.
func (s *Selector) Highlight(id string) error {
	p, ok := Find(id)
	if !ok {
		return errors.New("unknown persona: " + id)
	}
	s.highlighted = p
	return nil
}

// Highlighted returns the current choice, or nil.
func (s *Selector) Highlighted() *Persona {
	return s.highlighted
}

// Confirm commits the highlighted persona.
func (s *Selector) Confirm() (*Persona, error) {
	if s.highlighted == nil {
		return nil, ErrNothingHighlighted
	}
	return s.highlighted, nil
}

// Skip proceeds without a persona.
func (s *Selector) Skip() *Persona {
	s.highlighted = nil
	return nil
}
